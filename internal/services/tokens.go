package services

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Device is a push target registered by the driver app
type Device struct {
	Token      string    `json:"token"`
	DeviceType string    `json:"deviceType"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// TokenStore keeps the latest device token per driver, in memory
type TokenStore struct {
	mu      sync.RWMutex
	devices map[string]Device
}

func NewTokenStore() *TokenStore {
	return &TokenStore{devices: make(map[string]Device)}
}

// Register stores token for driverID, replacing any previous device
func (s *TokenStore) Register(driverID, token, deviceType string) error {
	token = strings.TrimSpace(token)
	if driverID == "" || token == "" {
		return fmt.Errorf("driver id and token are required")
	}
	if deviceType != "ios" && deviceType != "android" {
		return fmt.Errorf("invalid device type %q (must be 'ios' or 'android')", deviceType)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices[driverID] = Device{Token: token, DeviceType: deviceType, UpdatedAt: time.Now()}
	return nil
}

func (s *TokenStore) Get(driverID string) (Device, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.devices[driverID]
	return d, ok
}

func (s *TokenStore) Remove(driverID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.devices, driverID)
}

func (s *TokenStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.devices)
}
