package services

import (
	"context"
	"encoding/base64"
	"fmt"

	"factory-tracker/internal/events"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// MessageSender is the part of *messaging.Client the notifier needs
type MessageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMService pushes driver-facing events to the driver's registered device
type FCMService struct {
	client MessageSender
	tokens *TokenStore
	log    *zap.Logger
}

// NewFCMService creates a new FCM service instance from a credentials file
func NewFCMService(ctx context.Context, credentialsFile string, tokens *TokenStore, log *zap.Logger) (*FCMService, error) {
	return newFCMService(ctx, option.WithCredentialsFile(credentialsFile), tokens, log)
}

// NewFCMServiceFromBase64 creates a new FCM service instance from base64-encoded
// credentials, for platforms where mounting a file is awkward
func NewFCMServiceFromBase64(ctx context.Context, credentialsBase64 string, tokens *TokenStore, log *zap.Logger) (*FCMService, error) {
	credentialsJSON, err := base64.StdEncoding.DecodeString(credentialsBase64)
	if err != nil {
		return nil, fmt.Errorf("error decoding base64 credentials: %w", err)
	}
	return newFCMService(ctx, option.WithCredentialsJSON(credentialsJSON), tokens, log)
}

func newFCMService(ctx context.Context, opt option.ClientOption, tokens *TokenStore, log *zap.Logger) (*FCMService, error) {
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}

	return NewFCMServiceWithSender(client, tokens, log), nil
}

// NewFCMServiceWithSender wires an existing sender, e.g. a fake in tests
func NewFCMServiceWithSender(client MessageSender, tokens *TokenStore, log *zap.Logger) *FCMService {
	if log == nil {
		log = zap.NewNop()
	}
	return &FCMService{client: client, tokens: tokens, log: log}
}

func (s *FCMService) Name() string { return "fcm" }

// Deliver implements events.Subscriber. Events the driver would not care
// about, and drivers without a device token, are skipped.
func (s *FCMService) Deliver(ctx context.Context, e events.Event) error {
	title, body, ok := notificationFor(e)
	if !ok {
		return nil
	}

	device, ok := s.tokens.Get(e.DriverID)
	if !ok {
		return nil
	}

	message := &messaging.Message{
		Token: device.Token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: map[string]string{
			"type":      string(e.Type),
			"driver_id": e.DriverID,
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					ContentAvailable: true,
					Sound:            "default",
				},
			},
		},
	}

	response, err := s.client.Send(ctx, message)
	if err != nil {
		if messaging.IsUnregistered(err) {
			s.tokens.Remove(e.DriverID)
			s.log.Info("📱 dropped unregistered FCM token", zap.String("driver_id", e.DriverID))
		}
		return fmt.Errorf("error sending FCM message: %w", err)
	}

	s.log.Debug("✅ FCM notification sent",
		zap.String("driver_id", e.DriverID),
		zap.String("type", string(e.Type)),
		zap.String("message_id", response),
	)
	return nil
}

func notificationFor(e events.Event) (title, body string, ok bool) {
	switch e.Type {
	case events.TypeDriverDeleted:
		return "Account removed", "You were removed from the fleet. Sending a location will bring you back.", true
	case events.TypeDriverRestored:
		return "Welcome back", "Your driver account is active again.", true
	case events.TypeDestinationUpdate:
		u, isUpdate := e.Data.(events.DestinationUpdate)
		if !isUpdate {
			return "", "", false
		}
		if u.Destination == "" {
			return "Destination cleared", "Your destination was cleared.", true
		}
		return "Destination updated", fmt.Sprintf("Your destination is now %s.", u.Destination), true
	default:
		return "", "", false
	}
}
