package service

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"threadly/internal/model"
	"threadly/internal/repository"
)

// FCMClient wraps the Firebase Cloud Messaging client. Credentials come
// from the service account (project ID, client email, private key); the
// key in .env carries literal \n sequences that must become real newlines
// before the SDK parses the PEM.
type FCMClient struct {
	client *messaging.Client
}

func NewFCMClient(ctx context.Context, projectID, clientEmail, privateKey string) (*FCMClient, error) {
	privateKey = strings.ReplaceAll(privateKey, "\\n", "\n")

	credsJSON := fmt.Sprintf(`{
		"type": "service_account",
		"project_id": %q,
		"private_key": %q,
		"client_email": %q,
		"token_uri": "https://oauth2.googleapis.com/token"
	}`, projectID, privateKey, clientEmail)

	opt := option.WithCredentialsJSON([]byte(credsJSON))
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("get messaging client: %w", err)
	}

	log.Printf("[FCM] Initialized for project: %s", projectID)
	return &FCMClient{client: client}, nil
}

// SendToTokens sends a push notification to multiple device tokens.
// FCM caps a multicast at 500 tokens; a single user's device list stays
// far below that.
func (c *FCMClient) SendToTokens(ctx context.Context, tokens []string, title, body string, data map[string]string) error {
	if len(tokens) == 0 {
		return nil
	}

	message := &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound: "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: "default",
				},
			},
		},
	}
	if data != nil {
		message.Data = data
	}

	response, err := c.client.SendEachForMulticast(ctx, message)
	if err != nil {
		return fmt.Errorf("send multicast: %w", err)
	}

	log.Printf("[FCM] Sent to %d tokens: %d success, %d failure",
		len(tokens), response.SuccessCount, response.FailureCount)

	for i, resp := range response.Responses {
		if !resp.Success {
			log.Printf("[FCM] Token %d failed: %v", i, resp.Error)
		}
	}

	return nil
}

// PushService delivers push notifications to a user's registered devices
// and manages device token registration. All sends are best effort: an
// unreachable push service never surfaces to the caller's request.
type PushService struct {
	fcm       *FCMClient
	tokenRepo repository.DeviceTokenRepository
	userRepo  repository.UserRepository
}

func NewPushService(fcm *FCMClient, tokenRepo repository.DeviceTokenRepository, userRepo repository.UserRepository) *PushService {
	return &PushService{
		fcm:       fcm,
		tokenRepo: tokenRepo,
		userRepo:  userRepo,
	}
}

func (s *PushService) RegisterDevice(ctx context.Context, userID int64, req *model.RegisterDeviceRequest) error {
	token := strings.TrimSpace(req.Token)
	if token == "" {
		return model.ErrDeviceTokenRequired
	}
	return s.tokenRepo.Upsert(ctx, userID, token, req.Platform)
}

func (s *PushService) UnregisterDevice(ctx context.Context, token string) error {
	return s.tokenRepo.Delete(ctx, token)
}

// NotifyNewMessage pushes a new-message notification to every device the
// recipient has registered. Used when the recipient has no live websocket
// connection.
func (s *PushService) NotifyNewMessage(ctx context.Context, recipientID int64, msg *model.Message) {
	if s.fcm == nil {
		return
	}

	tokens, err := s.tokenRepo.GetByUserID(ctx, recipientID)
	if err != nil {
		log.Printf("[PushService] Load tokens FAILED: user=%d err=%v", recipientID, err)
		return
	}
	if len(tokens) == 0 {
		return
	}

	sender, err := s.userRepo.GetByID(ctx, msg.SenderID)
	if err != nil {
		log.Printf("[PushService] Load sender FAILED: user=%d err=%v", msg.SenderID, err)
		return
	}

	tokenStrings := make([]string, len(tokens))
	for i, t := range tokens {
		tokenStrings[i] = t.Token
	}

	body := msg.Text
	if body == "" && msg.ImgURL != nil {
		body = "Sent a photo"
	}

	data := map[string]string{
		"type":            "new_message",
		"conversation_id": strconv.FormatInt(msg.ConversationID, 10),
		"message_id":      strconv.FormatInt(msg.ID, 10),
		"sender_id":       strconv.FormatInt(msg.SenderID, 10),
	}

	if err := s.fcm.SendToTokens(ctx, tokenStrings, sender.Username, body, data); err != nil {
		log.Printf("[PushService] Push FAILED: user=%d err=%v", recipientID, err)
	}
}
