package crm

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Conversly/lead-response/internal/loaders"
	"github.com/Conversly/lead-response/internal/types"
	"github.com/Conversly/lead-response/internal/utils"
)

var (
	ErrNoStages         = errors.New("pipeline has no stages")
	ErrCustomerNotFound = errors.New("customer not found")
)

// NotificationCall is the notification type raised for callback requests.
const NotificationCall = "call"

// Store is the persistence the CRM service needs.
type Store interface {
	GetChatbot(ctx context.Context, chatbotID string) (*types.Chatbot, error)
	GetCustomer(ctx context.Context, organizationID, email string) (*types.Customer, error)
	UpsertCustomer(ctx context.Context, organizationID, email string, data map[string]any) (string, error)
	UpdateDefaultPipeline(ctx context.Context, organizationID string, fn loaders.StageMutator) (bool, error)
	CreateNotification(ctx context.Context, n types.Notification) error
}

// Contact identifies who a handoff is for.
type Contact struct {
	ChatbotID string
	UserID    string
	Email     string
	Name      string
	Phone     string
}

func (c Contact) displayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Email
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) organization(ctx context.Context, chatbotID string) (string, error) {
	bot, err := s.store.GetChatbot(ctx, chatbotID)
	if err != nil {
		return "", err
	}
	return bot.OrganizationID, nil
}

// SaveLead merges data into the customer record of the chatbot's
// organization. Returns loaders.ErrNotFound for an unknown chatbot.
func (s *Service) SaveLead(ctx context.Context, chatbotID, email string, data map[string]any) (string, error) {
	orgID, err := s.organization(ctx, chatbotID)
	if err != nil {
		return "", err
	}
	id, err := s.store.UpsertCustomer(ctx, orgID, email, data)
	if err != nil {
		return "", err
	}
	utils.Zlog.Info("Customer saved",
		zap.String("chatbot_id", chatbotID),
		zap.String("organization_id", orgID),
		zap.String("customer_id", id),
		zap.Int("fields", len(data)))
	return id, nil
}

// RequestCallback raises an urgent callback notification.
func (s *Service) RequestCallback(ctx context.Context, c Contact) error {
	orgID, err := s.organization(ctx, c.ChatbotID)
	if err != nil {
		return err
	}
	phone := c.Phone
	if phone == "" {
		phone = "N/A"
	}
	return s.store.CreateNotification(ctx, types.Notification{
		ChatbotID:      c.ChatbotID,
		OrganizationID: orgID,
		Type:           NotificationCall,
		Title:          "Urgent Callback: " + c.displayName(),
		Message:        "User has requested an immediate callback via chat. Phone: " + phone,
		Data: map[string]any{
			"email":      c.Email,
			"phone":      c.Phone,
			"name":       c.Name,
			"chatbot_id": c.ChatbotID,
			"user_id":    c.UserID,
		},
	})
}

// QueueForSupport places the customer in the first stage of the
// organization's default customers pipeline and raises a notification.
// Repeated calls leave a single entity in the stage.
func (s *Service) QueueForSupport(ctx context.Context, c Contact) error {
	orgID, err := s.organization(ctx, c.ChatbotID)
	if err != nil {
		return err
	}

	cust, err := s.store.GetCustomer(ctx, orgID, c.Email)
	if errors.Is(err, loaders.ErrNotFound) {
		return ErrCustomerNotFound
	}
	if err != nil {
		return err
	}

	moved, err := s.store.UpdateDefaultPipeline(ctx, orgID, func(stages []byte) ([]byte, bool, error) {
		return addToFirstStage(stages, cust.ID)
	})
	if err != nil {
		return fmt.Errorf("failed to move customer to pipeline: %w", err)
	}
	utils.Zlog.Info("Customer queued for support",
		zap.String("chatbot_id", c.ChatbotID),
		zap.String("customer_id", cust.ID),
		zap.Bool("added", moved))

	return s.store.CreateNotification(ctx, types.Notification{
		ChatbotID:      c.ChatbotID,
		OrganizationID: orgID,
		Type:           NotificationCall,
		Title:          "Support Request (Pipeline)",
		Message:        c.displayName() + " added to support pipeline.",
		Data: map[string]any{
			"email": c.Email,
			"name":  c.Name,
			"phone": c.Phone,
		},
	})
}
