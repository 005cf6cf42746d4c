package service

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/supportdeskhq/tenantcore/internal/domain"
	"github.com/supportdeskhq/tenantcore/internal/gateway"
	"github.com/supportdeskhq/tenantcore/internal/realtime"
	"github.com/supportdeskhq/tenantcore/internal/storage"
	"github.com/supportdeskhq/tenantcore/internal/tenant"
	"github.com/supportdeskhq/tenantcore/pkg/logger"
)

const attachmentFileType = "attachment"

// ConversationService is the support-thread workflow on top of the scoped
// gateway. It never names a tenant itself; every call inherits the scope
// already installed on the context.
type ConversationService struct {
	gw    *gateway.Gateway
	hub   *realtime.Hub
	files *storage.Service
	log   *logger.Logger
}

func NewConversationService(gw *gateway.Gateway, hub *realtime.Hub, files *storage.Service, log *logger.Logger) *ConversationService {
	return &ConversationService{gw: gw, hub: hub, files: files, log: log}
}

func (s *ConversationService) Create(ctx context.Context, clientID, subject string, limits *domain.Tenant) (*domain.Conversation, error) {
	if limits != nil {
		if max := limits.LimitFor("conversations"); max > 0 {
			current, err := s.gw.Count(ctx, &domain.Conversation{}, nil)
			if err != nil {
				return nil, err
			}
			if current >= max {
				return nil, tenant.ErrPlanLimitReached.WithDetails(map[string]any{
					"resource": "conversations",
					"limit":    max,
					"current":  current,
				})
			}
		}
	}

	conv := &domain.Conversation{
		Subject:  subject,
		Status:   domain.ConversationOpen,
		ClientID: clientID,
	}
	if err := s.gw.Create(ctx, conv); err != nil {
		return nil, err
	}
	s.notify(ctx, conv.TenantID, "conversation.created", conv)
	return conv, nil
}

func (s *ConversationService) Get(ctx context.Context, id string) (*domain.Conversation, error) {
	conv := &domain.Conversation{}
	if err := s.gw.First(ctx, conv, map[string]any{"id": id}); err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *ConversationService) List(ctx context.Context, offset, limit int) ([]domain.Conversation, int64, error) {
	var convs []domain.Conversation
	err := s.gw.Find(ctx, domain.Conversation{}.TableName(), &convs, nil,
		gateway.OrderBy("created_at DESC"), gateway.Paginate(offset, limit))
	if err != nil {
		return nil, 0, err
	}
	total, err := s.gw.Count(ctx, &domain.Conversation{}, nil)
	if err != nil {
		return nil, 0, err
	}
	return convs, total, nil
}

func (s *ConversationService) UpdateStatus(ctx context.Context, id string, status domain.ConversationStatus) error {
	affected, err := s.gw.Updates(ctx, &domain.Conversation{}, map[string]any{"id": id}, map[string]any{
		"status":     status,
		"updated_at": time.Now(),
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return tenant.ErrTenantNotFound.WithDetails(map[string]any{"conversation": id})
	}
	return nil
}

func (s *ConversationService) PostMessage(ctx context.Context, conversationID, authorID, body string) (*domain.Message, error) {
	if _, err := s.Get(ctx, conversationID); err != nil {
		return nil, err
	}

	msg := &domain.Message{
		ConversationID: conversationID,
		AuthorID:       authorID,
		Body:           body,
	}
	if err := s.gw.Create(ctx, msg); err != nil {
		return nil, err
	}
	s.notify(ctx, msg.TenantID, "message.created", msg)
	return msg, nil
}

func (s *ConversationService) ListMessages(ctx context.Context, conversationID string, offset, limit int) ([]domain.Message, error) {
	var msgs []domain.Message
	err := s.gw.Find(ctx, domain.Message{}.TableName(), &msgs,
		map[string]any{"conversation_id": conversationID},
		gateway.OrderBy("created_at ASC"), gateway.Paginate(offset, limit))
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

// AddAttachment stores the file under the tenant's object prefix and
// records the attachment row in one flow.
func (s *ConversationService) AddAttachment(ctx context.Context, messageID, fileName, mimeType string, size int64, body io.Reader) (*domain.Attachment, error) {
	msg := &domain.Message{}
	if err := s.gw.First(ctx, msg, map[string]any{"id": messageID}); err != nil {
		return nil, err
	}

	key, err := s.files.Upload(ctx, attachmentFileType, fileName, mimeType, body)
	if err != nil {
		return nil, err
	}

	att := &domain.Attachment{
		MessageID:  messageID,
		FileName:   fileName,
		MIMEType:   mimeType,
		SizeBytes:  size,
		StorageKey: key,
	}
	if err := s.gw.Create(ctx, att); err != nil {
		return nil, err
	}
	return att, nil
}

// SignAttachment verifies ownership of the stored object and returns a
// short-lived download URL.
func (s *ConversationService) SignAttachment(ctx context.Context, attachmentID string, expiry time.Duration) (string, error) {
	att := &domain.Attachment{}
	if err := s.gw.First(ctx, att, map[string]any{"id": attachmentID}); err != nil {
		return "", err
	}
	return s.files.SignedURL(ctx, att.StorageKey, expiry)
}

func (s *ConversationService) notify(ctx context.Context, tenantID, eventType string, payload any) {
	if s.hub == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Errorf("marshal %s event: %v", eventType, err)
		return
	}
	ev := realtime.Event{Type: eventType, TenantID: tenantID, Data: data}
	if err := s.hub.EmitToTenant(ctx, tenantID, ev); err != nil {
		s.log.Errorf("emit %s event: %v", eventType, err)
	}
}
