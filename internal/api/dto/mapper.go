package dto

import (
	"github.com/supportdeskhq/tenantcore/internal/cors"
	"github.com/supportdeskhq/tenantcore/internal/domain"
)

// ToTenant converts a CreateTenantRequest DTO to a Tenant domain model
func (r *CreateTenantRequest) ToTenant() *domain.Tenant {
	slug := r.Slug
	if slug == "" {
		slug = r.Key
	}
	return &domain.Tenant{
		Key:                r.Key,
		Slug:               slug,
		Name:               r.Name,
		CustomDomain:       r.CustomDomain,
		IsActive:           true,
		SubscriptionStatus: domain.SubscriptionActive,
		EnabledModules:     r.EnabledModules,
		Limits:             r.Limits,
		AllowedOrigins:     r.AllowedOrigins,
	}
}

// FromTenant converts a Tenant domain model to a TenantResponse DTO
func FromTenant(t *domain.Tenant) *TenantResponse {
	return &TenantResponse{
		ID:                 t.ID,
		Key:                t.Key,
		Slug:               t.Slug,
		Name:               t.Name,
		CustomDomain:       t.CustomDomain,
		IsActive:           t.IsActive,
		SubscriptionStatus: string(t.SubscriptionStatus),
		EnabledModules:     t.EnabledModules,
		Limits:             t.Limits,
		AllowedOrigins:     t.AllowedOrigins,
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.UpdatedAt,
	}
}

func FromTenants(tenants []domain.Tenant) []TenantResponse {
	responses := make([]TenantResponse, len(tenants))
	for i := range tenants {
		responses[i] = *FromTenant(&tenants[i])
	}
	return responses
}

func FromConversation(conv *domain.Conversation) *ConversationResponse {
	return &ConversationResponse{
		ID:         conv.ID,
		TenantID:   conv.TenantID,
		Subject:    conv.Subject,
		Status:     string(conv.Status),
		ClientID:   conv.ClientID,
		AssigneeID: conv.AssigneeID,
		CreatedAt:  conv.CreatedAt,
		UpdatedAt:  conv.UpdatedAt,
	}
}

func FromConversations(convs []domain.Conversation) []ConversationResponse {
	responses := make([]ConversationResponse, len(convs))
	for i := range convs {
		responses[i] = *FromConversation(&convs[i])
	}
	return responses
}

func FromMessage(msg *domain.Message) *MessageResponse {
	return &MessageResponse{
		ID:             msg.ID,
		TenantID:       msg.TenantID,
		ConversationID: msg.ConversationID,
		AuthorID:       msg.AuthorID,
		Body:           msg.Body,
		CreatedAt:      msg.CreatedAt,
	}
}

func FromMessages(msgs []domain.Message) []MessageResponse {
	responses := make([]MessageResponse, len(msgs))
	for i := range msgs {
		responses[i] = *FromMessage(&msgs[i])
	}
	return responses
}

func FromAttachment(a *domain.Attachment) *AttachmentResponse {
	return &AttachmentResponse{
		ID:         a.ID,
		TenantID:   a.TenantID,
		MessageID:  a.MessageID,
		FileName:   a.FileName,
		MIMEType:   a.MIMEType,
		SizeBytes:  a.SizeBytes,
		StorageKey: a.StorageKey,
		CreatedAt:  a.CreatedAt,
	}
}

func FromOriginStats(stats []cors.OriginStat) []OriginStatResponse {
	responses := make([]OriginStatResponse, len(stats))
	for i, s := range stats {
		responses[i] = OriginStatResponse{Origin: s.Origin, Allowed: s.Allowed, Blocked: s.Blocked}
	}
	return responses
}
