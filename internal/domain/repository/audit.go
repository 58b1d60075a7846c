package repository

import (
	"context"
	"time"
)

// Tipos de evento de auditoría.
const (
	EventUserRegistered     = "USER_REGISTERED"
	EventKeysRotated        = "KEYS_ROTATED"
	EventDocumentSigned     = "DOCUMENT_SIGNED"
	EventDocumentVerified   = "DOCUMENT_VERIFIED"
	EventDocumentDeleted    = "DOCUMENT_DELETED"
	EventCertificateRevoked = "CERTIFICATE_REVOKED"
)

// AuditEvent es una entrada append-only del log de auditoría.
type AuditEvent struct {
	Kind        string    `json:"event_type"`
	Actor       string    `json:"user"`
	Description string    `json:"action"`
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
}

// AuditSink acepta eventos. Nunca es consultado por el protocolo de verificación.
type AuditSink interface {
	Append(ctx context.Context, ev AuditEvent) error
}

// AuditReader lista eventos recientes (más nuevos primero).
type AuditReader interface {
	Recent(ctx context.Context, limit int) ([]AuditEvent, error)
}
