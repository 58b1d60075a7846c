// Package audit implementa los sinks del log de auditoría: append-only, nunca
// consultados por el protocolo de verificación.
package audit

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/securesign/internal/domain/repository"
	"github.com/dropDatabas3/securesign/internal/observability/logger"
)

// Status de un evento.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// New arma un evento con timestamp UTC.
func New(kind, actor, description, status string) repository.AuditEvent {
	return repository.AuditEvent{
		Kind:        kind,
		Actor:       actor,
		Description: description,
		Status:      status,
		Timestamp:   time.Now().UTC(),
	}
}

// LogSink escribe cada evento como una línea estructurada del logger.
type LogSink struct {
	log *zap.Logger
}

// NewLogSink crea un LogSink. l=nil usa logger.Named("audit").
func NewLogSink(l *zap.Logger) *LogSink {
	if l == nil {
		l = logger.Named("audit")
	}
	return &LogSink{log: l}
}

func (s *LogSink) Append(ctx context.Context, ev repository.AuditEvent) error {
	s.log.Info("audit",
		logger.EventKind(ev.Kind),
		logger.Identity(ev.Actor),
		logger.String("action", ev.Description),
		logger.String("status", ev.Status),
		zap.Time("ts", ev.Timestamp),
	)
	return nil
}

// Tee replica cada evento en todos los sinks. Recent lee del primer sink que
// sepa listar.
type Tee struct {
	sinks  []repository.AuditSink
	reader repository.AuditReader
}

func NewTee(sinks ...repository.AuditSink) *Tee {
	t := &Tee{sinks: sinks}
	for _, s := range sinks {
		if r, ok := s.(repository.AuditReader); ok {
			t.reader = r
			break
		}
	}
	return t
}

func (t *Tee) Append(ctx context.Context, ev repository.AuditEvent) error {
	var errs []error
	for _, s := range t.sinks {
		if err := s.Append(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ErrNotReadable indica que ningún sink configurado permite listar eventos.
var ErrNotReadable = errors.New("audit: no readable sink configured")

func (t *Tee) Recent(ctx context.Context, limit int) ([]repository.AuditEvent, error) {
	if t.reader == nil {
		return nil, ErrNotReadable
	}
	return t.reader.Recent(ctx, limit)
}

// Close cierra los sinks que lo soporten.
func (t *Tee) Close() error {
	var errs []error
	for _, s := range t.sinks {
		if c, ok := s.(interface{ Close() error }); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
