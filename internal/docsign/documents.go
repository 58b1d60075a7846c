package docsign

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dropDatabas3/securesign/internal/audit"
	"github.com/dropDatabas3/securesign/internal/domain/repository"
	"github.com/dropDatabas3/securesign/internal/hasher"
	"github.com/dropDatabas3/securesign/internal/keys"
	"github.com/dropDatabas3/securesign/internal/observability/logger"
	"github.com/dropDatabas3/securesign/internal/verification"
)

// SignInput es un pedido de firma. Identity es a la vez el firmante y el
// scope donde se guarda el registro.
type SignInput struct {
	Identity string
	Name     string
	Content  hasher.Input
	Reason   string
	Location string
}

// SignDocument hashea el contenido, lo firma con la clave actual de la
// identidad y guarda el SignatureRecord con la clave pública fijada.
func (s *Service) SignDocument(ctx context.Context, in SignInput) (*repository.SignatureRecord, error) {
	ref := normalizeRef(in.Identity)
	in.Reason = strings.TrimSpace(in.Reason)
	in.Location = strings.TrimSpace(in.Location)
	in.Name = strings.TrimSpace(in.Name)
	log := logger.From(ctx).With(
		logger.Component("docsign"),
		logger.Op("SignDocument"),
		logger.Identity(ref),
	)

	if in.Reason == "" || in.Location == "" {
		return nil, fmt.Errorf("%w: reason and location are required", repository.ErrInvalidInput)
	}

	id, err := s.creds.GetIdentity(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !id.Certificate.Active() {
		s.record(ctx, repository.EventDocumentSigned, ref,
			"Signing of "+in.Name+" rejected: certificate revoked", audit.StatusFailure)
		return nil, repository.ErrCertificateRevoked
	}

	digest, err := hasher.Of(in.Content)
	if err != nil {
		return nil, err
	}

	// la clave pública se deriva de la privada usada: el registro queda
	// consistente aunque haya una rotación en curso
	privPEM, err := s.creds.ResolvePrivateKey(ctx, ref)
	if err != nil {
		return nil, err
	}
	priv, err := keys.ImportPrivate(privPEM)
	if err != nil {
		s.metrics.ObserveSign(err)
		return nil, fmt.Errorf("%w: %v", repository.ErrKeyImportFailed, err)
	}
	pubPEM, err := keys.ExportPublic(&priv.PublicKey)
	if err != nil {
		return nil, err
	}
	sig, err := s.signer.Sign(digest, priv)
	s.metrics.ObserveSign(err)
	if err != nil {
		return nil, err
	}

	rec := repository.SignatureRecord{
		ID:                uuid.NewString(),
		Scope:             ref,
		Name:              in.Name,
		ContentDigest:     digest.String(),
		SignatureValue:    sig,
		Algorithm:         repository.AlgorithmRSASHA256,
		SignerRef:         ref,
		SignerFingerprint: keys.Fingerprint(pubPEM),
		SignerPublicKey:   pubPEM,
		SignedAt:          s.now().UTC(),
		Reason:            in.Reason,
		Location:          in.Location,
	}
	if err := s.docs.PutRecord(ctx, ref, rec); err != nil {
		return nil, err
	}

	log.Info("document signed",
		logger.RecordID(rec.ID),
		logger.Digest(rec.ContentDigest),
		logger.Fingerprint(rec.SignerFingerprint),
	)
	s.record(ctx, repository.EventDocumentSigned, ref,
		fmt.Sprintf("Signed %s (hash %s...)", displayName(rec), digest.Short()), audit.StatusSuccess)
	return &rec, nil
}

// VerifyDocument corre el protocolo de verificación sobre el contenido
// subido y audita el resultado. El protocolo en sí no escribe auditoría.
func (s *Service) VerifyDocument(ctx context.Context, scope string, content hasher.Input) (verification.Outcome, error) {
	scope = normalizeRef(scope)
	out, err := s.verifier.VerifyContent(ctx, scope, content)
	if err != nil {
		s.metrics.ObserveVerification("error")
		logger.From(ctx).Error("verification failed",
			logger.Component("docsign"),
			logger.Scope(scope),
			logger.Err(err),
		)
		s.record(ctx, repository.EventDocumentVerified, scope, "Verification error: "+err.Error(), audit.StatusFailure)
		return verification.Outcome{}, err
	}

	label := string(out.Cause)
	status := audit.StatusFailure
	if out.Valid {
		label = "Valid"
		status = audit.StatusSuccess
	}
	s.metrics.ObserveVerification(label)
	logger.From(ctx).Info("document verified",
		logger.Component("docsign"),
		logger.Scope(scope),
		logger.Digest(out.Digest.String()),
		logger.Outcome(out.String()),
	)
	s.record(ctx, repository.EventDocumentVerified, scope,
		fmt.Sprintf("Verified hash %s...: %s", out.Digest.Short(), out), status)
	return out, nil
}

// ListDocuments lista los registros de la identidad, más recientes primero.
func (s *Service) ListDocuments(ctx context.Context, ref string) ([]repository.SignatureRecord, error) {
	return s.docs.ListRecords(ctx, normalizeRef(ref))
}

// DeleteRecord elimina un registro del scope de su dueño.
func (s *Service) DeleteRecord(ctx context.Context, ref, recordID string) error {
	ref = normalizeRef(ref)
	if strings.TrimSpace(recordID) == "" {
		return fmt.Errorf("%w: empty record id", repository.ErrInvalidInput)
	}
	if err := s.docs.DeleteRecord(ctx, ref, recordID); err != nil {
		return err
	}
	logger.From(ctx).Info("record deleted",
		logger.Component("docsign"),
		logger.Identity(ref),
		logger.RecordID(recordID),
	)
	s.record(ctx, repository.EventDocumentDeleted, ref, "Deleted record "+recordID, audit.StatusSuccess)
	return nil
}

func displayName(rec repository.SignatureRecord) string {
	if rec.Name != "" {
		return rec.Name
	}
	return "document " + rec.ID
}
