package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/klauspost/compress/zstd"

	appctx "flowdesk/internal/core/context"
	"flowdesk/internal/core/id"
	"flowdesk/internal/domain"
)

// CompressionAlgo specifies the compression algorithm used.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// defaultCompressThreshold is the payload size above which changes are
// stored zstd-compressed.
const defaultCompressThreshold = 10 * 1024

// AuditEntry represents a single audit log entry.
type AuditEntry struct {
	ID                id.ID           `db:"id"`
	OwnerID           id.ID           `db:"owner_id"`
	EntityType        string          `db:"entity_type"`
	EntityID          id.ID           `db:"entity_id"`
	Action            string          `db:"action"`
	Subject           string          `db:"subject"`
	Changes           json.RawMessage `db:"changes"`
	ChangesCompressed []byte          `db:"changes_compressed"`
	CompressionAlgo   CompressionAlgo `db:"compression_algo"`
	CreatedAt         time.Time       `db:"created_at"`
}

// AuditService writes and reads sys_audit.
type AuditService struct {
	txm               *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

// NewAuditService creates a new audit service.
func NewAuditService(txm *TxManager) (*AuditService, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &AuditService{
		txm:               txm,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: defaultCompressThreshold,
	}, nil
}

// compress moves large changes into ChangesCompressed.
func (s *AuditService) compress(entry *AuditEntry) {
	entry.CompressionAlgo = CompressionNone
	if len(entry.Changes) > s.compressThreshold {
		entry.ChangesCompressed = s.encoder.EncodeAll(entry.Changes, nil)
		entry.Changes = nil
		entry.CompressionAlgo = CompressionZstd
	}
}

// decompress restores Changes of a compressed entry.
func (s *AuditService) decompress(entry *AuditEntry) error {
	if entry.CompressionAlgo != CompressionZstd || len(entry.ChangesCompressed) == 0 {
		return nil
	}
	raw, err := s.decoder.DecodeAll(entry.ChangesCompressed, nil)
	if err != nil {
		return fmt.Errorf("decompress changes: %w", err)
	}
	entry.Changes = raw
	entry.ChangesCompressed = nil
	return nil
}

// Log records an audit entry. Owner and subject default to the caller.
func (s *AuditService) Log(ctx context.Context, entry AuditEntry) error {
	if owner := appctx.GetOwner(ctx); owner != nil {
		if id.IsNil(entry.OwnerID) {
			entry.OwnerID = owner.OwnerID
		}
		if entry.Subject == "" {
			entry.Subject = owner.Subject
		}
	}
	if id.IsNil(entry.ID) {
		entry.ID = id.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.compress(&entry)

	_, err := s.txm.GetQuerier(ctx).Exec(ctx, `
		INSERT INTO sys_audit (
			id, owner_id, entity_type, entity_id, action, subject,
			changes, changes_compressed, compression_algo, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		entry.ID, entry.OwnerID, entry.EntityType, entry.EntityID, entry.Action, entry.Subject,
		entry.Changes, entry.ChangesCompressed, entry.CompressionAlgo, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// GetEntityHistory retrieves the audit trail of an entity, newest first.
func (s *AuditService) GetEntityHistory(ctx context.Context, ownerID id.ID, entityType string, entityID id.ID, limit int) ([]AuditEntry, error) {
	var entries []AuditEntry
	err := pgxscan.Select(ctx, s.txm.GetQuerier(ctx), &entries, `
		SELECT id, owner_id, entity_type, entity_id, action, subject,
		       changes, changes_compressed, compression_algo, created_at
		FROM sys_audit
		WHERE owner_id = $1 AND entity_type = $2 AND entity_id = $3
		ORDER BY created_at DESC
		LIMIT $4
	`, ownerID, entityType, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}

	for i := range entries {
		if err := s.decompress(&entries[i]); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

// AuditingPublisher records every published event in sys_audit before
// passing it on.
type AuditingPublisher struct {
	next  domain.EventPublisher
	audit *AuditService
}

// NewAuditingPublisher wraps next.
func NewAuditingPublisher(next domain.EventPublisher, audit *AuditService) *AuditingPublisher {
	return &AuditingPublisher{next: next, audit: audit}
}

// Publish implements domain.EventPublisher.
func (p *AuditingPublisher) Publish(ctx context.Context, event domain.Event) error {
	changes, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("marshal audit changes: %w", err)
	}
	if err := p.audit.Log(ctx, AuditEntry{
		OwnerID:    event.OwnerID,
		EntityType: event.AggregateType,
		EntityID:   event.AggregateID,
		Action:     event.Type,
		Changes:    changes,
	}); err != nil {
		return err
	}
	return p.next.Publish(ctx, event)
}
