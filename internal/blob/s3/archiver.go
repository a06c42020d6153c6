package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alanyoungcy/wagerhouse/internal/domain"
)

// ---------------------------------------------------------------------------
// Narrow store interfaces required by the archiver. The archiver only needs
// the query and delete methods it actually calls, not the full store
// interfaces; the Postgres stores satisfy these implicitly.
// ---------------------------------------------------------------------------

// BetArchiveStore provides access to settled bets for archival purposes.
type BetArchiveStore interface {
	ListSettledBefore(ctx context.Context, before uint64) ([]domain.Bet, error)
	DeleteSettledBefore(ctx context.Context, before uint64) (int64, error)
}

// AuditArchiveStore provides access to aged audit entries for archival
// purposes.
type AuditArchiveStore interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.AuditEntry, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// archivedBet is the JSONL representation of a settled bet.
type archivedBet struct {
	ID         uint64 `json:"id"`
	Owner      string `json:"owner"`
	Amount     uint64 `json:"amount"`
	Prediction string `json:"prediction"`
	EntryPrice uint64 `json:"entry_price"`
	PlacedAt   uint64 `json:"placed_at"`
	Duration   uint64 `json:"duration"`
	ExpiresAt  uint64 `json:"expires_at"`
	State      string `json:"state"`
	Payout     uint64 `json:"payout"`
	SettledAt  uint64 `json:"settled_at"`
}

// archivedAudit is the JSONL representation of an audit entry.
type archivedAudit struct {
	ID        int64          `json:"id"`
	Event     string         `json:"event"`
	Detail    map[string]any `json:"detail,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// ArchiveImpl implements domain.Archiver: settled bets and aged audit rows
// are serialized to JSONL, uploaded to object storage, and then deleted from
// the primary store. ACTIVE bets are never touched.
type ArchiveImpl struct {
	writer domain.BlobWriter
	bets   BetArchiveStore
	audit  AuditArchiveStore
}

// NewArchiver creates a new ArchiveImpl.
func NewArchiver(writer domain.BlobWriter, bets BetArchiveStore, audit AuditArchiveStore) *ArchiveImpl {
	return &ArchiveImpl{
		writer: writer,
		bets:   bets,
		audit:  audit,
	}
}

// ArchiveBets uploads every terminal bet settled before the given engine
// timestamp to archive/bets/YYYY-MM.jsonl, then deletes the archived rows.
// Deletion happens only after the upload succeeded. It returns the number of
// bets archived.
func (a *ArchiveImpl) ArchiveBets(ctx context.Context, before uint64) (int64, error) {
	bets, err := a.bets.ListSettledBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive bets query: %w", err)
	}
	if len(bets) == 0 {
		return 0, nil
	}

	records := make([]archivedBet, 0, len(bets))
	for _, bet := range bets {
		records = append(records, archivedBet{
			ID:         bet.ID,
			Owner:      bet.Owner.Hex(),
			Amount:     bet.Amount,
			Prediction: bet.Prediction.String(),
			EntryPrice: bet.EntryPrice,
			PlacedAt:   bet.PlacedAt,
			Duration:   bet.Duration,
			ExpiresAt:  bet.ExpiresAt,
			State:      string(bet.State),
			Payout:     bet.Payout,
			SettledAt:  bet.SettledAt,
		})
	}

	buf, err := marshalJSONL(records)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive bets marshal: %w", err)
	}

	path := archivePath("bets", time.Unix(int64(before), 0).UTC())
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive bets upload: %w", err)
	}

	if _, err := a.bets.DeleteSettledBefore(ctx, before); err != nil {
		return int64(len(bets)), fmt.Errorf("s3blob: archive bets prune: %w", err)
	}

	return int64(len(bets)), nil
}

// ArchiveAudit uploads every audit entry created before the cutoff to
// archive/audit/YYYY-MM.jsonl, then deletes the archived rows. It returns
// the number of entries archived.
func (a *ArchiveImpl) ArchiveAudit(ctx context.Context, before time.Time) (int64, error) {
	entries, err := a.audit.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive audit query: %w", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	records := make([]archivedAudit, 0, len(entries))
	for _, e := range entries {
		records = append(records, archivedAudit{
			ID:        e.ID,
			Event:     e.Event,
			Detail:    e.Detail,
			CreatedAt: e.CreatedAt,
		})
	}

	buf, err := marshalJSONL(records)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive audit marshal: %w", err)
	}

	path := archivePath("audit", before.UTC())
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive audit upload: %w", err)
	}

	if _, err := a.audit.DeleteBefore(ctx, before); err != nil {
		return int64(len(entries)), fmt.Errorf("s3blob: archive audit prune: %w", err)
	}

	return int64(len(entries)), nil
}

// Compile-time interface check.
var _ domain.Archiver = (*ArchiveImpl)(nil)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

// archivePath builds the object key for an archive file, partitioned by the
// year-month of the cutoff time.
//
//	archive/bets/2025-01.jsonl
//	archive/audit/2025-01.jsonl
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON (JSONL).
// Each element is marshalled as a single compact JSON line followed by '\n'.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
