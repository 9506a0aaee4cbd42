package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-event-registrations/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// LedgerStore persists registration ledger entries per registry target.
type LedgerStore struct {
	db   *bun.DB
	repo repository.Repository[*ledgerRecord]
}

func NewLedgerStore(db *bun.DB) (*LedgerStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*ledgerRecord](db, ledgerHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid ledger repository wiring: %w", err)
		}
	}
	return &LedgerStore{db: db, repo: repo}, nil
}

func (s *LedgerStore) Load(ctx context.Context, target core.Target) ([]core.LedgerEntry, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: ledger store is not configured")
	}
	if err := target.Validate(); err != nil {
		return nil, err
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("org_id", "=", strings.TrimSpace(target.OrgID)),
		repository.SelectBy("integration_id", "=", strings.TrimSpace(target.IntegrationID)),
		repository.OrderBy("created_at ASC"),
	)
	if err != nil {
		return nil, err
	}
	out := make([]core.LedgerEntry, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

// Append is idempotent per (target, registration id, event type).
func (s *LedgerStore) Append(ctx context.Context, target core.Target, entry core.LedgerEntry) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: ledger store is not configured")
	}
	if err := target.Validate(); err != nil {
		return err
	}
	record := newLedgerRecord(target, entry, time.Now().UTC())
	if record.RegistrationID == "" || record.EventType == "" {
		return fmt.Errorf("sqlstore: registration id and event type are required")
	}
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing := &ledgerRecord{}
		err := tx.NewSelect().
			Model(existing).
			Where("?TableAlias.org_id = ?", record.OrgID).
			Where("?TableAlias.integration_id = ?", record.IntegrationID).
			Where("?TableAlias.registration_id = ?", record.RegistrationID).
			Where("?TableAlias.event_type = ?", record.EventType).
			Limit(1).
			Scan(ctx)
		if err == nil {
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		record.ID = uuid.NewString()
		_, err = tx.NewInsert().Model(record).Exec(ctx)
		return err
	})
}

func (s *LedgerStore) Remove(ctx context.Context, target core.Target, registrationID string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: ledger store is not configured")
	}
	if err := target.Validate(); err != nil {
		return err
	}
	registrationID = strings.TrimSpace(registrationID)
	if registrationID == "" {
		return fmt.Errorf("sqlstore: registration id is required")
	}
	_, err := s.db.NewDelete().
		Model((*ledgerRecord)(nil)).
		Where("org_id = ?", strings.TrimSpace(target.OrgID)).
		Where("integration_id = ?", strings.TrimSpace(target.IntegrationID)).
		Where("registration_id = ?", registrationID).
		Exec(ctx)
	return err
}
