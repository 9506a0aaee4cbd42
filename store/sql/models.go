package sqlstore

import (
	"strings"
	"time"

	"github.com/goliatone/go-event-registrations/core"
	"github.com/uptrace/bun"
)

type ledgerRecord struct {
	bun.BaseModel `bun:"table:event_registration_ledger,alias:erl"`

	ID             string    `bun:"id,pk"`
	OrgID          string    `bun:"org_id,notnull"`
	IntegrationID  string    `bun:"integration_id,notnull"`
	RegistrationID string    `bun:"registration_id,notnull"`
	EventType      string    `bun:"event_type,notnull"`
	RuntimeAction  string    `bun:"runtime_action,notnull"`
	ProviderID     string    `bun:"provider_id,notnull"`
	CreatedAt      time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

func newLedgerRecord(target core.Target, entry core.LedgerEntry, now time.Time) *ledgerRecord {
	return &ledgerRecord{
		OrgID:          strings.TrimSpace(target.OrgID),
		IntegrationID:  strings.TrimSpace(target.IntegrationID),
		RegistrationID: strings.TrimSpace(entry.RegistrationID),
		EventType:      strings.TrimSpace(entry.EventType),
		RuntimeAction:  strings.TrimSpace(entry.RuntimeAction),
		ProviderID:     strings.TrimSpace(entry.ProviderID),
		CreatedAt:      now,
	}
}

func (r *ledgerRecord) toDomain() core.LedgerEntry {
	if r == nil {
		return core.LedgerEntry{}
	}
	return core.LedgerEntry{
		EventType:      r.EventType,
		RegistrationID: r.RegistrationID,
		RuntimeAction:  r.RuntimeAction,
		ProviderID:     r.ProviderID,
	}
}
