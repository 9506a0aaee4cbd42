package workspace

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/goliatone/go-event-registrations/core"
)

// ConfigLedger keeps registration records in the workspace config under
// project.workspace.listeners. The config file is already scoped to one
// workspace, so the target is not part of the key.
type ConfigLedger struct {
	mu    sync.Mutex
	store core.ConfigStore
	key   string
}

func NewConfigLedger(store core.ConfigStore) *ConfigLedger {
	return &ConfigLedger{store: store, key: KeyListeners}
}

func (l *ConfigLedger) Load(context.Context, core.Target) ([]core.LedgerEntry, error) {
	if err := l.validate(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.entriesLocked(), nil
}

// Append records one (registration, event) pair. Repeated pairs are kept once.
func (l *ConfigLedger) Append(_ context.Context, _ core.Target, entry core.LedgerEntry) error {
	if err := l.validate(); err != nil {
		return err
	}
	entry.RegistrationID = strings.TrimSpace(entry.RegistrationID)
	entry.EventType = strings.TrimSpace(entry.EventType)
	if entry.RegistrationID == "" {
		return fmt.Errorf("workspace: ledger entry requires a registration id")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	entries := l.entriesLocked()
	for _, existing := range entries {
		if existing.RegistrationID == entry.RegistrationID && existing.EventType == entry.EventType {
			return nil
		}
	}
	return l.store.Set(l.key, encodeEntries(append(entries, entry)), true)
}

func (l *ConfigLedger) Remove(_ context.Context, _ core.Target, registrationID string) error {
	if err := l.validate(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	current := l.entriesLocked()
	kept := make([]core.LedgerEntry, 0, len(current))
	for _, entry := range current {
		if entry.RegistrationID != registrationID {
			kept = append(kept, entry)
		}
	}
	if len(kept) == len(current) {
		return nil
	}
	return l.store.Set(l.key, encodeEntries(kept), true)
}

func (l *ConfigLedger) validate() error {
	if l == nil || l.store == nil {
		return core.ConfigurationMissingError("workspace: ledger config store is required", nil)
	}
	return nil
}

func (l *ConfigLedger) entriesLocked() []core.LedgerEntry {
	raw, ok := l.store.Get(l.key)
	if !ok {
		return nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	entries := make([]core.LedgerEntry, 0, len(list))
	for _, item := range list {
		record, ok := item.(map[string]any)
		if !ok {
			continue
		}
		entry := core.LedgerEntry{
			EventType:      valueString(record["event_type"]),
			RegistrationID: valueString(record["registration_id"]),
			RuntimeAction:  valueString(record["runtime_action"]),
			ProviderID:     valueString(record["provider_id"]),
		}
		if entry.RegistrationID == "" {
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

func encodeEntries(entries []core.LedgerEntry) []any {
	out := make([]any, 0, len(entries))
	for _, entry := range entries {
		out = append(out, map[string]any{
			"event_type":      entry.EventType,
			"registration_id": entry.RegistrationID,
			"runtime_action":  entry.RuntimeAction,
			"provider_id":     entry.ProviderID,
		})
	}
	return out
}

var _ core.LedgerStore = (*ConfigLedger)(nil)
