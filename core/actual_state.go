package core

import (
	"context"
	"fmt"
	"strings"
)

// RemoteStateSource treats the registry listing as the only source of
// truth.
type RemoteStateSource struct {
	Registry RegistryClient
}

func NewRemoteStateSource(registry RegistryClient) *RemoteStateSource {
	return &RemoteStateSource{Registry: registry}
}

func (s *RemoteStateSource) List(ctx context.Context, target Target) ([]Registration, error) {
	if s == nil || s.Registry == nil {
		return nil, fmt.Errorf("core: registry client is required")
	}
	return s.Registry.ListRegistrations(ctx, target.OrgID, target.IntegrationID)
}

func (s *RemoteStateSource) Create(ctx context.Context, target Target, spec RegistrationSpec) (Registration, error) {
	if s == nil || s.Registry == nil {
		return Registration{}, fmt.Errorf("core: registry client is required")
	}
	return s.Registry.CreateRegistration(ctx, target.OrgID, target.IntegrationID, spec)
}

func (s *RemoteStateSource) Delete(ctx context.Context, target Target, registration Registration) error {
	if s == nil || s.Registry == nil {
		return fmt.Errorf("core: registry client is required")
	}
	return s.Registry.DeleteRegistration(ctx, target.OrgID, target.IntegrationID, registration.ID)
}

// LedgerStateSource reads applied registrations from a local ledger for
// registries that cannot enumerate by owner. Writes still go to the
// registry; the ledger follows.
type LedgerStateSource struct {
	Registry RegistryClient
	Ledger   LedgerStore
}

func NewLedgerStateSource(registry RegistryClient, ledger LedgerStore) *LedgerStateSource {
	return &LedgerStateSource{Registry: registry, Ledger: ledger}
}

func (s *LedgerStateSource) List(ctx context.Context, target Target) ([]Registration, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	entries, err := s.Ledger.Load(ctx, target)
	if err != nil {
		return nil, err
	}
	registrations := make([]Registration, 0, len(entries))
	index := map[string]int{}
	for _, entry := range entries {
		if position, ok := index[entry.RegistrationID]; ok {
			registrations[position].Events = append(registrations[position].Events, EventOfInterest{
				ProviderID: entry.ProviderID,
				EventCode:  entry.EventType,
			})
			continue
		}
		index[entry.RegistrationID] = len(registrations)
		registrations = append(registrations, entry.Registration())
	}
	return registrations, nil
}

func (s *LedgerStateSource) Create(ctx context.Context, target Target, spec RegistrationSpec) (Registration, error) {
	if err := s.validate(); err != nil {
		return Registration{}, err
	}
	registration, err := s.Registry.CreateRegistration(ctx, target.OrgID, target.IntegrationID, spec)
	if err != nil {
		return Registration{}, err
	}
	if strings.TrimSpace(registration.RuntimeAction) == "" {
		registration.RuntimeAction = spec.RuntimeAction
	}
	if len(registration.Events) == 0 {
		registration.Events = append([]EventOfInterest(nil), spec.Events...)
	}
	for _, entry := range LedgerEntriesFor(registration) {
		if err := s.Ledger.Append(ctx, target, entry); err != nil {
			return Registration{}, err
		}
	}
	return registration, nil
}

// Delete drops the ledger entry even when the registry delete fails, so a
// registration that vanished remotely does not linger locally.
func (s *LedgerStateSource) Delete(ctx context.Context, target Target, registration Registration) error {
	if err := s.validate(); err != nil {
		return err
	}
	deleteErr := s.Registry.DeleteRegistration(ctx, target.OrgID, target.IntegrationID, registration.ID)
	if err := s.Ledger.Remove(ctx, target, registration.ID); err != nil && deleteErr == nil {
		return err
	}
	return deleteErr
}

func (s *LedgerStateSource) validate() error {
	if s == nil || s.Registry == nil {
		return fmt.Errorf("core: registry client is required")
	}
	if s.Ledger == nil {
		return fmt.Errorf("core: ledger store is required")
	}
	return nil
}

// Registration rebuilds the registry view of a ledger entry.
func (e LedgerEntry) Registration() Registration {
	return Registration{
		ID:            e.RegistrationID,
		RuntimeAction: e.RuntimeAction,
		Events: []EventOfInterest{{
			ProviderID: e.ProviderID,
			EventCode:  e.EventType,
		}},
	}
}

func LedgerEntriesFor(registration Registration) []LedgerEntry {
	entries := make([]LedgerEntry, 0, len(registration.Events))
	for _, event := range registration.Events {
		entries = append(entries, LedgerEntry{
			EventType:      event.EventCode,
			RegistrationID: registration.ID,
			RuntimeAction:  registration.RuntimeAction,
			ProviderID:     event.ProviderID,
		})
	}
	return entries
}
