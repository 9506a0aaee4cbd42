package core

import (
	"context"
	"fmt"
	"strings"
)

// ProviderSelector picks exactly one provider among candidates: a single
// candidate wins outright, then the preference list is consulted in its own
// order, then the interactive chooser.
type ProviderSelector struct {
	preferences []string
	chooser     ProviderChooser
}

func NewProviderSelector(preferences []string, chooser ProviderChooser) *ProviderSelector {
	cleaned := make([]string, 0, len(preferences))
	for _, id := range preferences {
		if id = strings.TrimSpace(id); id != "" {
			cleaned = append(cleaned, id)
		}
	}
	return &ProviderSelector{preferences: cleaned, chooser: chooser}
}

func (s *ProviderSelector) SelectProvider(ctx context.Context, candidates []Provider, eventType string) (Provider, error) {
	switch len(candidates) {
	case 1:
		return candidates[0], nil
	case 0:
		return Provider{}, NoProvidersAvailableError(eventType)
	}

	if s == nil {
		return Provider{}, AmbiguousProviderError(eventType, "no selector configured")
	}
	for _, preferred := range s.preferences {
		for _, candidate := range candidates {
			if candidate.ID == preferred {
				return candidate, nil
			}
		}
	}

	if s.chooser == nil {
		return Provider{}, AmbiguousProviderError(eventType, "no preferred provider matched and no interactive chooser is available")
	}
	choices := make([]ProviderChoice, 0, len(candidates))
	for _, candidate := range candidates {
		choices = append(choices, ProviderChoice{
			ID:         candidate.ID,
			Label:      candidate.Label,
			InstanceID: candidate.InstanceID,
		})
	}
	chosen, err := s.chooser.ChooseProvider(ctx, eventType, choices)
	if err != nil {
		return Provider{}, err
	}
	for _, candidate := range candidates {
		if candidate.ID == chosen {
			return candidate, nil
		}
	}
	return Provider{}, AmbiguousProviderError(eventType, fmt.Sprintf("chooser returned unknown provider %q", chosen))
}
