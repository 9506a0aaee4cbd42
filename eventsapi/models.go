package eventsapi

import (
	"encoding/json"
	"strings"

	"github.com/goliatone/go-event-registrations/core"
)

type eventOfInterest struct {
	ProviderID string `json:"provider_id"`
	EventCode  string `json:"event_code"`
}

type registrationBody struct {
	Name             string            `json:"name"`
	ClientID         string            `json:"client_id"`
	Description      string            `json:"description,omitempty"`
	DeliveryType     string            `json:"delivery_type"`
	WebhookURL       string            `json:"webhook_url,omitempty"`
	RuntimeAction    string            `json:"runtime_action,omitempty"`
	EventsOfInterest []eventOfInterest `json:"events_of_interest"`
}

func registrationBodyFrom(spec core.RegistrationSpec) registrationBody {
	events := make([]eventOfInterest, 0, len(spec.Events))
	for _, event := range spec.Events {
		events = append(events, eventOfInterest{ProviderID: event.ProviderID, EventCode: event.EventCode})
	}
	return registrationBody{
		Name:             spec.Name,
		ClientID:         spec.ClientID,
		Description:      spec.Description,
		DeliveryType:     spec.DeliveryType,
		WebhookURL:       spec.WebhookURL,
		RuntimeAction:    spec.RuntimeAction,
		EventsOfInterest: events,
	}
}

// registrationRecord accepts both the current string registration_id and
// the older numeric id.
type registrationRecord struct {
	RegistrationID   string            `json:"registration_id"`
	ID               json.Number       `json:"id"`
	ClientID         string            `json:"client_id"`
	Name             string            `json:"name"`
	Description      string            `json:"description"`
	WebhookURL       string            `json:"webhook_url"`
	DeliveryType     string            `json:"delivery_type"`
	RuntimeAction    string            `json:"runtime_action"`
	EventsOfInterest []eventOfInterest `json:"events_of_interest"`
}

func (r registrationRecord) toDomain() core.Registration {
	id := strings.TrimSpace(r.RegistrationID)
	if id == "" {
		id = strings.TrimSpace(r.ID.String())
	}
	events := make([]core.EventOfInterest, 0, len(r.EventsOfInterest))
	for _, event := range r.EventsOfInterest {
		events = append(events, core.EventOfInterest{ProviderID: event.ProviderID, EventCode: event.EventCode})
	}
	return core.Registration{
		ID:            id,
		ClientID:      r.ClientID,
		Name:          r.Name,
		Description:   r.Description,
		WebhookURL:    r.WebhookURL,
		DeliveryType:  r.DeliveryType,
		RuntimeAction: r.RuntimeAction,
		Events:        events,
	}
}

type registrationPage struct {
	Embedded struct {
		Registrations []registrationRecord `json:"registrations"`
	} `json:"_embedded"`
}

type providerRecord struct {
	ID         string `json:"id"`
	Label      string `json:"label"`
	InstanceID string `json:"instance_id"`
}

type providerPage struct {
	Embedded struct {
		Providers []providerRecord `json:"providers"`
	} `json:"_embedded"`
}

type eventMetadataRecord struct {
	EventCode string `json:"event_code"`
}

type eventMetadataPage struct {
	Embedded struct {
		EventMetadata []eventMetadataRecord `json:"eventmetadata"`
	} `json:"_embedded"`
}
