package core

import (
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ErrorBadInput                    = "EVENTS_BAD_INPUT"
	ErrorConfigurationMissing        = "EVENTS_CONFIGURATION_MISSING"
	ErrorProviderNotFound            = "EVENTS_PROVIDER_NOT_FOUND"
	ErrorNoProvidersAvailable        = "EVENTS_NO_PROVIDERS_AVAILABLE"
	ErrorAmbiguousProviderUnresolved = "EVENTS_AMBIGUOUS_PROVIDER_UNRESOLVED"
	ErrorRegistryUnavailable         = "EVENTS_REGISTRY_UNAVAILABLE"
	ErrorProvisioningConflict        = "EVENTS_PROVISIONING_CONFLICT"
	ErrorExternalFailure             = "EVENTS_EXTERNAL_FAILURE"
	ErrorInternal                    = "EVENTS_INTERNAL_ERROR"
)

type ErrorFactory func(message string, category ...goerrors.Category) *goerrors.Error

type ErrorMapper func(err error) *goerrors.Error

func newEventsError(message string, category goerrors.Category, textCode string, metadata map[string]any) *goerrors.Error {
	err := goerrors.New(message, category).
		WithCode(httpStatus(category)).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func wrapEventsError(source error, category goerrors.Category, textCode string, message string, metadata map[string]any) *goerrors.Error {
	if source == nil {
		return newEventsError(message, category, textCode, metadata)
	}
	err := goerrors.Wrap(source, category, message).
		WithCode(httpStatus(category)).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func ConfigurationMissingError(message string, metadata map[string]any) error {
	return newEventsError(message, goerrors.CategoryValidation, ErrorConfigurationMissing, metadata)
}

func ProviderNotFoundError(orgID, eventType string) error {
	return newEventsError(
		fmt.Sprintf("event provider with event code %s doesn't exist in your organization %s", eventType, orgID),
		goerrors.CategoryNotFound,
		ErrorProviderNotFound,
		map[string]any{"org_id": orgID, "event_type": eventType},
	)
}

func NoProvidersAvailableError(eventType string) error {
	return newEventsError(
		"event providers list is empty; at least one provider is required to select from",
		goerrors.CategoryInternal,
		ErrorNoProvidersAvailable,
		map[string]any{"event_type": eventType},
	)
}

func AmbiguousProviderError(eventType string, reason string) error {
	return newEventsError(
		fmt.Sprintf("could not resolve a single provider for event type %s: %s", eventType, reason),
		goerrors.CategoryInternal,
		ErrorAmbiguousProviderUnresolved,
		map[string]any{"event_type": eventType},
	)
}

// RegistryUnavailableError wraps a registry transport or API failure.
func RegistryUnavailableError(source error, operation string, metadata map[string]any) error {
	fields := map[string]any{"operation": operation}
	for key, value := range metadata {
		fields[key] = value
	}
	return wrapEventsError(
		source,
		goerrors.CategoryExternal,
		ErrorRegistryUnavailable,
		fmt.Sprintf("event registry unavailable during %s", operation),
		fields,
	)
}

func ProvisioningConflictError(source error, name string) error {
	return wrapEventsError(
		source,
		goerrors.CategoryConflict,
		ErrorProvisioningConflict,
		fmt.Sprintf("runtime entity %s already exists", name),
		map[string]any{"name": name},
	)
}

// ExternalFailureError wraps a failure from a remote dependency other than
// the registry (runtime control plane, console API).
func ExternalFailureError(source error, operation string, metadata map[string]any) error {
	fields := map[string]any{"operation": operation}
	for key, value := range metadata {
		fields[key] = value
	}
	return wrapEventsError(
		source,
		goerrors.CategoryExternal,
		ErrorExternalFailure,
		fmt.Sprintf("external dependency failed during %s", operation),
		fields,
	)
}

func IsExternalFailure(err error) bool { return hasTextCode(err, ErrorExternalFailure) }

func IsConfigurationMissing(err error) bool { return hasTextCode(err, ErrorConfigurationMissing) }

func IsProviderNotFound(err error) bool { return hasTextCode(err, ErrorProviderNotFound) }

func IsNoProvidersAvailable(err error) bool { return hasTextCode(err, ErrorNoProvidersAvailable) }

func IsAmbiguousProvider(err error) bool { return hasTextCode(err, ErrorAmbiguousProviderUnresolved) }

func IsRegistryUnavailable(err error) bool { return hasTextCode(err, ErrorRegistryUnavailable) }

func IsProvisioningConflict(err error) bool { return hasTextCode(err, ErrorProvisioningConflict) }

func hasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == code
}

func eventsErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "already exists"), strings.Contains(msg, "conflict"):
		return newEventsError(err.Error(), goerrors.CategoryConflict, ErrorProvisioningConflict, nil)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return newEventsError(err.Error(), goerrors.CategoryBadInput, ErrorBadInput, nil)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureErrorEnvelope(mapped)
}

func ensureErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = httpStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ErrorBadInput
	case goerrors.CategoryNotFound:
		return ErrorProviderNotFound
	case goerrors.CategoryConflict:
		return ErrorProvisioningConflict
	case goerrors.CategoryExternal:
		return ErrorExternalFailure
	default:
		return ErrorInternal
	}
}

func httpStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
