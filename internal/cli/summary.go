package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/goliatone/go-event-registrations/core"
)

// renderSummary prints what an operation changed as a table.
func renderSummary(out io.Writer, operation core.Operation, result core.ReconcileResult) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleRounded)
	t.SetTitle(fmt.Sprintf("events %s", operation))
	t.AppendHeader(table.Row{"STATUS", "REGISTRATION", "EVENTS"})

	for _, registration := range result.Created {
		t.AppendRow(table.Row{"created", registrationLabel(registration), eventCodes(registration)})
	}
	for _, id := range result.Deleted {
		t.AppendRow(table.Row{"deleted", id, ""})
	}
	for _, id := range result.FailedDeletes {
		t.AppendRow(table.Row{"delete failed", id, ""})
	}
	t.AppendFooter(table.Row{"unchanged", result.Skipped, fmt.Sprintf("%d active", len(result.Registrations))})
	t.Render()
}

func registrationLabel(registration core.Registration) string {
	if strings.TrimSpace(registration.Name) == "" {
		return registration.ID
	}
	return fmt.Sprintf("%s (%s)", registration.ID, registration.Name)
}

func eventCodes(registration core.Registration) string {
	codes := make([]string, 0, len(registration.Events))
	for _, event := range registration.Events {
		codes = append(codes, event.EventCode)
	}
	return strings.Join(codes, ", ")
}
