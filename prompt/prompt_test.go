package prompt

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/goliatone/go-event-registrations/core"
)

type scriptedReader struct {
	lines  []string
	closed bool
}

func (r *scriptedReader) Readline() (string, error) {
	if len(r.lines) == 0 {
		return "", io.EOF
	}
	line := r.lines[0]
	r.lines = r.lines[1:]
	return line, nil
}

func (r *scriptedReader) Close() error {
	r.closed = true
	return nil
}

var testChoices = []core.ProviderChoice{
	{ID: "p1", Label: "Commerce stage", InstanceID: "inst-1"},
	{ID: "p2", Label: "Commerce prod", InstanceID: "inst-2"},
}

func TestChooser_RepromptsUntilValid(t *testing.T) {
	var out bytes.Buffer
	reader := &scriptedReader{lines: []string{"zero", "7", " 2 "}}
	chooser := &Chooser{Out: &out, NewReader: func(string) (LineReader, error) { return reader, nil }}

	id, err := chooser.ChooseProvider(context.Background(), "evt.a", testChoices)
	if err != nil {
		t.Fatalf("choose: %v", err)
	}
	if id != "p2" {
		t.Fatalf("expected p2, got %s", id)
	}
	if !reader.closed {
		t.Fatalf("expected reader to be closed")
	}
	if strings.Count(out.String(), "Enter a number between 1 and 2") != 2 {
		t.Fatalf("expected two re-prompts, got %q", out.String())
	}
	if !strings.Contains(out.String(), "1) Commerce stage (inst-1)") {
		t.Fatalf("expected numbered choices, got %q", out.String())
	}
}

func TestChooser_EndOfInputIsAmbiguous(t *testing.T) {
	chooser := &Chooser{Out: io.Discard, NewReader: func(string) (LineReader, error) { return &scriptedReader{}, nil }}
	_, err := chooser.ChooseProvider(context.Background(), "evt.a", testChoices)
	if !core.IsAmbiguousProvider(err) {
		t.Fatalf("expected ambiguous provider error, got %v", err)
	}
}

func TestChooser_EmptyChoices(t *testing.T) {
	_, err := NewChooser(io.Discard).ChooseProvider(context.Background(), "evt.a", nil)
	if !core.IsNoProvidersAvailable(err) {
		t.Fatalf("expected no providers error, got %v", err)
	}
}

func TestSpinner_QuietIsNoop(t *testing.T) {
	var out bytes.Buffer
	s := NewSpinner(&out, true)
	s.Start("fetching")
	s.Stop()
	if out.Len() != 0 {
		t.Fatalf("expected no output in quiet mode, got %q", out.String())
	}
}
