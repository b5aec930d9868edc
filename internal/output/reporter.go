package output

import (
	"encoding/json"
	"io"
	"time"

	"github.com/pkg/errors"

	"github.com/etiktin/docker-pid1/pkg/model"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

// Reporter receives the progress messages and snapshots of a run
type Reporter interface {
	Message(msg string) error
	Snapshot(snap model.Snapshot) error
}

// NewReporter returns the reporter for format
func NewReporter(format string, w io.Writer, colorEnabled bool) (Reporter, error) {
	switch format {
	case "", FormatText:
		return &TextReporter{W: w, Color: colorEnabled}, nil
	case FormatJSON:
		return &JSONReporter{W: w}, nil
	}
	return nil, errors.Errorf("unknown output format %q", format)
}

type TextReporter struct {
	W     io.Writer
	Color bool
}

func (r *TextReporter) Message(msg string) error {
	NewPrinter(r.W).Println(msg)
	return nil
}

func (r *TextReporter) Snapshot(snap model.Snapshot) error {
	RenderSnapshot(r.W, snap, r.Color)
	return nil
}

// JSONReporter writes one JSON object per line
type JSONReporter struct {
	W io.Writer
}

func (r *JSONReporter) Message(msg string) error {
	return json.NewEncoder(r.W).Encode(jsonEvent{Time: time.Now(), Message: msg})
}

func (r *JSONReporter) Snapshot(snap model.Snapshot) error {
	return RenderSnapshotJSON(r.W, snap)
}
