package output

import (
	"encoding/json"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/etiktin/docker-pid1/pkg/model"
)

// Placeholder fills a column whose value is unknown
const Placeholder = "-"

var snapshotHeader = []any{"PPID", "PID", "STATUS", "NAME", "CMD"}

var (
	styleRunning = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	styleZombie  = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
	styleDead    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	styleTitle   = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
)

// RenderSnapshot prints snap as a tab separated table followed by a blank line
func RenderSnapshot(w io.Writer, snap model.Snapshot, colorEnabled bool) {
	p := NewPrinter(w)

	if snap.Title != "" {
		p.Println()
		if colorEnabled {
			p.Println(ansiString(styleTitle.Render(SanitizeTerminal(snap.Title))))
		} else {
			p.Println(snap.Title)
		}
	}

	p.Row(snapshotHeader...)
	for _, row := range snap.Rows {
		p.Row(
			field(PPIDColumn(row)),
			row.PID,
			statusCell(row.State, colorEnabled),
			field(row.Role),
			field(CmdColumn(row)),
		)
	}
	p.Println()
}

// PPIDColumn is the PPID cell of row
func PPIDColumn(row model.SnapshotRow) string {
	if row.PPID == nil {
		return Placeholder
	}
	return strconv.FormatInt(int64(*row.PPID), 10)
}

// CmdColumn is the CMD cell of row: the space joined command line
func CmdColumn(row model.SnapshotRow) string {
	cmd := strings.Join(row.Cmdline, " ")
	if !row.Resolved || cmd == "" {
		return Placeholder
	}
	return cmd
}

func statusCell(state model.LivenessState, colorEnabled bool) any {
	text := state.DisplayState()
	if !colorEnabled {
		return text
	}
	switch state {
	case model.StateRunning:
		return ansiString(styleRunning.Render(text))
	case model.StateZombie:
		return ansiString(styleZombie.Render(text))
	default:
		return ansiString(styleDead.Render(text))
	}
}

type jsonRow struct {
	PPID    *model.PID `json:"ppid"`
	PID     model.PID  `json:"pid"`
	Status  string     `json:"status"`
	Name    model.Role `json:"name"`
	Cmdline []string   `json:"cmdline"`
}

type jsonEvent struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message,omitempty"`
	Title   string    `json:"title,omitempty"`
	Rows    []jsonRow `json:"rows,omitempty"`
}

// RenderSnapshotJSON writes snap as a single JSON line
func RenderSnapshotJSON(w io.Writer, snap model.Snapshot) error {
	ev := jsonEvent{Time: snap.Taken, Title: snap.Title}
	for _, row := range snap.Rows {
		ev.Rows = append(ev.Rows, jsonRow{
			PPID:    row.PPID,
			PID:     row.PID,
			Status:  row.State.DisplayState(),
			Name:    row.Role,
			Cmdline: row.Cmdline,
		})
	}
	return json.NewEncoder(w).Encode(ev)
}
