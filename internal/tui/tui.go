package tui

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/etiktin/docker-pid1/internal/output"
	"github.com/etiktin/docker-pid1/internal/proc"
	"github.com/etiktin/docker-pid1/internal/process"
	"github.com/etiktin/docker-pid1/pkg/model"
)

var baseStyle = lipgloss.NewStyle().
	BorderStyle(lipgloss.NormalBorder()).
	BorderForeground(lipgloss.Color("240"))

var (
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("57")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	zombieStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
	deadStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

type tickMsg time.Time

type refreshMsg struct {
	pid    model.PID
	roster model.Roster
	snap   model.Snapshot
	err    error
}

// Options configure the watch screen
type Options struct {
	Inspector proc.Inspector
	Matcher   process.Matcher
	// PID of the process whose tree is watched, it plays the self role
	PID      model.PID
	Interval time.Duration
}

type watchModel struct {
	opts           Options
	roster         model.Roster
	snap           model.Snapshot
	table          table.Model
	pidInput       textinput.Model
	enteringPID    bool
	paused         bool
	confirmingKill bool
	killPID        model.PID
	message        string
	messageTime    time.Time
	err            error
	width          int
	height         int
}

func newModel(opts Options) watchModel {
	ti := textinput.New()
	ti.Placeholder = "PID"
	ti.CharLimit = 10
	ti.Width = 12

	m := watchModel{
		opts:     opts,
		roster:   model.Roster{model.RoleSelf: opts.PID},
		pidInput: ti,
	}
	m.initTable()
	return m
}

func (m *watchModel) initTable() {
	columns := []table.Column{
		{Title: "PPID", Width: 8},
		{Title: "PID", Width: 8},
		{Title: "STATUS", Width: 8},
		{Title: "NAME", Width: 12},
		{Title: "CMD", Width: 60},
	}

	height := m.height - 12
	if height < len(model.DisplayOrder)+1 {
		height = len(model.DisplayOrder) + 1
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(height),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(true)
	t.SetStyles(s)

	m.table = t
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(m.tick(), m.refresh())
}

func (m watchModel) tick() tea.Cmd {
	return tea.Tick(m.opts.Interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// refresh rebuilds the roster from the watched PID and merges it into
// the known one: a role seen once keeps its PID and its row forever.
func (m watchModel) refresh() tea.Cmd {
	if m.paused {
		return nil
	}
	roster := m.roster.Clone()
	opts := m.opts
	return func() tea.Msg {
		ctx := context.Background()
		fresh, err := process.BuildRoster(ctx, opts.Inspector, opts.PID, opts.Matcher)
		if err == nil {
			roster.Merge(fresh)
		}
		snap := process.TakeSnapshot(ctx, opts.Inspector, roster, model.DisplayOrder)
		return refreshMsg{pid: opts.PID, roster: roster, snap: snap, err: err}
	}
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	if m.confirmingKill {
		if msg, ok := msg.(tea.KeyMsg); ok {
			switch msg.String() {
			case "y", "Y":
				m.terminate(m.killPID)
				m.confirmingKill = false
				m.killPID = 0
				return m, m.refresh()
			case "n", "N", "esc":
				m.confirmingKill = false
				m.killPID = 0
				return m, nil
			}
		}
		return m, nil
	}

	if key, ok := msg.(tea.KeyMsg); ok && m.enteringPID {
		switch key.String() {
		case "enter":
			m.enteringPID = false
			m.pidInput.Blur()
			value := strings.TrimSpace(m.pidInput.Value())
			m.pidInput.SetValue("")
			pid, err := strconv.ParseInt(value, 10, 32)
			if err != nil || pid <= 0 {
				m.setMessage(fmt.Sprintf("Invalid PID %q", value))
				return m, nil
			}
			m.watch(model.PID(pid))
			return m, m.refresh()
		case "esc":
			m.enteringPID = false
			m.pidInput.Blur()
			m.pidInput.SetValue("")
			return m, nil
		}
		m.pidInput, cmd = m.pidInput.Update(msg)
		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "g":
			m.enteringPID = true
			return m, m.pidInput.Focus()
		case "q", "ctrl+c":
			return m, tea.Quit
		case "p":
			m.paused = !m.paused
			return m, nil
		case "S":
			m.saveSnapshot()
			return m, nil
		case "x":
			if pid := m.selectedPID(); pid > 0 {
				m.confirmingKill = true
				m.killPID = pid
			}
			return m, nil
		}
	case tickMsg:
		return m, tea.Batch(m.tick(), m.refresh())
	case refreshMsg:
		if msg.pid != m.opts.PID {
			// started before the watched PID changed
			return m, nil
		}
		m.roster = msg.roster
		m.snap = msg.snap
		m.err = msg.err
		m.updateRows()
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.initTable()
		m.updateRows()
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// watch forgets the current tree and follows the one rooted at pid
func (m *watchModel) watch(pid model.PID) {
	m.opts.PID = pid
	m.roster = model.Roster{model.RoleSelf: pid}
	m.snap = model.Snapshot{}
	m.err = nil
	m.updateRows()
}

func (m *watchModel) updateRows() {
	rows := make([]table.Row, 0, len(m.snap.Rows))
	for _, r := range m.snap.Rows {
		rows = append(rows, table.Row{
			output.PPIDColumn(r),
			strconv.FormatInt(int64(r.PID), 10),
			r.State.DisplayState(),
			string(r.Role),
			output.SanitizeField(output.CmdColumn(r)),
		})
	}
	m.table.SetRows(rows)
}

func (m watchModel) selectedPID() model.PID {
	selected := m.table.SelectedRow()
	if len(selected) < 2 {
		return 0
	}
	pid, _ := strconv.ParseInt(selected[1], 10, 32)
	return model.PID(pid)
}

func (m *watchModel) terminate(pid model.PID) {
	p, err := os.FindProcess(int(pid))
	if err == nil {
		err = p.Signal(syscall.SIGTERM)
	}
	if err != nil {
		m.setMessage(fmt.Sprintf("Error sending SIGTERM to %d: %v", pid, err))
		return
	}
	m.setMessage(fmt.Sprintf("SIGTERM sent to %d", pid))
}

func (m *watchModel) saveSnapshot() {
	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("docker-pid1_snapshot_%s.tsv", timestamp)

	var buf bytes.Buffer
	snap := m.snap
	snap.Title = fmt.Sprintf("Snapshot of pid %d - %s", m.opts.PID, time.Now().Format(time.RFC1123))
	output.RenderSnapshot(&buf, snap, false)

	if err := os.WriteFile(filename, buf.Bytes(), 0644); err != nil {
		m.setMessage("Error saving snapshot: " + err.Error())
		return
	}
	m.setMessage("Snapshot saved to " + filename)
}

// setMessage shows msg for a few seconds. It often carries OS error
// text, so it is sanitized like everything else put on screen.
func (m *watchModel) setMessage(msg string) {
	m.message = output.SanitizeTerminal(msg)
	m.messageTime = time.Now()
}

// summary counts the rows per displayed state
func (m watchModel) summary() string {
	counts := map[model.LivenessState]int{}
	for _, r := range m.snap.Rows {
		counts[r.State]++
	}
	return strings.Join([]string{
		runningStyle.Render(fmt.Sprintf("%d running", counts[model.StateRunning])),
		zombieStyle.Render(fmt.Sprintf("%d zombie", counts[model.StateZombie])),
		deadStyle.Render(fmt.Sprintf("%d dead", counts[model.StateAbsent])),
	}, mutedStyle.Render(" • "))
}

func (m watchModel) View() string {
	var b strings.Builder

	title := fmt.Sprintf("docker-pid1 watching pid %d", m.opts.PID)
	if m.paused {
		title += " (PAUSED)"
	}
	b.WriteString(titleStyle.Render(title) + "\n\n")
	b.WriteString(m.summary())
	if !m.snap.Taken.IsZero() {
		b.WriteString(mutedStyle.Render("  updated " + m.snap.Taken.Format("15:04:05")))
	}
	b.WriteString("\n\n")

	b.WriteString(baseStyle.Render(m.table.View()) + "\n")

	if m.err != nil {
		b.WriteString("\n" + deadStyle.Render(" "+output.SanitizeTerminal(m.err.Error())) + "\n")
	}

	if m.message != "" && time.Since(m.messageTime) < 3*time.Second {
		b.WriteString("\n" + lipgloss.NewStyle().
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57")).
			Padding(0, 1).
			Render(" "+m.message+" ") + "\n")
	}

	if m.enteringPID {
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("57")).Render(" watch pid: ") + m.pidInput.View() + "\n")
	}

	if m.confirmingKill {
		prompt := fmt.Sprintf(" Send SIGTERM to PID %d? [y/n] ", m.killPID)
		b.WriteString("\n" + lipgloss.NewStyle().
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("160")).
			Bold(true).
			Padding(0, 1).
			Render(prompt) + "\n")
	}

	help := "\n  q: quit • g: watch another pid • p: pause • S: save snapshot • x: send SIGTERM"
	b.WriteString(mutedStyle.Render(help) + "\n")

	return b.String()
}

// Run shows the watch screen until the user quits
func Run(opts Options) error {
	p := tea.NewProgram(newModel(opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
