package main

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rtoskit/kernel-objects/kernel"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	kindStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	createdStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	destroyedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const eventLogDepth = 8

// eventLog is a kernel lifecycle observer keeping the most recent
// events for the viewer.
type eventLog struct {
	mu     sync.Mutex
	events []kernel.Event
}

func (l *eventLog) OnObjectEvent(e kernel.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
	if len(l.events) > eventLogDepth {
		l.events = l.events[len(l.events)-eventLogDepth:]
	}
}

func (l *eventLog) snapshot() []kernel.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]kernel.Event(nil), l.events...)
}

type objectRow struct {
	handle kernel.Handle
	kind   kernel.Kind
	name   string
}

type tickMsg time.Time

type viewerModel struct {
	run      *runner
	log      *eventLog
	rows     []objectRow
	filter   textinput.Model
	filterOn bool
	started  time.Time
}

func newViewerModel(run *runner, log *eventLog) *viewerModel {
	ti := textinput.New()
	ti.Placeholder = "kind or name"
	ti.Prompt = "/ "
	ti.Width = 24
	return &viewerModel{
		run:     run,
		log:     log,
		filter:  ti,
		started: time.Now(),
	}
}

func tick() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *viewerModel) Init() tea.Cmd {
	m.refresh()
	return tick()
}

func (m *viewerModel) refresh() {
	m.rows = m.rows[:0]
	kernel.Each(func(h kernel.Handle, k kernel.Kind, name string) bool {
		m.rows = append(m.rows, objectRow{handle: h, kind: k, name: name})
		return true
	})
	sort.Slice(m.rows, func(i, j int) bool {
		if m.rows[i].kind != m.rows[j].kind {
			return m.rows[i].kind < m.rows[j].kind
		}
		return m.rows[i].handle < m.rows[j].handle
	})
}

func (m *viewerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.filterOn {
			switch msg.String() {
			case "enter", "esc":
				m.filterOn = false
				m.filter.Blur()
				if msg.String() == "esc" {
					m.filter.SetValue("")
				}
				return m, nil
			}
			var cmd tea.Cmd
			m.filter, cmd = m.filter.Update(msg)
			return m, cmd
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "/":
			m.filterOn = true
			m.filter.Focus()
			return m, textinput.Blink
		}

	case tickMsg:
		m.refresh()
		return m, tick()
	}
	return m, nil
}

func (m *viewerModel) matchesFilter(row objectRow) bool {
	f := strings.ToLower(strings.TrimSpace(m.filter.Value()))
	if f == "" {
		return true
	}
	return strings.Contains(row.kind.String(), f) ||
		strings.Contains(strings.ToLower(row.name), f)
}

func (m *viewerModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("kobjtop"))
	fmt.Fprintf(&b, "  scenario %s  up %s\n\n",
		m.run.scn.Name, time.Since(m.started).Round(time.Second))

	// Live objects grouped by kind.
	byKind := map[kernel.Kind]int{}
	shown := 0
	b.WriteString("HANDLE  KIND                 NAME\n")
	for _, row := range m.rows {
		byKind[row.kind]++
		if !m.matchesFilter(row) {
			continue
		}
		shown++
		name := row.name
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(&b, "%6d  %s  %s\n",
			row.handle,
			kindStyle.Render(fmt.Sprintf("%-19s", row.kind)),
			nameStyle.Render(name))
	}
	fmt.Fprintf(&b, "\n%d live objects, %d shown\n\n", len(m.rows), shown)

	// Per-member throughput from the scenario's consumer.
	b.WriteString("MEMBER            KIND              EVENTS\n")
	for _, ms := range m.run.members {
		fmt.Fprintf(&b, "%-16s  %-16s  %s\n",
			ms.name, ms.kind,
			countStyle.Render(fmt.Sprintf("%d", ms.count.Load())))
	}
	fmt.Fprintf(&b, "timer fires: %s\n\n",
		countStyle.Render(fmt.Sprintf("%d", m.run.timerFires.Load())))

	// Recent lifecycle events, newest last.
	b.WriteString("RECENT EVENTS\n")
	for _, e := range m.log.snapshot() {
		verb := createdStyle.Render("created  ")
		if e.Type == kernel.ObjectDestroyed {
			verb = destroyedStyle.Render("destroyed")
		}
		fmt.Fprintf(&b, "  %s %s #%d %s\n", verb, e.Kind, e.Handle, e.Name)
	}
	b.WriteString("\n")

	if m.filterOn {
		b.WriteString(m.filter.View())
	} else {
		b.WriteString(helpStyle.Render("/ filter • q quit"))
	}
	return b.String()
}

func runViewer(run *runner, log *eventLog) error {
	p := tea.NewProgram(newViewerModel(run, log), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
