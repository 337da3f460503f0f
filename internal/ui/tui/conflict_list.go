// Package tui provides interactive terminal UI components using BubbleTea.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/klauern/permisync/internal/plan"
)

// ConflictAction represents the action to perform after conflict resolution.
type ConflictAction int

const (
	// ConflictActionNone means no action was taken (user quit).
	ConflictActionNone ConflictAction = iota
	// ConflictActionResolve means the user resolved conflicts and wants to apply.
	ConflictActionResolve
	// ConflictActionCancel means the user cancelled.
	ConflictActionCancel
)

// ConflictListResult contains the result of the conflict resolution interaction.
type ConflictListResult struct {
	Action ConflictAction
	// Decisions maps each resolved row uuid to its decision. Skipped rows
	// are absent and stay unresolved.
	Decisions map[string]plan.Decision
}

// conflictPhase represents the current phase of conflict resolution.
type conflictPhase int

const (
	phaseList conflictPhase = iota
	phaseDetail
)

// conflictKeyMap defines the key bindings for conflict resolution.
type conflictKeyMap struct {
	Up       key.Binding
	Down     key.Binding
	Select   key.Binding
	Local    key.Binding
	Remote   key.Binding
	Skip     key.Binding
	Confirm  key.Binding
	Back     key.Binding
	Help     key.Binding
	Quit     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
}

func defaultConflictKeyMap() conflictKeyMap {
	return conflictKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "subir"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "bajar"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "ver detalle"),
		),
		Local: key.NewBinding(
			key.WithKeys("l", "1"),
			key.WithHelp("l/1", "conservar local"),
		),
		Remote: key.NewBinding(
			key.WithKeys("r", "2"),
			key.WithHelp("r/2", "conservar hoja"),
		),
		Skip: key.NewBinding(
			key.WithKeys("x", "3"),
			key.WithHelp("x/3", "omitir"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "aplicar decisiones"),
		),
		Back: key.NewBinding(
			key.WithKeys("b", "esc"),
			key.WithHelp("b/esc", "volver"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "ayuda"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "salir"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "página arriba"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdown", "página abajo"),
		),
	}
}

// skipMarker records an explicit skip so the row counts as decided in the
// list without producing a decision in the result.
const skipMarker = plan.Decision("skip")

// ConflictListModel is the BubbleTea model for conflict resolution.
type ConflictListModel struct {
	conflicts   []plan.Item
	decisions   map[string]plan.Decision
	table       table.Model
	viewport    viewport.Model
	keys        conflictKeyMap
	result      ConflictListResult
	phase       conflictPhase
	cursor      int
	showHelp    bool
	confirmMode bool
	width       int
	height      int
	quitting    bool
	ready       bool
}

// Styles for the conflict resolution TUI.
var conflictStyles = struct {
	Title        lipgloss.Style
	Help         lipgloss.Style
	Status       lipgloss.Style
	Remote       lipgloss.Style
	Local        lipgloss.Style
	Context      lipgloss.Style
	Resolved     lipgloss.Style
	Unresolved   lipgloss.Style
	Confirm      lipgloss.Style
	SectionTitle lipgloss.Style
}{
	Title:        lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")).Padding(0, 1),
	Help:         lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	Status:       lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Padding(0, 1),
	Remote:       lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
	Local:        lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
	Context:      lipgloss.NewStyle().Foreground(lipgloss.Color("7")),
	Resolved:     lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
	Unresolved:   lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
	Confirm:      lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true).Padding(0, 1),
	SectionTitle: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")).Padding(1, 0),
}

// NewConflictListModel creates a new conflict resolution model.
func NewConflictListModel(conflicts []plan.Item) ConflictListModel {
	decisions := make(map[string]plan.Decision)

	columns := []table.Column{
		{Title: "Estado", Width: 8},
		{Title: "Solicitud", Width: 38},
		{Title: "Campos", Width: 20},
		{Title: "Decisión", Width: 14},
	}

	rows := make([]table.Row, len(conflicts))
	for i, c := range conflicts {
		rows[i] = buildConflictRow(c, "")
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return ConflictListModel{
		conflicts: conflicts,
		decisions: decisions,
		table:     t,
		keys:      defaultConflictKeyMap(),
		phase:     phaseList,
	}
}

func buildConflictRow(c plan.Item, decision string) table.Row {
	status := "○"
	if decision != "" {
		status = "✓"
	}

	decStr := "-"
	if decision != "" {
		decStr = decision
	}

	fields := make([]string, len(c.Diffs))
	for i, d := range c.Diffs {
		fields[i] = d.Field
	}

	return table.Row{
		status,
		c.UUID,
		strings.Join(fields, ", "),
		decStr,
	}
}

// Init implements tea.Model.
func (m ConflictListModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m ConflictListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m.phase {
	case phaseList:
		return m.updateList(msg)
	case phaseDetail:
		return m.updateDetail(msg)
	}
	return m, nil
}

func (m ConflictListModel) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		newHeight := max(msg.Height-10, 5)
		m.table.SetHeight(newHeight)

	case tea.KeyMsg:
		// Handle confirmation mode first
		if m.confirmMode {
			switch msg.String() {
			case "y", "Y":
				m.result = ConflictListResult{
					Action:    ConflictActionResolve,
					Decisions: m.buildDecisions(),
				}
				m.quitting = true
				return m, tea.Quit
			case "n", "N", "esc":
				m.confirmMode = false
				return m, nil
			}
			return m, nil
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, m.keys.Help):
			m.showHelp = !m.showHelp
			return m, nil

		case key.Matches(msg, m.keys.Select):
			if len(m.conflicts) > 0 {
				m.cursor = m.table.Cursor()
				m.phase = phaseDetail
				m.ready = false
				return m, nil
			}

		case key.Matches(msg, m.keys.Local):
			if len(m.conflicts) > 0 {
				m.decideCurrentConflict(plan.DecisionKeepLocal)
				return m, nil
			}

		case key.Matches(msg, m.keys.Remote):
			if len(m.conflicts) > 0 {
				m.decideCurrentConflict(plan.DecisionKeepRemote)
				return m, nil
			}

		case key.Matches(msg, m.keys.Skip):
			if len(m.conflicts) > 0 {
				m.decideCurrentConflict(skipMarker)
				return m, nil
			}

		case key.Matches(msg, m.keys.Confirm):
			if m.allDecided() {
				m.confirmMode = true
				return m, nil
			}

		case key.Matches(msg, m.keys.Back):
			m.result = ConflictListResult{Action: ConflictActionCancel}
			m.quitting = true
			return m, tea.Quit
		}
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m ConflictListModel) updateDetail(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 6
		footerHeight := 4
		viewportHeight := max(msg.Height-headerHeight-footerHeight, 5)

		if !m.ready {
			m.viewport = viewport.New(msg.Width-2, viewportHeight)
			m.viewport.SetContent(m.buildDetailContent())
			m.ready = true
		} else {
			m.viewport.Width = msg.Width - 2
			m.viewport.Height = viewportHeight
		}

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, m.keys.Help):
			m.showHelp = !m.showHelp
			return m, nil

		case key.Matches(msg, m.keys.Back):
			m.phase = phaseList
			return m, nil

		case key.Matches(msg, m.keys.Local):
			m.decideConflictAt(m.cursor, plan.DecisionKeepLocal)
			m.viewport.SetContent(m.buildDetailContent())
			return m, nil

		case key.Matches(msg, m.keys.Remote):
			m.decideConflictAt(m.cursor, plan.DecisionKeepRemote)
			m.viewport.SetContent(m.buildDetailContent())
			return m, nil

		case key.Matches(msg, m.keys.Skip):
			m.decideConflictAt(m.cursor, skipMarker)
			m.viewport.SetContent(m.buildDetailContent())
			return m, nil
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *ConflictListModel) decideCurrentConflict(decision plan.Decision) {
	cursor := m.table.Cursor()
	m.decideConflictAt(cursor, decision)
}

func (m *ConflictListModel) decideConflictAt(idx int, decision plan.Decision) {
	if idx < 0 || idx >= len(m.conflicts) {
		return
	}

	c := m.conflicts[idx]
	m.decisions[c.UUID] = decision

	m.updateTableRow(idx)
}

func (m *ConflictListModel) updateTableRow(idx int) {
	if idx < 0 || idx >= len(m.conflicts) {
		return
	}

	c := m.conflicts[idx]
	decision := ""
	if d, ok := m.decisions[c.UUID]; ok {
		decision = string(d)
	}

	rows := m.table.Rows()
	if idx < len(rows) {
		rows[idx] = buildConflictRow(c, decision)
		m.table.SetRows(rows)
	}
}

func (m ConflictListModel) allDecided() bool {
	for _, c := range m.conflicts {
		if _, ok := m.decisions[c.UUID]; !ok {
			return false
		}
	}
	return len(m.conflicts) > 0
}

func (m ConflictListModel) buildDecisions() map[string]plan.Decision {
	result := make(map[string]plan.Decision)
	for _, c := range m.conflicts {
		if d, ok := m.decisions[c.UUID]; ok && d != skipMarker {
			result[c.UUID] = d
		}
	}
	return result
}

func (m ConflictListModel) buildDetailContent() string {
	if m.cursor < 0 || m.cursor >= len(m.conflicts) {
		return "Ningún conflicto seleccionado"
	}

	c := m.conflicts[m.cursor]
	var b strings.Builder

	b.WriteString(conflictStyles.SectionTitle.Render("Detalle del conflicto"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  Solicitud: %s\n", c.UUID))
	if c.Reason != "" {
		b.WriteString(fmt.Sprintf("  Motivo:    %s\n", c.Reason))
	}

	if d, ok := m.decisions[c.UUID]; ok {
		b.WriteString("\n")
		b.WriteString(conflictStyles.Resolved.Render(fmt.Sprintf("  Decisión: %s", d)))
		b.WriteString("\n")
	}

	if len(c.Diffs) > 0 {
		b.WriteString("\n")
		b.WriteString(conflictStyles.SectionTitle.Render("Campos divergentes"))
		b.WriteString("\n")

		for _, d := range c.Diffs {
			b.WriteString(conflictStyles.Context.Render(fmt.Sprintf("  %s", d.Field)))
			b.WriteString("\n")
			b.WriteString(conflictStyles.Remote.Render(fmt.Sprintf("    hoja:  %s", d.CurrentValue)))
			b.WriteString("\n")
			b.WriteString(conflictStyles.Local.Render(fmt.Sprintf("    local: %s", d.NewValue)))
			b.WriteString("\n")
		}
	}

	return b.String()
}

// View implements tea.Model.
func (m ConflictListModel) View() string {
	if m.quitting {
		return ""
	}

	switch m.phase {
	case phaseDetail:
		return m.viewDetail()
	default:
		return m.viewList()
	}
}

func (m ConflictListModel) viewList() string {
	var b strings.Builder

	b.WriteString(conflictStyles.Title.Render("Resolución de conflictos"))
	b.WriteString("\n\n")
	b.WriteString(m.table.View())
	b.WriteString("\n")

	decided := 0
	for _, c := range m.conflicts {
		if _, ok := m.decisions[c.UUID]; ok {
			decided++
		}
	}
	b.WriteString(conflictStyles.Status.Render(
		fmt.Sprintf("%d/%d decididos", decided, len(m.conflicts))))
	b.WriteString("\n")

	if m.confirmMode {
		b.WriteString(conflictStyles.Confirm.Render("¿Aplicar las decisiones? [y/n]"))
		b.WriteString("\n")
	} else if m.showHelp {
		b.WriteString(m.helpView())
	} else {
		b.WriteString(conflictStyles.Help.Render("  l: local · r: hoja · x: omitir · enter: detalle · y: aplicar · q: salir · ?: ayuda"))
		b.WriteString("\n")
	}

	return b.String()
}

func (m ConflictListModel) viewDetail() string {
	var b strings.Builder

	b.WriteString(conflictStyles.Title.Render("Detalle del conflicto"))
	b.WriteString("\n")
	if m.ready {
		b.WriteString(m.viewport.View())
	} else {
		b.WriteString(m.buildDetailContent())
	}
	b.WriteString("\n")
	b.WriteString(conflictStyles.Help.Render("  l: local · r: hoja · x: omitir · b/esc: volver · q: salir"))
	b.WriteString("\n")

	return b.String()
}

func (m ConflictListModel) helpView() string {
	bindings := []key.Binding{
		m.keys.Up, m.keys.Down, m.keys.Select,
		m.keys.Local, m.keys.Remote, m.keys.Skip,
		m.keys.Confirm, m.keys.Back, m.keys.Quit,
	}

	var b strings.Builder
	for _, binding := range bindings {
		b.WriteString(conflictStyles.Help.Render(
			fmt.Sprintf("  %-10s %s", binding.Help().Key, binding.Help().Desc)))
		b.WriteString("\n")
	}
	return b.String()
}

// Result returns the outcome of the interaction.
func (m ConflictListModel) Result() ConflictListResult {
	return m.result
}

// RunConflictList runs the conflict resolution TUI and returns the outcome.
func RunConflictList(conflicts []plan.Item) (ConflictListResult, error) {
	final, err := tea.NewProgram(NewConflictListModel(conflicts)).Run()
	if err != nil {
		return ConflictListResult{}, err
	}
	model, ok := final.(ConflictListModel)
	if !ok {
		return ConflictListResult{}, fmt.Errorf("unexpected model type %T", final)
	}
	return model.Result(), nil
}
