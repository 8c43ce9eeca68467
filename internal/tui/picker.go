package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mabhi256/heapscope/internal/host"
	"github.com/mabhi256/heapscope/utils"
)

// targetItem represents a target in the selection list
type targetItem struct {
	target   host.Target
	selected bool
}

func (i targetItem) FilterValue() string {
	return fmt.Sprintf("%d %s", i.target.ID(), i.target.Name())
}

func (i targetItem) Title() string {
	title := fmt.Sprintf("%d: %s", i.target.ID(), i.target.Name())
	if i.selected {
		title += " *"
	}
	return utils.TruncateString(title, 60)
}

func (i targetItem) Description() string {
	switch {
	case !i.target.IsValid():
		return "gone"
	case i.target.IsCoreDump():
		return "core dump"
	default:
		return "live process"
	}
}

type pickerKeyMap struct {
	Enter key.Binding
	Quit  key.Binding
}

var pickerKeys = pickerKeyMap{
	Enter: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
	Quit:  key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "cancel")),
}

// pickerModel lets the operator choose one target
type pickerModel struct {
	targets list.Model
	width   int
	chosen  host.Target
}

func newPickerModel(targets []host.Target, selected host.Target) *pickerModel {
	items := make([]list.Item, len(targets))
	cursor := 0
	for i, t := range targets {
		items[i] = targetItem{target: t, selected: t == selected}
		if t == selected {
			cursor = i
		}
	}

	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Targets"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.Select(cursor)

	return &pickerModel{targets: l}
}

func (m *pickerModel) Init() tea.Cmd {
	return nil
}

func (m *pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.targets.SetWidth(msg.Width)
		m.targets.SetHeight(msg.Height - 4) // Leave space for header and footer
		return m, nil

	case tea.KeyMsg:
		// Let the list handle keys while the operator types a filter
		if m.targets.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, pickerKeys.Enter):
			if item, ok := m.targets.SelectedItem().(targetItem); ok {
				m.chosen = item.target
			}
			return m, tea.Quit
		case key.Matches(msg, pickerKeys.Quit):
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.targets, cmd = m.targets.Update(msg)
	return m, cmd
}

func (m *pickerModel) View() string {
	header := utils.HeaderStyle.Width(m.width).Render("🔍 Select Target")
	status := utils.StatusBarStyle.Width(m.width).
		Render(fmt.Sprintf("%d targets • enter select • esc cancel", len(m.targets.Items())))
	separatorLine := strings.Repeat("─", max(m.width, 0))

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		utils.MutedStyle.Render(separatorLine),
		m.targets.View(),
		status,
	)
}

// PickTarget shows the targets in a list and returns the one chosen, or
// nil if the operator cancelled
func PickTarget(targets []host.Target, selected host.Target, opts ...tea.ProgramOption) (host.Target, error) {
	model := newPickerModel(targets, selected)

	program := tea.NewProgram(model, append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)...)
	if _, err := program.Run(); err != nil {
		return nil, fmt.Errorf("target picker: %w", err)
	}
	return model.chosen, nil
}
