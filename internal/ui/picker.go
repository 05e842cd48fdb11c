package ui

import (
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rotisserie/eris"
	"golang.org/x/term"

	"github.com/cybre/vinylviz/internal/utils"
)

var (
	ErrSelectionAborted = eris.New("selection aborted")
	ErrNoInteractiveTTY = eris.New("no interactive terminal available")
)

type Option struct {
	Label string
}

// RunPicker asks the user to choose one of options and returns its index.
// Without a terminal it returns ErrNoInteractiveTTY.
func RunPicker(title string, options []Option, initial int) (int, error) {
	if len(options) == 0 {
		return 0, eris.New("nothing to choose from")
	}
	if !IsInteractiveTerminal() {
		return utils.ClampIndex(initial, len(options)), ErrNoInteractiveTTY
	}

	finalModel, err := tea.NewProgram(newPickerModel(title, options, initial)).Run()
	if err != nil {
		return 0, eris.Wrap(err, "run picker")
	}

	result := finalModel.(pickerModel)
	if result.err != nil {
		return 0, result.err
	}
	return utils.ClampIndex(result.cursor, len(options)), nil
}

type pickerModel struct {
	title   string
	options []Option
	cursor  int
	done    bool
	err     error
}

func newPickerModel(title string, options []Option, initial int) pickerModel {
	return pickerModel{
		title:   title,
		options: options,
		cursor:  utils.ClampIndex(initial, len(options)),
	}
}

func (m pickerModel) Init() tea.Cmd {
	return nil
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.done {
		return m, tea.Quit
	}

	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "ctrl+c", "esc", "q":
		m.err = ErrSelectionAborted
		return m, tea.Quit
	case "up", "k":
		m.cursor = utils.WrapIndex(m.cursor-1, len(m.options))
	case "down", "j":
		m.cursor = utils.WrapIndex(m.cursor+1, len(m.options))
	case "enter":
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m pickerModel) View() string {
	if m.done || m.err != nil {
		return ""
	}
	lines := []string{
		"",
		titleStyle.Render(m.title),
		"",
		renderOptionList(m.options, m.cursor),
		"",
		renderInstructions([]string{"↑/k ↓/j move", "enter confirm", "esc cancel"}),
		"",
	}
	return strings.Join(lines, "\n")
}

func renderPointer(active bool) string {
	if active {
		return pointerStyle.Render("›")
	}
	return inactivePointerStyle.Render(" ")
}

func renderOptionLabel(text string, active bool) string {
	if active {
		return selectedItemStyle.Render(text)
	}
	return itemStyle.Render(text)
}

func renderOptionList(items []Option, cursor int) string {
	if len(items) == 0 {
		return emptyStateStyle.Render("No options detected")
	}

	rows := make([]string, len(items))
	for i, item := range items {
		rows[i] = lipgloss.JoinHorizontal(lipgloss.Left,
			renderPointer(cursor == i),
			" ",
			renderOptionLabel(item.Label, cursor == i),
		)
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// IsInteractiveTerminal reports whether stdin and stdout are both terminals.
func IsInteractiveTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}
