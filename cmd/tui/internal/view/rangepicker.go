package view

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/MrJamesThe3rd/freightbook/internal/measure"
)

// RangeSelectedMsg carries the chosen inclusive date range. Empty bounds
// mean the range is open on that side.
type RangeSelectedMsg struct {
	From string
	To   string
}

type rangePreset struct {
	label   string
	resolve func(now time.Time) (time.Time, time.Time)
}

var rangePresets = []rangePreset{
	{"This month", func(now time.Time) (time.Time, time.Time) {
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()), now
	}},
	{"Last month", func(now time.Time) (time.Time, time.Time) {
		first := time.Date(now.Year(), now.Month()-1, 1, 0, 0, 0, 0, now.Location())
		return first, first.AddDate(0, 1, -1)
	}},
	{"This year", func(now time.Time) (time.Time, time.Time) {
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location()), now
	}},
	{"Everything", nil},
}

// presetRange resolves preset i as YYYY-MM-DD bounds. The open preset
// resolves to empty bounds.
func presetRange(i int, now time.Time) (string, string) {
	p := rangePresets[i]
	if p.resolve == nil {
		return "", ""
	}

	from, to := p.resolve(now)

	return from.Format(measure.DateLayout), to.Format(measure.DateLayout)
}

// parseRange validates a typed range. Loose forms such as 2024/3/5 are
// accepted.
func parseRange(from, to string) (string, string, error) {
	start, ok := measure.ParseDate(from)
	if !ok {
		return "", "", errors.New("invalid start date (YYYY-MM-DD)")
	}

	end, ok := measure.ParseDate(to)
	if !ok {
		return "", "", errors.New("invalid end date (YYYY-MM-DD)")
	}

	if end < start {
		return "", "", errors.New("end date is before start date")
	}

	return start, end, nil
}

// RangePicker offers the presets plus a typed custom range as its last
// entry.
type RangePicker struct {
	cursor int
	typing bool
	inputs [2]textinput.Model
	focus  int

	now func() time.Time
	err error
}

func NewRangePicker() RangePicker {
	var inputs [2]textinput.Model
	for i, prompt := range []string{"From: ", "To:   "} {
		in := textinput.New()
		in.Prompt = prompt
		in.Placeholder = "YYYY-MM-DD"
		in.CharLimit = 12
		in.Width = 12
		inputs[i] = in
	}

	return RangePicker{inputs: inputs, now: time.Now}
}

// Typing reports whether the custom range inputs have focus.
func (p RangePicker) Typing() bool {
	return p.typing
}

func (p *RangePicker) Reset() {
	p.cursor = 0
	p.typing = false
	p.err = nil

	for i := range p.inputs {
		p.inputs[i].Reset()
		p.inputs[i].Blur()
	}
}

func (p RangePicker) Update(msg tea.Msg) (RangePicker, tea.Cmd) {
	key, isKey := msg.(tea.KeyMsg)

	if !p.typing {
		if !isKey {
			return p, nil
		}

		switch key.String() {
		case "up", "k":
			if p.cursor > 0 {
				p.cursor--
			}
		case "down", "j":
			if p.cursor < len(rangePresets) {
				p.cursor++
			}
		case "enter":
			if p.cursor == len(rangePresets) {
				p.typing = true
				p.focus = 0

				return p, p.inputs[0].Focus()
			}

			from, to := presetRange(p.cursor, p.now())

			return p, selectRange(from, to)
		}

		return p, nil
	}

	if isKey {
		switch key.String() {
		case "esc":
			p.typing = false
			p.err = nil

			return p, nil
		case "tab", "shift+tab":
			p.inputs[p.focus].Blur()
			p.focus = 1 - p.focus

			return p, p.inputs[p.focus].Focus()
		case "enter":
			from, to, err := parseRange(p.inputs[0].Value(), p.inputs[1].Value())
			p.err = err
			if err != nil {
				return p, nil
			}

			return p, selectRange(from, to)
		}
	}

	var cmd tea.Cmd
	p.inputs[p.focus], cmd = p.inputs[p.focus].Update(msg)

	return p, cmd
}

func selectRange(from, to string) tea.Cmd {
	return func() tea.Msg {
		return RangeSelectedMsg{From: from, To: to}
	}
}

func (p RangePicker) View() string {
	var sb strings.Builder

	if p.typing {
		sb.WriteString("Custom range:\n\n")
		sb.WriteString(p.inputs[0].View() + "\n" + p.inputs[1].View())
		sb.WriteString("\n\n(Enter to confirm, Tab to switch, Esc to go back)")
	} else {
		sb.WriteString("Export which dates?\n\n")

		labels := make([]string, 0, len(rangePresets)+1)
		for _, preset := range rangePresets {
			labels = append(labels, preset.label)
		}

		for i, label := range append(labels, "Custom...") {
			cursor := "  "
			if i == p.cursor {
				cursor = "> "
			}

			fmt.Fprintf(&sb, "%s%s\n", cursor, label)
		}

		sb.WriteString("\n(Enter to select, Esc to go back)")
	}

	if p.err != nil {
		sb.WriteString("\n\n" + errorStyle(fmt.Sprintf("Error: %v", p.err)))
	}

	return sb.String()
}
