package theme

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/lipgloss"
)

// Palette is the set of colors the styles are built from.
type Palette struct {
	PrimaryDark  lipgloss.AdaptiveColor
	PrimaryLight lipgloss.AdaptiveColor
	Accent       lipgloss.AdaptiveColor
	Text         lipgloss.AdaptiveColor
	Danger       lipgloss.AdaptiveColor
	Success      lipgloss.AdaptiveColor
	Placeholder  lipgloss.AdaptiveColor
}

// DefaultTheme is the palette used when display.theme is empty.
const DefaultTheme = "default"

// palettes holds the selectable palettes by display.theme name.
var palettes = map[string]Palette{
	DefaultTheme: {
		PrimaryDark:  lipgloss.AdaptiveColor{Dark: "#3E2676", Light: "#3E2676"},
		PrimaryLight: lipgloss.AdaptiveColor{Dark: "#8B5CF6", Light: "#6D28D9"},
		Accent:       lipgloss.AdaptiveColor{Dark: "#E9D5FF", Light: "#5B21B6"},
		Text:         lipgloss.AdaptiveColor{Dark: "#FFFFFF", Light: "#1F1235"},
		Danger:       lipgloss.AdaptiveColor{Dark: "#EF4444", Light: "#B91C1C"},
		Success:      lipgloss.AdaptiveColor{Dark: "#10B981", Light: "#047857"},
		Placeholder:  lipgloss.AdaptiveColor{Dark: "#A78BFA", Light: "#7C3AED"},
	},
	"ocean": {
		PrimaryDark:  lipgloss.AdaptiveColor{Dark: "#0C4A6E", Light: "#0C4A6E"},
		PrimaryLight: lipgloss.AdaptiveColor{Dark: "#38BDF8", Light: "#0369A1"},
		Accent:       lipgloss.AdaptiveColor{Dark: "#BAE6FD", Light: "#075985"},
		Text:         lipgloss.AdaptiveColor{Dark: "#F0F9FF", Light: "#082F49"},
		Danger:       lipgloss.AdaptiveColor{Dark: "#F87171", Light: "#B91C1C"},
		Success:      lipgloss.AdaptiveColor{Dark: "#34D399", Light: "#047857"},
		Placeholder:  lipgloss.AdaptiveColor{Dark: "#7DD3FC", Light: "#0284C7"},
	},
	"mono": {
		PrimaryDark:  lipgloss.AdaptiveColor{Dark: "#3F3F46", Light: "#3F3F46"},
		PrimaryLight: lipgloss.AdaptiveColor{Dark: "#D4D4D8", Light: "#27272A"},
		Accent:       lipgloss.AdaptiveColor{Dark: "#E4E4E7", Light: "#3F3F46"},
		Text:         lipgloss.AdaptiveColor{Dark: "#FAFAFA", Light: "#18181B"},
		Danger:       lipgloss.AdaptiveColor{Dark: "#FAFAFA", Light: "#18181B"},
		Success:      lipgloss.AdaptiveColor{Dark: "#A1A1AA", Light: "#52525B"},
		Placeholder:  lipgloss.AdaptiveColor{Dark: "#71717A", Light: "#71717A"},
	},
}

// Current palette colors.
var (
	ColorPrimaryDark  lipgloss.AdaptiveColor
	ColorPrimaryLight lipgloss.AdaptiveColor
	ColorAccent       lipgloss.AdaptiveColor
	ColorText         lipgloss.AdaptiveColor
	ColorDanger       lipgloss.AdaptiveColor
	ColorSuccess      lipgloss.AdaptiveColor
	ColorPlaceholder  lipgloss.AdaptiveColor
)

var (
	// HeaderStyle is used for the application title.
	HeaderStyle lipgloss.Style
	// StatusBarStyle is used for the bottom status line.
	StatusBarStyle lipgloss.Style
	// ErrorStyle renders remote command failures.
	ErrorStyle lipgloss.Style
	// ListItemStyle is the base style for tasks in the list.
	ListItemStyle lipgloss.Style
	// SelectedItemStyle highlights the focused task or subtask.
	SelectedItemStyle lipgloss.Style
	// CompletedStyle strikes through finished tasks and subtasks.
	CompletedStyle lipgloss.Style
	// SubtaskIndent offsets subtasks under their parent.
	SubtaskIndent lipgloss.Style
	// ProgressStyle renders the done/total subtask counter.
	ProgressStyle lipgloss.Style
	// PromptStyle frames the add/edit input and the delete confirmation.
	PromptStyle lipgloss.Style
	// HelpStyle is used for keyboard shortcut hints and help text.
	HelpStyle lipgloss.Style
)

func init() {
	use(palettes[DefaultTheme])
}

// Names returns the selectable theme names in sorted order.
func Names() []string {
	names := make([]string, 0, len(palettes))
	for name := range palettes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply switches every color and style to the named palette. An empty
// name selects the default. Styles already copied by a caller keep their
// old colors, so Apply belongs before the UI is built.
func Apply(name string) error {
	if name == "" {
		name = DefaultTheme
	}
	p, ok := palettes[name]
	if !ok {
		return fmt.Errorf("unknown theme %q (available: %v)", name, Names())
	}
	use(p)
	return nil
}

func use(p Palette) {
	ColorPrimaryDark = p.PrimaryDark
	ColorPrimaryLight = p.PrimaryLight
	ColorAccent = p.Accent
	ColorText = p.Text
	ColorDanger = p.Danger
	ColorSuccess = p.Success
	ColorPlaceholder = p.Placeholder

	HeaderStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(ColorPrimaryDark).
		Padding(0, 1)

	StatusBarStyle = lipgloss.NewStyle().
		Foreground(ColorAccent).
		Padding(0, 1)

	ErrorStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorDanger).
		Padding(0, 1)

	ListItemStyle = lipgloss.NewStyle().
		PaddingLeft(2).
		Foreground(ColorText)

	SelectedItemStyle = lipgloss.NewStyle().
		PaddingLeft(1).
		Bold(true).
		Foreground(ColorPrimaryLight).
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(ColorPrimaryLight)

	CompletedStyle = lipgloss.NewStyle().
		Strikethrough(true).
		Foreground(ColorPlaceholder)

	SubtaskIndent = lipgloss.NewStyle().
		PaddingLeft(4)

	ProgressStyle = lipgloss.NewStyle().
		Foreground(ColorPlaceholder)

	PromptStyle = lipgloss.NewStyle().
		Padding(0, 1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorPrimaryLight)

	HelpStyle = lipgloss.NewStyle().
		Foreground(ColorPlaceholder).
		Italic(true)
}

// CheckMark returns the checkbox glyph for a completion state.
func CheckMark(done bool) string {
	if done {
		return lipgloss.NewStyle().Foreground(ColorSuccess).Render("[x]")
	}
	return lipgloss.NewStyle().Foreground(ColorPrimaryLight).Render("[ ]")
}
