package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tasksync/internal/theme"
)

// Layout splits the terminal into a header line, the task list, and a
// footer whose height depends on what is currently shown beneath the list.
type Layout struct {
	Width  int
	Height int
}

// NewLayout creates a Layout with the given terminal dimensions.
func NewLayout(width, height int) Layout {
	return Layout{Width: width, Height: height}
}

// ContentHeight returns the rows left for the list once the header and a
// footer of footerLines are drawn.
func (l Layout) ContentHeight(footerLines int) int {
	h := l.Height - 1 - footerLines
	if h < 1 {
		return 1
	}
	return h
}

// RenderHeader renders the title bar with the signed-in user on the right.
func (l Layout) RenderHeader(title, user string) string {
	titleRendered := theme.HeaderStyle.Render(title)
	userRendered := theme.HeaderStyle.Render(user)

	gap := l.Width -
		lipgloss.Width(titleRendered) -
		lipgloss.Width(userRendered)
	if gap < 0 {
		gap = 0
	}

	filler := lipgloss.NewStyle().
		Width(gap).
		Background(theme.HeaderStyle.GetBackground()).
		Render("")

	return lipgloss.JoinHorizontal(lipgloss.Top, titleRendered, filler, userRendered)
}

// RenderWithFrame stacks the header, content, and any non-empty footer
// sections.
func (l Layout) RenderWithFrame(header, content string, footer ...string) string {
	parts := []string{header, content}
	for _, f := range footer {
		if f != "" {
			parts = append(parts, f)
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
