package views

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sveturs/mapsearch/internal/engine/storage"
	"github.com/sveturs/mapsearch/internal/tui/styles"
)

// NavigateToBrowse signals navigation back to the map screen,
// optionally restoring a stored state URL.
type NavigateToBrowse struct {
	StateURL string
}

// SnapshotsModel lists stored search snapshots, newest first.
type SnapshotsModel struct {
	entries []storage.Snapshot
	cursor  int
	err     string
}

func NewSnapshotsModel(store *storage.Store) SnapshotsModel {
	m := SnapshotsModel{}
	entries, err := store.Snapshots()
	if err != nil {
		m.err = err.Error()
		return m
	}
	m.entries = entries
	return m
}

func (m SnapshotsModel) Init() tea.Cmd {
	return nil
}

func (m SnapshotsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.entries)-1 {
				m.cursor++
			}
		case "enter":
			if m.cursor < len(m.entries) {
				url := m.entries[m.cursor].StateURL
				return m, func() tea.Msg { return NavigateToBrowse{StateURL: url} }
			}
		case "esc":
			return m, func() tea.Msg { return NavigateToBrowse{} }
		}
	}
	return m, nil
}

func (m SnapshotsModel) View() string {
	var b strings.Builder

	b.WriteString(styles.Title.Render("Saved Searches"))
	b.WriteString("\n\n")

	if m.err != "" {
		b.WriteString(styles.ErrorText.Render(m.err))
		b.WriteString("\n\n")
		b.WriteString(styles.StatusBar.Render("esc back"))
		return styles.Border.Render(b.String())
	}

	if len(m.entries) == 0 {
		b.WriteString(lipgloss.NewStyle().Foreground(styles.Muted).Italic(true).
			Render("No saved searches"))
		b.WriteString("\n\n")
		b.WriteString(styles.StatusBar.Render("esc back"))
		return styles.Border.Render(b.String())
	}

	for i, entry := range m.entries {
		cursor := "  "
		style := styles.InactiveItem
		if i == m.cursor {
			cursor = "> "
			style = styles.ActiveItem
		}

		label := entry.Query
		if label == "" {
			label = "(no query)"
		}
		head := style.Render(fmt.Sprintf("#%d  %s", entry.ID, label))
		detail := lipgloss.NewStyle().Foreground(styles.Muted).Render(
			fmt.Sprintf("  %s  %d results  %s", entry.Mode, entry.Total, timeAgo(entry.CreatedAt)))

		b.WriteString(fmt.Sprintf("%s%s\n%s\n", cursor, head, detail))
	}

	b.WriteString("\n")
	b.WriteString(styles.StatusBar.Render("enter restore  esc back"))

	return styles.Border.Render(b.String())
}

func timeAgo(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
