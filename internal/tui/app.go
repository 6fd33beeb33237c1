package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sveturs/mapsearch/internal/engine/search"
	"github.com/sveturs/mapsearch/internal/engine/state"
	"github.com/sveturs/mapsearch/internal/engine/storage"
	"github.com/sveturs/mapsearch/internal/tui/views"
)

type viewID int

const (
	viewBrowse viewID = iota
	viewSnapshots
)

// App is the root bubbletea model.
type App struct {
	currentView viewID
	width       int
	height      int

	orch  *search.Orchestrator
	store *storage.Store

	browse    views.BrowseModel
	snapshots views.SnapshotsModel
}

func NewApp(orch *search.Orchestrator, store *storage.Store, guard *state.HydrationGuard) App {
	return App{
		currentView: viewBrowse,
		orch:        orch,
		store:       store,
		browse:      views.NewBrowseModel(orch, store, guard),
	}
}

func (a App) Init() tea.Cmd {
	return tea.Batch(a.browse.Init(), a.listenResults())
}

// listenResults blocks on the orchestrator's update stream and turns
// each snapshot into a message.
func (a App) listenResults() tea.Cmd {
	ch := a.orch.Updates()
	return func() tea.Msg {
		return views.ResultMsg(<-ch)
	}
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
	case views.ResultMsg:
		// Results always land in the browse model, whichever view is
		// on screen, so returning to the map shows current data.
		m, cmd := a.browse.Update(msg)
		a.browse = m.(views.BrowseModel)
		return a, tea.Batch(cmd, a.listenResults())
	case views.NavigateToSnapshots:
		a.currentView = viewSnapshots
		a.snapshots = views.NewSnapshotsModel(a.store)
		return a, a.snapshots.Init()
	case views.NavigateToBrowse:
		a.currentView = viewBrowse
		if msg.StateURL != "" {
			a.orch.Hydrate(state.Decode(msg.StateURL))
		}
		return a, a.sizeCmd()
	}

	var cmd tea.Cmd
	switch a.currentView {
	case viewBrowse:
		var m tea.Model
		m, cmd = a.browse.Update(msg)
		a.browse = m.(views.BrowseModel)
	case viewSnapshots:
		var m tea.Model
		m, cmd = a.snapshots.Update(msg)
		a.snapshots = m.(views.SnapshotsModel)
	}

	return a, cmd
}

func (a App) View() string {
	var content string
	switch a.currentView {
	case viewBrowse:
		content = a.browse.View()
	case viewSnapshots:
		content = a.snapshots.View()
	}

	return lipgloss.Place(
		a.width, a.height,
		lipgloss.Center, lipgloss.Top,
		content,
	)
}

// sizeCmd sends a WindowSizeMsg so newly shown views get the current terminal size.
func (a App) sizeCmd() tea.Cmd {
	w, h := a.width, a.height
	return func() tea.Msg {
		return tea.WindowSizeMsg{Width: w, Height: h}
	}
}

// Run hydrates the orchestrator from the initial state and starts the
// TUI, blocking until the user quits.
func Run(orch *search.Orchestrator, store *storage.Store, initial state.Snapshot) error {
	guard := state.NewHydrationGuard(time.Now(), time.Second)
	orch.Hydrate(initial)

	p := tea.NewProgram(NewApp(orch, store, guard), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
