package views

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sveturs/mapsearch/internal/engine/search"
	"github.com/sveturs/mapsearch/internal/engine/state"
	"github.com/sveturs/mapsearch/internal/engine/stats"
	"github.com/sveturs/mapsearch/internal/engine/storage"
	"github.com/sveturs/mapsearch/internal/model"
	"github.com/sveturs/mapsearch/internal/tui/components"
	"github.com/sveturs/mapsearch/internal/tui/styles"
)

// ResultMsg carries a fresh search result into the view.
type ResultMsg model.Result

// NavigateToSnapshots signals navigation to the stored snapshots view.
type NavigateToSnapshots struct{}

type statusMsg string

type snapshotSavedMsg struct {
	id  int64
	err error
}

type inputTarget int

const (
	targetNone inputTarget = iota
	targetQuery
	targetAddress
	targetDistrict
)

// BrowseModel is the interactive map screen. Key presses feed the
// orchestrator's input streams; results stream back as ResultMsg.
type BrowseModel struct {
	orch  *search.Orchestrator
	store *storage.Store
	guard *state.HydrationGuard

	mapView components.MapView
	input   textinput.Model
	target  inputTarget

	result   model.Result
	summary  stats.PriceSummary
	shareURL string
	walking  bool
	status   string

	width  int
	height int
}

func NewBrowseModel(orch *search.Orchestrator, store *storage.Store, guard *state.HydrationGuard) BrowseModel {
	input := textinput.New()
	input.CharLimit = 100
	input.Width = 50

	return BrowseModel{
		orch:    orch,
		store:   store,
		guard:   guard,
		mapView: components.NewMapView(72, 18),
		input:   input,
	}
}

func (m BrowseModel) Init() tea.Cmd {
	return nil
}

func (m BrowseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		w := msg.Width - 6
		h := msg.Height - 8
		if w < 20 {
			w = 20
		}
		if h < 6 {
			h = 6
		}
		m.mapView.SetSize(w, h)
		return m, nil

	case ResultMsg:
		m.result = model.Result(msg)
		m.summary = stats.Summarize(m.result.Markers)
		m.mapView.SetMarkers(m.result.Markers)
		m.mapView.SetClusters(m.result.Clusters)
		m.mapView.SetBoundary(m.orch.District())
		if m.guard.WriteAllowed(time.Now()) {
			m.shareURL = state.Encode(m.orch.Snapshot())
		}
		return m, nil

	case statusMsg:
		m.status = string(msg)
		return m, nil

	case snapshotSavedMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("save failed: %v", msg.err)
		} else {
			m.status = fmt.Sprintf("snapshot #%d saved", msg.id)
		}
		return m, nil

	case tea.KeyMsg:
		if m.target != targetNone {
			return m.updateTyping(msg)
		}
		return m.updateNormal(msg)
	}

	return m, nil
}

func (m BrowseModel) updateTyping(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		if m.target == targetDistrict {
			m.orch.SetDistrictOnlyActive(false)
		}
		m.target = targetNone
		m.input.Blur()
		return m, nil

	case "enter":
		value := strings.TrimSpace(m.input.Value())
		target := m.target
		m.target = targetNone
		m.input.Blur()

		switch target {
		case targetQuery:
			m.orch.SetQuery(value)
			return m, nil
		case targetAddress:
			if value == "" {
				return m, nil
			}
			return m, m.searchAddressCmd(value)
		case targetDistrict:
			if value == "" {
				m.orch.SetDistrictOnlyActive(false)
				return m, nil
			}
			return m, m.focusDistrictCmd(value)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)

	// The query stream is live while typing; the debounce window
	// decides when a search actually fires.
	if m.target == targetQuery {
		m.orch.SetQuery(strings.TrimSpace(m.input.Value()))
	}
	return m, cmd
}

func (m BrowseModel) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	v := m.orch.Snapshot().Viewport

	switch msg.String() {
	case "up", "k":
		return m.moveViewport(v, panStep(v.Zoom), 0)
	case "down", "j":
		return m.moveViewport(v, -panStep(v.Zoom), 0)
	case "left", "h":
		return m.moveViewport(v, 0, -panStep(v.Zoom))
	case "right", "l":
		return m.moveViewport(v, 0, panStep(v.Zoom))

	case "+", "=":
		v.Zoom++
		return m.setViewport(v)
	case "-", "_":
		v.Zoom--
		return m.setViewport(v)

	case "/":
		return m.startTyping(targetQuery, "search listings...")
	case "a":
		return m.startTyping(targetAddress, "address or place...")
	case "d":
		m.orch.SetDistrictOnlyActive(true)
		return m.startTyping(targetDistrict, "district name...")

	case "b":
		m.orch.SetBuyerLocation(model.BuyerLocation{
			Point: model.Point{Lat: v.Lat, Lng: v.Lng}, Set: true,
		})
		m.mapView.SetBuyer(model.BuyerLocation{
			Point: model.Point{Lat: v.Lat, Lng: v.Lng}, Set: true,
		})
		return m, nil
	case "c":
		m.orch.SetBuyerLocation(model.BuyerLocation{})
		m.orch.SetDistrictBoundary(nil)
		m.mapView.SetBuyer(model.BuyerLocation{})
		m.mapView.SetBoundary(nil)
		return m, nil

	case "w":
		m.walking = !m.walking
		if m.walking {
			m.orch.SetWalking(model.WalkIsochrone, 15)
		} else {
			m.orch.SetWalking(model.WalkOff, 0)
		}
		return m, nil

	case "g":
		return m, m.locateCmd()
	case "f":
		m.orch.FitAllMarkers()
		m.mapView.SetViewport(m.orch.Snapshot().Viewport)
		return m, nil

	case "s":
		return m, m.saveSnapshotCmd()
	case "r":
		return m, func() tea.Msg { return NavigateToSnapshots{} }

	case "q":
		return m, tea.Quit
	}

	return m, nil
}

func (m BrowseModel) startTyping(target inputTarget, placeholder string) (tea.Model, tea.Cmd) {
	m.target = target
	m.input.Placeholder = placeholder
	m.input.SetValue("")
	if target == targetQuery {
		m.input.SetValue(m.orch.Snapshot().Query)
	}
	return m, m.input.Focus()
}

// panStep moves a fifth of the visible half-span per key press.
func panStep(zoom float64) float64 {
	return math.Pow(2, 14-zoom) * 0.01 * 0.4
}

func (m BrowseModel) moveViewport(v model.Viewport, dLat, dLng float64) (tea.Model, tea.Cmd) {
	v.Lat += dLat
	v.Lng += dLng
	return m.setViewport(v)
}

func (m BrowseModel) setViewport(v model.Viewport) (tea.Model, tea.Cmd) {
	v = v.ClampZoom()
	m.orch.SetViewport(v)
	m.mapView.SetViewport(v)
	return m, nil
}

func (m BrowseModel) searchAddressCmd(query string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := m.orch.SearchAddress(ctx, query); err != nil {
			return statusMsg(fmt.Sprintf("address search: %v", err))
		}
		return statusMsg("")
	}
}

func (m BrowseModel) focusDistrictCmd(name string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		err := m.orch.FocusDistrict(ctx, name)
		m.orch.SetDistrictOnlyActive(false)
		if err != nil {
			return statusMsg(fmt.Sprintf("district: %v", err))
		}
		return statusMsg("")
	}
}

func (m BrowseModel) locateCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := m.orch.UseMyLocation(ctx); err != nil {
			return statusMsg(fmt.Sprintf("locate: %v", err))
		}
		return statusMsg("")
	}
}

func (m BrowseModel) saveSnapshotCmd() tea.Cmd {
	snap := m.orch.Snapshot()
	res := m.result
	return func() tea.Msg {
		id, err := m.store.SaveSnapshot(state.Encode(snap), snap.Query, res)
		return snapshotSavedMsg{id: id, err: err}
	}
}

func (m BrowseModel) View() string {
	var b strings.Builder

	b.WriteString(styles.Title.Render("mapsearch"))
	b.WriteString("\n")
	b.WriteString(styles.Border.Render(m.mapView.View()))
	b.WriteString("\n")

	if m.target != targetNone {
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}

	v := m.orch.Snapshot().Viewport
	line := fmt.Sprintf("%s  %.4f,%.4f z%.1f  %d results",
		m.result.Mode, v.Lat, v.Lng, v.Zoom, m.result.Total)
	if m.summary.Count > 0 && m.summary.Max > 0 {
		line += fmt.Sprintf("  price %s %.0f-%.0f med %.0f",
			"RSD", m.summary.Min, m.summary.Max, m.summary.Median)
	}
	if m.walking {
		line += "  [walking 15min]"
	}
	b.WriteString(styles.Subtitle.Render(line))
	b.WriteString("\n")

	if m.result.Notice != model.NoticeNone {
		b.WriteString(styles.NoticeText.Render(string(m.result.Notice)))
		b.WriteString("\n")
	}
	if m.status != "" {
		b.WriteString(styles.ErrorText.Render(m.status))
		b.WriteString("\n")
	}
	if m.shareURL != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(styles.Muted).Render("?" + m.shareURL))
		b.WriteString("\n")
	}

	b.WriteString(styles.StatusBar.Render(
		"arrows pan  +/- zoom  / query  a address  d district  b buyer  c clear  w walk  g locate  f fit  s save  r snapshots  q quit"))

	return b.String()
}
