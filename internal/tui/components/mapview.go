package components

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/paulmach/orb"

	"github.com/sveturs/mapsearch/internal/engine/geo"
	"github.com/sveturs/mapsearch/internal/model"
	"github.com/sveturs/mapsearch/internal/tui/styles"
)

// MapView renders the viewport as a Braille scatter plot: listing
// markers as dots, clusters as count badges, the buyer location as a
// crosshair and the district boundary as a connected line.
type MapView struct {
	width  int
	height int

	viewport model.Viewport
	markers  []model.Marker
	clusters []model.ClusterPoint
	buyer    model.BuyerLocation
	boundary orb.Ring

	// Derived from the viewport on every change.
	minLat, maxLat float64
	minLng, maxLng float64
}

func NewMapView(width, height int) MapView {
	m := MapView{width: width, height: height}
	m.SetViewport(model.DefaultViewport())
	return m
}

func (m *MapView) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// SetViewport recomputes the visible bounds from the map center and
// zoom, the same window the cluster search uses.
func (m *MapView) SetViewport(v model.Viewport) {
	m.viewport = v
	b := geo.BoundsFromCenterZoom(model.Point{Lat: v.Lat, Lng: v.Lng}, v.Zoom)
	m.minLat, m.maxLat = b.South, b.North
	m.minLng, m.maxLng = b.West, b.East
}

func (m *MapView) SetMarkers(markers []model.Marker) {
	m.markers = markers
}

func (m *MapView) SetClusters(clusters []model.ClusterPoint) {
	m.clusters = clusters
}

func (m *MapView) SetBuyer(b model.BuyerLocation) {
	m.buyer = b
}

// SetBoundary installs the district outline, or clears it with nil.
func (m *MapView) SetBoundary(poly orb.Polygon) {
	if len(poly) == 0 {
		m.boundary = nil
		return
	}
	m.boundary = poly[0]
}

// Braille character encoding:
// Each braille char is a 2x4 dot grid.
// Dot positions:  0 3
//
//	1 4
//	2 5
//	6 7
//
// Unicode: 0x2800 + sum of raised dot bits
var brailleDots = [8]rune{0x01, 0x02, 0x04, 0x08, 0x10, 0x20, 0x40, 0x80}

func (m MapView) View() string {
	if m.width <= 0 || m.height <= 0 {
		return ""
	}

	// Each braille char represents 2 columns x 4 rows of dots
	cols := m.width
	rows := m.height
	dotW := cols * 2
	dotH := rows * 4

	latRange := m.maxLat - m.minLat
	lngRange := m.maxLng - m.minLng
	if latRange <= 0 || lngRange <= 0 {
		return strings.Repeat(strings.Repeat(" ", cols)+"\n", rows)
	}

	toDot := func(lat, lng float64) (int, int) {
		x := int((lng - m.minLng) / lngRange * float64(dotW-1))
		y := int((m.maxLat - lat) / latRange * float64(dotH-1))
		return x, y
	}
	toCell := func(lat, lng float64) (int, int) {
		x, y := toDot(lat, lng)
		return x / 2, y / 4
	}

	borderGrid := make([][]bool, dotH)
	pointGrid := make([][]bool, dotH)
	for i := range borderGrid {
		borderGrid[i] = make([]bool, dotW)
		pointGrid[i] = make([]bool, dotW)
	}

	// District outline as connected line segments (Bresenham).
	for i := 0; i < len(m.boundary); i++ {
		x0, y0 := toDot(m.boundary[i][1], m.boundary[i][0])
		next := (i + 1) % len(m.boundary)
		x1, y1 := toDot(m.boundary[next][1], m.boundary[next][0])

		// Skip segments that jump across the whole view.
		if abs(x1-x0) > dotW/2 || abs(y1-y0) > dotH/2 {
			continue
		}
		drawLine(borderGrid, x0, y0, x1, y1, dotW, dotH)
	}

	for _, mk := range m.markers {
		x, y := toDot(mk.Position.Lat, mk.Position.Lng)
		if x >= 0 && x < dotW && y >= 0 && y < dotH {
			pointGrid[y][x] = true
		}
	}

	// Character-cell overlays drawn on top of the braille field.
	type overlay struct {
		text  string
		style lipgloss.Style
	}
	overlays := make(map[[2]int]overlay)
	for _, c := range m.clusters {
		col, row := toCell(c.Lat, c.Lng)
		if col < 0 || col >= cols || row < 0 || row >= rows {
			continue
		}
		overlays[[2]int{row, col}] = overlay{
			text:  clusterBadge(c.Count),
			style: styles.ClusterBadge,
		}
	}
	if m.buyer.Set {
		col, row := toCell(m.buyer.Lat, m.buyer.Lng)
		if col >= 0 && col < cols && row >= 0 && row < rows {
			overlays[[2]int{row, col}] = overlay{text: "◉", style: styles.BuyerMark}
		}
	}

	borderStyle := lipgloss.NewStyle().Foreground(styles.Secondary)
	pointStyle := lipgloss.NewStyle().Foreground(styles.Success)

	var sb strings.Builder
	for row := 0; row < rows; row++ {
		col := 0
		for col < cols {
			if ov, ok := overlays[[2]int{row, col}]; ok {
				sb.WriteString(ov.style.Render(ov.text))
				col += len([]rune(ov.text))
				continue
			}

			var borderVal rune = 0x2800
			var pointVal rune = 0x2800

			dotPositions := [8][2]int{
				{0, 0}, {1, 0}, {2, 0}, {0, 1},
				{1, 1}, {2, 1}, {3, 0}, {3, 1},
			}

			for dot := 0; dot < 8; dot++ {
				dy := row*4 + dotPositions[dot][0]
				dx := col*2 + dotPositions[dot][1]
				if dy < dotH && dx < dotW {
					if borderGrid[dy][dx] {
						borderVal |= brailleDots[dot]
					}
					if pointGrid[dy][dx] {
						pointVal |= brailleDots[dot]
					}
				}
			}

			if pointVal != 0x2800 {
				sb.WriteString(pointStyle.Render(string(pointVal)))
			} else if borderVal != 0x2800 {
				sb.WriteString(borderStyle.Render(string(borderVal)))
			} else {
				sb.WriteRune(' ')
			}
			col++
		}
		if row < rows-1 {
			sb.WriteRune('\n')
		}
	}

	return sb.String()
}

// clusterBadge compresses a cluster count into a short label so large
// buckets stay one overlay wide.
func clusterBadge(count int) string {
	if count >= 1000 {
		return "(" + strconv.Itoa(count/1000) + "k)"
	}
	return "(" + strconv.Itoa(count) + ")"
}

// drawLine draws a line between two points using Bresenham's algorithm.
func drawLine(grid [][]bool, x0, y0, x1, y1, maxW, maxH int) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx := 1
	if x0 >= x1 {
		sx = -1
	}
	sy := 1
	if y0 >= y1 {
		sy = -1
	}
	err := dx + dy

	for {
		if x0 >= 0 && x0 < maxW && y0 >= 0 && y0 < maxH {
			grid[y0][x0] = true
		}
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
