package marker

import (
	"strings"

	"github.com/sveturs/mapsearch/internal/model"
)

// Currency is the display currency for all listings.
const Currency = "RSD"

// iconRule maps category keywords to a map pin icon. Keywords cover
// the Russian, English and Serbian category names the backend serves.
type iconRule struct {
	keywords []string
	icon     string
}

// Rules are ordered; the first matching rule wins. Matching is
// case-insensitive substring search on the category name.
var iconRules = []iconRule{
	{[]string{"автомобил", "car", "vozilo"}, "🚗"},
	{[]string{"квартир", "apartment", "stan"}, "🏠"},
	{[]string{"дом", "house", "kuća"}, "🏘️"},
	{[]string{"комнат", "room", "soba"}, "🛏️"},
	{[]string{"телефон", "phone", "telefon"}, "📱"},
	{[]string{"компьютер", "computer", "računar"}, "💻"},
	{[]string{"телевизор", "tv", "televizor"}, "📺"},
	{[]string{"работ", "job", "posao"}, "💼"},
	{[]string{"услуг", "service", "usluga"}, "🔧"},
	{[]string{"одежд", "cloth", "odeća"}, "👕"},
	{[]string{"спорт", "sport"}, "⚽"},
}

const (
	defaultIcon    = "📦"
	noCategoryIcon = "🏠"
)

// IconFor resolves the map pin icon for a category name.
func IconFor(category string) string {
	if category == "" {
		return noCategoryIcon
	}
	lc := strings.ToLower(category)
	for _, r := range iconRules {
		for _, kw := range r.keywords {
			if strings.Contains(lc, kw) {
				return r.icon
			}
		}
	}
	return defaultIcon
}

// Project turns a listing into a render-ready marker.
func Project(l model.Listing) model.Marker {
	m := model.Marker{
		ID:         l.ID,
		Position:   l.Location,
		Title:      l.Title,
		Price:      l.Price,
		Currency:   Currency,
		Category:   l.Category,
		Icon:       IconFor(l.Category),
		Address:    l.Address,
		ViewsCount: l.ViewsCount,
		Rating:     l.Rating,
		CreatedAt:  l.CreatedAt,
	}
	if len(l.Images) > 0 {
		m.Image = l.Images[0]
	}
	return m
}

// ProjectAll maps listings to markers, preserving order.
func ProjectAll(ls []model.Listing) []model.Marker {
	ms := make([]model.Marker, len(ls))
	for i, l := range ls {
		ms[i] = Project(l)
	}
	return ms
}
