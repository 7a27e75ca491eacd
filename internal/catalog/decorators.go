package catalog

import (
	"encoding/json"
	"fmt"
	"html/template"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"finitefield.org/showcase-web/internal/listing"
)

var decorators = map[string]func(r *listing.Renderer){
	"membership": func(r *listing.Renderer) {
		d := membershipDecorator{san: r.Sanitizer}
		r.Cards, r.Details = d, d
	},
	"aircraft": func(r *listing.Renderer) {
		r.Details = aircraftDecorator{san: r.Sanitizer}
	},
	"flights": func(r *listing.Renderer) {
		d := flightDecorator{san: r.Sanitizer}
		r.Cards, r.Details = d, d
	},
	"services": func(r *listing.Renderer) {
		d := serviceDecorator{san: r.Sanitizer}
		r.Cards, r.Details = d, d
	},
	"courses": func(r *listing.Renderer) {
		d := courseDecorator{san: r.Sanitizer}
		r.Cards, r.Summary = d, d
	},
}

// Membership levels.
const (
	LevelMember = 1
	LevelSilver = 2
	LevelGold   = 3
)

var levelNames = map[int]string{
	LevelMember: "Member",
	LevelSilver: "Silver",
	LevelGold:   "Gold",
}

// MembershipLevel normalises a membership value given either as 1..3 or as a level name.
// Unknown values return 0.
func MembershipLevel(v any) int {
	var s string
	switch t := v.(type) {
	case json.Number:
		s = t.String()
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		s = strconv.Itoa(t)
	case string:
		s = t
	default:
		return 0
	}
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		if _, ok := levelNames[n]; ok {
			return n
		}
		return 0
	}
	for n, name := range levelNames {
		if strings.ToLower(name) == s {
			return n
		}
	}
	return 0
}

// MembershipBadge returns the badge for level. Grid cards use the long label.
func MembershipBadge(level int, mode listing.ViewMode) *listing.Badge {
	name, ok := levelNames[level]
	if !ok {
		return nil
	}
	label := name
	if mode == listing.ModeGrid && level != LevelMember {
		label = name + " Member"
	}
	return &listing.Badge{Label: label, Class: fmt.Sprintf("membership-%d", level)}
}

type membershipDecorator struct{ san *listing.Sanitizer }

func (d membershipDecorator) DecorateCard(it listing.Item, mode listing.ViewMode, c *listing.Card) {
	c.Classes = append(c.Classes, "member-card", string(mode)+"-view")
	c.Badge = MembershipBadge(MembershipLevel(it.Value("membership")), mode)
}

func (d membershipDecorator) DecorateDetail(it listing.Item, detail *listing.Detail) {
	if name, ok := levelNames[MembershipLevel(it.Value("membership"))]; ok {
		detail.Fields = append(detail.Fields, listing.Field{Name: "membership", Label: "Membership", Value: d.san.Text(name)})
	}
}

var aircraftUsage = map[string]string{
	"Commercial":       "commercial passenger",
	"Regional":         "regional",
	"General Aviation": "general aviation and training",
	"Business Jet":     "corporate and business",
	"Helicopter":       "rotary-wing",
	"Cargo":            "cargo and freight",
}

// AircraftUsage maps an aircraft category to the kind of operations it suits.
func AircraftUsage(category string) string {
	if usage, ok := aircraftUsage[strings.TrimSpace(category)]; ok {
		return usage
	}
	return "various"
}

type aircraftDecorator struct{ san *listing.Sanitizer }

func (d aircraftDecorator) DecorateDetail(it listing.Item, detail *listing.Detail) {
	note := fmt.Sprintf("This %s by %s is ideal for %s operations.",
		it.String("model"), it.String("manufacturer"), AircraftUsage(it.String("category")))
	detail.Notes = append(detail.Notes, d.san.Text(note))
}

type flightDecorator struct{ san *listing.Sanitizer }

func flightRoute(it listing.Item) string {
	return it.String("origin") + " → " + it.String("destination")
}

func (d flightDecorator) DecorateCard(it listing.Item, _ listing.ViewMode, c *listing.Card) {
	c.Title = d.san.Text(flightRoute(it))
	c.ImageAlt = it.String("origin") + " to " + it.String("destination")
}

func (d flightDecorator) DecorateDetail(it listing.Item, detail *listing.Detail) {
	detail.Title = d.san.Text(flightRoute(it))
	detail.ImageAlt = it.String("origin") + " to " + it.String("destination")
}

type serviceDecorator struct{ san *listing.Sanitizer }

func (d serviceDecorator) DecorateCard(it listing.Item, _ listing.ViewMode, c *listing.Card) {
	if it.Bool("favorite") {
		c.Classes = append(c.Classes, "favorite")
	}
}

func (d serviceDecorator) DecorateDetail(it listing.Item, detail *listing.Detail) {
	fav := "No"
	if it.Bool("favorite") {
		fav = "Yes"
	}
	detail.Fields = append(detail.Fields, listing.Field{Name: "favorite", Label: "Favorite", Value: d.san.Text(fav)})
}

type courseDecorator struct{ san *listing.Sanitizer }

func (d courseDecorator) DecorateCard(it listing.Item, _ listing.ViewMode, c *listing.Card) {
	c.Title = d.san.Text(it.String("code") + " " + it.String("name"))
	c.Initial = ""
	status := "In progress"
	if it.Bool("completed") {
		status = "Completed"
		c.Classes = append(c.Classes, "completed")
	}
	c.Fields = append(c.Fields, listing.Field{Name: "status", Label: "Status", Value: d.san.Text(status)})
}

// Summarize sums credits over the visible courses.
func (d courseDecorator) Summarize(items []listing.Item) []listing.Field {
	return []listing.Field{{Name: "credits", Label: "Total credits", Value: template.HTML(strconv.FormatFloat(TotalCredits(items), 'f', -1, 64))}}
}

// TotalCredits adds up the credits field; non-numeric values count as zero.
func TotalCredits(items []listing.Item) float64 {
	var total float64
	for _, it := range items {
		if v, ok := it.Float("credits"); ok && !math.IsNaN(v) {
			total += v
		}
	}
	return total
}

// Spotlight messages.
const (
	SpotlightEmpty = "No Gold or Silver member spotlights are currently available."
	SpotlightError = "Unable to load spotlight members due to a data error."
)

// Spotlights picks up to n random Silver or Gold members.
func Spotlights(items []listing.Item, n int, rng *rand.Rand) []listing.Item {
	eligible := make([]listing.Item, 0, len(items))
	for _, it := range items {
		if MembershipLevel(it.Value("membership")) >= LevelSilver {
			eligible = append(eligible, it)
		}
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed))
	}
	rng.Shuffle(len(eligible), func(i, j int) { eligible[i], eligible[j] = eligible[j], eligible[i] })
	if len(eligible) > n {
		eligible = eligible[:n]
	}
	return eligible
}

// LastVisitMessage greets a visitor based on the previous visit time. A zero last means first visit.
func LastVisitMessage(last, now time.Time) string {
	if last.IsZero() {
		return "Welcome! Let us know if you have any questions."
	}
	days := int(math.Floor(now.Sub(last).Hours() / 24))
	switch {
	case days < 1:
		return "Back so soon! Awesome!"
	case days == 1:
		return "You last visited 1 day ago."
	default:
		return fmt.Sprintf("You last visited %d days ago.", days)
	}
}
