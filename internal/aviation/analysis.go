package aviation

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	windRe    = regexp.MustCompile(`^(\d{3}|VRB)(\d{2,3})(?:G(\d{2,3}))?KT$`)
	smRe      = regexp.MustCompile(`^(\d+)SM$`)
	metersRe  = regexp.MustCompile(`^\d{4}$`)
	cloudRe   = regexp.MustCompile(`^(FEW|SCT|BKN|OVC|VV)(\d{3})$`)
	tempRe    = regexp.MustCompile(`^(M?\d{2})/(M?\d{2})$`)
	qnhRe     = regexp.MustCompile(`^Q(\d{4})$`)
	weatherRe = regexp.MustCompile(`^(\+|-|VC)?(TS|SH|FZ)?(RA|SN|DZ|GR|GS|BR|FG|HZ|FU|SQ)+$`)
	periodRe  = regexp.MustCompile(`^\d{4}/\d{4}$`)
)

// Flight categories.
const (
	CategoryVFR  = "VFR"
	CategoryMVFR = "MVFR"
	CategoryIFR  = "IFR"
	CategoryLIFR = "LIFR"
)

// Wind is a decoded wind group.
type Wind struct {
	Direction int
	Variable  bool
	Speed     int
	Gust      int
}

// Describe renders the wind in words.
func (w Wind) Describe() string {
	if w.Speed == 0 {
		return "Calm"
	}
	dir := "Variable"
	if !w.Variable {
		dir = fmt.Sprintf("%03d° (%s)", w.Direction, compass(w.Direction))
	}
	s := fmt.Sprintf("%s at %d knots", dir, w.Speed)
	if w.Gust > 0 {
		s += fmt.Sprintf(", gusting to %d knots", w.Gust)
	}
	return s
}

func compass(direction int) string {
	points := []string{"North", "Northeast", "East", "Southeast", "South", "Southwest", "West", "Northwest"}
	idx := int(math.Round(float64(direction%360)/45)) % len(points)
	return points[idx]
}

// CloudLayer is one decoded cloud group.
type CloudLayer struct {
	Cover    string
	HeightFt int
}

var coverNames = map[string]string{
	"FEW": "Few",
	"SCT": "Scattered",
	"BKN": "Broken",
	"OVC": "Overcast",
	"VV":  "Vertical visibility",
}

// Describe renders the layer in words.
func (c CloudLayer) Describe() string {
	return fmt.Sprintf("%s at %s ft", coverNames[c.Cover], thousands(c.HeightFt))
}

// Conditions is the decoded content of a METAR or TAF group.
type Conditions struct {
	Wind          *Wind
	VisibilitySM  float64
	HasVisibility bool
	CAVOK         bool
	Weather       []string
	Clouds        []CloudLayer
	Temperature   *int
	DewPoint      *int
	QNH           int
}

// Ceiling returns the lowest broken or overcast layer in feet.
func (c Conditions) Ceiling() (int, bool) {
	ceiling, ok := 0, false
	for _, l := range c.Clouds {
		if l.Cover != "BKN" && l.Cover != "OVC" && l.Cover != "VV" {
			continue
		}
		if !ok || l.HeightFt < ceiling {
			ceiling, ok = l.HeightFt, true
		}
	}
	return ceiling, ok
}

// Category derives the flight category from ceiling and visibility.
func (c Conditions) Category() string {
	if c.CAVOK {
		return CategoryVFR
	}
	ceiling, hasCeiling := c.Ceiling()
	vis, hasVis := c.VisibilitySM, c.HasVisibility
	switch {
	case (hasCeiling && ceiling < 500) || (hasVis && vis < 1):
		return CategoryLIFR
	case (hasCeiling && ceiling < 1000) || (hasVis && vis < 3):
		return CategoryIFR
	case (hasCeiling && ceiling <= 3000) || (hasVis && vis <= 5):
		return CategoryMVFR
	default:
		return CategoryVFR
	}
}

// VisibilityText renders visibility in words.
func (c Conditions) VisibilityText() string {
	switch {
	case c.CAVOK:
		return "Unlimited (CAVOK)"
	case !c.HasVisibility:
		return "Not reported"
	case c.VisibilitySM >= 6.2:
		return "10 km or more"
	default:
		return fmt.Sprintf("%.1f statute miles", c.VisibilitySM)
	}
}

// ParseConditions decodes the recognised groups in tokens and ignores the rest.
func ParseConditions(tokens []string) Conditions {
	var c Conditions
	for _, tok := range tokens {
		switch {
		case tok == "RMK":
			return c
		case tok == "CAVOK":
			c.CAVOK = true
		case windRe.MatchString(tok):
			m := windRe.FindStringSubmatch(tok)
			w := &Wind{Variable: m[1] == "VRB"}
			if !w.Variable {
				w.Direction, _ = strconv.Atoi(m[1])
			}
			w.Speed, _ = strconv.Atoi(m[2])
			if m[3] != "" {
				w.Gust, _ = strconv.Atoi(m[3])
			}
			c.Wind = w
		case smRe.MatchString(tok):
			n, _ := strconv.Atoi(smRe.FindStringSubmatch(tok)[1])
			c.VisibilitySM, c.HasVisibility = float64(n), true
		case metersRe.MatchString(tok):
			n, _ := strconv.Atoi(tok)
			c.VisibilitySM, c.HasVisibility = float64(n)/1609.34, true
			if n == 9999 {
				c.VisibilitySM = 10000 / 1609.34
			}
		case cloudRe.MatchString(tok):
			m := cloudRe.FindStringSubmatch(tok)
			h, _ := strconv.Atoi(m[2])
			c.Clouds = append(c.Clouds, CloudLayer{Cover: m[1], HeightFt: h * 100})
		case tempRe.MatchString(tok):
			m := tempRe.FindStringSubmatch(tok)
			t, d := parseSigned(m[1]), parseSigned(m[2])
			c.Temperature, c.DewPoint = &t, &d
		case qnhRe.MatchString(tok):
			c.QNH, _ = strconv.Atoi(qnhRe.FindStringSubmatch(tok)[1])
		case weatherRe.MatchString(tok):
			c.Weather = append(c.Weather, tok)
		}
	}
	return c
}

func parseSigned(s string) int {
	neg := strings.HasPrefix(s, "M")
	n, _ := strconv.Atoi(strings.TrimPrefix(s, "M"))
	if neg {
		return -n
	}
	return n
}

// Item is one labelled line of an analysis.
type Item struct {
	Label string
	Value string
}

// Section is a titled group of analysis lines.
type Section struct {
	Title  string
	Change string
	Period string
	Items  []Item
}

// Analysis is the detail overlay content for a report.
type Analysis struct {
	Title    string
	Category string
	Sections []Section
	Notes    []string
}

// AnalyzeMETAR decodes a METAR into a readable analysis.
func AnalyzeMETAR(icao, raw string) Analysis {
	c := ParseConditions(strings.Fields(raw))
	a := Analysis{Title: "METAR Analysis for " + icao, Category: c.Category()}

	wind := Section{Title: "Wind Conditions"}
	if c.Wind != nil {
		wind.Items = append(wind.Items, Item{"Wind", c.Wind.Describe()})
		gust := "None reported"
		if c.Wind.Gust > 0 {
			gust = fmt.Sprintf("%d knots", c.Wind.Gust)
		}
		wind.Items = append(wind.Items, Item{"Gusts", gust})
	} else {
		wind.Items = append(wind.Items, Item{"Wind", "Not reported"})
	}

	vis := Section{Title: "Visibility & Weather", Items: []Item{
		{"Visibility", c.VisibilityText()},
		{"Weather", weatherText(c.Weather)},
		{"Clouds", cloudsText(c)},
	}}

	tp := Section{Title: "Temperature & Pressure"}
	if c.Temperature != nil && c.DewPoint != nil {
		spread := *c.Temperature - *c.DewPoint
		risk := "Low fog risk"
		if spread < 3 {
			risk = "High fog risk"
		}
		tp.Items = append(tp.Items,
			Item{"Temperature", fmt.Sprintf("%d°C", *c.Temperature)},
			Item{"Dew Point", fmt.Sprintf("%d°C", *c.DewPoint)},
			Item{"Spread", fmt.Sprintf("%d°C (%s)", spread, risk)},
		)
	}
	if c.QNH > 0 {
		tp.Items = append(tp.Items, Item{"Altimeter", fmt.Sprintf("%d hPa / %.2f inHg", c.QNH, float64(c.QNH)*0.02953)})
	}

	a.Sections = []Section{wind, vis, tp}
	a.Notes = operationalNotes(c)
	return a
}

// AnalyzeTAF splits a TAF into its base and change periods.
func AnalyzeTAF(icao, raw string) Analysis {
	a := Analysis{Title: "TAF Forecast Analysis for " + icao}
	var worst string
	for i, line := range strings.Split(raw, "\n") {
		tokens := strings.Fields(line)
		if len(tokens) == 0 {
			continue
		}
		sec := Section{Title: "Base Forecast"}
		if i > 0 {
			sec.Change = tokens[0]
			sec.Title = changeTitle(tokens[0])
		}
		for _, tok := range tokens {
			if periodRe.MatchString(tok) {
				sec.Period = tok
				break
			}
		}
		c := ParseConditions(tokens)
		cat := c.Category()
		worst = worseCategory(worst, cat)
		windText := "Not reported"
		if c.Wind != nil {
			windText = c.Wind.Describe()
		}
		sec.Items = []Item{
			{"Wind", windText},
			{"Visibility", c.VisibilityText()},
			{"Weather", weatherText(c.Weather)},
			{"Clouds", cloudsText(c)},
			{"Flight Category", cat},
		}
		a.Sections = append(a.Sections, sec)
	}
	a.Category = worst
	if worst != "" && worst != CategoryVFR {
		a.Notes = append(a.Notes, fmt.Sprintf("Temporary %s conditions expected during the forecast period", worst))
	}
	a.Notes = append(a.Notes, "Check the latest TAF amendment before departure")
	return a
}

func changeTitle(kind string) string {
	switch kind {
	case "TEMPO":
		return "Temporary Conditions"
	case "BECMG":
		return "Becoming"
	default:
		return kind
	}
}

var categoryRank = map[string]int{CategoryVFR: 1, CategoryMVFR: 2, CategoryIFR: 3, CategoryLIFR: 4}

func worseCategory(a, b string) string {
	if categoryRank[b] > categoryRank[a] {
		return b
	}
	return a
}

func weatherText(wx []string) string {
	if len(wx) == 0 {
		return "No significant weather"
	}
	return strings.Join(wx, " ")
}

func cloudsText(c Conditions) string {
	if c.CAVOK {
		return "Ceiling and Visibility OK"
	}
	if len(c.Clouds) == 0 {
		return "No significant cloud"
	}
	parts := make([]string, 0, len(c.Clouds))
	for _, l := range c.Clouds {
		parts = append(parts, l.Describe())
	}
	return strings.Join(parts, ", ")
}

func operationalNotes(c Conditions) []string {
	var notes []string
	switch c.Category() {
	case CategoryVFR:
		notes = append(notes, "Visual Flight Rules conditions, suitable for VFR operations")
	case CategoryMVFR:
		notes = append(notes, "Marginal VFR, expect reduced ceilings or visibility")
	default:
		notes = append(notes, "Instrument conditions, IFR clearance required")
	}
	if c.Wind != nil && (c.Wind.Speed >= 20 || c.Wind.Gust >= 25) {
		notes = append(notes, "Strong winds, check crosswind limits")
	} else {
		notes = append(notes, "Light winds, all runways usable")
	}
	return notes
}

func thousands(n int) string {
	s := strconv.Itoa(n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
	}
	for i := pre; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
