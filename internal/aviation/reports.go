package aviation

import (
	"fmt"
	"strings"
	"time"
)

// ReportType selects which reports a search returns.
type ReportType string

const (
	ReportMETAR ReportType = "metar"
	ReportTAF   ReportType = "taf"
	ReportBoth  ReportType = "both"
)

// ParseReportType maps form input onto a ReportType, defaulting to METAR.
func ParseReportType(s string) ReportType {
	switch ReportType(strings.ToLower(strings.TrimSpace(s))) {
	case ReportTAF:
		return ReportTAF
	case ReportBoth:
		return ReportBoth
	default:
		return ReportMETAR
	}
}

// IncludesMETAR reports whether t asks for a METAR.
func (t ReportType) IncludesMETAR() bool { return t == ReportMETAR || t == ReportBoth }

// IncludesTAF reports whether t asks for a TAF.
func (t ReportType) IncludesTAF() bool { return t == ReportTAF || t == ReportBoth }

// Report is a generated weather report pair for one station.
type Report struct {
	ICAO     string
	Station  string
	Type     ReportType
	IssuedAt time.Time
	METAR    string
	TAF      string
}

type regionWeather struct {
	wind, visibility, clouds, temp, pressure, remarks string
}

func regionFor(icao string) regionWeather {
	switch {
	case strings.HasPrefix(icao, "K"), strings.HasPrefix(icao, "C"), strings.HasPrefix(icao, "P"):
		return regionWeather{"10010KT", "10SM", "FEW030 SCT100", "15/12", "Q1012", "RMK AO2 SLP134 T01500120"}
	case strings.HasPrefix(icao, "E"), strings.HasPrefix(icao, "L"):
		return regionWeather{"23008KT", "9999", "BKN020 OVC040", "12/10", "Q1008", "RMK BLU"}
	default:
		return regionWeather{"05005KT", "8000", "SCT025", "25/20", "Q1015", "RMK RED"}
	}
}

// GenerateReport builds sample reports for icao. Conditions depend on the region
// given by the first letter of the code; times are UTC based on now.
func GenerateReport(icao string, kind ReportType, now time.Time) Report {
	now = now.UTC()
	r := Report{ICAO: icao, Station: StationName(icao), Type: kind, IssuedAt: now}
	if kind.IncludesMETAR() {
		r.METAR = sampleMETAR(icao, now)
	}
	if kind.IncludesTAF() {
		r.TAF = sampleTAF(icao, now)
	}
	return r
}

func sampleMETAR(icao string, now time.Time) string {
	w := regionFor(icao)
	return fmt.Sprintf("%s %sZ %s %s %s %s %s %s",
		icao, now.Format("021504"), w.wind, w.visibility, w.clouds, w.temp, w.pressure, w.remarks)
}

func tafGroup(from, to time.Time) string {
	return from.Format("0215") + "/" + to.Format("0215")
}

func sampleTAF(icao string, now time.Time) string {
	w := regionFor(icao)
	base := now.Truncate(time.Hour)
	lines := []string{
		fmt.Sprintf("%s %sZ %s %s %s %s", icao, base.Format("021504"), tafGroup(base, base.Add(24*time.Hour)), w.wind, w.visibility, w.clouds),
		fmt.Sprintf("TEMPO %s 12015G25KT 4000 -RA BKN015", tafGroup(base, base.Add(6*time.Hour))),
		fmt.Sprintf("BECMG %s 08010KT 9999 SCT030", tafGroup(base.Add(6*time.Hour), base.Add(12*time.Hour))),
		fmt.Sprintf("BECMG %s 00000KT CAVOK", tafGroup(base.Add(18*time.Hour), base.Add(24*time.Hour))),
	}
	return strings.Join(lines, "\n")
}
