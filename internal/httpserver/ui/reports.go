package ui

import (
	"net/http"

	"finitefield.org/showcase-web/internal/aviation"
	"finitefield.org/showcase-web/internal/failure"
	custommw "finitefield.org/showcase-web/internal/httpserver/middleware"
	"finitefield.org/showcase-web/internal/prefs"
)

// ReportOption is one choice of the report type select.
type ReportOption struct {
	Value    aviation.ReportType
	Label    string
	Selected bool
}

// ReportsView is the weather report page view model.
type ReportsView struct {
	ICAO     string
	Types    []ReportOption
	Error    string
	Report   *aviation.Report
	Recent   []string
	Analysis *aviation.Analysis
	Stations []aviation.Station
	CSRF     string
}

// AnalysisURL links to the analysis overlay for one part of the current report.
func (v ReportsView) AnalysisURL(kind aviation.ReportType) string {
	if v.Report == nil {
		return ""
	}
	return "/reports/analysis?icao=" + v.Report.ICAO + "&kind=" + string(kind)
}

func reportOptions(selected aviation.ReportType) []ReportOption {
	opts := []ReportOption{
		{Value: aviation.ReportMETAR, Label: "METAR"},
		{Value: aviation.ReportTAF, Label: "TAF"},
		{Value: aviation.ReportBoth, Label: "METAR & TAF"},
	}
	for i := range opts {
		opts[i].Selected = opts[i].Value == selected
	}
	return opts
}

func (h *Handlers) reportsView(r *http.Request) ReportsView {
	store := prefs.FromContext(r.Context())
	view := ReportsView{
		Types:    reportOptions(aviation.ReportMETAR),
		Recent:   store.RecentSearches(),
		Stations: h.deps.Stations,
		CSRF:     custommw.CSRFTokenFromContext(r.Context()),
	}
	if last, ok := store.LastSearch(); ok {
		view.ICAO = last.ICAO
		view.Types = reportOptions(aviation.ParseReportType(last.Type))
	}
	return view
}

// Reports renders the search form prefilled with the last search.
func (h *Handlers) Reports(w http.ResponseWriter, r *http.Request) {
	h.page(w, r, http.StatusOK, "reports", h.meta(r, "/reports", "Weather Reports"), h.reportsView(r))
}

// SearchReports validates the code, generates the report and records the search.
func (h *Handlers) SearchReports(w http.ResponseWriter, r *http.Request) {
	view := h.reportsView(r)
	kind := aviation.ParseReportType(r.PostFormValue("type"))
	view.Types = reportOptions(kind)
	view.ICAO = aviation.NormalizeICAO(r.PostFormValue("icao"))

	status := http.StatusOK
	icao, err := aviation.ValidateICAO(view.ICAO)
	if err != nil {
		view.Error = failure.Message(err, aviation.InvalidICAOMessage)
		status = http.StatusUnprocessableEntity
	} else {
		report := aviation.GenerateReport(icao, kind, h.deps.Now())
		view.Report = &report
		view.Recent = prefs.FromContext(r.Context()).RecordSearch(prefs.WeatherSearch{ICAO: icao, Type: string(kind)})
	}

	if custommw.IsHTMXRequest(r.Context()) {
		h.fragment(w, r, status, "report-results", view)
		return
	}
	h.page(w, r, status, "reports", h.meta(r, "/reports", "Weather Reports"), view)
}

// ReportAnalysis renders the decoded analysis overlay for a METAR or TAF.
func (h *Handlers) ReportAnalysis(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	icao, err := aviation.ValidateICAO(values.Get("icao"))
	if err != nil {
		h.errorPage(w, r, http.StatusBadRequest, failure.Message(err, aviation.InvalidICAOMessage))
		return
	}
	kind := aviation.ParseReportType(values.Get("kind"))
	if kind == aviation.ReportBoth {
		kind = aviation.ReportMETAR
	}
	report := aviation.GenerateReport(icao, kind, h.deps.Now())

	var analysis aviation.Analysis
	if kind == aviation.ReportTAF {
		analysis = aviation.AnalyzeTAF(icao, report.TAF)
	} else {
		analysis = aviation.AnalyzeMETAR(icao, report.METAR)
	}

	view := h.reportsView(r)
	view.ICAO = icao
	view.Report = &report
	view.Analysis = &analysis
	if custommw.IsHTMXRequest(r.Context()) {
		h.fragment(w, r, http.StatusOK, "analysis", view)
		return
	}
	h.page(w, r, http.StatusOK, "reports", h.meta(r, "/reports", "Weather Reports"), view)
}
