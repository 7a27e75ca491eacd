package ui

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"finitefield.org/showcase-web/internal/failure"
	custommw "finitefield.org/showcase-web/internal/httpserver/middleware"
	"finitefield.org/showcase-web/internal/prefs"
)

const (
	servicesCollection = "services"
	noSubmission       = "No submission data found."
)

// bookingFields is the submitted order, echoed back on the confirmation page.
var bookingFields = []string{"name", "email", "phone", "service", "date", "message"}

// BookingView is the booking form view model.
type BookingView struct {
	Services []string
	Values   map[string]string
	Errors   map[string]string
	CSRF     string
}

// ConfirmationView echoes the last submission as "Key: value" lines.
type ConfirmationView struct {
	Reference string
	Lines     []string
	Empty     string
}

// Booking renders the booking form with the services as choices.
func (h *Handlers) Booking(w http.ResponseWriter, r *http.Request) {
	view := h.bookingView(r, map[string]string{"service": r.URL.Query().Get("service")})
	h.page(w, r, http.StatusOK, "booking", h.meta(r, "/booking", "Book a Service"), view)
}

func (h *Handlers) bookingView(r *http.Request, values map[string]string) BookingView {
	view := BookingView{
		Values: values,
		Errors: map[string]string{},
		CSRF:   custommw.CSRFTokenFromContext(r.Context()),
	}
	if def, ok := h.deps.Catalog.Get(servicesCollection); ok {
		col, err := h.deps.Store.Get(r.Context(), def.Name, def.NewSource(h.deps.DataFS, h.deps.Client), def.DecodeOptions())
		if err == nil {
			for _, it := range col.Items {
				if title := it.String(def.TitleField); title != "" {
					view.Services = append(view.Services, title)
				}
			}
		}
	}
	return view
}

// SubmitBooking validates and stores the booking, then redirects to the confirmation.
func (h *Handlers) SubmitBooking(w http.ResponseWriter, r *http.Request) {
	values := make(map[string]string, len(bookingFields))
	for _, key := range bookingFields {
		values[key] = strings.TrimSpace(r.PostFormValue(key))
	}

	if errs := validateBooking(values); len(errs) > 0 {
		view := h.bookingView(r, values)
		view.Errors = errs
		h.page(w, r, http.StatusUnprocessableEntity, "booking", h.meta(r, "/booking", "Book a Service"), view)
		return
	}

	booking := prefs.Booking{Reference: uuid.NewString()}
	for _, key := range bookingFields {
		booking.Fields = append(booking.Fields, prefs.BookingKV{Key: key, Value: values[key]})
	}
	prefs.FromContext(r.Context()).SetLastBooking(booking)

	if custommw.IsHTMXRequest(r.Context()) {
		w.Header().Set("HX-Redirect", "/booking/confirmation")
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, "/booking/confirmation", http.StatusSeeOther)
}

func validateBooking(values map[string]string) map[string]string {
	errs := map[string]string{}
	check := func(err error) {
		var verr *failure.ValidationError
		if errors.As(err, &verr) {
			errs[verr.Field] = verr.Reason
		}
	}
	if values["name"] == "" {
		check(failure.Invalid("name", "", "Please enter your name."))
	}
	if values["email"] == "" {
		check(failure.Invalid("email", "", "Please enter your email address."))
	} else if _, err := mail.ParseAddress(values["email"]); err != nil {
		check(failure.Invalid("email", values["email"], "Please enter a valid email address."))
	}
	return errs
}

// Confirmation shows the stored booking.
func (h *Handlers) Confirmation(w http.ResponseWriter, r *http.Request) {
	view := ConfirmationView{}
	booking, ok := prefs.FromContext(r.Context()).LastBooking()
	if !ok {
		view.Empty = noSubmission
	} else {
		view.Reference = booking.Reference
		view.Lines = BookingLines(booking)
	}
	h.page(w, r, http.StatusOK, "confirmation", h.meta(r, "/booking", "Booking Received"), view)
}

// BookingLines renders each submitted field as "Key: value" with the key capitalised.
func BookingLines(b prefs.Booking) []string {
	caser := cases.Title(language.English)
	lines := make([]string, 0, len(b.Fields))
	for _, kv := range b.Fields {
		lines = append(lines, caser.String(kv.Key)+": "+kv.Value)
	}
	return lines
}
