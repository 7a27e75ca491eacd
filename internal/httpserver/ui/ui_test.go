package ui

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"finitefield.org/showcase-web/internal/catalog"
	"finitefield.org/showcase-web/internal/listing"
	"finitefield.org/showcase-web/internal/prefs"
)

func TestCollectionViewURLs(t *testing.T) {
	t.Parallel()

	v := CollectionView{
		Name:  "services",
		Query: catalog.Query{Term: "pilot training", Category: "all", Flag: true},
		View:  listing.View{Mode: listing.ModeList},
		Overlay: listing.Overlay{
			Open:   true,
			Detail: listing.Detail{ItemID: "ppl"},
			Opener: "open-ppl",
		},
	}

	require.Equal(t, "/browse/services?favorites=1&q=pilot+training&view=list", v.PageURL())
	require.Equal(t, "/browse/services?favorites=1&q=pilot+training", v.ToggleURL())
	require.Equal(t, "/browse/services/items?favorites=1&q=pilot+training", v.ToggleItemsURL())
	require.Equal(t, "/browse/services/items/a%20b?favorites=1&opener=open-a-b-4m7u2a&q=pilot+training&view=list", v.DetailURL("a b"))
	require.Equal(t, "/browse/services/close?item=ppl&opener=open-ppl&reason=outside", v.CloseURL(listing.CloseOutside))
	require.Equal(t, listing.ModeGrid, v.Toggle())
}

func TestQueryFrom(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest("GET", "/browse/aircraft?q=+cessna+&category=Cargo&favorites=on&view=LIST", nil)
	q, mode := queryFrom(r)

	require.Equal(t, catalog.Query{Term: "cessna", Category: "Cargo", Flag: true}, q)
	require.Equal(t, listing.ModeList, mode)
}

func TestParseCloseReason(t *testing.T) {
	t.Parallel()

	require.Equal(t, listing.CloseOutside, parseCloseReason("outside"))
	require.Equal(t, listing.CloseCancel, parseCloseReason("cancel"))
	require.Equal(t, listing.CloseControl, parseCloseReason("whatever"))
}

func TestBookingLines(t *testing.T) {
	t.Parallel()

	lines := BookingLines(prefs.Booking{Fields: []prefs.BookingKV{
		{Key: "name", Value: "Jane"},
		{Key: "email", Value: "jane@example.com"},
	}})
	require.Equal(t, []string{"Name: Jane", "Email: jane@example.com"}, lines)
}

func TestValidateBooking(t *testing.T) {
	t.Parallel()

	errs := validateBooking(map[string]string{"email": "nope"})
	require.Equal(t, "Please enter your name.", errs["name"])
	require.Equal(t, "Please enter a valid email address.", errs["email"])
	require.Empty(t, validateBooking(map[string]string{"name": "A", "email": "a@b.co"}))
}

func TestLocalReferer(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest("POST", "http://example.com/theme", nil)
	r.Header.Set("Referer", "http://example.com/browse/members?view=list")
	require.Equal(t, "/browse/members?view=list", localReferer(r))

	r.Header.Set("Referer", "https://evil.test/phish")
	require.Equal(t, "/", localReferer(r))
}
