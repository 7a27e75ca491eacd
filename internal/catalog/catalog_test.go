package catalog

import (
	"encoding/json"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"finitefield.org/showcase-web/internal/listing"
)

func mustDefault(t *testing.T) *Catalog {
	t.Helper()
	c, err := Default()
	require.NoError(t, err)
	return c
}

func TestDefaultCatalogDefinesAllCollections(t *testing.T) {
	t.Parallel()

	c := mustDefault(t)
	require.Equal(t, []string{"members", "discover", "aircraft", "flights", "services", "courses"}, c.Names())

	members, ok := c.Get("members")
	require.True(t, ok)
	require.Equal(t, "members", members.Wrapper)
	require.Equal(t, "Error loading member directory. Please try again later.", members.ErrorMessage)
	require.False(t, members.Remote())

	_, ok = c.Get("unknown")
	require.False(t, ok)
}

func TestParseRejectsInvalidCatalogs(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"empty":             "collections: []",
		"bad name":          "collections:\n  - {name: Bad Name, source: a.json}",
		"duplicate":         "collections:\n  - {name: a, source: a.json}\n  - {name: a, source: b.json}",
		"missing source":    "collections:\n  - {name: a}",
		"unknown decorator": "collections:\n  - {name: a, source: a.json, decorator: sparkle}",
		"not yaml":          "collections: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse([]byte(doc))
			require.Error(t, err)
		})
	}
}

func aircraftItems() []listing.Item {
	return []listing.Item{
		{ID: "A320", Fields: map[string]any{"model": "A320", "manufacturer": "Airbus", "category": "Commercial"}},
		{ID: "Cessna 172", Fields: map[string]any{"model": "Cessna 172", "manufacturer": "Cessna", "category": "General Aviation"}},
		{ID: "ATR 72", Fields: map[string]any{"model": "ATR 72", "manufacturer": "ATR", "category": "Regional"}},
	}
}

func TestAircraftPredicateCombinesCategoryAndSearch(t *testing.T) {
	t.Parallel()

	def, ok := mustDefault(t).Get("aircraft")
	require.True(t, ok)

	items := aircraftItems()
	require.Equal(t, []string{"A320"}, listing.IDs(listing.Filter(items, def.Predicate(Query{Term: "airbus"}))))
	require.Equal(t, []string{"Cessna 172"}, listing.IDs(listing.Filter(items, def.Predicate(Query{Category: "General Aviation"}))))
	require.Equal(t, []string{"ATR 72"}, listing.IDs(listing.Filter(items, def.Predicate(Query{Term: "regional", Category: "all"}))))
	require.Empty(t, listing.Filter(items, def.Predicate(Query{Term: "cessna", Category: "Cargo"})))
}

func TestAircraftDetailCarriesUsageNote(t *testing.T) {
	t.Parallel()

	def, _ := mustDefault(t).Get("aircraft")
	detail := def.Renderer().Detail(aircraftItems()[1])
	require.Len(t, detail.Notes, 1)
	require.EqualValues(t, "This Cessna 172 by Cessna is ideal for general aviation and training operations.", detail.Notes[0])

	require.Equal(t, "various", AircraftUsage("Glider"))
	require.Equal(t, "rotary-wing", AircraftUsage("Helicopter"))
}

func TestMembershipBadges(t *testing.T) {
	t.Parallel()

	require.Equal(t, LevelGold, MembershipLevel(json.Number("3")))
	require.Equal(t, LevelSilver, MembershipLevel("Silver"))
	require.Equal(t, LevelMember, MembershipLevel(1))
	require.Zero(t, MembershipLevel("platinum"))
	require.Zero(t, MembershipLevel(json.Number("9")))

	require.Equal(t, &listing.Badge{Label: "Gold Member", Class: "membership-3"}, MembershipBadge(LevelGold, listing.ModeGrid))
	require.Equal(t, &listing.Badge{Label: "Gold", Class: "membership-3"}, MembershipBadge(LevelGold, listing.ModeList))
	require.Nil(t, MembershipBadge(0, listing.ModeGrid))

	def, _ := mustDefault(t).Get("members")
	view := def.Renderer().Render([]listing.Item{
		{ID: "Acme", Fields: map[string]any{"name": "Acme", "membership": json.Number("2")}},
	}, listing.ModeList)
	require.Len(t, view.Cards, 1)
	require.Equal(t, "membership-2", view.Cards[0].Badge.Class)
	require.Equal(t, "A", view.Cards[0].Initial)
	require.Contains(t, view.Cards[0].Classes, "list-view")
}

func TestMemberImagesUseThumbnails(t *testing.T) {
	t.Parallel()

	def, _ := mustDefault(t).Get("members")
	view := def.Renderer().Render([]listing.Item{
		{ID: "Acme", Fields: map[string]any{"name": "Acme", "image": "acme.png"}},
	}, listing.ModeGrid)
	require.Equal(t, "/media/thumb?w=240&src=%2Fassets%2Fimages%2Facme.png", view.Cards[0].Image)
	require.Empty(t, view.Cards[0].Initial)
}

func TestCourseTotalsFollowFilter(t *testing.T) {
	t.Parallel()

	def, _ := mustDefault(t).Get("courses")
	items := []listing.Item{
		{ID: "CSE110", Fields: map[string]any{"code": "CSE110", "name": "Intro", "credits": json.Number("2"), "category": "CSE", "completed": true}},
		{ID: "WDD231", Fields: map[string]any{"code": "WDD231", "name": "Frontend", "credits": json.Number("3"), "category": "WDD", "completed": false}},
	}
	r := def.Renderer()

	all := r.Render(items, listing.ModeGrid)
	require.EqualValues(t, "5", all.Totals[0].Value)
	require.Contains(t, all.Cards[0].Classes, "completed")
	require.EqualValues(t, "CSE110 Intro", all.Cards[0].Title)

	wdd := r.Render(listing.Filter(items, def.Predicate(Query{Category: "WDD"})), listing.ModeGrid)
	require.EqualValues(t, "3", wdd.Totals[0].Value)
	require.NotContains(t, wdd.Cards[0].Classes, "completed")

	none := r.Render(nil, listing.ModeGrid)
	require.EqualValues(t, "0", none.Totals[0].Value)
	require.Equal(t, "No courses in this category.", none.Empty)
}

func TestServiceDetailShowsFavorite(t *testing.T) {
	t.Parallel()

	def, _ := mustDefault(t).Get("services")
	detail := def.Renderer().Detail(listing.Item{ID: "1", Fields: map[string]any{"title": "Charter", "price": "$1,200", "favorite": true}})
	last := detail.Fields[len(detail.Fields)-1]
	require.Equal(t, "Favorite", last.Label)
	require.EqualValues(t, "Yes", last.Value)
}

func TestSpotlightsPickSilverAndGoldOnly(t *testing.T) {
	t.Parallel()

	items := []listing.Item{
		{ID: "a", Fields: map[string]any{"membership": json.Number("1")}},
		{ID: "b", Fields: map[string]any{"membership": json.Number("2")}},
		{ID: "c", Fields: map[string]any{"membership": "Gold"}},
		{ID: "d", Fields: map[string]any{"membership": json.Number("3")}},
		{ID: "e", Fields: map[string]any{"membership": json.Number("3")}},
	}
	rng := rand.New(rand.NewPCG(1, 2))
	picked := Spotlights(items, 3, rng)
	require.Len(t, picked, 3)
	for _, it := range picked {
		require.NotEqual(t, "a", it.ID)
	}

	require.Empty(t, Spotlights(items[:1], 3, rng))
}

func TestLastVisitMessage(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	require.Equal(t, "Welcome! Let us know if you have any questions.", LastVisitMessage(time.Time{}, now))
	require.Equal(t, "Back so soon! Awesome!", LastVisitMessage(now.Add(-3*time.Hour), now))
	require.Equal(t, "You last visited 1 day ago.", LastVisitMessage(now.Add(-30*time.Hour), now))
	require.Equal(t, "You last visited 4 days ago.", LastVisitMessage(now.Add(-4*24*time.Hour-time.Minute), now))
}

func TestNilCatalogHasNoCollections(t *testing.T) {
	t.Parallel()

	var c *Catalog
	_, ok := c.Get("members")
	require.False(t, ok)
	require.Empty(t, c.Names())
}
