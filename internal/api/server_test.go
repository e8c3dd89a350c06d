package api

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gavv/httpexpect/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kerhoff/FreeSlot/internal/models"
	"github.com/Kerhoff/FreeSlot/internal/repository/memory"
	"github.com/Kerhoff/FreeSlot/internal/service"
)

type fixture struct {
	store               *memory.Store
	svc                 *service.Service
	e                   *httpexpect.Expect
	alice, bob, mallory *models.User
	group               *models.Group
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store := memory.New()
	svc := service.New(logger, service.Options{
		Now: func() time.Time { return time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC) },
	}, service.Repositories{
		Users:        store.Users,
		Friendships:  store.Friendships,
		Groups:       store.Groups,
		Availability: store.Availability,
		Feeds:        store.Feeds,
	})

	srv := httptest.NewServer(NewServer(svc, logger).Handler())
	t.Cleanup(srv.Close)

	f := &fixture{store: store, svc: svc, e: httpexpect.Default(t, srv.URL)}
	f.alice = store.AddUser("Alice")
	f.bob = store.AddUser("Bob")
	f.mallory = store.AddUser("Mallory")
	store.Befriend(f.alice.ID, f.bob.ID)
	f.group = store.AddGroup("climbers", nil, f.alice.ID, f.bob.ID)
	return f
}

func as(u *models.User) string { return strconv.FormatInt(u.ID, 10) }

func TestHealth(t *testing.T) {
	f := newFixture(t)
	f.e.GET("/healthz").Expect().Status(http.StatusOK).
		JSON().Object().Value("status").String().IsEqual("ok")
}

func TestViewerHeaderRequired(t *testing.T) {
	f := newFixture(t)
	f.e.GET("/api/overlaps").Expect().Status(http.StatusUnauthorized)
	f.e.GET("/api/overlaps").WithHeader(ViewerHeader, "abc").Expect().Status(http.StatusUnauthorized)
}

func TestGetAvailability(t *testing.T) {
	f := newFixture(t)

	f.e.PUT("/api/patterns").WithHeader(ViewerHeader, as(f.bob)).
		WithJSON(map[string]any{"day_of_week": 6, "time_block": "morning", "is_available": true}).
		Expect().Status(http.StatusNoContent)

	cells := f.e.GET("/api/users/{id}/availability", f.bob.ID).
		WithHeader(ViewerHeader, as(f.alice)).
		WithQuery("start", "2026-03-01").WithQuery("end", "2026-03-07").
		Expect().Status(http.StatusOK).JSON().Array()

	cells.Length().IsEqual(21)
	first := cells.Value(0).Object()
	first.Value("date").String().IsEqual("2026-03-01")
	first.Value("time_block").String().IsEqual("morning")
	first.Value("source").String().IsEqual("pattern")

	saturday := cells.Value(18).Object()
	saturday.Value("date").String().IsEqual("2026-03-07")
	saturday.Value("is_available").Boolean().IsTrue()
}

func TestGetAvailabilityDefaultsToAWeekFromToday(t *testing.T) {
	f := newFixture(t)

	cells := f.e.GET("/api/users/{id}/availability", f.alice.ID).
		WithHeader(ViewerHeader, as(f.alice)).
		Expect().Status(http.StatusOK).JSON().Array()
	cells.Length().IsEqual(21)
	cells.Value(0).Object().Value("date").String().IsEqual("2026-03-01")
	cells.Value(20).Object().Value("date").String().IsEqual("2026-03-07")
}

func TestGetAvailabilityErrors(t *testing.T) {
	f := newFixture(t)

	f.e.GET("/api/users/{id}/availability", f.bob.ID).
		WithHeader(ViewerHeader, as(f.mallory)).
		Expect().Status(http.StatusForbidden)

	f.e.GET("/api/users/{id}/availability", f.bob.ID).
		WithHeader(ViewerHeader, as(f.alice)).
		WithQuery("start", "2026-03-07").WithQuery("end", "2026-03-01").
		Expect().Status(http.StatusBadRequest)

	f.e.GET("/api/users/{id}/availability", f.bob.ID).
		WithHeader(ViewerHeader, as(f.alice)).
		WithQuery("start", "March 1st").
		Expect().Status(http.StatusBadRequest)

	f.e.GET("/api/users/{id}/availability", "nope").
		WithHeader(ViewerHeader, as(f.alice)).
		Expect().Status(http.StatusBadRequest)
}

func TestGetOverlaps(t *testing.T) {
	f := newFixture(t)
	for _, u := range []*models.User{f.alice, f.bob} {
		f.e.PUT("/api/overrides").WithHeader(ViewerHeader, as(u)).
			WithJSON(map[string]any{"date": "2026-03-07", "time_block": "evening", "is_available": true}).
			Expect().Status(http.StatusNoContent)
	}
	f.e.PUT("/api/overrides").WithHeader(ViewerHeader, as(f.alice)).
		WithJSON(map[string]any{"date": "2026-03-06", "time_block": "evening", "is_available": true}).
		Expect().Status(http.StatusNoContent)

	result := f.e.GET("/api/overlaps").WithHeader(ViewerHeader, as(f.alice)).
		WithQuery("start", "2026-03-01").WithQuery("end", "2026-03-07").
		Expect().Status(http.StatusOK).JSON().Object()

	result.Value("degraded").Boolean().IsFalse()
	slots := result.Value("slots").Array()
	slots.Length().IsEqual(1)
	slot := slots.Value(0).Object()
	slot.Value("date").String().IsEqual("2026-03-07")
	slot.Value("time_block").String().IsEqual("evening")
	slot.Value("available_count").Number().IsEqual(2)
	slot.Value("available_names").Array().Length().IsEqual(2)
}

func TestGetOverlapsLimit(t *testing.T) {
	f := newFixture(t)
	for _, u := range []*models.User{f.alice, f.bob} {
		for _, dow := range []int{0, 6} {
			f.e.PUT("/api/patterns").WithHeader(ViewerHeader, as(u)).
				WithJSON(map[string]any{"day_of_week": dow, "time_block": "afternoon", "is_available": true}).
				Expect().Status(http.StatusNoContent)
		}
	}

	f.e.GET("/api/overlaps").WithHeader(ViewerHeader, as(f.alice)).
		WithQuery("start", "2026-03-01").WithQuery("end", "2026-03-14").
		Expect().Status(http.StatusOK).JSON().Object().Value("slots").Array().Length().IsEqual(4)

	top := f.e.GET("/api/overlaps").WithHeader(ViewerHeader, as(f.alice)).
		WithQuery("start", "2026-03-01").WithQuery("end", "2026-03-14").WithQuery("limit", 2).
		Expect().Status(http.StatusOK).JSON().Object().Value("slots").Array()
	top.Length().IsEqual(2)
	top.Value(0).Object().Value("date").String().IsEqual("2026-03-01")

	f.e.GET("/api/overlaps").WithHeader(ViewerHeader, as(f.alice)).WithQuery("limit", -1).
		Expect().Status(http.StatusBadRequest)
}

func TestGroupOverlay(t *testing.T) {
	f := newFixture(t)
	f.e.PUT("/api/overrides").WithHeader(ViewerHeader, as(f.bob)).
		WithJSON(map[string]any{"date": "2026-03-02", "time_block": "morning", "is_available": true}).
		Expect().Status(http.StatusNoContent)

	overlay := f.e.GET("/api/groups/{id}/overlay", f.group.ID).WithHeader(ViewerHeader, as(f.alice)).
		WithQuery("start", "2026-03-01").WithQuery("end", "2026-03-02").
		Expect().Status(http.StatusOK).JSON().Object()

	overlay.Value("members").Number().IsEqual(2)
	counts := overlay.Value("counts").Object()
	counts.Keys().Length().IsEqual(6)
	counts.Value("2026-03-02|morning").Number().IsEqual(1)
	counts.Value("2026-03-01|evening").Number().IsEqual(0)

	f.e.GET("/api/groups/{id}/overlay", f.group.ID).WithHeader(ViewerHeader, as(f.mallory)).
		Expect().Status(http.StatusForbidden)
	f.e.GET("/api/groups/{id}/overlay", 999).WithHeader(ViewerHeader, as(f.alice)).
		Expect().Status(http.StatusNotFound)
}

func TestComputeOverlay(t *testing.T) {
	f := newFixture(t)

	body := map[string]any{
		"member_ids": []int64{f.alice.ID, f.bob.ID, f.alice.ID},
		"start":      "2026-03-01",
		"end":        "2026-03-03",
	}
	overlay := f.e.POST("/api/overlay").WithHeader(ViewerHeader, as(f.alice)).WithJSON(body).
		Expect().Status(http.StatusOK).JSON().Object()
	overlay.Value("members").Number().IsEqual(2)
	overlay.Value("counts").Object().Keys().Length().IsEqual(9)

	body["member_ids"] = []int64{f.alice.ID, f.mallory.ID}
	f.e.POST("/api/overlay").WithHeader(ViewerHeader, as(f.alice)).WithJSON(body).
		Expect().Status(http.StatusForbidden)

	f.e.POST("/api/overlay").WithHeader(ViewerHeader, as(f.alice)).
		WithJSON(map[string]any{"member_ids": []int64{f.alice.ID}}).
		Expect().Status(http.StatusBadRequest)

	f.e.POST("/api/overlay").WithHeader(ViewerHeader, as(f.alice)).WithText("{").
		Expect().Status(http.StatusBadRequest)
}

func TestWriteValidation(t *testing.T) {
	f := newFixture(t)

	f.e.PUT("/api/patterns").WithHeader(ViewerHeader, as(f.alice)).
		WithJSON(map[string]any{"day_of_week": 9, "time_block": "morning", "is_available": true}).
		Expect().Status(http.StatusBadRequest)

	f.e.PUT("/api/overrides").WithHeader(ViewerHeader, as(f.alice)).
		WithJSON(map[string]any{"date": "2026-02-30", "time_block": "morning"}).
		Expect().Status(http.StatusBadRequest)

	f.e.DELETE("/api/overrides").WithHeader(ViewerHeader, as(f.alice)).
		WithQuery("date", "2026-03-02").WithQuery("time_block", "brunch").
		Expect().Status(http.StatusBadRequest)
}

func TestClearOverride(t *testing.T) {
	f := newFixture(t)
	f.e.PUT("/api/overrides").WithHeader(ViewerHeader, as(f.alice)).
		WithJSON(map[string]any{"date": "2026-03-02", "time_block": "morning", "is_available": true}).
		Expect().Status(http.StatusNoContent)
	f.e.DELETE("/api/overrides").WithHeader(ViewerHeader, as(f.alice)).
		WithQuery("date", "2026-03-02").WithQuery("time_block", "morning").
		Expect().Status(http.StatusNoContent)

	cells, err := f.svc.ResolveEffectiveAvailability(t.Context(), f.alice.ID, f.alice.ID,
		f.svc.Today().AddDays(1), f.svc.Today().AddDays(1))
	require.NoError(t, err)
	assert.Equal(t, models.CellSourcePattern, cells[0].Source)
}

func TestTravel(t *testing.T) {
	f := newFixture(t)

	trip := f.e.POST("/api/travel").WithHeader(ViewerHeader, as(f.alice)).
		WithJSON(map[string]any{"start_date": "2026-03-02", "end_date": "2026-03-04", "label": "Lisbon"}).
		Expect().Status(http.StatusCreated).JSON().Object()
	trip.Value("label").String().IsEqual("Lisbon")
	id := int64(trip.Value("id").Number().Raw())

	cells := f.e.GET("/api/users/{id}/availability", f.alice.ID).WithHeader(ViewerHeader, as(f.bob)).
		WithQuery("start", "2026-03-03").WithQuery("end", "2026-03-03").
		Expect().Status(http.StatusOK).JSON().Array()
	cells.Value(1).Object().Value("source").String().IsEqual("travel")

	f.e.DELETE("/api/travel/{id}", id).WithHeader(ViewerHeader, as(f.bob)).
		Expect().Status(http.StatusNotFound)
	f.e.DELETE("/api/travel/{id}", id).WithHeader(ViewerHeader, as(f.alice)).
		Expect().Status(http.StatusNoContent)

	f.e.POST("/api/travel").WithHeader(ViewerHeader, as(f.alice)).
		WithJSON(map[string]any{"start_date": "2026-03-04", "end_date": "2026-03-02"}).
		Expect().Status(http.StatusBadRequest)
}

func TestParseWithoutParser(t *testing.T) {
	f := newFixture(t)
	f.e.POST("/api/parse").WithHeader(ViewerHeader, as(f.alice)).WithText("not json").
		Expect().Status(http.StatusBadRequest)
	f.e.POST("/api/parse").WithHeader(ViewerHeader, as(f.alice)).
		WithJSON(map[string]any{"text": "free on saturday"}).
		Expect().Status(http.StatusInternalServerError)
}
