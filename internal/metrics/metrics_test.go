package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/roomhost/internal/events"
)

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, events.Event) error {
	return errors.New("broker down")
}

func TestMiddlewareLabelsByRouteTemplate(t *testing.T) {
	m := New()
	r := mux.NewRouter()
	r.Use(m.Middleware)
	r.HandleFunc("/rooms/{guid}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, guid := range []string{"a", "b", "c"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rooms/"+guid, nil))
	}

	count := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/rooms/{guid}", "404"))
	assert.Equal(t, 3.0, count)
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.RateLimitedTotal.WithLabelValues("/auth/login").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `roomhost_rate_limited_total{route="/auth/login"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestCountPublishedRecordsOutcome(t *testing.T) {
	m := New()
	ctx := context.Background()

	ok := m.CountPublished(events.Nop)
	require.NoError(t, ok.Publish(ctx, events.Event{Type: events.RoomCreated}))

	failing := m.CountPublished(failingPublisher{})
	require.Error(t, failing.Publish(ctx, events.Event{Type: events.RoomUserJoined}))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RoomEventsTotal.WithLabelValues("room.created", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RoomEventsTotal.WithLabelValues("room.user-joined", "error")))
}
