package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vadiminshakov/trendsignal/internal/domain"
	"github.com/vadiminshakov/trendsignal/internal/services/trend"
	"github.com/vadiminshakov/trendsignal/internal/storage/decisions"
)

const (
	upSeries   = `[{"close":"100","high":"105","low":"99"},{"close":"100.4","high":"105.4","low":"99"},{"close":"100.9","high":"105.9","low":"99"}]`
	downSeries = `[{"close":100,"high":105,"low":99},{"close":99.6,"high":104.6,"low":99},{"close":99.1,"high":104.1,"low":99}]`
	flatSeries = `[{"close":"100","high":"101","low":"99"},{"close":"100","high":"101","low":"99"},{"close":"100","high":"101","low":"99"}]`
)

func body(eth, btc, sol string) string {
	return `{"eth":` + eth + `,"btc":` + btc + `,"sol":` + sol + `}`
}

func newTestServer(store decisionReader) *Server {
	s := NewServer(":0", "USD", trend.NewEngine(), store, zap.NewNop())
	s.poll = 10 * time.Millisecond
	s.heartbeat = 20 * time.Millisecond
	return s
}

func TestHandleDecide(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		body       string
		wantStatus int
		wantAction domain.Action
		wantError  string
	}{
		{"eth uptrend", http.MethodPost, body(upSeries, flatSeries, flatSeries), http.StatusOK, domain.ActionLong, ""},
		{"numeric prices", http.MethodPost, body(downSeries, flatSeries, flatSeries), http.StatusOK, domain.ActionShort, ""},
		{"secondary long", http.MethodPost, body(flatSeries, upSeries, upSeries), http.StatusOK, domain.ActionLong, ""},
		{"secondary disagree", http.MethodPost, body(flatSeries, upSeries, downSeries), http.StatusOK, domain.ActionNone, ""},
		{"malformed json", http.MethodPost, `{"eth":`, http.StatusBadRequest, "", "malformed request"},
		{"non numeric price", http.MethodPost, body(`[{"close":"abc","high":"1","low":"1"}]`, flatSeries, flatSeries), http.StatusBadRequest, "", "malformed request"},
		{"missing sol", http.MethodPost, `{"eth":` + upSeries + `,"btc":` + flatSeries + `}`, http.StatusBadRequest, "", "SOL"},
		{"short series", http.MethodPost, body(`[{"close":"1","high":"1","low":"1"}]`, flatSeries, flatSeries), http.StatusBadRequest, "", "ETH"},
		{"zero price", http.MethodPost, body(flatSeries, `[{"close":"0","high":"1","low":"1"},{"close":"1","high":"1","low":"1"},{"close":"1","high":"1","low":"1"}]`, flatSeries), http.StatusBadRequest, "", "BTC"},
		{"wrong method", http.MethodGet, "", http.StatusMethodNotAllowed, "", "method not allowed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/decide", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			newTestServer(nil).Handler().ServeHTTP(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			if tt.wantError != "" {
				var resp map[string]string
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.Contains(t, resp["error"], tt.wantError)
				return
			}

			var resp map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Len(t, resp, 2)
			assert.Equal(t, string(tt.wantAction), resp["action"])
			assert.NotEmpty(t, resp["rationale"])
		})
	}
}

func TestHandleDecide_RationaleNamesPairs(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{"primary", body(upSeries, flatSeries, flatSeries), []string{"ETH/USD"}},
		{"secondary", body(flatSeries, upSeries, upSeries), []string{"ETH/USD", "BTC/USD", "SOL/USD"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/decide", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			newTestServer(nil).Handler().ServeHTTP(rec, req)

			require.Equal(t, http.StatusOK, rec.Code)
			var resp domain.Decision
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			for _, sym := range tt.want {
				assert.Contains(t, resp.Rationale, sym)
			}
		})
	}
}

func TestHandleDecide_InvalidInputNamesPair(t *testing.T) {
	s := NewServer(":0", "USDT", trend.NewEngine(), nil, zap.NewNop())
	req := httptest.NewRequest(http.MethodPost, "/decide", strings.NewReader(body(`[]`, flatSeries, flatSeries)))
	rec := httptest.NewRecorder()

	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "ETH/USDT")
}

type failingDecider struct{}

func (failingDecider) Decide(_, _, _ domain.AssetSeries) (domain.Decision, error) {
	return domain.Decision{}, errors.New("boom")
}

func TestHandleDecide_InternalError(t *testing.T) {
	s := NewServer(":0", "", failingDecider{}, nil, zap.NewNop())
	req := httptest.NewRequest(http.MethodPost, "/decide", strings.NewReader(body(upSeries, upSeries, upSeries)))
	rec := httptest.NewRecorder()

	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestHandleDecisionStream(t *testing.T) {
	store, err := decisions.NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	for _, a := range []domain.Action{domain.ActionLong, domain.ActionNone} {
		event := domain.NewDecisionEvent(time.Now(), domain.DecisionSourceEngine, "", domain.Decision{Action: a, Rationale: "r"}, domain.MarketSnapshot{})
		_, err := store.Save(event)
		require.NoError(t, err)
	}

	t.Run("replays stored events", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		req := httptest.NewRequest(http.MethodGet, "/decisions/stream", nil).WithContext(ctx)
		rec := httptest.NewRecorder()

		newTestServer(store).Handler().ServeHTTP(rec, req)

		out := rec.Body.String()
		assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
		assert.Equal(t, 2, strings.Count(out, "event: decision\n"))
		assert.Contains(t, out, "id: 1\n")
		assert.Contains(t, out, "id: 2\n")
		assert.Contains(t, out, `"action":"long"`)
		assert.Contains(t, out, ": ping\n\n")
	})

	t.Run("resumes after last event id", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		req := httptest.NewRequest(http.MethodGet, "/decisions/stream?last_event_id=1", nil).WithContext(ctx)
		rec := httptest.NewRecorder()

		newTestServer(store).Handler().ServeHTTP(rec, req)

		out := rec.Body.String()
		assert.Equal(t, 1, strings.Count(out, "event: decision\n"))
		assert.NotContains(t, out, "id: 1\n")
		assert.Contains(t, out, `"action":"none"`)
	})

	t.Run("caps replay without last event id", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		req := httptest.NewRequest(http.MethodGet, "/decisions/stream", nil).WithContext(ctx)
		rec := httptest.NewRecorder()

		srv := newTestServer(store)
		srv.replay = 1
		srv.Handler().ServeHTTP(rec, req)

		out := rec.Body.String()
		assert.Equal(t, 1, strings.Count(out, "event: decision\n"))
		assert.Contains(t, out, "id: 2\n")
		assert.Contains(t, out, `"action":"none"`)
	})

	t.Run("store unavailable", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/decisions/stream", nil)
		rec := httptest.NewRecorder()

		newTestServer(nil).Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestStartWithAutoTLS_NoDomains(t *testing.T) {
	err := newTestServer(nil).StartWithAutoTLS(context.Background(), nil, "")
	assert.Error(t, err)
}
