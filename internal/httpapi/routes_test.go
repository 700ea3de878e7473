package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/DoyleJ11/seatbus-monitor/internal/config"
	"github.com/DoyleJ11/seatbus-monitor/internal/ingest"
	"github.com/DoyleJ11/seatbus-monitor/internal/layout"
	"github.com/DoyleJ11/seatbus-monitor/internal/metrics"
	"github.com/DoyleJ11/seatbus-monitor/internal/occupancy"
	"github.com/DoyleJ11/seatbus-monitor/internal/store"
	"github.com/DoyleJ11/seatbus-monitor/internal/types"
)

type testServer struct {
	handler http.Handler
	store   *store.Store
	layout  *layout.Layout
}

func newTestServer(t *testing.T, capacity int, editMode bool, origins ...string) *testServer {
	t.Helper()
	cfg := config.Default()

	st := store.NewStore(context.Background(), cfg.Seats.Count, capacity)
	t.Cleanup(st.Close)

	labels, err := layout.NewLabelMap(cfg.Layout.Labels)
	require.NoError(t, err)
	lay, err := layout.New(cfg.Layout.Rects, labels)
	require.NoError(t, err)

	m := metrics.New()
	svc := ingest.NewService(st, cfg.Seats.Count, ingest.WithMetrics(m))

	h := SetupRoutes(Deps{
		Store:          st,
		Ingest:         svc,
		Layout:         lay,
		Log:            zap.NewNop(),
		Metrics:        m,
		EditMode:       editMode,
		AllowedOrigins: origins,
	})
	return &testServer{handler: h, store: st, layout: lay}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestPush_OK(t *testing.T) {
	s := newTestServer(t, 3, false)

	rec := s.do(t, http.MethodPost, "/push", `{"seats":[1,0,1,1,0,0,0,0]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())

	status := decode[occupancy.Snapshot](t, s.do(t, http.MethodGet, "/status", ""))
	assert.Equal(t, 3, status.Count)
	assert.Equal(t, []int{1, 0, 1, 1, 0, 0, 0, 0}, status.Seats)
}

func TestPush_NoData(t *testing.T) {
	s := newTestServer(t, 3, false)

	for _, body := range []string{"", "{}", "null", "{not json"} {
		rec := s.do(t, http.MethodPost, "/push", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %q: want 400, got %d", body, rec.Code)
		}
		assert.JSONEq(t, `{"error":"no data"}`, rec.Body.String())
	}

	hist := decode[types.HistoryResponse](t, s.do(t, http.MethodGet, "/history", ""))
	assert.Empty(t, hist.Samples)
}

func TestStatus_BeforeAnyPush(t *testing.T) {
	s := newTestServer(t, 3, false)

	rec := s.do(t, http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.JSONEq(t, `[0,0,0,0,0,0,0,0]`, string(raw["seats"]))
	assert.JSONEq(t, `0`, string(raw["count"]))
	assert.Contains(t, raw, "timestamp")

	assert.JSONEq(t, `{"samples":[]}`, s.do(t, http.MethodGet, "/history", "").Body.String())
}

func TestEndToEndScenario(t *testing.T) {
	s := newTestServer(t, 3, false)

	pushes := []string{
		`{"seats":[1,0,0,0,0,0,0,0],"timestamp":1}`,
		`{"seats":[0,1,0,0,0,0,0,0],"timestamp":2}`,
		`{"seats":[0,0,1,0,0,0,0,0],"timestamp":3}`,
		`{"seats":[0,0,0,1,0,0,0,0],"timestamp":4}`,
	}
	for _, p := range pushes {
		require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/push", p).Code)
	}

	assert.JSONEq(t, `{"samples":[
		{"timestamp":2,"seats":[0,1,0,0,0,0,0,0],"count":1},
		{"timestamp":3,"seats":[0,0,1,0,0,0,0,0],"count":1},
		{"timestamp":4,"seats":[0,0,0,1,0,0,0,0],"count":1}
	]}`, s.do(t, http.MethodGet, "/history", "").Body.String())

	assert.JSONEq(t, `{"timestamp":4,"seats":[0,0,0,1,0,0,0,0],"count":1}`,
		s.do(t, http.MethodGet, "/status", "").Body.String())
}

func TestPush_TimestampKeptVerbatim(t *testing.T) {
	s := newTestServer(t, 3, false)

	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/push", `{"timestamp":"2025-08-01 10:00:05","count":7}`).Code)
	assert.JSONEq(t, `{"timestamp":"2025-08-01 10:00:05","seats":[0,0,0,0,0,0,0,0],"count":7}`,
		s.do(t, http.MethodGet, "/status", "").Body.String())
}

func TestGetLayout(t *testing.T) {
	s := newTestServer(t, 3, false)

	resp := decode[types.LayoutResponse](t, s.do(t, http.MethodGet, "/layout", ""))
	require.Len(t, resp.Seats, 8)
	assert.Equal(t, "③", resp.Seats[0].Label)
	assert.Equal(t, 2, resp.Seats[2].Index)
	assert.Equal(t, "①", resp.Seats[2].Label)

	rec := s.do(t, http.MethodGet, "/layout?format=yaml", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/yaml", rec.Header().Get("Content-Type"))

	var block map[string]config.LayoutConfig
	require.NoError(t, yaml.Unmarshal(rec.Body.Bytes(), &block))
	assert.Equal(t, config.Default().Layout.Rects, block["layout"].Rects)
	assert.Equal(t, config.Default().Layout.Labels, block["layout"].Labels)
}

func TestOverlay(t *testing.T) {
	s := newTestServer(t, 3, false)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/push", `{"seats":[0,0,1]}`).Code)

	rec := s.do(t, http.MethodGet, "/overlay?width=1000&height=500", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[types.OverlayResponse](t, rec)

	require.Len(t, resp.Seats, 8)
	assert.Equal(t, 1, resp.Count)
	assert.True(t, resp.Seats[2].Occupied)
	assert.Equal(t, "①", resp.Seats[2].Label)
	assert.False(t, resp.Seats[0].Occupied)

	want := layout.ToAbsolute(config.Default().Layout.Rects[2], 1000, 500)
	assert.InDelta(t, want.X, resp.Seats[2].Rect.X, 1e-9)
	assert.InDelta(t, want.H, resp.Seats[2].Rect.H, 1e-9)

	for _, q := range []string{"", "?width=10", "?width=0&height=10", "?width=abc&height=1"} {
		assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/overlay"+q, "").Code, q)
	}
}

func TestEditEndpoints_DisabledByDefault(t *testing.T) {
	s := newTestServer(t, 3, false)

	rec := s.do(t, http.MethodPut, "/layout/seats/0", `{"x":1,"y":1,"w":1,"h":1,"container_width":10,"container_height":10}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = s.do(t, http.MethodPost, "/layout/seats/0/move", `{"dx":1,"dy":1,"container_width":10,"container_height":10}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSetSeat(t *testing.T) {
	s := newTestServer(t, 3, true)

	rec := s.do(t, http.MethodPut, "/layout/seats/4", `{"x":400,"y":150,"w":80,"h":60,"container_width":800,"container_height":600}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[types.SeatEditResponse](t, rec)
	assert.Equal(t, 4, resp.Seat.Index)
	assert.Equal(t, "⑤", resp.Seat.Label)
	assert.InDelta(t, 0.5, resp.Seat.Rect.X, 1e-12)
	assert.InDelta(t, 0.25, resp.Seat.Rect.Y, 1e-12)

	got, err := s.layout.Rect(4)
	require.NoError(t, err)
	assert.Equal(t, resp.Seat.Rect, got)

	cases := []struct {
		name string
		path string
		body string
		want int
	}{
		{name: "index out of range", path: "/layout/seats/8", body: `{"x":1,"y":1,"w":1,"h":1,"container_width":10,"container_height":10}`, want: http.StatusNotFound},
		{name: "index not a number", path: "/layout/seats/x", body: `{}`, want: http.StatusBadRequest},
		{name: "bad json", path: "/layout/seats/0", body: `{`, want: http.StatusBadRequest},
		{name: "zero container", path: "/layout/seats/0", body: `{"x":1,"y":1,"w":1,"h":1,"container_width":0,"container_height":10}`, want: http.StatusBadRequest},
		{name: "rect off the image", path: "/layout/seats/0", body: `{"x":-40,"y":10,"w":900,"h":10,"container_width":800,"container_height":600}`, want: http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, s.do(t, http.MethodPut, tc.path, tc.body).Code)
		})
	}
}

func TestMoveSeat(t *testing.T) {
	s := newTestServer(t, 3, true)
	before, err := s.layout.Rect(0)
	require.NoError(t, err)

	rec := s.do(t, http.MethodPost, "/layout/seats/0/move", `{"dx":100,"dy":-50,"container_width":1000,"container_height":500}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	after, err := s.layout.Rect(0)
	require.NoError(t, err)
	assert.InDelta(t, before.X+0.1, after.X, 1e-12)
	assert.InDelta(t, before.Y-0.1, after.Y, 1e-12)
	assert.Equal(t, before.W, after.W)
}

func TestEditedLayoutExportLoadsAsConfig(t *testing.T) {
	s := newTestServer(t, 3, true)

	rec := s.do(t, http.MethodPost, "/layout/seats/1/move", `{"dx":5000,"dy":0,"container_width":800,"container_height":600}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[types.SeatEditResponse](t, rec)
	assert.InDelta(t, 1-resp.Seat.Rect.W, resp.Seat.Rect.X, 1e-12, "drag stops at the right edge")

	rec = s.do(t, http.MethodPut, "/layout/seats/0", `{"x":-40,"y":10,"w":900,"h":10,"container_width":800,"container_height":600}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/layout?format=yaml", "")
	require.Equal(t, http.StatusOK, rec.Code)

	path := filepath.Join(t.TempDir(), "seatbus.yaml")
	require.NoError(t, os.WriteFile(path, rec.Body.Bytes(), 0o600))
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, s.layout.Rects(), cfg.Layout.Rects)
}

func TestHealthzAndMetrics(t *testing.T) {
	s := newTestServer(t, 3, false)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/healthz", "").Code)

	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/push", `{"seats":[1]}`).Code)
	rec := s.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `seatbus_ingest_total{result="ok",transport="http"} 1`)
}

func TestCORS(t *testing.T) {
	s := newTestServer(t, 3, false, "https://viewer.example")

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Origin", "https://viewer.example")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, "https://viewer.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestStoreClosed(t *testing.T) {
	s := newTestServer(t, 3, false)
	s.store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/status", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	assert.Equal(t, http.StatusServiceUnavailable, s.do(t, http.MethodPost, "/push", `{"seats":[1]}`).Code)
}
