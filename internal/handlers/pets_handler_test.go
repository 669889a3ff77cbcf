package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/imrishuroy/gp-notifier/internal/metrics"
	"github.com/imrishuroy/gp-notifier/internal/sightings"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeSink struct {
	mu      sync.Mutex
	batches [][]sightings.Sighting
	ids     []string
	err     error
	block   chan struct{}
}

func (f *fakeSink) Name() string { return "fake" }

func (f *fakeSink) Publish(ctx context.Context, requestID string, batch []sightings.Sighting) error {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, batch)
	f.ids = append(f.ids, requestID)
	return f.err
}

func (f *fakeSink) received() ([][]sightings.Sighting, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]sightings.Sighting(nil), f.batches...), append([]string(nil), f.ids...)
}

type testEnv struct {
	router  *gin.Engine
	store   *sightings.Store
	clock   *testClock
	metrics *metrics.Metrics
	fanout  *Fanout
}

func newTestEnv(t *testing.T, sinks ...Sink) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	clock := &testClock{now: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)}
	store := sightings.NewStore(sightings.DefaultWindow, sightings.WithClock(clock.Now))
	m := metrics.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	fanout := NewFanout(sinks, 2*time.Second, logger, m)

	r := gin.New()
	r.Use(RequestIDMiddleware(), LoggingMiddleware(logger))
	RegisterPetsRoutes(r, HandlerConfig{
		Store:   store,
		Logger:  logger,
		Metrics: m,
		Fanout:  fanout,
	})
	return &testEnv{router: r, store: store, clock: clock, metrics: m, fanout: fanout}
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) latest(t *testing.T) []map[string]interface{} {
	t.Helper()
	rec := e.do(http.MethodGet, "/latest-pets", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /latest-pets status = %d", rec.Code)
	}
	var out []map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode latest: %v (%s)", err, rec.Body.String())
	}
	return out
}

func TestPostPets_ThenLatestPets(t *testing.T) {
	env := newTestEnv(t)

	body := `{"embeds":[{"title":"Sighting","fields":[{"name":"Brainrot Name","value":"Tung Tung Sahur"},{"name":"Rarity","value":"Legendary"}]}]}`
	rec := env.do(http.MethodPost, "/pets", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /pets status = %d, body %s", rec.Code, rec.Body.String())
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("expected empty body, got %q", rec.Body.String())
	}

	pets := env.latest(t)
	if len(pets) != 1 {
		t.Fatalf("expected 1 pet, got %d", len(pets))
	}
	p := pets[0]
	if p["name"] != "Tung Tung Sahur" || p["rarity"] != "Legendary" || p["title"] != "Sighting" {
		t.Fatalf("unexpected pet: %v", p)
	}
	for _, key := range []string{"value", "playerCount", "sellPrice", "jobId", "joinLink", "joinScript"} {
		if _, ok := p[key]; ok {
			t.Fatalf("absent attribute %q present: %v", key, p)
		}
	}
}

func TestPostPets_MissingEmbedsRejected(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodPost, "/pets", `{"embeds":[{"title":"kept"}]}`)

	for _, body := range []string{`{}`, `{"embeds":null}`, `not json`, ``} {
		rec := env.do(http.MethodPost, "/pets", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %q: status = %d, want 400", body, rec.Code)
		}
	}

	if n := len(env.latest(t)); n != 1 {
		t.Fatalf("store changed by rejected batches: %d records", n)
	}
	if got := testutil.ToFloat64(env.metrics.BatchesRejected); got != 4 {
		t.Fatalf("rejected counter = %v, want 4", got)
	}
}

func TestPostPets_EmptyBatchSucceeds(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/pets", `{"embeds":[]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if n := env.store.Len(); n != 0 {
		t.Fatalf("store len = %d, want 0", n)
	}
	if got := testutil.ToFloat64(env.metrics.BatchesAccepted); got != 1 {
		t.Fatalf("accepted counter = %v, want 1", got)
	}
}

func TestPostPets_AddsOneRecordPerEmbed(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/pets", `{"embeds":[{"title":"a"},{"title":"b"},{"fields":[{"name":"x","value":"y"}]}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if n := env.store.Len(); n != 3 {
		t.Fatalf("store len = %d, want 3", n)
	}
	if got := testutil.ToFloat64(env.metrics.SightingsIngested); got != 3 {
		t.Fatalf("ingested counter = %v, want 3", got)
	}
}

func TestPostPets_MistypedMembersStillIngested(t *testing.T) {
	env := newTestEnv(t)

	bodies := []string{
		`{"embeds":[{"title":"a","fields":[{"name":"Player Count","value":5}]}]}`,
		`{"embeds":[{"title":"b","color":"16711680"}]}`,
		`{"embeds":[{"title":"c","thumbnail":"https://x/y.png","footer":7,"fields":"nope"}]}`,
		`{"embeds":["not an object",{"title":["d"]}]}`,
	}
	for _, body := range bodies {
		rec := env.do(http.MethodPost, "/pets", body)
		if rec.Code != http.StatusOK {
			t.Fatalf("body %s: status = %d, want 200 (%s)", body, rec.Code, rec.Body.String())
		}
	}
	if n := env.store.Len(); n != 5 {
		t.Fatalf("store len = %d, want 5", n)
	}

	var a map[string]interface{}
	for _, p := range env.latest(t) {
		if p["title"] == "a" {
			a = p
		}
	}
	if a == nil || a["playerCount"] != "5" {
		t.Fatalf("numeric field value not kept: %v", a)
	}
}

func TestPostPets_EmbedsNotAListRejected(t *testing.T) {
	env := newTestEnv(t)

	for _, body := range []string{`{"embeds":"x"}`, `{"embeds":{"title":"a"}}`, `{"embeds":5}`} {
		rec := env.do(http.MethodPost, "/pets", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %s: status = %d, want 400", body, rec.Code)
		}
	}
	if n := env.store.Len(); n != 0 {
		t.Fatalf("store len = %d, want 0", n)
	}
}

func TestLatestPets_OrderAndExpiry(t *testing.T) {
	env := newTestEnv(t)

	env.do(http.MethodPost, "/pets", `{"embeds":[{"title":"old"}]}`)
	env.clock.Advance(time.Minute)
	env.do(http.MethodPost, "/pets", `{"embeds":[{"title":"mid-1"},{"title":"mid-2"}]}`)
	env.clock.Advance(time.Minute)
	env.do(http.MethodPost, "/pets", `{"embeds":[{"title":"new"}]}`)

	var got []string
	for _, p := range env.latest(t) {
		got = append(got, p["title"].(string))
	}
	want := "new,mid-2,mid-1,old"
	if strings.Join(got, ",") != want {
		t.Fatalf("order = %v, want %s", got, want)
	}

	env.clock.Advance(4 * time.Minute)
	pets := env.latest(t)
	if len(pets) != 3 || pets[2]["title"] != "mid-1" {
		t.Fatalf("expected old record expired, got %v", pets)
	}
}

func TestLatestPets_EmptyIsArray(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/latest-pets", "")
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("expected [], got %q", rec.Body.String())
	}
}

func TestIndexPage_RendersSightings(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodPost, "/pets", `{"embeds":[{"title":"<b>Sighting</b>","footer":{"text":"foot"},"fields":[{"name":"Brainrot Name","value":"Tung"},{"name":"Job ID","value":"job-1"}]}]}`)

	rec := env.do(http.MethodGet, "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	page := rec.Body.String()
	for _, want := range []string{"GP Notifier", "&lt;b&gt;Sighting&lt;/b&gt;", "<b>Brainrot Name:</b> Tung", "<code>job-1</code>", "<small>foot</small>"} {
		if !strings.Contains(page, want) {
			t.Fatalf("page missing %q:\n%s", want, page)
		}
	}
	for _, bad := range []string{"undefined", "<nil>", "<no value>"} {
		if strings.Contains(page, bad) {
			t.Fatalf("page contains %q for absent field:\n%s", bad, page)
		}
	}
}

func TestPostPets_FanOut(t *testing.T) {
	ok := &fakeSink{}
	failing := &fakeSink{err: errors.New("boom")}
	env := newTestEnv(t, ok, failing)

	req := httptest.NewRequest(http.MethodPost, "/pets", strings.NewReader(`{"embeds":[{"title":"a"}]}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(RequestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("fan-out failure must not change response, got %d", rec.Code)
	}
	if rec.Header().Get(RequestIDHeader) != "req-42" {
		t.Fatalf("request id not echoed: %q", rec.Header().Get(RequestIDHeader))
	}
	if err := env.fanout.Wait(context.Background()); err != nil {
		t.Fatalf("wait fan-out: %v", err)
	}
	batches, ids := ok.received()
	if len(batches) != 1 || len(batches[0]) != 1 || ids[0] != "req-42" {
		t.Fatalf("sink did not receive batch: %+v %v", batches, ids)
	}
	if got := testutil.ToFloat64(env.metrics.FanoutFailures.WithLabelValues("fake")); got != 1 {
		t.Fatalf("fan-out failures = %v, want 1", got)
	}
}

func TestPostPets_SlowSinkDoesNotDelayResponse(t *testing.T) {
	slow := &fakeSink{block: make(chan struct{})}
	env := newTestEnv(t, slow)

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		done <- env.do(http.MethodPost, "/pets", `{"embeds":[{"title":"a"}]}`)
	}()

	select {
	case rec := <-done:
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
	case <-time.After(time.Second):
		t.Fatal("response waited for a blocked sink")
	}
	if n := env.store.Len(); n != 1 {
		t.Fatalf("store len = %d, want 1", n)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := env.fanout.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("wait with blocked sink = %v, want deadline exceeded", err)
	}

	close(slow.block)
	if err := env.fanout.Wait(context.Background()); err != nil {
		t.Fatalf("wait after release: %v", err)
	}
	if batches, _ := slow.received(); len(batches) != 1 {
		t.Fatalf("sink batches = %d, want 1", len(batches))
	}
}

func TestFanout_NilIsNoop(t *testing.T) {
	var f *Fanout
	f.Dispatch("req", []sightings.Sighting{{Title: "a"}})
	if err := f.Wait(context.Background()); err != nil {
		t.Fatalf("wait on nil fanout: %v", err)
	}
}

func TestRequestIDMiddleware_AssignsID(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/latest-pets", "")
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Fatal("expected generated request id")
	}
}
