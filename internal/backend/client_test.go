// Vtour - 360° Virtual Tour Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vtour

package backend

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/vtour/internal/config"
	"github.com/tomtom215/vtour/internal/models"
)

// recorder is a fake backend that answers from a route table and records every hit.
type recorder struct {
	mu     sync.Mutex
	hits   []string
	routes map[string]func(w http.ResponseWriter, r *http.Request)
}

func newRecorder() *recorder {
	return &recorder{routes: make(map[string]func(http.ResponseWriter, *http.Request))}
}

func (rec *recorder) handle(pattern string, fn func(w http.ResponseWriter, r *http.Request)) {
	rec.routes[pattern] = fn
}

func (rec *recorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path
	rec.mu.Lock()
	rec.hits = append(rec.hits, key)
	rec.mu.Unlock()

	if fn, ok := rec.routes[key]; ok {
		fn(w, r)
		return
	}
	w.WriteHeader(http.StatusNotFound)
	_, _ = io.WriteString(w, `{"message":"Not Found"}`)
}

func (rec *recorder) calls() []string {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return append([]string(nil), rec.hits...)
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(&config.BackendConfig{URL: srv.URL + "/", Timeout: 5 * time.Second})
}

func TestDecodeData(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want int64
	}{
		{"bare object", `{"id": 3, "name": "Lobby"}`, 3},
		{"enveloped", `{"data": {"id": 4, "name": "Lobby"}, "message": "ok"}`, 4},
		{"null data", `{"data": null}`, 0},
		{"empty body", ``, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var s models.Scene
			if err := decodeData([]byte(tt.raw), &s); err != nil {
				t.Fatalf("decodeData() error = %v", err)
			}
			if s.ID != tt.want {
				t.Errorf("ID = %d, want %d", s.ID, tt.want)
			}
		})
	}
}

func TestListScenesShapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		body      string
		wantCount int
		wantLast  int
	}{
		{"paginator", `{"data":[{"id":1},{"id":2}],"current_page":1,"last_page":3,"per_page":2,"total":6}`, 2, 3},
		{"enveloped paginator", `{"data":{"data":[{"id":1}],"current_page":2,"last_page":2,"per_page":1,"total":2}}`, 1, 2},
		{"bare array", `[{"id":1},{"id":2},{"id":3}]`, 3, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := newRecorder()
			var gotQuery string
			rec.handle("GET /api/vtour/scenes", func(w http.ResponseWriter, r *http.Request) {
				gotQuery = r.URL.RawQuery
				writeJSON(w, http.StatusOK, tt.body)
			})
			c := newTestClient(t, rec)

			page, err := c.ListScenes(context.Background(), 2, 20)
			if err != nil {
				t.Fatalf("ListScenes() error = %v", err)
			}
			if len(page.Data) != tt.wantCount || page.LastPage != tt.wantLast {
				t.Errorf("page = %d scenes, last %d; want %d, %d", len(page.Data), page.LastPage, tt.wantCount, tt.wantLast)
			}
			if gotQuery != "page=2&per_page=20" {
				t.Errorf("query = %q", gotQuery)
			}
		})
	}
}

func TestStatusError(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	rec.handle("GET /api/vtour/scenes/9", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusUnprocessableEntity, `{"message":"The name field is required."}`)
	})
	c := newTestClient(t, rec)

	_, err := c.GetScene(context.Background(), 9)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want *StatusError", err)
	}
	if se.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("StatusCode = %d", se.StatusCode)
	}
	if got := UserMessage(err, "fallback"); got != "The name field is required." {
		t.Errorf("UserMessage() = %q", got)
	}
	if IsNotFound(err) {
		t.Error("422 reported as not found")
	}
	if !IsClientError(err) {
		t.Error("422 not reported as client error")
	}
	if got := UserMessage(errors.New("dial tcp: refused"), "Network error"); got != "Network error" {
		t.Errorf("UserMessage(non-status) = %q", got)
	}
}

func TestAuthorizationForwarded(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	var gotAuth string
	rec.handle("GET /api/vtour/settings", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, `{"logo":"logo.png"}`)
	})
	c := newTestClient(t, rec)

	ctx := WithAuthorization(context.Background(), "Bearer abc")
	s, err := c.GetSettings(ctx)
	if err != nil {
		t.Fatalf("GetSettings() error = %v", err)
	}
	if gotAuth != "Bearer abc" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if s.Logo != "logo.png" {
		t.Errorf("Logo = %q", s.Logo)
	}
}

func TestHotspotPrimaryPath(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	var got models.HotspotPayload
	rec.handle("PUT /api/vtour/hotspots/12", func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		writeJSON(w, http.StatusOK, `{"data":{"id":12,"scene_id":5,"type":"info","label":"Updated"}}`)
	})
	c := newTestClient(t, rec)

	rec2, err := c.UpdateHotspot(context.Background(), 5, 12, models.HotspotPayload{Type: models.KindInfo, Label: "Updated"})
	if err != nil {
		t.Fatalf("UpdateHotspot() error = %v", err)
	}
	if rec2.ID != 12 || got.Label != "Updated" {
		t.Errorf("record = %+v, sent = %+v", rec2, got)
	}
	if calls := rec.calls(); len(calls) != 1 {
		t.Errorf("calls = %v, want primary only", calls)
	}
}

func TestHotspotFallbackOn404(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	rec.handle("DELETE /api/vtour/scenes/5/hotspots/12", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	c := newTestClient(t, rec)

	if err := c.DeleteHotspot(context.Background(), 5, 12); err != nil {
		t.Fatalf("DeleteHotspot() error = %v", err)
	}
	want := []string{"DELETE /api/vtour/hotspots/12", "DELETE /api/vtour/scenes/5/hotspots/12"}
	calls := rec.calls()
	if strings.Join(calls, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %v, want %v", calls, want)
	}
}

func TestHotspotNoFallbackOnOtherErrors(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	rec.handle("DELETE /api/vtour/hotspots/12", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusInternalServerError, `{"message":"boom"}`)
	})
	c := newTestClient(t, rec)

	err := c.DeleteHotspot(context.Background(), 5, 12)
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusInternalServerError {
		t.Fatalf("error = %v, want 500 StatusError", err)
	}
	if calls := rec.calls(); len(calls) != 1 {
		t.Errorf("calls = %v, want no fallback", calls)
	}
}

func TestHotspotFallbackBothMissing(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, newRecorder())
	_, err := c.GetHotspot(context.Background(), 5, 12)
	if !IsNotFound(err) {
		t.Errorf("error = %v, want not found", err)
	}
}

func TestUpdateSceneMethodOverride(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	rec.handle("POST /api/vtour/scenes/3", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		if r.PostForm.Get("_method") != "PUT" {
			t.Errorf("_method = %q", r.PostForm.Get("_method"))
		}
		if r.PostForm.Get("default_yaw") != "-45.5" || r.PostForm.Get("name") != "Lobby" {
			t.Errorf("form = %v", r.PostForm)
		}
		if r.PostForm.Has("default_pitch") {
			t.Error("unset field sent")
		}
		writeJSON(w, http.StatusOK, `{"id":3,"name":"Lobby","default_yaw":-45.5}`)
	})
	c := newTestClient(t, rec)

	name, yaw := "Lobby", -45.5
	s, err := c.UpdateScene(context.Background(), 3, models.SceneUpdate{Name: &name, DefaultYaw: &yaw})
	if err != nil {
		t.Fatalf("UpdateScene() error = %v", err)
	}
	if s.DefaultYaw != -45.5 {
		t.Errorf("DefaultYaw = %v", s.DefaultYaw)
	}
}

func TestCreateSceneMultipart(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	rec.handle("POST /api/vtour/scenes", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
			return
		}
		f, hdr, err := r.FormFile("image")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			return
		}
		defer f.Close()
		b, _ := io.ReadAll(f)
		if hdr.Filename != "lobby.jpg" || string(b) != "jpegbytes" || r.FormValue("name") != "Lobby" {
			t.Errorf("upload = %s %q %q", hdr.Filename, b, r.FormValue("name"))
		}
		writeJSON(w, http.StatusCreated, `{"data":{"id":8,"name":"Lobby","image":"scenes/lobby.jpg"}}`)
	})
	c := newTestClient(t, rec)

	s, err := c.CreateScene(context.Background(), "Lobby", "lobby.jpg", strings.NewReader("jpegbytes"))
	if err != nil {
		t.Fatalf("CreateScene() error = %v", err)
	}
	if s.ID != 8 {
		t.Errorf("ID = %d", s.ID)
	}
}

func TestUpdateMenuOrder(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	var got []models.MenuOrder
	rec.handle("POST /api/vtour/menus/update-order", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		writeJSON(w, http.StatusOK, `{"message":"ok"}`)
	})
	c := newTestClient(t, rec)

	order := []models.MenuOrder{{ID: 2, Order: 0}, {ID: 1, Order: 1}}
	if err := c.UpdateMenuOrder(context.Background(), order); err != nil {
		t.Fatalf("UpdateMenuOrder() error = %v", err)
	}
	if len(got) != 2 || got[0].ID != 2 {
		t.Errorf("sent = %+v", got)
	}
}

func TestTourContentRoutes(t *testing.T) {
	t.Parallel()

	ok := func(body string) func(http.ResponseWriter, *http.Request) {
		return func(w http.ResponseWriter, r *http.Request) { writeJSON(w, http.StatusOK, body) }
	}
	menu := models.MenuEntry{Name: "Lobby", SceneID: 1}

	tests := []struct {
		route string
		reply string
		call  func(c *Client) error
	}{
		{"GET /api/vtour/menus", `{"data":[{"id":1,"name":"Lobby","scene_id":1}]}`, func(c *Client) error {
			menus, err := c.ListMenus(context.Background())
			if err == nil && len(menus) != 1 {
				return errors.New("expected one menu entry")
			}
			return err
		}},
		{"POST /api/vtour/menus", `{"data":{"id":3,"name":"Lobby","scene_id":1}}`, func(c *Client) error {
			m, err := c.CreateMenu(context.Background(), menu)
			if err == nil && m.ID != 3 {
				return errors.New("created menu id not decoded")
			}
			return err
		}},
		{"PUT /api/vtour/menus/3", `{"data":{"id":3,"name":"Lobby","scene_id":1}}`, func(c *Client) error {
			_, err := c.UpdateMenu(context.Background(), 3, menu)
			return err
		}},
		{"DELETE /api/vtour/menus/3", `{"message":"deleted"}`, func(c *Client) error {
			return c.DeleteMenu(context.Background(), 3)
		}},
		{"DELETE /api/vtour/scenes/4", `{"message":"deleted"}`, func(c *Client) error {
			return c.DeleteScene(context.Background(), 4)
		}},
		{"POST /api/vtour/settings/logo", `{"data":{"logo":"logos/new.png"}}`, func(c *Client) error {
			s, err := c.UploadLogo(context.Background(), "new.png", strings.NewReader("png"))
			if err == nil && s.Logo != "logos/new.png" {
				return errors.New("logo not decoded")
			}
			return err
		}},
		{"DELETE /api/vtour/settings/logo", `{"message":"deleted"}`, func(c *Client) error {
			return c.DeleteLogo(context.Background())
		}},
	}

	for _, tt := range tests {
		t.Run(tt.route, func(t *testing.T) {
			t.Parallel()
			rec := newRecorder()
			rec.handle(tt.route, ok(tt.reply))
			c := newTestClient(t, rec)

			if err := tt.call(c); err != nil {
				t.Fatalf("call error = %v", err)
			}
			if calls := rec.calls(); len(calls) != 1 || calls[0] != tt.route {
				t.Errorf("calls = %v, want [%s]", calls, tt.route)
			}
		})
	}
}

func TestForwardPassesThrough(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	rec.handle("GET /api/vtour/storage/scenes/a.jpg", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.RawQuery != "w=200" {
			t.Errorf("query = %q", r.URL.RawQuery)
		}
		if r.Header.Get("Accept") != "image/webp" {
			t.Errorf("Accept = %q", r.Header.Get("Accept"))
		}
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = io.WriteString(w, "img")
	})
	c := newTestClient(t, rec)

	in := http.Header{"Accept": {"image/webp"}, "Cookie": {"secret"}}
	resp, err := c.Forward(context.Background(), http.MethodGet, "/storage/scenes/a.jpg", "w=200", ForwardHeaders(in), nil)
	if err != nil {
		t.Fatalf("Forward() error = %v", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if string(b) != "img" || resp.Header.Get("Content-Type") != "image/jpeg" {
		t.Errorf("body = %q, type = %q", b, resp.Header.Get("Content-Type"))
	}
}

func TestForwardInvalidMethod(t *testing.T) {
	t.Parallel()

	rec := newRecorder()
	c := newTestClient(t, rec)

	_, err := c.Forward(context.Background(), "BAD METHOD", "/scenes", "", nil, nil)
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("Forward() error = %v, want ErrInvalidRequest", err)
	}
	if !isSuccessful(err) {
		t.Error("request build failures must not count against the breaker")
	}
}

func TestForwardHeadersDropsUnlisted(t *testing.T) {
	t.Parallel()

	out := ForwardHeaders(http.Header{
		"Authorization": {"Bearer x"},
		"Cookie":        {"a=b"},
		"Content-Type":  {"application/json"},
	})
	if out.Get("Cookie") != "" {
		t.Error("Cookie forwarded")
	}
	if out.Get("Authorization") != "Bearer x" || out.Get("Content-Type") != "application/json" {
		t.Errorf("headers = %v", out)
	}
}

func TestRateLimiterHonoursContext(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{}`)
	}))
	t.Cleanup(srv.Close)
	c := NewClient(&config.BackendConfig{URL: srv.URL, Timeout: time.Second, RequestsPerSecond: 0.001, Burst: 1})

	if _, err := c.GetSettings(context.Background()); err != nil {
		t.Fatalf("first request: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.GetSettings(ctx); err == nil {
		t.Error("second request within burst window succeeded, want limiter error")
	}
}
