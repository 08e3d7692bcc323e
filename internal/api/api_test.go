/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"cvcanvas/internal/config"
	"cvcanvas/internal/document"
	"cvcanvas/internal/editor"
	"cvcanvas/internal/element"
	"cvcanvas/internal/storage"
)

const headingDoc = `{"elements":[{"id":"h1","type":"heading","attrs":{"x":50,"y":40,"text":"Nguyễn Văn A"}}]}`

func newTestServer(t *testing.T) (*Server, *storage.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	st, err := storage.OpenSQLite(ctx, filepath.Join(t.TempDir(), "cv.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return New(st, config.Defaults().Canvas, WithRescueDir(t.TempDir())), st
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestCVLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Router()

	w := do(t, h, http.MethodPost, "/api/cvs", `{"title":"Backend CV","content":`+headingDoc+`}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[cvView](t, w)
	require.NotEmpty(t, created.ID)
	require.True(t, created.IsCanvasEditor)
	require.Equal(t, "Template Modern Complete", created.TemplateName)

	w = do(t, h, http.MethodGet, "/api/cvs", "")
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		CVs   []cvView `json:"cvs"`
		Count int      `json:"count"`
	}](t, w)
	require.Equal(t, 1, list.Count)
	require.Empty(t, list.CVs[0].Content)

	w = do(t, h, http.MethodGet, "/api/cvs/"+created.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[cvView](t, w)
	require.Equal(t, 1, got.Views)
	doc, err := got.Document()
	require.NoError(t, err)
	require.Len(t, doc.Elements, 1)
	require.Equal(t, "h1", doc.Elements[0].ID)

	w = do(t, h, http.MethodPatch, "/api/cvs/"+created.ID, `{"title":"Frontend CV"}`)
	require.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, h, http.MethodPatch, "/api/cvs/"+created.ID, `{}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodGet, "/api/cvs/"+created.ID+"/export/svg", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "image/svg+xml", w.Header().Get("Content-Type"))
	require.Contains(t, w.Header().Get("Content-Disposition"), "cv-"+created.ID+".svg")
	require.Contains(t, w.Body.String(), "Nguyễn Văn A")
	require.Contains(t, w.Body.String(), "<title>Frontend CV</title>")

	w = do(t, h, http.MethodGet, "/api/cvs/"+created.ID+"/export/pdf", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))

	w = do(t, h, http.MethodGet, "/api/cvs/"+created.ID, "")
	got = decode[cvView](t, w)
	require.Equal(t, "Frontend CV", got.Title)
	require.Equal(t, 2, got.Views)
	require.Equal(t, 2, got.Downloads)

	w = do(t, h, http.MethodDelete, "/api/cvs/"+created.ID, "")
	require.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, h, http.MethodGet, "/api/cvs/"+created.ID, "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestSaveCanvasAcceptsStageTree(t *testing.T) {
	srv, st := newTestServer(t)
	h := srv.Router()
	cv, err := st.Create(context.Background(), storage.CV{Title: "x"})
	require.NoError(t, err)

	s := editor.New(config.Defaults().Canvas)
	_, err = s.Create(element.Heading)
	require.NoError(t, err)
	_, err = s.Create(element.Avatar)
	require.NoError(t, err)
	tree, err := json.Marshal(s.Stage().ToJSON())
	require.NoError(t, err)

	w := do(t, h, http.MethodPut, "/api/cvs/"+cv.ID+"/canvas", string(tree))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	rep := decode[map[string]any](t, w)
	require.Equal(t, "stage", rep["format"])
	require.EqualValues(t, 2, rep["loaded"])

	w = do(t, h, http.MethodGet, "/api/cvs/"+cv.ID+"/canvas", "")
	require.Equal(t, http.StatusOK, w.Code)
	doc := decode[document.Document](t, w)
	require.Len(t, doc.Elements, 2)
	require.Equal(t, "heading", doc.Elements[0].Type)
	require.Equal(t, "avatar", doc.Elements[1].Type)

	stored, err := st.Get(context.Background(), cv.ID)
	require.NoError(t, err)
	require.True(t, stored.IsCanvasEditor)
}

func TestBadRequests(t *testing.T) {
	srv, st := newTestServer(t)
	h := srv.Router()
	cv, err := st.Create(context.Background(), storage.CV{})
	require.NoError(t, err)

	require.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPut, "/api/cvs/"+cv.ID+"/canvas", `{"foo":1}`).Code)
	require.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPut, "/api/cvs/"+cv.ID+"/canvas", `not json`).Code)
	require.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPut, "/api/cvs/"+cv.ID+"/canvas", ``).Code)
	require.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/cvs/"+cv.ID+"/export/docx", "").Code)
	require.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/cvs/missing/export/png", "").Code)
	require.Equal(t, http.StatusNotFound, do(t, h, http.MethodPut, "/api/cvs/missing/canvas", headingDoc).Code)
	require.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/cvs", `{"content":{"foo":1}}`).Code)

	w := do(t, h, http.MethodGet, "/api/templates", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "creative")
}

type wsClient struct {
	t    *testing.T
	conn *websocket.Conn
}

func dialLive(t *testing.T, ts *httptest.Server, id string) *wsClient {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/cvs/" + id + "/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &wsClient{t: t, conn: conn}
}

func (c *wsClient) send(cmd Command) {
	c.t.Helper()
	require.NoError(c.t, c.conn.WriteJSON(cmd))
}

// until reads messages until one with the given event arrives.
func (c *wsClient) until(event string) map[string]any {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var m struct {
			Event string         `json:"event"`
			Data  map[string]any `json:"data"`
		}
		require.NoError(c.t, c.conn.ReadJSON(&m))
		if m.Event == event {
			return m.Data
		}
	}
}

func raw(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

func TestLiveSession(t *testing.T) {
	srv, st := newTestServer(t)
	cv, err := st.Create(context.Background(), storage.CV{Title: "Live", Content: json.RawMessage(headingDoc)})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	c := dialLive(t, ts, cv.ID)
	ready := c.until("ready")
	require.EqualValues(t, 1, ready["count"])
	require.Equal(t, "100%", ready["zoom"])

	c.send(Command{Op: "create", Type: "rating", At: &Point{X: 100, Y: 300}})
	// the new element is selected before the create is acknowledged
	form := c.until("panel")
	created := c.until("created")
	require.Equal(t, "rating", created["type"])
	require.Equal(t, created["id"], form["elementId"])

	c.send(Command{Op: "update", Name: "ratingValue", Value: raw(2)})
	c.send(Command{Op: "zoom-in"})
	require.Equal(t, "110%", c.until("zoom")["label"])

	c.send(Command{Op: "select", ID: "h1"})
	require.Contains(t, c.until("info")["text"], "heading - X: 50, Y: 40")
	c.send(Command{Op: "key", Key: "ArrowRight", Shift: true})
	c.until("position")

	c.send(Command{Op: "document"})
	doc := c.until("document")
	els := doc["elements"].([]any)
	require.Len(t, els, 2)
	heading := els[0].(map[string]any)["attrs"].(map[string]any)
	// shift nudge is 10 canvas units at 110% zoom, divided by the zoom
	require.InDelta(t, 50+10/1.1, heading["x"], 1e-9)
	rating := els[1].(map[string]any)["properties"].(map[string]any)
	require.EqualValues(t, 2, rating["ratingValue"])

	c.send(Command{Op: "bogus"})
	require.Contains(t, c.until("error")["error"], "unknown live command")

	c.send(Command{Op: "save"})
	require.EqualValues(t, 2, c.until("saved")["elements"])

	stored, err := st.Get(context.Background(), cv.ID)
	require.NoError(t, err)
	sdoc, err := stored.Document()
	require.NoError(t, err)
	require.Len(t, sdoc.Elements, 2)
	require.Equal(t, "rating", sdoc.Elements[1].Type)
}

func TestLiveNudgeReadoutHidesWhileIdle(t *testing.T) {
	srv, st := newTestServer(t)
	cv, err := st.Create(context.Background(), storage.CV{Content: json.RawMessage(headingDoc)})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	c := dialLive(t, ts, cv.ID)
	c.until("ready")
	c.send(Command{Op: "select", ID: "h1"})
	c.send(Command{Op: "key", Key: "ArrowDown", Shift: true})
	c.until("position")
	// no further commands: the readout must still be withdrawn
	start := time.Now()
	c.until("position-hidden")
	require.GreaterOrEqual(t, time.Since(start), 500*time.Millisecond)
}

func TestLiveTextEdit(t *testing.T) {
	srv, st := newTestServer(t)
	cv, err := st.Create(context.Background(), storage.CV{Content: json.RawMessage(headingDoc)})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	c := dialLive(t, ts, cv.ID)
	c.until("ready")
	c.send(Command{Op: "edit-text", Value: raw("x")})
	require.Contains(t, c.until("error")["error"], "no text edit open")

	c.send(Command{Op: "dblclick", At: &Point{X: 55, Y: 45}})
	edit := c.until("edit")
	require.Equal(t, "h1", edit["id"])
	require.Equal(t, "Nguyễn Văn A", edit["value"])

	c.send(Command{Op: "edit-text", Value: raw("Trần Thị B")})
	c.send(Command{Op: "document"})
	doc := c.until("document")
	attrs := doc["elements"].([]any)[0].(map[string]any)["attrs"].(map[string]any)
	require.Equal(t, "Trần Thị B", attrs["text"])
}

func TestLiveUnknownCV(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/cvs/nope/live"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCORSAllowsConfiguredOrigins(t *testing.T) {
	gin.SetMode(gin.TestMode)
	st, err := storage.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "cv.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	h := New(st, config.Defaults().Canvas, WithAllowOrigins("http://localhost:3000")).Router()

	r := httptest.NewRequest(http.MethodOptions, "/api/cvs", nil)
	r.Header.Set("Origin", "http://localhost:3000")
	r.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	require.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	r = httptest.NewRequest(http.MethodGet, "/api/cvs", nil)
	r.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	require.Equal(t, http.StatusForbidden, w.Code)
}
