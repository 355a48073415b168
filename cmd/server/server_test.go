package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramadan8/MediaUtility/pkg/logger"
	"github.com/ramadan8/MediaUtility/pkg/mediautil"
	"github.com/ramadan8/MediaUtility/pkg/mediautil/storage"
	"github.com/ramadan8/MediaUtility/pkg/mediautil/worker"
	"github.com/ramadan8/MediaUtility/pkg/models"
)

const songID = "0b9f7c8e-3f4a-4c55-9a43-0d1f2e3a4b5c"

type fakeService struct {
	rec      *mediautil.SongRecord
	err      error
	opts     int
	link     string
	convFile string
}

func (f *fakeService) FindSong(_ context.Context, link string, opts ...mediautil.FindOption) (*mediautil.SongRecord, error) {
	f.link = link
	f.opts = len(opts)
	return f.rec, f.err
}

func (f *fakeService) Convert(_ context.Context, _, format, outputDir string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	path := filepath.Join(outputDir, "clip."+format)
	if err := os.WriteFile(path, []byte("converted"), 0o644); err != nil {
		return "", err
	}
	f.convFile = path
	return path, nil
}

func (f *fakeService) Stats() mediautil.Stats {
	return mediautil.Stats{CacheMode: "connected", PoolSize: 4}
}

type fakeLibrary struct {
	songs   map[string]models.Song
	added   []string
	matches []models.Candidate
}

func newFakeLibrary() *fakeLibrary {
	return &fakeLibrary{songs: map[string]models.Song{
		songID: {ID: songID, Title: "Song", Artist: "Band", DurationMs: 180000},
	}}
}

func (f *fakeLibrary) AddSong(_ context.Context, path, title, artist, _ string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	f.added = append(f.added, string(data))
	return "new-id", nil
}

func (f *fakeLibrary) Recognize(context.Context, string) ([]models.Candidate, error) {
	return f.matches, nil
}

func (f *fakeLibrary) ListSongs(context.Context) ([]models.Song, error) {
	out := make([]models.Song, 0, len(f.songs))
	for _, s := range f.songs {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeLibrary) SongByID(_ context.Context, id string) (*models.Song, error) {
	s, ok := f.songs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrSongNotFound, id)
	}
	return &s, nil
}

func (f *fakeLibrary) DeleteSong(_ context.Context, id string) error {
	if _, ok := f.songs[id]; !ok {
		return fmt.Errorf("%w: %s", storage.ErrSongNotFound, id)
	}
	delete(f.songs, id)
	return nil
}

func newTestServer(t *testing.T, svc *fakeService, lib *fakeLibrary) http.Handler {
	t.Helper()
	s := NewServer(svc, lib, &ServerConfig{
		TempDir:        t.TempDir(),
		AllowedOrigins: []string{"https://app.example"},
	}, logger.Nop())
	return s.setupRoutes()
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRecognizeEndpoint(t *testing.T) {
	svc := &fakeService{rec: &mediautil.SongRecord{Title: "Song", Artist: "Band"}}
	h := newTestServer(t, svc, newFakeLibrary())

	rec := do(t, h, http.MethodPost, "/api/recognize", map[string]any{
		"url":       "https://acme.example/watch/42",
		"timestamp": 30,
		"use_cache": false,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp RecognizeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Found)
	assert.Equal(t, "Song", resp.Song.Title)
	assert.Equal(t, "https://acme.example/watch/42", svc.link)
	assert.Equal(t, 2, svc.opts)
}

func TestRecognizeNoMatch(t *testing.T) {
	h := newTestServer(t, &fakeService{}, newFakeLibrary())

	rec := do(t, h, http.MethodPost, "/api/recognize", map[string]any{"url": "https://acme.example/x"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"found":false,"song":null}`, rec.Body.String())
}

func TestRecognizeRequestValidation(t *testing.T) {
	h := newTestServer(t, &fakeService{}, newFakeLibrary())

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/recognize", map[string]any{}).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/recognize",
		map[string]any{"url": "https://a.example", "duration": 600}).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, h, http.MethodGet, "/api/recognize", nil).Code)
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: bad url", mediautil.ErrInvalidInput), http.StatusBadRequest},
		{fmt.Errorf("%w: ffmpeg", mediautil.ErrExtraction), http.StatusUnprocessableEntity},
		{fmt.Errorf("%w: %w", mediautil.ErrExtraction, worker.ErrPoolSaturated), http.StatusServiceUnavailable},
		{fmt.Errorf("%w: upstream", mediautil.ErrRecognition), http.StatusBadGateway},
		{fmt.Errorf("%w: ffmpeg", mediautil.ErrConversion), http.StatusUnprocessableEntity},
		{fmt.Errorf("%w: %w", mediautil.ErrRecognition, context.DeadlineExceeded), http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		h := newTestServer(t, &fakeService{err: tt.err}, newFakeLibrary())
		rec := do(t, h, http.MethodPost, "/api/recognize", map[string]any{"url": "https://acme.example/x"})
		assert.Equal(t, tt.want, rec.Code, tt.err.Error())
	}
}

func TestConvertEndpoint(t *testing.T) {
	svc := &fakeService{}
	h := newTestServer(t, svc, newFakeLibrary())

	rec := do(t, h, http.MethodPost, "/api/convert", map[string]any{"url": "https://acme.example/x", "format": "mp3"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "converted", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="clip.mp3"`)

	_, err := os.Stat(svc.convFile)
	assert.True(t, os.IsNotExist(err), "output is removed after streaming")

	rec = do(t, h, http.MethodPost, "/api/convert", map[string]any{"url": "https://acme.example/x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSongEndpoints(t *testing.T) {
	lib := newFakeLibrary()
	h := newTestServer(t, &fakeService{}, lib)

	rec := do(t, h, http.MethodGet, "/api/songs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list ListSongsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Count)

	rec = do(t, h, http.MethodGet, "/api/songs/"+songID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var song SongDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &song))
	assert.Equal(t, "Song", song.Title)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/songs/42", nil).Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodDelete, "/api/songs/"+songID, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/songs/"+songID, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodDelete, "/api/songs/"+songID, nil).Code)
}

func TestAddSongUpload(t *testing.T) {
	lib := newFakeLibrary()
	h := newTestServer(t, &fakeService{}, lib)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("title", "New Song"))
	require.NoError(t, mw.WriteField("artist", "New Band"))
	part, err := mw.CreateFormFile("audio", "track.wav")
	require.NoError(t, err)
	_, err = part.Write([]byte("RIFF"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/songs", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, []string{"RIFF"}, lib.added)

	var resp AddSongResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "new-id", resp.ID)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(t, &fakeService{}, newFakeLibrary())

	rec := do(t, h, http.MethodGet, "/api/health/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp MetricsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "connected", resp.Service.CacheMode)
	assert.Equal(t, 1, resp.SongCount)
}

func TestCORS(t *testing.T) {
	h := newTestServer(t, &fakeService{}, newFakeLibrary())

	req := httptest.NewRequest(http.MethodOptions, "/api/recognize", nil)
	req.Header.Set("Origin", "https://app.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestParseOrigins(t *testing.T) {
	assert.Equal(t, []string{"*"}, parseOrigins("*"))
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, parseOrigins("https://a.example, https://b.example"))
	assert.True(t, strings.HasPrefix(getClientIP(&http.Request{RemoteAddr: "10.0.0.1:5555"}), "10.0.0.1"))
}
