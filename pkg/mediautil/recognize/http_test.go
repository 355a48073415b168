package recognize

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shazamMatch = `{
	"matches": [{"id": "1", "offset": 12.3}],
	"track": {
		"key": "5933917",
		"title": "X",
		"subtitle": "Y",
		"url": "https://www.shazam.com/track/5933917",
		"images": {"coverart": "https://img.example/cover.jpg"},
		"genres": {"primary": "Electronic"},
		"sections": [{"metadata": [
			{"title": "Album", "text": "Z"},
			{"title": "Label", "text": "L"},
			{"title": "Released", "text": "1999"}
		]}]
	}
}`

func writeClip(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio.ogg")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestParseShazam(t *testing.T) {
	cands, err := ParseShazam([]byte(shazamMatch))
	require.NoError(t, err)
	require.Len(t, cands, 1)

	c := cands[0]
	assert.Equal(t, "X", c.Title)
	assert.Equal(t, "Y", c.Artist)
	assert.Equal(t, "Z", c.Album)
	assert.Equal(t, "https://img.example/cover.jpg", c.CoverArtURL)
	assert.Equal(t, map[string]string{
		"shazam_key": "5933917",
		"url":        "https://www.shazam.com/track/5933917",
		"genre":      "Electronic",
		"label":      "L",
		"released":   "1999",
	}, c.Metadata)
}

func TestParseShazamNoMatch(t *testing.T) {
	for _, body := range []string{
		`{"matches": []}`,
		`{"matches": [], "track": {"title": "stale"}}`,
		`{"matches": [{"id": "1"}]}`,
	} {
		cands, err := ParseShazam([]byte(body))
		require.NoError(t, err, body)
		assert.Empty(t, cands, body)
	}

	_, err := ParseShazam([]byte("<html>"))
	assert.Error(t, err)
}

func TestHTTPRecognizer(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/recognize":
			b, _ := io.ReadAll(r.Body)
			gotBody = string(b)
			assert.Equal(t, "application/octet-stream", r.Header.Get("Content-Type"))
			_, _ = w.Write([]byte(shazamMatch))
		case r.URL.Path == "/health":
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	r := NewHTTPRecognizer(srv.URL+"/", srv.Client())
	cands, err := r.Recognize(context.Background(), writeClip(t, "OggS-clip"))
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, "X", cands[0].Title)
	assert.Equal(t, "OggS-clip", gotBody)

	assert.NoError(t, r.Health(context.Background()))
}

func TestHTTPRecognizerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := NewHTTPRecognizer(srv.URL, srv.Client())
	_, err := r.Recognize(context.Background(), writeClip(t, "x"))
	assert.Error(t, err)
	assert.Error(t, r.Health(context.Background()))

	_, err = r.Recognize(context.Background(), filepath.Join(t.TempDir(), "missing.ogg"))
	assert.Error(t, err)
}
