// Package recognize identifies short audio clips, either through a
// Shazam-compatible HTTP sidecar or against the local fingerprint index.
package recognize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ramadan8/MediaUtility/pkg/models"
)

// maxClipBytes guards against feeding a whole file to the sidecar.
const maxClipBytes = 20 << 20

// HTTPRecognizer posts clips to a recognition sidecar exposing
// POST /recognize (raw audio body) and GET /health.
type HTTPRecognizer struct {
	baseURL string
	client  *http.Client
}

func NewHTTPRecognizer(baseURL string, client *http.Client) *HTTPRecognizer {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPRecognizer{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (r *HTTPRecognizer) Recognize(ctx context.Context, audioPath string) ([]models.Candidate, error) {
	st, err := os.Stat(audioPath)
	if err != nil {
		return nil, err
	}
	if st.Size() > maxClipBytes {
		return nil, fmt.Errorf("clip too large: %d bytes", st.Size())
	}
	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/recognize", bytes.NewReader(audio))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call recognition service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("recognition service returned status %d", resp.StatusCode)
	}
	return ParseShazam(body)
}

// Health reports whether the sidecar answers GET /health with 200.
func (r *HTTPRecognizer) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("recognition service health returned status %d", resp.StatusCode)
	}
	return nil
}

type shazamResponse struct {
	Matches []json.RawMessage `json:"matches"`
	Track   *struct {
		Key      string `json:"key"`
		Title    string `json:"title"`
		Subtitle string `json:"subtitle"`
		URL      string `json:"url"`
		Images   struct {
			CoverArt   string `json:"coverart"`
			CoverArtHQ string `json:"coverarthq"`
		} `json:"images"`
		Genres struct {
			Primary string `json:"primary"`
		} `json:"genres"`
		Sections []struct {
			Metadata []struct {
				Title string `json:"title"`
				Text  string `json:"text"`
			} `json:"metadata"`
		} `json:"sections"`
	} `json:"track"`
}

// ParseShazam converts a Shazam-style response into candidates. No matches,
// or matches without track details, yield an empty slice.
func ParseShazam(body []byte) ([]models.Candidate, error) {
	var res shazamResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(res.Matches) == 0 || res.Track == nil || res.Track.Title == "" {
		return []models.Candidate{}, nil
	}

	t := res.Track
	c := models.Candidate{
		Title:       t.Title,
		Artist:      t.Subtitle,
		CoverArtURL: t.Images.CoverArt,
		Metadata:    map[string]string{},
	}
	if c.CoverArtURL == "" {
		c.CoverArtURL = t.Images.CoverArtHQ
	}
	for _, s := range t.Sections {
		for _, m := range s.Metadata {
			switch strings.ToLower(m.Title) {
			case "album":
				c.Album = m.Text
			case "label":
				c.Metadata["label"] = m.Text
			case "released":
				c.Metadata["released"] = m.Text
			}
		}
	}
	if t.Key != "" {
		c.Metadata["shazam_key"] = t.Key
	}
	if t.URL != "" {
		c.Metadata["url"] = t.URL
	}
	if t.Genres.Primary != "" {
		c.Metadata["genre"] = t.Genres.Primary
	}
	if len(c.Metadata) == 0 {
		c.Metadata = nil
	}
	return []models.Candidate{c}, nil
}
