package main

import (
	"fmt"

	"github.com/ramadan8/MediaUtility/pkg/mediautil"
	"github.com/ramadan8/MediaUtility/pkg/models"
)

// MaxClipDuration caps the requested clip length in seconds.
const MaxClipDuration = 60

// RecognizeRequest is the request body for POST /api/recognize
type RecognizeRequest struct {
	URL       string `json:"url"`
	Timestamp *int   `json:"timestamp,omitempty"`
	Duration  *int   `json:"duration,omitempty"`
	UseCache  *bool  `json:"use_cache,omitempty"`
}

// Validate checks if the request is valid
func (r *RecognizeRequest) Validate() error {
	if r.URL == "" {
		return fmt.Errorf("url is required")
	}
	if r.Timestamp != nil && *r.Timestamp < 0 {
		return fmt.Errorf("timestamp cannot be negative")
	}
	if r.Duration != nil && (*r.Duration <= 0 || *r.Duration > MaxClipDuration) {
		return fmt.Errorf("duration must be between 1 and %d seconds", MaxClipDuration)
	}
	return nil
}

// Options maps the request onto lookup options.
func (r *RecognizeRequest) Options() []mediautil.FindOption {
	var opts []mediautil.FindOption
	if r.Timestamp != nil {
		opts = append(opts, mediautil.WithTimestamp(*r.Timestamp))
	}
	if r.Duration != nil {
		opts = append(opts, mediautil.WithDuration(*r.Duration))
	}
	if r.UseCache != nil && !*r.UseCache {
		opts = append(opts, mediautil.WithoutCache())
	}
	return opts
}

// RecognizeResponse is the response for POST /api/recognize. Song is null
// when nothing was identified.
type RecognizeResponse struct {
	Found bool                  `json:"found"`
	Song  *mediautil.SongRecord `json:"song"`
}

// ConvertRequest is the request body for POST /api/convert
type ConvertRequest struct {
	URL    string `json:"url"`
	Format string `json:"format"`
}

func (r *ConvertRequest) Validate() error {
	if r.URL == "" {
		return fmt.Errorf("url is required")
	}
	if r.Format == "" {
		return fmt.Errorf("format is required")
	}
	return nil
}

// MatchResponse is the response for POST /api/match
type MatchResponse struct {
	Matches []mediautil.Candidate `json:"matches"`
	Count   int                   `json:"count"`
}

// AddSongResponse is the response for successful song addition
type AddSongResponse struct {
	Message  string `json:"message"`
	ID       string `json:"id"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	SourceID string `json:"source_id,omitempty"`
}

// SongDTO represents a song in API responses
type SongDTO struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	SourceID   string `json:"source_id,omitempty"`
	DurationMs int    `json:"duration_ms"`
}

func toSongDTO(s models.Song) SongDTO {
	return SongDTO{
		ID:         s.ID,
		Title:      s.Title,
		Artist:     s.Artist,
		SourceID:   s.SourceID,
		DurationMs: s.DurationMs,
	}
}

// ListSongsResponse is the response for GET /api/songs
type ListSongsResponse struct {
	Songs []SongDTO `json:"songs"`
	Count int       `json:"count"`
}

// DeleteSongResponse is the response for DELETE /api/songs/{id}
type DeleteSongResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// MetricsResponse reports cache connectivity, worker pool usage and the size
// of the local index.
type MetricsResponse struct {
	Status    string          `json:"status"`
	Service   mediautil.Stats `json:"service"`
	SongCount int             `json:"song_count"`
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}
