package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ramadan8/MediaUtility/pkg/logger"
	"github.com/ramadan8/MediaUtility/pkg/mediautil"
	"github.com/ramadan8/MediaUtility/pkg/mediautil/storage"
	"github.com/ramadan8/MediaUtility/pkg/mediautil/worker"
	"github.com/ramadan8/MediaUtility/pkg/models"
	"github.com/ramadan8/MediaUtility/pkg/utils"
)

// LookupService is the part of *mediautil.Service the server uses.
type LookupService interface {
	FindSong(ctx context.Context, link string, opts ...mediautil.FindOption) (*mediautil.SongRecord, error)
	Convert(ctx context.Context, link, format, outputDir string) (string, error)
	Stats() mediautil.Stats
}

// SongLibrary manages and queries the local fingerprint index.
type SongLibrary interface {
	AddSong(ctx context.Context, audioPath, title, artist, sourceID string) (string, error)
	Recognize(ctx context.Context, audioPath string) ([]models.Candidate, error)
	ListSongs(ctx context.Context) ([]models.Song, error)
	SongByID(ctx context.Context, songID string) (*models.Song, error)
	DeleteSong(ctx context.Context, songID string) error
}

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	service LookupService
	library SongLibrary
	config  *ServerConfig
	log     *logger.Logger
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	TempDir        string
	AllowedOrigins []string
}

func NewServer(service LookupService, library SongLibrary, config *ServerConfig, log *logger.Logger) *Server {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Server{
		service: service,
		library: library,
		config:  config,
		log:     log,
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// statusFor maps lookup and conversion failures onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, mediautil.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, worker.ErrPoolSaturated), errors.Is(err, worker.ErrPoolClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, mediautil.ErrRecognition):
		return http.StatusBadGateway
	case errors.Is(err, mediautil.ErrExtraction),
		errors.Is(err, mediautil.ErrConversion),
		errors.Is(err, mediautil.ErrResolution):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"service": "MediaUtility API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"health":     "GET /health",
			"metrics":    "GET /api/health/metrics",
			"recognize":  "POST /api/recognize",
			"convert":    "POST /api/convert",
			"match":      "POST /api/match",
			"songs":      "GET /api/songs",
			"addSong":    "POST /api/songs",
			"getSong":    "GET /api/songs/{id}",
			"deleteSong": "DELETE /api/songs/{id}",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	songs, err := s.library.ListSongs(r.Context())
	if err != nil {
		s.log.Errorf("Failed to get song count: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve metrics")
		return
	}

	s.respondJSON(w, http.StatusOK, MetricsResponse{
		Status:    "healthy",
		Service:   s.service.Stats(),
		SongCount: len(songs),
	})
}

// handleRecognize handles POST /api/recognize
func (s *Server) handleRecognize(w http.ResponseWriter, r *http.Request) {
	var req RecognizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := s.service.FindSong(r.Context(), req.URL, req.Options()...)
	if err != nil {
		code := statusFor(err)
		s.log.Errorf("Recognition of %s failed (%d): %v", req.URL, code, err)
		s.respondError(w, code, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, RecognizeResponse{Found: rec != nil, Song: rec})
}

// handleConvert handles POST /api/convert and streams the converted file.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	var req ConvertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	outDir, err := os.MkdirTemp(s.config.TempDir, "convert-out-*")
	if err != nil {
		s.log.Errorf("Failed to create output dir: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to prepare conversion")
		return
	}
	defer os.RemoveAll(outDir)

	path, err := s.service.Convert(r.Context(), req.URL, req.Format, outDir)
	if err != nil {
		code := statusFor(err)
		s.log.Errorf("Conversion of %s failed (%d): %v", req.URL, code, err)
		s.respondError(w, code, err.Error())
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	http.ServeFile(w, r, path)
}

// saveUpload copies the multipart "audio" field into the temp dir.
func (s *Server) saveUpload(r *http.Request, prefix string) (string, string, error) {
	file, header, err := r.FormFile("audio")
	if err != nil {
		return "", "", fmt.Errorf("audio file is required")
	}
	defer file.Close()

	tempFile := filepath.Join(s.config.TempDir, fmt.Sprintf("%s_%s_%s", prefix, utils.GenerateUUID(), utils.SafeFilename(header.Filename)))
	out, err := os.Create(tempFile)
	if err != nil {
		return "", "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		os.Remove(tempFile)
		return "", "", err
	}
	return tempFile, header.Filename, nil
}

// handleMatchFile handles POST /api/match (multipart file upload)
func (s *Server) handleMatchFile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	if err := r.ParseMultipartForm(50 << 20); err != nil {
		s.respondError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	tempFile, name, err := s.saveUpload(r, "query")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer os.Remove(tempFile)

	s.log.Infof("Matching uploaded file: %s", name)
	matches, err := s.library.Recognize(ctx, tempFile)
	if err != nil {
		s.log.Errorf("Failed to match song: %v", err)
		s.respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to match song: %v", err))
		return
	}
	if matches == nil {
		matches = []models.Candidate{}
	}

	s.respondJSON(w, http.StatusOK, MatchResponse{Matches: matches, Count: len(matches)})
}

func (s *Server) handleListSongs(w http.ResponseWriter, r *http.Request) {
	songs, err := s.library.ListSongs(r.Context())
	if err != nil {
		s.log.Errorf("Failed to list songs: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve songs")
		return
	}

	dtos := make([]SongDTO, len(songs))
	for i, song := range songs {
		dtos[i] = toSongDTO(song)
	}
	s.respondJSON(w, http.StatusOK, ListSongsResponse{Songs: dtos, Count: len(dtos)})
}

// handleAddSong handles POST /api/songs (multipart file upload)
func (s *Server) handleAddSong(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	if err := r.ParseMultipartForm(100 << 20); err != nil {
		s.respondError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	artist := strings.TrimSpace(r.FormValue("artist"))
	sourceID := r.FormValue("source_id")
	if title == "" || artist == "" {
		s.respondError(w, http.StatusBadRequest, "title and artist are required")
		return
	}

	tempFile, _, err := s.saveUpload(r, "upload")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer os.Remove(tempFile)

	songID, err := s.library.AddSong(ctx, tempFile, title, artist, sourceID)
	if err != nil {
		s.log.Errorf("Failed to add song: %v", err)
		s.respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to add song: %v", err))
		return
	}

	s.log.Infof("Added song: %s by %s (ID: %s)", title, artist, songID)
	s.respondJSON(w, http.StatusCreated, AddSongResponse{
		Message:  "Song added successfully",
		ID:       songID,
		Title:    title,
		Artist:   artist,
		SourceID: sourceID,
	})
}

func (s *Server) handleGetSong(w http.ResponseWriter, r *http.Request, songID string) {
	song, err := s.library.SongByID(r.Context(), songID)
	if err != nil {
		s.respondSongError(w, songID, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toSongDTO(*song))
}

func (s *Server) handleDeleteSong(w http.ResponseWriter, r *http.Request, songID string) {
	if err := s.library.DeleteSong(r.Context(), songID); err != nil {
		s.respondSongError(w, songID, err)
		return
	}

	s.log.Infof("Deleted song %s", songID)
	s.respondJSON(w, http.StatusOK, DeleteSongResponse{
		Message: "Song deleted successfully",
		ID:      songID,
	})
}

func (s *Server) respondSongError(w http.ResponseWriter, songID string, err error) {
	if errors.Is(err, storage.ErrSongNotFound) {
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("Song with ID %s not found", songID))
		return
	}
	s.log.Errorf("Song %s: %v", songID, err)
	s.respondError(w, http.StatusInternalServerError, "Failed to access song")
}

// handleSongs routes requests to /api/songs
func (s *Server) handleSongs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListSongs(w, r)
	case http.MethodPost:
		s.handleAddSong(w, r)
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleSong routes requests to /api/songs/{id}
func (s *Server) handleSong(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/songs/")
	if id == "" {
		s.respondError(w, http.StatusBadRequest, "Song ID required")
		return
	}
	if !utils.IsUUID(id) {
		s.respondError(w, http.StatusBadRequest, "Invalid song ID")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGetSong(w, r, id)
	case http.MethodDelete:
		s.handleDeleteSong(w, r, id)
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// postOnly rejects anything but POST.
func (s *Server) postOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		h(w, r)
	}
}
