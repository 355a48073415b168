package recognize

import (
	"context"
	"fmt"
	"os"

	"github.com/ramadan8/MediaUtility/pkg/logger"
	"github.com/ramadan8/MediaUtility/pkg/mediautil/audio"
	"github.com/ramadan8/MediaUtility/pkg/mediautil/fingerprint"
	"github.com/ramadan8/MediaUtility/pkg/models"
)

// Index is the storage the local recognizer reads and writes.
type Index interface {
	RegisterSong(ctx context.Context, title, artist, sourceID string, durationMs int) (string, error)
	StoreFingerprints(ctx context.Context, fp map[uint32][]models.Couple) error
	CouplesByHashes(ctx context.Context, hashes []uint32) (map[uint32][]models.Couple, error)
	FingerprintCount(ctx context.Context, songID string) (int, error)
	SongByID(ctx context.Context, songID string) (*models.Song, error)
	DeleteSong(ctx context.Context, songID string) error
}

// WAVConverter produces a mono PCM WAV from any input ffmpeg understands.
type WAVConverter interface {
	ConvertToMonoWAV(ctx context.Context, input, outputDir string, sampleRate int) (string, error)
}

type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
}

// Local recognizes clips against songs previously added to an Index.
type Local struct {
	index      Index
	converter  WAVConverter
	log        Logger
	tempDir    string
	sampleRate int
	minCount   int
	params     fingerprint.Params
}

type LocalOption func(*Local)

func WithTempDir(dir string) LocalOption {
	return func(l *Local) { l.tempDir = dir }
}

func WithSampleRate(rate int) LocalOption {
	return func(l *Local) {
		if rate > 0 {
			l.sampleRate = rate
		}
	}
}

// WithMinCount drops matches with fewer aligned hashes than n.
func WithMinCount(n int) LocalOption {
	return func(l *Local) { l.minCount = n }
}

func WithLocalLogger(log Logger) LocalOption {
	return func(l *Local) {
		if log != nil {
			l.log = log
		}
	}
}

func NewLocal(index Index, converter WAVConverter, opts ...LocalOption) *Local {
	l := &Local{
		index:      index,
		converter:  converter,
		log:        logger.GetLogger(),
		tempDir:    os.TempDir(),
		sampleRate: 11025,
		minCount:   5,
		params:     fingerprint.DefaultParams,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Local) analyze(ctx context.Context, audioPath string) ([]fingerprint.Hash, float64, error) {
	workDir, err := os.MkdirTemp(l.tempDir, "fingerprint-*")
	if err != nil {
		return nil, 0, err
	}
	defer os.RemoveAll(workDir)

	// 1. Convert to mono WAV
	wavPath, err := l.converter.ConvertToMonoWAV(ctx, audioPath, workDir, l.sampleRate)
	if err != nil {
		return nil, 0, fmt.Errorf("audio conversion failed: %w", err)
	}

	// 2. Read samples
	samples, sampleRate, err := audio.ReadMono(wavPath)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read WAV file: %w", err)
	}

	// 3. Spectrogram, peaks, hashes
	peaks, hashes, err := fingerprint.Analyze(samples, sampleRate, l.params)
	if err != nil {
		return nil, 0, fmt.Errorf("fingerprinting failed: %w", err)
	}
	l.log.Debugf("extracted %d peaks, %d hashes from %s", len(peaks), len(hashes), audioPath)

	return hashes, audio.Duration(samples, sampleRate), nil
}

// AddSong fingerprints audioPath and stores it under title/artist.
func (l *Local) AddSong(ctx context.Context, audioPath, title, artist, sourceID string) (string, error) {
	l.log.Infof("Processing song: %s by %s", title, artist)

	hashes, duration, err := l.analyze(ctx, audioPath)
	if err != nil {
		return "", err
	}

	songID, err := l.index.RegisterSong(ctx, title, artist, sourceID, int(duration*1000))
	if err != nil {
		return "", fmt.Errorf("failed to register song: %w", err)
	}

	if err := l.index.StoreFingerprints(ctx, fingerprint.Couples(hashes, songID)); err != nil {
		if delErr := l.index.DeleteSong(ctx, songID); delErr != nil {
			l.log.Warnf("rollback of song %s failed: %v", songID, delErr)
		}
		return "", fmt.Errorf("failed to store fingerprints: %w", err)
	}

	l.log.Infof("Successfully added song ID=%s (%d hashes)", songID, len(hashes))
	return songID, nil
}

// Recognize returns indexed songs matching the clip, best first.
func (l *Local) Recognize(ctx context.Context, audioPath string) ([]models.Candidate, error) {
	hashes, _, err := l.analyze(ctx, audioPath)
	if err != nil {
		return nil, err
	}

	buckets, err := l.index.CouplesByHashes(ctx, fingerprint.Addresses(hashes))
	if err != nil {
		return nil, err
	}

	matches := fingerprint.Vote(hashes, buckets)
	candidates := make([]models.Candidate, 0, len(matches))
	for _, m := range matches {
		if m.Count < l.minCount {
			break
		}
		song, err := l.index.SongByID(ctx, m.SongID)
		if err != nil {
			l.log.Warnf("Failed to get song %s: %v", m.SongID, err)
			continue
		}

		indexed, err := l.index.FingerprintCount(ctx, m.SongID)
		if err != nil {
			l.log.Warnf("Failed to get fingerprint count for song %s: %v", m.SongID, err)
			indexed = len(hashes)
		}

		md := map[string]string{
			"song_id":   song.ID,
			"offset_ms": fmt.Sprint(m.OffsetMs),
			"score":     fmt.Sprint(m.Count),
		}
		if song.SourceID != "" {
			md["source_id"] = song.SourceID
		}
		candidates = append(candidates, models.Candidate{
			Title:      song.Title,
			Artist:     song.Artist,
			Confidence: fingerprint.Confidence(m.Count, len(hashes), indexed),
			Metadata:   md,
		})
	}
	return candidates, nil
}
