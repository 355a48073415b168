// Package storage persists the local fingerprint index with gorm, on SQLite
// (pure Go driver) or PostgreSQL.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ramadan8/MediaUtility/pkg/models"
	"github.com/ramadan8/MediaUtility/pkg/utils"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	DefaultSQLitePath = "mediautil.sqlite3"

	// PathEnv overrides the SQLite path used by OpenFromEnv.
	PathEnv = "MEDIAUTIL_INDEX_PATH"

	// lookupChunk keeps IN lists well below driver parameter limits.
	lookupChunk = 500
)

var ErrSongNotFound = errors.New("song not found")

type Song struct {
	ID         string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Title      string `gorm:"uniqueIndex:idx_song_unique,priority:1" json:"title"`
	Artist     string `gorm:"uniqueIndex:idx_song_unique,priority:2" json:"artist"`
	SourceID   string `gorm:"index:idx_source_id" json:"source_id"`
	DurationMs int    `json:"duration_ms"`
	CreatedAt  time.Time
}

type Fingerprint struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	Hash         uint32 `gorm:"index:idx_hash"`
	SongID       string `gorm:"type:varchar(36);index:idx_song"`
	AnchorTimeMs uint32
}

// Index is a gorm-backed fingerprint index.
type Index struct {
	db *gorm.DB
}

// Open connects to driver ("sqlite" or "postgres") at dsn and migrates the
// schema. For SQLite dsn is a file path; its directory is created.
func Open(driver, dsn string) (*Index, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(driver) {
	case "", DriverSQLite:
		if dsn == "" {
			dsn = DefaultSQLitePath
		}
		if dir := filepath.Dir(dsn); dir != "." {
			if err := utils.MakeDir(dir); err != nil {
				return nil, fmt.Errorf("creating db dir: %w", err)
			}
		}
		dialector = sqlite.Open(dsn + "?_pragma=foreign_keys(1)")
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported index driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s index: %w", driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Song{}, &Fingerprint{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &Index{db: db}, nil
}

// OpenFromEnv opens a SQLite index at $MEDIAUTIL_INDEX_PATH or the default.
func OpenFromEnv() (*Index, error) {
	path := os.Getenv(PathEnv)
	if path == "" {
		path = DefaultSQLitePath
	}
	return Open(DriverSQLite, path)
}

func (x *Index) Close() error {
	sqlDB, err := x.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// RegisterSong returns the id of the song with this title and artist,
// creating it when needed. An existing song gains sourceID if it had none.
func (x *Index) RegisterSong(ctx context.Context, title, artist, sourceID string, durationMs int) (string, error) {
	db := x.db.WithContext(ctx)

	var song Song
	err := db.Where("title = ? AND artist = ?", title, artist).First(&song).Error
	if err == nil {
		if song.SourceID == "" && sourceID != "" {
			if err := db.Model(&song).Update("source_id", sourceID).Error; err != nil {
				return "", fmt.Errorf("updating source_id: %w", err)
			}
		}
		return song.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("querying existing song: %w", err)
	}

	song = Song{
		ID:         utils.GenerateUUID(),
		Title:      title,
		Artist:     artist,
		SourceID:   sourceID,
		DurationMs: durationMs,
	}
	if err := db.Create(&song).Error; err != nil {
		// lost a race with a concurrent insert of the same song
		var existing Song
		if fetchErr := db.Where("title = ? AND artist = ?", title, artist).First(&existing).Error; fetchErr == nil {
			return existing.ID, nil
		}
		return "", fmt.Errorf("creating song: %w", err)
	}
	return song.ID, nil
}

func (x *Index) StoreFingerprints(ctx context.Context, fp map[uint32][]models.Couple) error {
	rows := make([]Fingerprint, 0, 1024)
	for hash, couples := range fp {
		for _, c := range couples {
			rows = append(rows, Fingerprint{Hash: hash, SongID: c.SongID, AnchorTimeMs: c.AnchorTimeMs})
		}
	}
	if len(rows) == 0 {
		return nil
	}
	if err := x.db.WithContext(ctx).CreateInBatches(rows, 500).Error; err != nil {
		return fmt.Errorf("batch insert fingerprints: %w", err)
	}
	return nil
}

// CouplesByHashes loads every couple stored under the given hashes.
func (x *Index) CouplesByHashes(ctx context.Context, hashes []uint32) (map[uint32][]models.Couple, error) {
	out := make(map[uint32][]models.Couple)
	db := x.db.WithContext(ctx)
	for start := 0; start < len(hashes); start += lookupChunk {
		end := min(start+lookupChunk, len(hashes))

		var rows []Fingerprint
		if err := db.Where("hash IN ?", hashes[start:end]).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("querying fingerprints: %w", err)
		}
		for _, r := range rows {
			out[r.Hash] = append(out[r.Hash], models.Couple{SongID: r.SongID, AnchorTimeMs: r.AnchorTimeMs})
		}
	}
	return out, nil
}

func (x *Index) FingerprintCount(ctx context.Context, songID string) (int, error) {
	var n int64
	if err := x.db.WithContext(ctx).Model(&Fingerprint{}).Where("song_id = ?", songID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("counting fingerprints: %w", err)
	}
	return int(n), nil
}

func (x *Index) SongByID(ctx context.Context, songID string) (*models.Song, error) {
	var s Song
	err := x.db.WithContext(ctx).Where("id = ?", songID).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrSongNotFound, songID)
	}
	if err != nil {
		return nil, fmt.Errorf("querying song: %w", err)
	}
	return toModel(s), nil
}

func (x *Index) ListSongs(ctx context.Context) ([]models.Song, error) {
	var rows []Song
	if err := x.db.WithContext(ctx).Order("created_at").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing songs: %w", err)
	}
	out := make([]models.Song, 0, len(rows))
	for _, r := range rows {
		out = append(out, *toModel(r))
	}
	return out, nil
}

// DeleteSong removes a song and its fingerprints.
func (x *Index) DeleteSong(ctx context.Context, songID string) error {
	return x.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("song_id = ?", songID).Delete(&Fingerprint{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", songID).Delete(&Song{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", ErrSongNotFound, songID)
		}
		return nil
	})
}

func toModel(s Song) *models.Song {
	return &models.Song{
		ID:         s.ID,
		Title:      s.Title,
		Artist:     s.Artist,
		SourceID:   s.SourceID,
		DurationMs: s.DurationMs,
	}
}
