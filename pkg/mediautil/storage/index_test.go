package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/ramadan8/MediaUtility/pkg/models"
)

func setupTestIndex(t *testing.T) *Index {
	t.Helper()

	idx, err := Open(DriverSQLite, filepath.Join(t.TempDir(), "nested", "index.sqlite3"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestRegisterSongIsIdempotent(t *testing.T) {
	ctx := context.Background()
	idx := setupTestIndex(t)

	id1, err := idx.RegisterSong(ctx, "Sandstorm", "Darude", "", 225000)
	if err != nil {
		t.Fatalf("RegisterSong: %v", err)
	}
	id2, err := idx.RegisterSong(ctx, "Sandstorm", "Darude", "y6120QOlsfU", 225000)
	if err != nil {
		t.Fatalf("RegisterSong again: %v", err)
	}
	if id1 != id2 {
		t.Errorf("expected same id, got %s and %s", id1, id2)
	}

	song, err := idx.SongByID(ctx, id1)
	if err != nil {
		t.Fatalf("SongByID: %v", err)
	}
	if song.SourceID != "y6120QOlsfU" {
		t.Errorf("source id = %q, want it back-filled", song.SourceID)
	}
	if song.DurationMs != 225000 {
		t.Errorf("duration = %d", song.DurationMs)
	}
}

func TestFingerprintRoundTrip(t *testing.T) {
	ctx := context.Background()
	idx := setupTestIndex(t)

	songID, err := idx.RegisterSong(ctx, "X", "Y", "", 1000)
	if err != nil {
		t.Fatal(err)
	}

	fp := map[uint32][]models.Couple{
		1: {{SongID: songID, AnchorTimeMs: 10}, {SongID: songID, AnchorTimeMs: 20}},
		2: {{SongID: songID, AnchorTimeMs: 30}},
	}
	if err := idx.StoreFingerprints(ctx, fp); err != nil {
		t.Fatalf("StoreFingerprints: %v", err)
	}

	got, err := idx.CouplesByHashes(ctx, []uint32{1, 2, 3})
	if err != nil {
		t.Fatalf("CouplesByHashes: %v", err)
	}
	if len(got[1]) != 2 || len(got[2]) != 1 || len(got[3]) != 0 {
		t.Errorf("unexpected buckets: %+v", got)
	}

	n, err := idx.FingerprintCount(ctx, songID)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("count = %d, want 3", n)
	}
}

func TestCouplesByHashesChunks(t *testing.T) {
	ctx := context.Background()
	idx := setupTestIndex(t)

	fp := make(map[uint32][]models.Couple)
	hashes := make([]uint32, 0, 1200)
	for h := uint32(0); h < 1200; h++ {
		fp[h] = []models.Couple{{SongID: "s", AnchorTimeMs: h}}
		hashes = append(hashes, h)
	}
	if err := idx.StoreFingerprints(ctx, fp); err != nil {
		t.Fatal(err)
	}

	got, err := idx.CouplesByHashes(ctx, hashes)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1200 {
		t.Errorf("got %d buckets, want 1200", len(got))
	}
}

func TestDeleteSong(t *testing.T) {
	ctx := context.Background()
	idx := setupTestIndex(t)

	songID, err := idx.RegisterSong(ctx, "X", "Y", "", 1000)
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.StoreFingerprints(ctx, map[uint32][]models.Couple{7: {{SongID: songID, AnchorTimeMs: 1}}}); err != nil {
		t.Fatal(err)
	}

	if err := idx.DeleteSong(ctx, songID); err != nil {
		t.Fatalf("DeleteSong: %v", err)
	}
	if _, err := idx.SongByID(ctx, songID); !errors.Is(err, ErrSongNotFound) {
		t.Errorf("expected ErrSongNotFound, got %v", err)
	}
	if n, _ := idx.FingerprintCount(ctx, songID); n != 0 {
		t.Errorf("fingerprints left behind: %d", n)
	}
	if err := idx.DeleteSong(ctx, songID); !errors.Is(err, ErrSongNotFound) {
		t.Errorf("second delete: expected ErrSongNotFound, got %v", err)
	}
}

func TestListSongs(t *testing.T) {
	ctx := context.Background()
	idx := setupTestIndex(t)

	for _, title := range []string{"a", "b", "c"} {
		if _, err := idx.RegisterSong(ctx, title, "artist", "", 0); err != nil {
			t.Fatal(err)
		}
	}
	songs, err := idx.ListSongs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(songs) != 3 {
		t.Errorf("got %d songs, want 3", len(songs))
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open("mongo", "x"); err == nil {
		t.Error("expected error for unknown driver")
	}
}
