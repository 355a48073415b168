package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"

	"github.com/ramadan8/MediaUtility/pkg/mediautil"
	"github.com/ramadan8/MediaUtility/pkg/mediautil/media"
	"github.com/ramadan8/MediaUtility/pkg/utils"
)

func runFind(args []string) error {
	positional, flagArgs := splitArgs(args)
	fset := flag.NewFlagSet("find", flag.ExitOnError)
	timestamp := fset.Int("timestamp", -1, "Start of the scanned window in seconds (default: from the link)")
	duration := fset.Int("duration", 0, "Length of the scanned window in seconds")
	noCache := fset.Bool("no-cache", false, "Skip the result cache")
	fset.Parse(flagArgs)

	if len(positional) != 1 {
		return errors.New("usage: mediautil find <url> [--timestamp N] [--duration N] [--no-cache]")
	}

	var opts []mediautil.FindOption
	if *timestamp >= 0 {
		opts = append(opts, mediautil.WithTimestamp(*timestamp))
	}
	if *duration > 0 {
		opts = append(opts, mediautil.WithDuration(*duration))
	}
	if *noCache {
		opts = append(opts, mediautil.WithoutCache())
	}

	a := openApp()
	defer closeApp(a)

	fmt.Println("Identifying song...")
	rec, err := a.Service.FindSong(context.Background(), positional[0], opts...)
	if err != nil {
		return err
	}
	if rec == nil {
		fmt.Println("No song found")
		return nil
	}

	fmt.Printf("\n\"%s\" by %s\n", rec.Title, rec.Artist)
	if rec.Album != "" {
		fmt.Printf("   Album:      %s\n", rec.Album)
	}
	if rec.Confidence > 0 {
		fmt.Printf("   Confidence: %.1f%%\n", rec.Confidence*100)
	}
	if rec.CoverArtURL != "" {
		fmt.Printf("   Cover art:  %s\n", rec.CoverArtURL)
	}
	for _, k := range slices.Sorted(maps.Keys(rec.Metadata)) {
		fmt.Printf("   %s: %s\n", k, rec.Metadata[k])
	}
	return nil
}

func runConvert(args []string) error {
	positional, flagArgs := splitArgs(args)
	fset := flag.NewFlagSet("convert", flag.ExitOnError)
	format := fset.String("format", "", "Target format: "+strings.Join(media.Formats(), ", "))
	out := fset.String("out", ".", "Output directory")
	fset.Parse(flagArgs)

	if len(positional) != 1 || *format == "" {
		return errors.New("usage: mediautil convert <url> --format <format> [--out <dir>]")
	}

	a := openApp()
	defer closeApp(a)

	bar := progressbar.Default(-1, "Downloading and converting")
	path, err := a.Service.Convert(context.Background(), positional[0], *format, *out)
	bar.Finish()
	if err != nil {
		return err
	}

	size := ""
	if st, err := os.Stat(path); err == nil {
		size = " (" + humanize.Bytes(uint64(st.Size())) + ")"
	}
	fmt.Printf("\nSaved %s%s\n", path, size)
	return nil
}

var audioExts = map[string]bool{
	".mp3": true, ".wav": true, ".flac": true, ".ogg": true, ".opus": true,
	".m4a": true, ".aac": true, ".webm": true, ".mp4": true,
}

// collectAudio returns path itself, or every audio file below it.
func collectAudio(path string) ([]string, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !st.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && audioExts[strings.ToLower(filepath.Ext(p))] {
			files = append(files, p)
		}
		return nil
	})
	return files, err
}

// songTags picks title and artist: explicit flags first, then the file's own
// tags, then the file name.
func songTags(meta *media.Metadata, path, title, artist string) (string, string) {
	if title == "" && meta != nil {
		title = meta.Title
	}
	if artist == "" && meta != nil {
		artist = meta.Artist
	}
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if artist == "" {
		artist = "Unknown"
	}
	return title, artist
}

func runIndex(args []string) error {
	positional, flagArgs := splitArgs(args)
	fset := flag.NewFlagSet("index", flag.ExitOnError)
	title := fset.String("title", "", "Song title (single file only; default: from tags)")
	artist := fset.String("artist", "", "Artist name (single file only; default: from tags)")
	source := fset.String("source", "", "Source identifier, e.g. a video ID")
	fset.Parse(flagArgs)

	if len(positional) != 1 {
		return errors.New("usage: mediautil index <file|dir> [--title T] [--artist A] [--source ID]")
	}
	files, err := collectAudio(positional[0])
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Println("No audio files found")
		return nil
	}
	if len(files) > 1 && (*title != "" || *artist != "") {
		return errors.New("--title and --artist only apply to a single file")
	}

	a := openApp()
	defer closeApp(a)

	var (
		added, failed int
		total         int64
	)
	bar := progressbar.Default(int64(len(files)), "Indexing")
	for _, f := range files {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		meta, err := media.Probe(ctx, a.Config.Media.FFprobe, f)
		if err != nil {
			a.Log.Debugf("No tags for %s: %v", f, err)
		}
		t, ar := songTags(meta, f, *title, *artist)

		id, err := a.Local.AddSong(ctx, f, t, ar, *source)
		cancel()
		if err != nil {
			failed++
			a.Log.Warnf("Failed to index %s: %v", f, err)
		} else {
			added++
			a.Log.Debugf("Indexed %s as %s (%s by %s)", f, id, t, ar)
			if st, err := os.Stat(f); err == nil {
				total += st.Size()
			}
		}
		bar.Add(1)
	}
	bar.Finish()

	fmt.Printf("\nIndexed %d of %d file(s), %s of audio\n", added, len(files), humanize.Bytes(uint64(total)))
	if failed > 0 {
		return fmt.Errorf("%d file(s) failed", failed)
	}
	return nil
}

func runMatch(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: mediautil match <audio_file>")
	}

	a := openApp()
	defer closeApp(a)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	results, err := a.Local.Recognize(ctx, args[0])
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("No matches found in the index")
		return nil
	}

	fmt.Printf("Found %d match(es):\n\n", len(results))
	for i, r := range results[:min(len(results), 10)] {
		fmt.Printf("%d. \"%s\" by %s\n", i+1, r.Title, r.Artist)
		fmt.Printf("   Score: %s | Confidence: %.1f%% | Offset: %sms\n",
			r.Metadata["score"], r.Confidence*100, r.Metadata["offset_ms"])
	}
	if len(results) > 10 {
		fmt.Printf("... and %d more matches\n", len(results)-10)
	}
	return nil
}

func runList(args []string) error {
	a := openApp()
	defer closeApp(a)

	songs, err := a.Index.ListSongs(context.Background())
	if err != nil {
		return err
	}
	if len(songs) == 0 {
		fmt.Println("No songs in the index")
		return nil
	}

	fmt.Printf("%s song(s):\n\n", humanize.Comma(int64(len(songs))))
	for i, song := range songs {
		fmt.Printf("%d. \"%s\" by %s (ID: %s)\n", i+1, song.Title, song.Artist, song.ID)
		if song.SourceID != "" {
			fmt.Printf("   Source:   %s\n", song.SourceID)
		}
		if song.DurationMs > 0 {
			secs := song.DurationMs / 1000
			fmt.Printf("   Duration: %d:%02d\n", secs/60, secs%60)
		}
	}
	return nil
}

func runDelete(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: mediautil delete <song_id>")
	}
	id := args[0]
	if !utils.IsUUID(id) {
		return fmt.Errorf("invalid song ID %q", id)
	}

	a := openApp()
	defer closeApp(a)

	ctx := context.Background()
	song, err := a.Index.SongByID(ctx, id)
	if err != nil {
		return err
	}
	if err := a.Index.DeleteSong(ctx, id); err != nil {
		return err
	}

	fmt.Printf("Deleted \"%s\" by %s (ID: %s)\n", song.Title, song.Artist, song.ID)
	return nil
}
