// Package media wraps the external tools used to fetch and cut media:
// yt-dlp for resolution and download, ffmpeg/ffprobe for everything else.
package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lrstanley/go-ytdlp"

	"github.com/ramadan8/MediaUtility/pkg/models"
	"github.com/ramadan8/MediaUtility/pkg/utils"
)

// ResolveOptions controls a single yt-dlp invocation.
type ResolveOptions struct {
	Download  bool   // fetch the media into OutputDir, not just its metadata
	Format    string // yt-dlp format selector, e.g. "worstaudio/worst"
	Index     int    // playlist item to pick, 1-based; 0 means 1
	OutputDir string // required when Download is set
}

// YTDLPResolver resolves links through the yt-dlp binary.
type YTDLPResolver struct {
	executable string
}

// NewYTDLPResolver uses executable, or "yt-dlp" from PATH when empty.
func NewYTDLPResolver(executable string) *YTDLPResolver {
	return &YTDLPResolver{executable: executable}
}

func (r *YTDLPResolver) command(opts ResolveOptions) *ytdlp.Command {
	index := opts.Index
	if index <= 0 {
		index = 1
	}

	cmd := ytdlp.New().
		Quiet().
		NoWarnings().
		PlaylistItems(strconv.Itoa(index))
	if opts.Format != "" {
		cmd = cmd.Format(opts.Format)
	}
	if r.executable != "" {
		cmd = cmd.SetExecutable(r.executable)
	}
	return cmd
}

// Resolve returns metadata for link. With opts.Download the media is also
// written to opts.OutputDir and MediaInfo.LocalPath points at it.
func (r *YTDLPResolver) Resolve(ctx context.Context, link string, opts ResolveOptions) (*models.MediaInfo, error) {
	res, err := r.command(opts).DumpSingleJSON().SkipDownload().Run(ctx, link)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("yt-dlp metadata extraction failed: %w%s", err, stderrSuffix(res))
	}

	info, err := ParseInfo([]byte(res.Stdout))
	if err != nil {
		return nil, err
	}
	if !opts.Download {
		return info, nil
	}

	if opts.OutputDir == "" {
		return nil, errors.New("output directory required for download")
	}
	if err := utils.MakeDir(opts.OutputDir); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	base := utils.SafeFilename(info.ID)
	template := filepath.Join(opts.OutputDir, base+".%(ext)s")
	res, err = r.command(opts).Output(template).Run(ctx, link)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("yt-dlp download failed: %w%s", err, stderrSuffix(res))
	}

	path, err := findDownloaded(opts.OutputDir, base)
	if err != nil {
		return nil, err
	}
	info.LocalPath = path
	return info, nil
}

func stderrSuffix(res *ytdlp.Result) string {
	if res == nil || strings.TrimSpace(res.Stderr) == "" {
		return ""
	}
	return "\nstderr: " + strings.TrimSpace(res.Stderr)
}

func findDownloaded(dir, base string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, base+".*"))
	if err != nil {
		return "", err
	}
	for _, m := range matches {
		// skip yt-dlp leftovers
		if strings.HasSuffix(m, ".part") || strings.HasSuffix(m, ".ytdl") {
			continue
		}
		if st, err := os.Stat(m); err == nil && !st.IsDir() {
			return m, nil
		}
	}
	return "", fmt.Errorf("downloaded file not found for %s in %s", base, dir)
}

type rawInfo struct {
	models.MediaInfo
	StartTime *float64  `json:"start_time"`
	Type      string    `json:"_type"`
	Entries   []rawInfo `json:"entries"`
}

// ParseInfo decodes yt-dlp's single-JSON output. For playlists the first
// entry is returned.
func ParseInfo(data []byte) (*models.MediaInfo, error) {
	var raw rawInfo
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse yt-dlp JSON: %w", err)
	}
	if raw.Type == "playlist" || raw.Type == "multi_video" {
		if len(raw.Entries) == 0 {
			return nil, errors.New("playlist has no entries")
		}
		raw = raw.Entries[0]
	}

	info := raw.MediaInfo
	if raw.StartTime != nil {
		secs := int(*raw.StartTime)
		info.StartTime = &secs
	}
	if strings.TrimSpace(info.ID) == "" {
		return nil, errors.New("missing media ID in yt-dlp output")
	}
	if info.ExtractorKey == "" {
		info.ExtractorKey = info.Extractor
	}
	return &info, nil
}
