package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Metadata is what ffprobe reports about a local media file.
type Metadata struct {
	Filename    string
	Title       string
	Artist      string
	Album       string
	DurationSec float64
	SampleRate  int
	Channels    int
	BitDepth    int
	Format      string
	HasVideo    bool
}

type ffprobeOutput struct {
	Format struct {
		Filename string            `json:"filename"`
		Duration string            `json:"duration"`
		Format   string            `json:"format_name"`
		Tags     map[string]string `json:"tags"`
	} `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeStream struct {
	CodecType     string `json:"codec_type"`
	SampleRate    string `json:"sample_rate"`
	Channels      int    `json:"channels"`
	BitsPerSample int    `json:"bits_per_sample"`
}

// Probe runs ffprobe against path.
func Probe(ctx context.Context, binary, path string) (*Metadata, error) {
	if binary == "" {
		binary = "ffprobe"
	}
	cmd := exec.CommandContext(
		ctx,
		binary,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}
	meta, err := ParseProbe(out)
	if err != nil {
		return nil, err
	}
	meta.Filename = filepath.Base(path)
	return meta, nil
}

// ParseProbe decodes ffprobe's JSON output.
func ParseProbe(data []byte) (*Metadata, error) {
	var probe ffprobeOutput
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, err
	}

	meta := &Metadata{Format: probe.Format.Format}
	meta.DurationSec, _ = strconv.ParseFloat(probe.Format.Duration, 64)

	var audio *ffprobeStream
	for i := range probe.Streams {
		switch probe.Streams[i].CodecType {
		case "audio":
			if audio == nil {
				audio = &probe.Streams[i]
			}
		case "video":
			meta.HasVideo = true
		}
	}
	if audio == nil {
		return nil, errors.New("no audio stream found")
	}
	meta.SampleRate, _ = strconv.Atoi(audio.SampleRate)
	meta.Channels = audio.Channels
	meta.BitDepth = audio.BitsPerSample

	// tag case differs between containers (TITLE in flac, title in mp3)
	for k, v := range probe.Format.Tags {
		switch strings.ToLower(k) {
		case "title":
			meta.Title = v
		case "artist":
			meta.Artist = v
		case "album":
			meta.Album = v
		}
	}
	return meta, nil
}
