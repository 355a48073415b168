package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ramadan8/MediaUtility/pkg/utils"
)

// FFmpeg runs ffmpeg for clip extraction and format conversion.
type FFmpeg struct {
	Binary string // defaults to "ffmpeg"
}

func (f FFmpeg) binary() string {
	if f.Binary == "" {
		return "ffmpeg"
	}
	return f.Binary
}

func (f FFmpeg) run(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, f.binary(), args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffmpeg failed: %v (%s)", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// ClipName is the file ExtractWindow writes inside the output directory.
const ClipName = "audio.ogg"

// WindowArgs builds the ffmpeg arguments that cut
// [startSec, startSec+durationSec) of source's audio into output.
func WindowArgs(source string, startSec, durationSec int, output string) []string {
	return []string{
		"-y",
		"-v", "error",
		"-ss", strconv.Itoa(startSec),
		"-t", strconv.Itoa(durationSec),
		"-i", source,
		"-vn",
		output,
	}
}

// ExtractWindow writes durationSec seconds of audio starting at startSec to
// outputDir and returns the file path. source may be a URL or a local path.
func (f FFmpeg) ExtractWindow(ctx context.Context, source string, startSec, durationSec int, outputDir string) (string, error) {
	if durationSec <= 0 {
		return "", fmt.Errorf("invalid clip duration %d", durationSec)
	}
	if err := utils.MakeDir(outputDir); err != nil {
		return "", err
	}

	out := filepath.Join(outputDir, ClipName)
	if err := f.run(ctx, WindowArgs(source, max(startSec, 0), durationSec, out)...); err != nil {
		return "", err
	}

	st, err := os.Stat(out)
	if err != nil {
		return "", fmt.Errorf("clip not written: %w", err)
	}
	if st.Size() == 0 {
		return "", errors.New("clip is empty, source may be shorter than the requested window")
	}
	return out, nil
}

var ErrUnsupportedFormat = errors.New("unsupported output format")

// formatArgs holds the per-format encoder flags. Anything not listed here
// is left to ffmpeg's defaults for the output extension.
var formatArgs = map[string][]string{
	"mp3":  {"-vn"},
	"flac": {"-vn"},
	"mp4":  {"-pix_fmt", "yuv420p", "-movflags", "+faststart"},
	"webm": nil,
	"gif":  {"-an", "-vf", "fps=12,scale=480:-1:flags=lanczos", "-loop", "0"},
}

// Formats lists the accepted conversion targets.
func Formats() []string {
	return []string{"mp3", "flac", "mp4", "webm", "gif"}
}

// ConvertArgs builds the ffmpeg arguments converting input to output in
// format.
func ConvertArgs(input, output, format string) ([]string, error) {
	extra, ok := formatArgs[strings.ToLower(format)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	args := []string{"-y", "-v", "error", "-i", input}
	args = append(args, extra...)
	return append(args, output), nil
}

// Convert transcodes input into outputDir/<name>.<format>.
func (f FFmpeg) Convert(ctx context.Context, input, outputDir, name, format string) (string, error) {
	format = strings.ToLower(format)
	out := filepath.Join(outputDir, name+"."+format)
	args, err := ConvertArgs(input, out, format)
	if err != nil {
		return "", err
	}
	if err := utils.MakeDir(outputDir); err != nil {
		return "", err
	}
	if err := f.run(ctx, args...); err != nil {
		return "", err
	}
	return out, nil
}

// ConvertToMonoWAV resamples input to 16-bit mono PCM at sampleRate and
// returns the new file's path inside outputDir.
func (f FFmpeg) ConvertToMonoWAV(ctx context.Context, input, outputDir string, sampleRate int) (string, error) {
	if sampleRate == 0 {
		sampleRate = 11025
	}
	if err := utils.MakeDir(outputDir); err != nil {
		return "", err
	}

	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	outputPath := filepath.Join(outputDir, base+".mono.wav")
	tmpPath := outputPath + ".tmp.wav"
	defer os.Remove(tmpPath)

	err := f.run(ctx,
		"-y",
		"-v", "error",
		"-i", input,
		"-ac", "1", // mono
		"-ar", strconv.Itoa(sampleRate),
		"-c:a", "pcm_s16le",
		tmpPath,
	)
	if err != nil {
		return "", err
	}
	if err := utils.MoveFile(tmpPath, outputPath); err != nil {
		return "", err
	}
	return outputPath, nil
}
