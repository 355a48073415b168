package media

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/ramadan8/MediaUtility/pkg/utils"
)

// preferredExt overrides mime.ExtensionsByType, whose first answer for
// common audio types is rarely the one players expect.
var preferredExt = map[string]string{
	"audio/mpeg":  ".mp3",
	"audio/mp3":   ".mp3",
	"audio/ogg":   ".ogg",
	"audio/opus":  ".opus",
	"audio/wav":   ".wav",
	"audio/x-wav": ".wav",
	"audio/flac":  ".flac",
	"audio/mp4":   ".m4a",
	"audio/aac":   ".aac",
	"audio/webm":  ".webm",
	"video/mp4":   ".mp4",
	"video/webm":  ".webm",
	"image/gif":   ".gif",
}

// ExtensionForContentType maps a Content-Type header to a file extension.
// A missing header is treated as audio/mp3.
func ExtensionForContentType(contentType string) string {
	if strings.TrimSpace(contentType) == "" {
		contentType = "audio/mp3"
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ".bin"
	}
	if ext, ok := preferredExt[mediaType]; ok {
		return ext
	}
	if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}

// DownloadFile fetches link into dir as <name><ext>, with ext derived from
// the response's Content-Type.
func DownloadFile(ctx context.Context, client *http.Client, link, dir, name string) (string, error) {
	if client == nil {
		client = http.DefaultClient
	}
	if err := utils.MakeDir(dir); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("download failed: %s", resp.Status)
	}

	path := filepath.Join(dir, name+ExtensionForContentType(resp.Header.Get("Content-Type")))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}
