// Package timestamp decides where in a media item a recognition sample starts.
package timestamp

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/ramadan8/MediaUtility/pkg/models"
)

// hintSource describes where a given extractor keeps its start offset.
type hintSource struct {
	queryKeys []string
	fragment  bool
}

// MaxOffset is the largest start hint accepted from a link, in seconds.
const MaxOffset = 30 * 24 * 3600

var hintSources = map[string]hintSource{
	"youtube":    {queryKeys: []string{"t", "start"}, fragment: true},
	"twitch":     {queryKeys: []string{"t"}},
	"vimeo":      {fragment: true},
	"soundcloud": {fragment: true},
}

// Resolve returns the scan start in seconds. An explicit value wins (negative
// values clamp to zero); otherwise a start hint is read from the link when the
// resolving extractor is known to embed one; otherwise zero.
func Resolve(explicit *int, link string, info *models.MediaInfo) int {
	if explicit != nil {
		return max(*explicit, 0)
	}
	if info == nil {
		return 0
	}

	src, ok := sourceFor(info)
	if !ok {
		return 0
	}
	if secs, ok := fromLink(link, src); ok {
		return max(secs, 0)
	}
	if info.StartTime != nil && *info.StartTime > 0 {
		return *info.StartTime
	}
	return 0
}

// sourceFor matches on the extractor family, so "youtube:tab" and
// "twitch:vod" resolve to their base platform.
func sourceFor(info *models.MediaInfo) (hintSource, bool) {
	for _, name := range []string{info.ExtractorKey, info.Extractor} {
		name = strings.ToLower(name)
		if i := strings.IndexByte(name, ':'); i >= 0 {
			name = name[:i]
		}
		if src, ok := hintSources[name]; ok {
			return src, true
		}
	}
	return hintSource{}, false
}

// fromLink extracts a start hint from link according to src.
func fromLink(link string, src hintSource) (int, bool) {
	u, err := url.Parse(link)
	if err != nil {
		return 0, false
	}

	q := u.Query()
	for _, k := range src.queryKeys {
		if secs, ok := ParseOffset(q.Get(k)); ok {
			return secs, true
		}
	}

	if src.fragment && u.Fragment != "" {
		frag, err := url.ParseQuery(u.Fragment)
		if err == nil {
			if secs, ok := ParseOffset(frag.Get("t")); ok {
				return secs, true
			}
		}
	}
	return 0, false
}

var unitPattern = regexp.MustCompile(`^(?:(\d+)h)?(?:(\d+)m)?(?:(\d+)s)?$`)

// ParseOffset understands "90", "90s", "1m30s", "01h02m03s", "1:30" and
// "1:02:03". Offsets above MaxOffset are rejected.
func ParseOffset(s string) (int, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, false
	}

	if n, err := strconv.Atoi(s); err == nil {
		return n, n >= 0 && n <= MaxOffset
	}

	if strings.Contains(s, ":") {
		parts := strings.Split(s, ":")
		if len(parts) > 3 {
			return 0, false
		}
		total := 0
		for _, p := range parts {
			n, err := strconv.Atoi(p)
			if err != nil || n < 0 || n > MaxOffset {
				return 0, false
			}
			total = total*60 + n
			if total > MaxOffset {
				return 0, false
			}
		}
		return total, true
	}

	m := unitPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	total := 0
	for i, mult := range []int{3600, 60, 1} {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil || n > MaxOffset/mult {
			return 0, false
		}
		total += n * mult
		if total > MaxOffset {
			return 0, false
		}
	}
	return total, true
}
