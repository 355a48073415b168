package models

// SongRecord is the outcome of one recognition attempt. A record with no
// populated field means the clip was looked up and nothing matched, which is
// distinct from never having looked it up.
type SongRecord struct {
	Title       string            `json:"title,omitempty"`
	Artist      string            `json:"artist,omitempty"`
	Album       string            `json:"album,omitempty"`
	CoverArtURL string            `json:"cover_art_url,omitempty"`
	Confidence  float64           `json:"confidence,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// IsEmpty reports whether the record carries no match.
func (r SongRecord) IsEmpty() bool {
	return r.Title == "" &&
		r.Artist == "" &&
		r.Album == "" &&
		r.CoverArtURL == "" &&
		r.Confidence == 0 &&
		len(r.Metadata) == 0
}

// MediaInfo describes remote media as reported by the resolver.
type MediaInfo struct {
	ExtractorKey string  `json:"extractor_key"`
	Extractor    string  `json:"extractor"`
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	StreamURL    string  `json:"url"`
	WebpageURL   string  `json:"webpage_url"`
	Ext          string  `json:"ext"`
	Duration     float64 `json:"duration"`
	StartTime    *int    `json:"-"` // embedded time hint, seconds

	// LocalPath is set when the media was downloaded.
	LocalPath string `json:"-"`
}

// Candidate is a single match returned by a recognizer. Recognizers return
// candidates best first.
type Candidate struct {
	Title       string
	Artist      string
	Album       string
	CoverArtURL string
	Confidence  float64           // 0-100
	Metadata    map[string]string // recognizer-specific extras (track url, song id)
}

// Record builds the SongRecord persisted for this candidate.
func (c Candidate) Record() SongRecord {
	r := SongRecord{
		Title:       c.Title,
		Artist:      c.Artist,
		Album:       c.Album,
		CoverArtURL: c.CoverArtURL,
		Confidence:  c.Confidence,
	}
	if len(c.Metadata) > 0 {
		r.Metadata = make(map[string]string, len(c.Metadata))
		for k, v := range c.Metadata {
			r.Metadata[k] = v
		}
	}
	return r
}

// MatchResult represents a local index match with metadata and scoring.
type MatchResult struct {
	SongID     string  // Database ID of the matched song (UUID)
	Title      string  // Song title
	Artist     string  // Artist name
	SourceID   string  // Extractor item id the song was indexed from (if any)
	Score      int     // Number of matching fingerprint hashes
	OffsetMs   int32   // Time offset in milliseconds
	Confidence float64 // Match confidence as a percentage (0-100)
}

// Song represents a song entry in the local index.
type Song struct {
	ID         string // Database ID (UUID)
	Title      string
	Artist     string
	SourceID   string
	DurationMs int
}

// Couple is one indexed occurrence of a fingerprint address: the song it
// came from and where its anchor peak sits, in ms from the song start.
type Couple struct {
	SongID       string
	AnchorTimeMs uint32
}

// Match is a song's best offset alignment against a query clip. Count is the
// number of hashes agreeing on OffsetMs (indexed anchor minus query anchor).
type Match struct {
	SongID   string
	OffsetMs int32
	Count    int
}
