package cache

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ramadan8/MediaUtility/pkg/models"
)

var emptyRecord = []byte("{}")

// EncodeEmpty returns the stored form of "looked up, nothing found".
func EncodeEmpty() []byte {
	out := make([]byte, len(emptyRecord))
	copy(out, emptyRecord)
	return out
}

// EncodeSong returns compact JSON for r. Map keys are emitted sorted, so equal
// records encode to equal bytes.
func EncodeSong(r models.SongRecord) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode song record: %w", err)
	}
	return data, nil
}

// Decode parses either encoding back into a SongRecord.
func Decode(data []byte) (models.SongRecord, error) {
	var r models.SongRecord
	if len(bytes.TrimSpace(data)) == 0 {
		return r, fmt.Errorf("%w: empty value", ErrCorruptEntry)
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return models.SongRecord{}, fmt.Errorf("%w: %w", ErrCorruptEntry, err)
	}
	if len(r.Metadata) == 0 {
		r.Metadata = nil
	}
	return r, nil
}
