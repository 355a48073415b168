package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSongRecordIsEmpty(t *testing.T) {
	assert.True(t, SongRecord{}.IsEmpty())
	assert.True(t, SongRecord{Metadata: map[string]string{}}.IsEmpty())
	assert.False(t, SongRecord{Title: "X"}.IsEmpty())
	assert.False(t, SongRecord{Metadata: map[string]string{"k": "v"}}.IsEmpty())
}

func TestCandidateRecordCopiesMetadata(t *testing.T) {
	c := Candidate{Title: "X", Artist: "Y", Metadata: map[string]string{"url": "u"}}

	r := c.Record()
	c.Metadata["url"] = "changed"

	assert.Equal(t, "X", r.Title)
	assert.Equal(t, "Y", r.Artist)
	assert.Equal(t, "u", r.Metadata["url"])
	assert.Nil(t, Candidate{Title: "X"}.Record().Metadata)
}
