package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramadan8/MediaUtility/pkg/models"
)

func TestCodecRoundTrip(t *testing.T) {
	r := models.SongRecord{
		Title:       "X",
		Artist:      "Y",
		Album:       "Z",
		CoverArtURL: "https://img.example/cover.jpg",
		Confidence:  87.5,
		Metadata:    map[string]string{"b": "2", "a": "1"},
	}

	data, err := EncodeSong(r)
	require.NoError(t, err)
	assert.NotContains(t, string(data), " ")
	assert.Contains(t, string(data), `{"a":"1","b":"2"}`)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, r, got)
}

func TestEncodeSongDeterministic(t *testing.T) {
	r := models.SongRecord{Title: "X", Metadata: map[string]string{"k1": "v", "k2": "v", "k3": "v"}}

	first, err := EncodeSong(r)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := EncodeSong(r)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestDecodeEmptyRecord(t *testing.T) {
	assert.Equal(t, []byte("{}"), EncodeEmpty())

	got, err := Decode(EncodeEmpty())
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())

	data, err := EncodeSong(models.SongRecord{Metadata: map[string]string{}})
	require.NoError(t, err)
	got, err = Decode(data)
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())
	assert.Nil(t, got.Metadata)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	for _, in := range [][]byte{nil, []byte(""), []byte("  "), []byte("not json"), []byte(`["x"]`)} {
		_, err := Decode(in)
		assert.ErrorIs(t, err, ErrCorruptEntry, "input %q", in)
	}
}
