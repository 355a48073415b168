package mediautil

import (
	"errors"

	"github.com/ramadan8/MediaUtility/pkg/mediautil/media"
)

var (
	// ErrInvalidInput is returned before any I/O for malformed requests.
	ErrInvalidInput = errors.New("invalid input")
	// ErrResolution means the resolver could not describe or fetch the media.
	ErrResolution = errors.New("media resolution failed")
	// ErrExtraction means no audio window could be produced.
	ErrExtraction = errors.New("audio extraction failed")
	// ErrRecognition means the recognizer itself failed. Zero matches is not
	// an error.
	ErrRecognition = errors.New("recognition failed")
	// ErrConversion means transcoding the downloaded media failed.
	ErrConversion = errors.New("conversion failed")

	ErrUnsupportedFormat = media.ErrUnsupportedFormat
)
