package main

import (
	"github.com/ramadan8/MediaUtility/pkg/mediautil/recognize"
	"github.com/ramadan8/MediaUtility/pkg/mediautil/storage"
)

// library joins the local recognizer (indexing, matching) with the index it
// writes to (listing, lookup, deletion).
type library struct {
	*recognize.Local
	*storage.Index
}
