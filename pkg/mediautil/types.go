package mediautil

import "github.com/ramadan8/MediaUtility/pkg/models"

type (
	SongRecord = models.SongRecord
	MediaInfo  = models.MediaInfo
	Candidate  = models.Candidate
)

// Stats is a point-in-time view of the service's shared resources.
type Stats struct {
	CacheMode            string `json:"cache_mode"`
	CacheFallbackEntries int    `json:"cache_fallback_entries"`
	PoolSize             int    `json:"pool_size"`
	PoolQueueSize        int    `json:"pool_queue_size"`
	PoolRunning          int    `json:"pool_running"`
	PoolWaiting          int    `json:"pool_waiting"`
}
