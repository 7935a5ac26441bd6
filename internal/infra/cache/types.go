package cache

import "time"

// Stats describes the store's contents.
type Stats struct {
	Entries       int            `json:"entries"`
	WithArt       int            `json:"withArt"`
	Tombstones    int            `json:"tombstones"`
	HotLinks      int            `json:"hotLinks"`
	Files         int            `json:"files"` // distinct checksums
	ByProvenance  map[string]int `json:"byProvenance"`
	SchemaVersion int64          `json:"schemaVersion"`
	LastAttempt   time.Time      `json:"lastAttempt"`
}
