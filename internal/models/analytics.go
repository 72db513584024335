package models

import "time"

// SearchEvent is one analytics row describing a completed search request.
type SearchEvent struct {
	EventType   string    `json:"event_type"`
	QueryHash   string    `json:"query_hash"`
	Kind        string    `json:"kind"`
	MediaType   string    `json:"media_type"`
	DurationMs  float64   `json:"duration_ms"`
	ResultCount int       `json:"result_count"`
	CacheHit    bool      `json:"cache_hit"`
	Broadened   bool      `json:"broadened"`
	Timestamp   time.Time `json:"timestamp"`
	TraceID     string    `json:"trace_id"`
	Source      string    `json:"source"`
}
