package models

import "time"

// TrainingExample is one (query, corrected intent) pair saved for offline
// tuning and few-shot prompting. Intent holds the canonical JSON form.
type TrainingExample struct {
	Query     string    `json:"query"`
	Intent    []byte    `json:"intent"`
	UpdatedAt time.Time `json:"updated_at"`
}
