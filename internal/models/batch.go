package models

import "github.com/google/uuid"

// BatchFileResult is the per-file outcome of an archive batch run.
type BatchFileResult struct {
	Filename    string       `json:"filename"`
	Success     bool         `json:"success"`
	Predictions []ClassScore `json:"predictions,omitempty"`
	FromCache   bool         `json:"from_cache"`
	Error       string       `json:"error,omitempty"`
	ErrorType   string       `json:"error_type,omitempty"`
}

// BatchResult summarizes one archive batch run.
type BatchResult struct {
	ID             uuid.UUID         `json:"id"`
	FileCount      int               `json:"file_count"`
	Succeeded      int               `json:"succeeded"`
	Failed         int               `json:"failed"`
	TotalLatencyMS float64           `json:"total_latency_ms"`
	Results        []BatchFileResult `json:"results"`
}
