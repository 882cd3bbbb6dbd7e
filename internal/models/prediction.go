package models

import (
	"time"

	"github.com/google/uuid"
)

// ClassScore is one class label with its softmax probability.
type ClassScore struct {
	ClassName   string  `json:"className"`
	Probability float64 `json:"probability"`
}

// PredictionResult is what the prediction service hands back to the HTTP layer.
type PredictionResult struct {
	Predictions      []ClassScore `json:"predictions"`
	FromCache        bool         `json:"from_cache"`
	Fingerprint      string       `json:"fingerprint"`
	ProcessingTimeMS float64      `json:"processing_time_ms"`
}

// PredictionRecord is the audit row written for every completed prediction.
type PredictionRecord struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Fingerprint      string    `gorm:"index" json:"fingerprint"`
	Filename         string    `json:"filename"`
	TopClass         string    `json:"top_class"`
	TopProbability   float64   `json:"top_probability"`
	FromCache        bool      `json:"from_cache"`
	ProcessingTimeMS float64   `json:"processing_time_ms"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
}
