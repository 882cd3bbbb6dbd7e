package models

// CacheInfo mirrors the cache introspection shape served by GET /model/cache.
type CacheInfo struct {
	Hits     int64 `json:"hits"`
	Misses   int64 `json:"misses"`
	Maxsize  int   `json:"maxsize"`
	Currsize int   `json:"currsize"`
}

// Statistics is a point-in-time snapshot of the service counters.
type Statistics struct {
	TotalPredictions     int64            `json:"total_predictions"`
	CacheEnabled         bool             `json:"cache_enabled"`
	CacheSize            int              `json:"cache_size"`
	CacheHits            int64            `json:"cache_hits"`
	CacheMisses          int64            `json:"cache_misses"`
	CacheHitRatePercent  float64          `json:"cache_hit_rate_percent"`
	AvgInferenceTimeMS   float64          `json:"avg_inference_time_ms"`
	TotalInferenceTimeMS float64          `json:"total_inference_time_ms"`
	WarmupCompleted      bool             `json:"warmup_completed"`
	ValidationFailures   map[string]int64 `json:"validation_failures"`
	UptimeSeconds        float64          `json:"uptime_seconds"`
}

// ModelInfo describes the loaded model, or how loading was attempted.
type ModelInfo struct {
	Status     string   `json:"status"`
	ModelPath  string   `json:"model_path"`
	LabelsPath string   `json:"labels_path,omitempty"`
	Framework  string   `json:"framework,omitempty"`
	Device     string   `json:"device,omitempty"`
	InputName  string   `json:"input_name,omitempty"`
	OutputName string   `json:"output_name,omitempty"`
	NumClasses int      `json:"num_classes,omitempty"`
	Classes    []string `json:"classes,omitempty"`
}
