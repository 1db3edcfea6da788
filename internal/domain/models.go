package domain

import (
	"time"

	"github.com/google/uuid"
)

// Profile describes a document ahead of any parse attempt. It is produced by
// a cheap probe (stat + head bytes) and is immutable once returned.
type Profile struct {
	Path                 string    `json:"path"`
	Extension            string    `json:"extension"`
	SizeMB               float64   `json:"size_mb"`
	EstimatedPages       int       `json:"estimated_pages"`
	NeedsOCR             bool      `json:"needs_ocr"`
	NeedsTableExtraction bool      `json:"needs_table_extraction"`
	HasImages            bool      `json:"has_images"`
	Confidence           float64   `json:"confidence"`
	ProfiledAt           time.Time `json:"profiled_at"`
}

// ResourceEstimate is a strategy's guess at what a document will cost to parse.
type ResourceEstimate struct {
	MemoryMB float64 `json:"memory_mb"`
	Seconds  float64 `json:"seconds"`
}

// Constraints bound a single parse attempt. Zero values mean unbounded.
type Constraints struct {
	MaxMemoryMB float64       `json:"max_memory_mb"`
	MaxDuration time.Duration `json:"max_duration"`
}

// Result is the outcome of a successful parse.
type Result struct {
	Content      string  `json:"content"`
	Confidence   float64 `json:"confidence"`
	PageCount    int     `json:"page_count"`
	ElementCount int     `json:"element_count"`
	HasTables    bool    `json:"has_tables"`
	HasForms     bool    `json:"has_forms"`
	HasImages    bool    `json:"has_images"`
	Strategy     string  `json:"strategy"`
	Merged       bool    `json:"merged,omitempty"`
}

// ParseMetrics records one strategy execution, successful or not.
type ParseMetrics struct {
	Strategy          string        `json:"strategy"`
	Duration          time.Duration `json:"duration"`
	MemoryUsedMB      float64       `json:"memory_used_mb"`
	ElementsExtracted int           `json:"elements_extracted"`
	Success           bool          `json:"success"`
	FileSizeMB        float64       `json:"file_size_mb"`
	RecordedAt        time.Time     `json:"recorded_at"`
}

// StrategySummary aggregates the recorded history of one strategy.
type StrategySummary struct {
	Strategy    string        `json:"strategy"`
	Runs        int           `json:"runs"`
	SuccessRate float64       `json:"success_rate"`
	AvgDuration time.Duration `json:"avg_duration"`
	AvgMemoryMB float64       `json:"avg_memory_mb"`
	AvgElements float64       `json:"avg_elements"`
	LastRunAt   time.Time     `json:"last_run_at"`
}

// MemoryStats is a point-in-time snapshot of system and process memory.
// Pressure is 1 - available/total.
type MemoryStats struct {
	TotalMB     float64   `json:"total_mb"`
	AvailableMB float64   `json:"available_mb"`
	ProcessMB   float64   `json:"process_mb"`
	Pressure    float64   `json:"pressure"`
	SampledAt   time.Time `json:"sampled_at"`
}

// TierStats reports counters for a single cache tier.
type TierStats struct {
	Tier      string `json:"tier"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
	Entries   int    `json:"entries"`
	SizeBytes int64  `json:"size_bytes"`
}

// CacheStats aggregates tier counters plus cross-tier promotion counts.
type CacheStats struct {
	Hits       uint64      `json:"hits"`
	Misses     uint64      `json:"misses"`
	Promotions uint64      `json:"promotions"`
	Tiers      []TierStats `json:"tiers"`
}

// ParseRun is the archived record of one orchestrated parse.
type ParseRun struct {
	ID           uuid.UUID         `db:"id" json:"id"`
	Path         string            `db:"path" json:"path"`
	Strategy     string            `db:"strategy" json:"strategy"`
	Criteria     SelectionCriteria `db:"criteria" json:"criteria"`
	Success      bool              `db:"success" json:"success"`
	CacheHit     bool              `db:"cache_hit" json:"cache_hit"`
	Merged       bool              `db:"merged" json:"merged"`
	Confidence   float64           `db:"confidence" json:"confidence"`
	PageCount    int               `db:"page_count" json:"page_count"`
	ElementCount int               `db:"element_count" json:"element_count"`
	DurationMS   int64             `db:"duration_ms" json:"duration_ms"`
	MemoryMB     float64           `db:"memory_mb" json:"memory_mb"`
	Error        string            `db:"error" json:"error,omitempty"`
	CreatedAt    time.Time         `db:"created_at" json:"created_at"`
}
