package models

// Stats is the aggregate snapshot reported by GET /api/stats.
type Stats struct {
	TotalJobs           int     `json:"total_jobs"`
	CompletedJobs       int     `json:"completed_jobs"`
	ProcessingJobs      int     `json:"processing_jobs"`
	FailedJobs          int     `json:"failed_jobs"`
	AvgReadabilityScore float64 `json:"avg_readability_score"`
	AvgSEOScore         float64 `json:"avg_seo_score"`
}
