package model

import "time"

// FlavorCount is one entry of the flavor-note popularity ranking.
type FlavorCount struct {
	Note  string `json:"note"`
	Count int    `json:"count"`
}

// SessionScore is one entry of the composite-score quality ranking.
type SessionScore struct {
	ShareID   string    `json:"share_id"`
	Taster    string    `json:"taster"`
	Score     float64   `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

// TrendBucket is one fixed-width time window of the temporal trend.
// Buckets with zero sessions are never emitted.
type TrendBucket struct {
	BucketStart time.Time `json:"bucket_start"`
	MeanScore   float64   `json:"mean_score"`
	Count       int       `json:"count"`
}

// AggregateSnapshot is the full set of community statistics produced by
// one analytics query. It is recomputed per query, never persisted, and
// shaped as plain maps and slices so any charting layer can consume it.
type AggregateSnapshot struct {
	TotalSessions        int                `json:"total_sessions"`
	AttributeMeans       map[string]float64 `json:"attribute_means"`
	ScoreDistribution    []float64          `json:"score_distribution"`
	FlavorRanking        []FlavorCount      `json:"flavor_ranking"`
	QualityRanking       []SessionScore     `json:"quality_ranking"`
	OriginBreakdown      map[string]int     `json:"origin_breakdown"`
	PreparationBreakdown map[string]int     `json:"preparation_breakdown"`
}
