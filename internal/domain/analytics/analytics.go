// Package analytics computes community-level aggregate statistics from
// the full session collection. The engine is stateless: every query
// recomputes from the source, nothing is cached or persisted.
package analytics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/cafecultura/cuppingd/internal/domain/model"
	"github.com/cafecultura/cuppingd/pkg/metrics"
)

// SessionSource supplies the session collection an aggregate is computed
// over. A failed read aborts the whole computation; the engine never
// returns a partial snapshot.
type SessionSource interface {
	ListAll(ctx context.Context) ([]model.CuppingSession, error)
}

// Filter narrows the session collection an aggregate is computed over.
// The zero value matches every non-excluded session.
type Filter struct {
	// Origin matches sessions from one origin exactly; empty matches all.
	Origin string
	// From/To bound CreatedAt inclusively at From, exclusively at To.
	// Zero values leave the corresponding side unbounded.
	From time.Time
	To   time.Time
	// IncludeExcluded counts soft-excluded sessions into aggregates.
	// Share links to excluded sessions always resolve; this flag only
	// controls their contribution to community statistics.
	IncludeExcluded bool
}

func (f Filter) matches(s model.CuppingSession) bool {
	if s.Excluded && !f.IncludeExcluded {
		return false
	}
	if f.Origin != "" && s.Origin != f.Origin {
		return false
	}
	if !f.From.IsZero() && s.CreatedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !s.CreatedAt.Before(f.To) {
		return false
	}
	return true
}

// Engine derives aggregate statistics from a session source.
type Engine struct {
	source SessionSource
}

// New creates an Engine reading from source.
func New(source SessionSource) *Engine {
	return &Engine{source: source}
}

// CommunityTrends computes the full aggregate snapshot over the filtered
// collection. An empty collection yields a snapshot with empty rankings.
func (e *Engine) CommunityTrends(ctx context.Context, f Filter) (model.AggregateSnapshot, error) {
	done := metrics.TimeAnalyticsQuery("community_trends")
	defer done()

	sessions, err := e.filtered(ctx, f)
	if err != nil {
		return model.AggregateSnapshot{}, err
	}

	snap := model.AggregateSnapshot{
		TotalSessions:        len(sessions),
		AttributeMeans:       map[string]float64{},
		OriginBreakdown:      map[string]int{},
		PreparationBreakdown: map[string]int{},
	}

	attrSums := map[string]float64{}
	attrCounts := map[string]int{}
	noteCounts := map[string]int{}
	noteFirstSeen := map[string]int{}
	seen := 0

	for _, s := range sessions {
		for attr, score := range s.Attributes {
			attrSums[attr] += score
			attrCounts[attr]++
		}
		for _, note := range s.FlavorNotes {
			if _, ok := noteCounts[note]; !ok {
				noteFirstSeen[note] = seen
				seen++
			}
			noteCounts[note]++
		}
		if s.Origin != "" {
			snap.OriginBreakdown[s.Origin]++
		}
		if s.PreparationMethod != "" {
			snap.PreparationBreakdown[s.PreparationMethod]++
		}
		snap.ScoreDistribution = append(snap.ScoreDistribution, s.CompositeScore())
		snap.QualityRanking = append(snap.QualityRanking, model.SessionScore{
			ShareID:   s.ShareID,
			Taster:    s.DisplayName(),
			Score:     s.CompositeScore(),
			CreatedAt: s.CreatedAt,
		})
	}

	for attr, sum := range attrSums {
		snap.AttributeMeans[attr] = sum / float64(attrCounts[attr])
	}

	// Flavor ranking: count desc, ties broken by first-seen order.
	snap.FlavorRanking = make([]model.FlavorCount, 0, len(noteCounts))
	for note, count := range noteCounts {
		snap.FlavorRanking = append(snap.FlavorRanking, model.FlavorCount{Note: note, Count: count})
	}
	sort.SliceStable(snap.FlavorRanking, func(i, j int) bool {
		a, b := snap.FlavorRanking[i], snap.FlavorRanking[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return noteFirstSeen[a.Note] < noteFirstSeen[b.Note]
	})

	// Quality ranking: composite desc, earlier session wins ties.
	sort.SliceStable(snap.QualityRanking, func(i, j int) bool {
		a, b := snap.QualityRanking[i], snap.QualityRanking[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})

	return snap, nil
}

// TemporalTrend buckets the filtered collection by CreatedAt into fixed
// windows of size bucket and returns mean composite score per window,
// ascending by window start. Windows with zero sessions are omitted.
func (e *Engine) TemporalTrend(ctx context.Context, bucket time.Duration, f Filter) ([]model.TrendBucket, error) {
	if bucket <= 0 {
		return nil, fmt.Errorf("%w: bucket size %v", ErrInvalidBucket, bucket)
	}
	done := metrics.TimeAnalyticsQuery("temporal_trend")
	defer done()

	sessions, err := e.filtered(ctx, f)
	if err != nil {
		return nil, err
	}

	sums := map[time.Time]float64{}
	counts := map[time.Time]int{}
	for _, s := range sessions {
		start := s.CreatedAt.UTC().Truncate(bucket)
		sums[start] += s.CompositeScore()
		counts[start]++
	}

	out := make([]model.TrendBucket, 0, len(counts))
	for start, count := range counts {
		out = append(out, model.TrendBucket{
			BucketStart: start,
			MeanScore:   sums[start] / float64(count),
			Count:       count,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BucketStart.Before(out[j].BucketStart) })
	return out, nil
}

func (e *Engine) filtered(ctx context.Context, f Filter) ([]model.CuppingSession, error) {
	all, err := e.source.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("aggregate aborted: %w", err)
	}
	out := make([]model.CuppingSession, 0, len(all))
	for _, s := range all {
		if f.matches(s) {
			out = append(out, s)
		}
	}
	return out, nil
}

// Insight kinds emitted by SessionInsights.
const (
	InsightComposite = "composite_vs_community"
	InsightAttribute = "attribute_deviation"
	InsightFlavor    = "shared_flavor"
)

// Insight is one comparative observation about a session.
type Insight struct {
	Kind  string  `json:"kind"`
	Text  string  `json:"text"`
	Delta float64 `json:"delta,omitempty"`
}

// SessionInsights compares one session against the rest of the community.
// The session itself never counts toward the community baseline; with no
// other sessions present the result is empty, not an error.
func (e *Engine) SessionInsights(ctx context.Context, subject model.CuppingSession) ([]Insight, error) {
	done := metrics.TimeAnalyticsQuery("session_insights")
	defer done()

	all, err := e.source.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("aggregate aborted: %w", err)
	}

	community := all[:0:0]
	for _, s := range all {
		if s.SessionID != subject.SessionID && !s.Excluded {
			community = append(community, s)
		}
	}
	if len(community) == 0 {
		return []Insight{}, nil
	}

	var insights []Insight

	var compositeSum float64
	for _, s := range community {
		compositeSum += s.CompositeScore()
	}
	communityMean := compositeSum / float64(len(community))
	delta := subject.CompositeScore() - communityMean
	relation := "above"
	if delta < 0 {
		relation = "below"
	}
	insights = append(insights, Insight{
		Kind:  InsightComposite,
		Text:  fmt.Sprintf("composite score %.2f is %.2f points %s the community mean of %.2f", subject.CompositeScore(), math.Abs(delta), relation, communityMean),
		Delta: delta,
	})

	// Largest deviation from the community mean of the same attribute.
	attrSums := map[string]float64{}
	attrCounts := map[string]int{}
	for _, s := range community {
		for attr, score := range s.Attributes {
			attrSums[attr] += score
			attrCounts[attr]++
		}
	}
	var (
		topAttr  string
		topDelta float64
	)
	attrs := make([]string, 0, len(subject.Attributes))
	for attr := range subject.Attributes {
		attrs = append(attrs, attr)
	}
	sort.Strings(attrs)
	for _, attr := range attrs {
		count, ok := attrCounts[attr]
		if !ok {
			continue
		}
		d := subject.Attributes[attr] - attrSums[attr]/float64(count)
		if topAttr == "" || math.Abs(d) > math.Abs(topDelta) {
			topAttr, topDelta = attr, d
		}
	}
	if topAttr != "" {
		direction := "higher"
		if topDelta < 0 {
			direction = "lower"
		}
		insights = append(insights, Insight{
			Kind:  InsightAttribute,
			Text:  fmt.Sprintf("%s stands out most: %.2f points %s than the community average", topAttr, math.Abs(topDelta), direction),
			Delta: topDelta,
		})
	}

	// Most widely shared of the session's own flavor notes.
	if note, count := e.topSharedNote(subject, community); note != "" {
		insights = append(insights, Insight{
			Kind: InsightFlavor,
			Text: fmt.Sprintf("%q also appears in %d other session(s)", note, count),
		})
	}

	return insights, nil
}

func (e *Engine) topSharedNote(subject model.CuppingSession, community []model.CuppingSession) (string, int) {
	counts := map[string]int{}
	for _, s := range community {
		for _, note := range s.FlavorNotes {
			counts[note]++
		}
	}
	var (
		best      string
		bestCount int
	)
	for _, note := range subject.FlavorNotes {
		if c := counts[note]; c > bestCount {
			best, bestCount = note, c
		}
	}
	return best, bestCount
}
