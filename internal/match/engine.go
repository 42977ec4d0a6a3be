// Package match implements C3: deterministic (CV, JD) scoring via
// optimal linear assignment over skill/responsibility cosine
// similarity, plus title and experience sub-scores combined into a
// weighted overall score.
package match

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/alphacv/matchcore/internal/embedding"
	"github.com/alphacv/matchcore/internal/metrics"
	"github.com/alphacv/matchcore/pkg/coreerr"
	"github.com/alphacv/matchcore/pkg/types"
)

// Weights are the four sub-score weights (skills, responsibilities,
// title, experience). Caller-provided weights are normalized to sum to
// 1; if the sum is <= 0, DefaultWeights are used instead.
type Weights struct {
	Skills           float64
	Responsibilities float64
	Title            float64
	Experience       float64
}

func DefaultWeights() Weights {
	return Weights{Skills: 0.80, Responsibilities: 0.15, Title: 0.025, Experience: 0.025}
}

func (w Weights) normalized() Weights {
	sum := w.Skills + w.Responsibilities + w.Title + w.Experience
	if sum <= 0 {
		return DefaultWeights()
	}
	return Weights{
		Skills:           w.Skills / sum,
		Responsibilities: w.Responsibilities / sum,
		Title:            w.Title / sum,
		Experience:       w.Experience / sum,
	}
}

const (
	skillReportThreshold = 0.50
	respReportThreshold  = 0.45
)

// Engine computes C3 match results using C1's cosine primitives.
type Engine struct {
	metrics metrics.Metrics
}

func NewEngine(m metrics.Metrics) *Engine {
	if m == nil {
		m = metrics.NewNoOpMetrics()
	}
	return &Engine{metrics: m}
}

func validateBundle(b *types.Bundle, label string) error {
	if len(b.SkillVectors) != types.SkillsCount || len(b.ResponsibilityVectors) != types.RespCount ||
		len(b.ExperienceVector) != types.VectorDim || len(b.JobTitleVector) != types.VectorDim {
		return coreerr.Shape(fmt.Sprintf("%s bundle has wrong shape", label))
	}
	return nil
}

func validateDimensions(jd, cv *types.Bundle) error {
	if len(jd.JobTitleVector) != len(cv.JobTitleVector) {
		return coreerr.Shape(fmt.Sprintf("dimension mismatch: jd=%d cv=%d", len(jd.JobTitleVector), len(cv.JobTitleVector)))
	}
	return nil
}

// Match computes the full result for one (CV, JD) pair.
func (e *Engine) Match(ctx context.Context, jdID, cvID string, jd, cv *types.Bundle, jdInfo, cvInfo types.StandardizedInfo, weights Weights) (*types.MatchResult, error) {
	start := time.Now()
	defer func() { e.metrics.RecordMatch(time.Since(start)) }()

	if err := validateBundle(jd, "jd"); err != nil {
		return nil, err
	}
	if err := validateBundle(cv, "cv"); err != nil {
		return nil, err
	}
	if err := validateDimensions(jd, cv); err != nil {
		return nil, err
	}
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	w := weights.normalized()

	skillsScore, skillAssignments, unmatchedSkills := scoreAssigned(jd.SkillVectors, cv.SkillVectors, skillReportThreshold)
	respScore, respAssignments, unmatchedResp := scoreAssigned(jd.ResponsibilityVectors, cv.ResponsibilityVectors, respReportThreshold)
	titleScore := 100 * embedding.Cos(jd.JobTitleVector, cv.JobTitleVector)
	expScore := experienceScore(jdInfo.ExperienceYears, cvInfo.ExperienceYears)

	overall := w.Skills*skillsScore + w.Responsibilities*respScore + w.Title*titleScore + w.Experience*expScore

	result := &types.MatchResult{
		CVID:              cvID,
		JDID:              jdID,
		Overall:           overall,
		Skills:            skillsScore,
		Responsibilities:  respScore,
		Title:             titleScore,
		Experience:        expScore,
		SkillAssignments:  skillAssignments,
		RespAssignments:   respAssignments,
		UnmatchedJDSkills: unmatchedSkills,
		UnmatchedJDResp:   unmatchedResp,
		Duration:          time.Since(start),
	}
	result.Explanation = explain(result)
	return result, nil
}

// scoreAssigned solves the optimal assignment between jdVectors and
// cvVectors (equal-length, square by construction per the fixed bundle
// shape) and returns the 100·mean-similarity sub-score, the full
// assignment list, and the indices of JD items below the report
// threshold.
func scoreAssigned(jdVectors, cvVectors [][]float64, threshold float64) (float64, []types.Assignment, []int) {
	sim := embedding.CosMatrix(jdVectors, cvVectors)
	cvForJD := assignMaxSimilarity(sim)

	n := len(sim)
	assignments := make([]types.Assignment, n)
	unmatched := make([]int, 0)
	var total float64

	for jdIdx, cvIdx := range cvForJD {
		s := sim[jdIdx][cvIdx]
		assignments[jdIdx] = types.Assignment{JDIndex: jdIdx, CVIndex: cvIdx, Similarity: s}
		total += s
		if s < threshold {
			unmatched = append(unmatched, jdIdx)
		}
	}

	mean := total / float64(n)
	return 100 * mean, assignments, unmatched
}

func experienceScore(jdYears, cvYears int) float64 {
	if jdYears == 0 {
		return 75
	}
	if cvYears >= jdYears {
		score := 80 + 5*float64(cvYears-jdYears)
		if score > 100 {
			return 100
		}
		return score
	}
	score := 60 * float64(cvYears) / float64(jdYears)
	if score < 30 {
		return 30
	}
	return score
}

func explain(r *types.MatchResult) string {
	band := func(score float64) string {
		switch {
		case score >= 80:
			return "strong"
		case score >= 60:
			return "moderate"
		default:
			return "weak"
		}
	}
	titleBand := func(score float64) string {
		c := score / 100
		switch {
		case c >= 0.8:
			return "closely aligned"
		case c >= 0.6:
			return "partially aligned"
		default:
			return "weakly aligned"
		}
	}
	expBand := "meets the experience requirement"
	if r.Experience < 60 {
		expBand = "does not meet the experience requirement"
	}

	return fmt.Sprintf(
		"skills match is %s, responsibilities match is %s, title is %s, candidate %s",
		band(r.Skills), band(r.Responsibilities), titleBand(r.Title), expBand,
	)
}

// Candidate is one ranked result from Rank.
type Candidate struct {
	CVID   string
	Result *types.MatchResult
}

// Rank computes independent pairwise matches against jd for every
// (cvID, bundle, info) triple and returns the top_k by overall score.
// Each match is computed in isolation; no cross-CV information leaks
// between them.
func (e *Engine) Rank(ctx context.Context, jdID string, jd *types.Bundle, jdInfo types.StandardizedInfo, cvs []CandidateInput, weights Weights, topK int) ([]Candidate, error) {
	results := make([]Candidate, 0, len(cvs))
	for _, c := range cvs {
		r, err := e.Match(ctx, jdID, c.CVID, jd, c.Bundle, jdInfo, c.Info, weights)
		if err != nil {
			return nil, fmt.Errorf("rank: cv %s: %w", c.CVID, err)
		}
		results = append(results, Candidate{CVID: c.CVID, Result: r})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Result.Overall > results[j].Result.Overall
	})

	if topK > 0 && topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

// CandidateInput is one CV entry supplied to Rank.
type CandidateInput struct {
	CVID   string
	Bundle *types.Bundle
	Info   types.StandardizedInfo
}
