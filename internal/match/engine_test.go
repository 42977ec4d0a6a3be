package match

import (
	"context"
	"testing"

	"github.com/alphacv/matchcore/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unitVec(dim int, hot int) []float64 {
	v := make([]float64, dim)
	v[hot%dim] = 1
	return v
}

func makeBundle(skillHots, respHots []int, titleHot int) *types.Bundle {
	b := &types.Bundle{
		SkillVectors:          make([][]float64, types.SkillsCount),
		ResponsibilityVectors: make([][]float64, types.RespCount),
		ExperienceVector:      unitVec(types.VectorDim, 0),
		JobTitleVector:        unitVec(types.VectorDim, titleHot),
	}
	for i := range b.SkillVectors {
		b.SkillVectors[i] = unitVec(types.VectorDim, skillHots[i])
	}
	for i := range b.ResponsibilityVectors {
		b.ResponsibilityVectors[i] = unitVec(types.VectorDim, respHots[i])
	}
	return b
}

func identityHots(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestMatchPerfectAlignment(t *testing.T) {
	jd := makeBundle(identityHots(types.SkillsCount), identityHots(types.RespCount), 0)
	cv := makeBundle(identityHots(types.SkillsCount), identityHots(types.RespCount), 0)

	e := NewEngine(nil)
	result, err := e.Match(context.Background(), "jd-1", "cv-1", jd, cv,
		types.StandardizedInfo{ExperienceYears: 5}, types.StandardizedInfo{ExperienceYears: 5}, DefaultWeights())
	require.NoError(t, err)

	assert.InDelta(t, 100, result.Skills, 1e-6)
	assert.InDelta(t, 100, result.Responsibilities, 1e-6)
	assert.InDelta(t, 100, result.Title, 1e-6)
	assert.InDelta(t, 100, result.Overall, 1e-6)
	assert.Empty(t, result.UnmatchedJDSkills)
}

func TestMatchShapeError(t *testing.T) {
	jd := makeBundle(identityHots(types.SkillsCount), identityHots(types.RespCount), 0)
	bad := &types.Bundle{SkillVectors: jd.SkillVectors[:5]}

	e := NewEngine(nil)
	_, err := e.Match(context.Background(), "jd-1", "cv-1", jd, bad, types.StandardizedInfo{}, types.StandardizedInfo{}, DefaultWeights())
	require.Error(t, err)
}

func TestExperienceScoreBands(t *testing.T) {
	assert.Equal(t, 75.0, experienceScore(0, 3))
	assert.Equal(t, 100.0, experienceScore(3, 10))
	assert.InDelta(t, 85.0, experienceScore(5, 6), 1e-9)
	assert.InDelta(t, 30.0, experienceScore(10, 1), 1e-9)
	assert.InDelta(t, 48.0, experienceScore(5, 4), 1e-9)
}

func TestWeightsNormalization(t *testing.T) {
	w := Weights{Skills: 2, Responsibilities: 1, Title: 0.5, Experience: 0.5}.normalized()
	assert.InDelta(t, 1.0, w.Skills+w.Responsibilities+w.Title+w.Experience, 1e-9)

	defaults := Weights{}.normalized()
	assert.Equal(t, DefaultWeights(), defaults)
}

func TestAssignMaxSimilarityIsOptimal(t *testing.T) {
	sim := [][]float64{
		{0.9, 0.1},
		{0.1, 0.9},
	}
	assignment := assignMaxSimilarity(sim)
	assert.Equal(t, []int{0, 1}, assignment)

	sim2 := [][]float64{
		{0.1, 0.9},
		{0.9, 0.1},
	}
	assignment2 := assignMaxSimilarity(sim2)
	assert.Equal(t, []int{1, 0}, assignment2)
}

func TestRankOrdersByOverallScore(t *testing.T) {
	jd := makeBundle(identityHots(types.SkillsCount), identityHots(types.RespCount), 0)
	perfect := makeBundle(identityHots(types.SkillsCount), identityHots(types.RespCount), 0)
	weak := makeBundle(identityHots(types.SkillsCount), identityHots(types.RespCount), 1)

	e := NewEngine(nil)
	cvs := []CandidateInput{
		{CVID: "weak", Bundle: weak, Info: types.StandardizedInfo{ExperienceYears: 5}},
		{CVID: "perfect", Bundle: perfect, Info: types.StandardizedInfo{ExperienceYears: 5}},
	}
	ranked, err := e.Rank(context.Background(), "jd-1", jd, types.StandardizedInfo{ExperienceYears: 5}, cvs, DefaultWeights(), 2)
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, "perfect", ranked[0].CVID)
}
