package embedding

import (
	"context"
	"testing"

	"github.com/alphacv/matchcore/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(DefaultConfig())
	require.NoError(t, err)
	return e
}

func TestEmbedTextUnitNorm(t *testing.T) {
	e := newTestEngine(t)
	vec, err := e.EmbedText("Senior Go Engineer")
	require.NoError(t, err)
	require.Len(t, vec, types.VectorDim)

	var sumSq float64
	for _, v := range vec {
		sumSq += v * v
	}
	assert.InDelta(t, 1.0, sumSq, 1e-6)
}

func TestEmbedTextEmptyInput(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.EmbedText("   ")
	require.Error(t, err)
}

func TestEmbedTextDeterministic(t *testing.T) {
	e := newTestEngine(t)
	v1, err := e.EmbedText("Build scalable APIs")
	require.NoError(t, err)
	v2, err := e.EmbedText("Build scalable APIs")
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
}

func TestEmbedDocumentShape(t *testing.T) {
	e := newTestEngine(t)
	info := types.StandardizedInfo{
		JobTitle:        "Python Developer",
		ExperienceYears: 5,
		Skills:          []string{"Python"},
		Responsibilities: []string{"Build APIs"},
	}
	b, err := e.EmbedDocument(context.Background(), info)
	require.NoError(t, err)
	assert.Len(t, b.SkillVectors, types.SkillsCount)
	assert.Len(t, b.ResponsibilityVectors, types.RespCount)
	assert.Len(t, b.ExperienceVector, types.VectorDim)
	assert.Len(t, b.JobTitleVector, types.VectorDim)
}

func TestEmbedDocumentPadsEmptyLists(t *testing.T) {
	e := newTestEngine(t)
	info := types.StandardizedInfo{JobTitle: "", ExperienceYears: 0}
	b, err := e.EmbedDocument(context.Background(), info)
	require.NoError(t, err)
	assert.Len(t, b.SkillVectors, types.SkillsCount)
	assert.Len(t, b.ResponsibilityVectors, types.RespCount)
}

func TestCosZeroVector(t *testing.T) {
	zero := make([]float64, 8)
	other := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	assert.Equal(t, 0.0, Cos(zero, other))
}

func TestCosClampsNegative(t *testing.T) {
	a := []float64{1, 0}
	b := []float64{-1, 0}
	assert.Equal(t, 0.0, Cos(a, b))
}

func TestCosIdentical(t *testing.T) {
	a := []float64{3, 4}
	assert.InDelta(t, 1.0, Cos(a, a), 1e-9)
}

func TestCosMatrixShape(t *testing.T) {
	a := [][]float64{{1, 0}, {0, 1}}
	b := [][]float64{{1, 0}, {0, 1}, {1, 1}}
	m := CosMatrix(a, b)
	require.Len(t, m, 2)
	require.Len(t, m[0], 3)
	assert.InDelta(t, 1.0, m[0][0], 1e-9)
	assert.InDelta(t, 0.0, m[0][1], 1e-9)
}
