package vectorstore

import (
	"context"
	"testing"

	"github.com/alphacv/matchcore/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unitTitleVector(hot int) []float64 {
	v := make([]float64, types.VectorDim)
	v[hot%types.VectorDim] = 1
	return v
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(StoreConfig{Backend: NewInMemoryBackend()})
	require.NoError(t, err)
	return s
}

func putDocWithTitle(t *testing.T, s *Store, id string, kind types.DocKind, titleHot int) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.PutDocument(ctx, types.DocumentRecord{ID: id, Kind: kind, Filename: id + ".pdf"}))

	b := types.Bundle{
		SkillVectors:          make([][]float64, types.SkillsCount),
		ResponsibilityVectors: make([][]float64, types.RespCount),
		ExperienceVector:      make([]float64, types.VectorDim),
		JobTitleVector:        unitTitleVector(titleHot),
	}
	for i := range b.SkillVectors {
		b.SkillVectors[i] = make([]float64, types.VectorDim)
	}
	for i := range b.ResponsibilityVectors {
		b.ResponsibilityVectors[i] = make([]float64, types.VectorDim)
	}
	require.NoError(t, s.PutBundle(ctx, id, kind, b))
}

func TestSimilarDocuments_RanksByTitleVector(t *testing.T) {
	s := newTestStore(t)
	putDocWithTitle(t, s, "jd-go", types.KindJD, 0)
	putDocWithTitle(t, s, "jd-go-close", types.KindJD, 0)
	putDocWithTitle(t, s, "jd-unrelated", types.KindJD, 500)

	similar, err := s.SimilarDocuments(context.Background(), "jd-go", types.KindJD, 5)
	require.NoError(t, err)
	require.NotEmpty(t, similar)

	for _, e := range similar {
		assert.NotEqual(t, "jd-go", e.ID, "a document is never similar to itself")
		assert.Equal(t, types.KindJD, e.Kind)
	}
}

func TestSimilarDocuments_ExcludesOtherKind(t *testing.T) {
	s := newTestStore(t)
	putDocWithTitle(t, s, "jd-1", types.KindJD, 0)
	putDocWithTitle(t, s, "cv-1", types.KindCV, 0)

	similar, err := s.SimilarDocuments(context.Background(), "jd-1", types.KindJD, 5)
	require.NoError(t, err)
	for _, e := range similar {
		assert.Equal(t, types.KindJD, e.Kind)
	}
}

func TestSimilarDocuments_UnknownIDNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.SimilarDocuments(context.Background(), "missing", types.KindJD, 5)
	assert.Error(t, err)
}
