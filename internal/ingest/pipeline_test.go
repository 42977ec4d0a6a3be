package ingest

import (
	"context"
	"testing"

	"github.com/alphacv/matchcore/internal/embedding"
	"github.com/alphacv/matchcore/internal/vectorstore"
	"github.com/alphacv/matchcore/pkg/types"
	"github.com/stretchr/testify/require"
)

func newTestPipeline(t *testing.T) (*Pipeline, *vectorstore.Store, *InMemoryJDLookup) {
	t.Helper()

	eng, err := embedding.New(embedding.DefaultConfig())
	require.NoError(t, err)

	store, err := vectorstore.NewStore(vectorstore.StoreConfig{Backend: vectorstore.NewInMemoryBackend()})
	require.NoError(t, err)

	jd := NewInMemoryJDLookup()
	p := New(DefaultConfig(), NoOpParser{}, NoOpStandardizer{}, eng, store, jd, nil, nil)
	return p, store, jd
}

func TestPipeline_ProcessPersistsAllThreeCollections(t *testing.T) {
	p, store, jd := newTestPipeline(t)

	job := &types.Job{
		JobID: "job-1",
		Application: types.ApplicationData{
			ApplicationID: "app-1",
			JDToken:       "jd-token-1",
			FileURI:       "s3://bucket/cv.pdf",
			Filename:      "cv.pdf",
			Format:        "pdf",
		},
	}

	result, err := p.Process(context.Background(), job)
	require.NoError(t, err)
	require.Equal(t, "app-1", result.DocumentID)

	ctx := context.Background()
	doc, err := store.GetDocument(ctx, "app-1", types.KindCV)
	require.NoError(t, err)
	require.Equal(t, "cv.pdf", doc.Filename)

	structured, err := store.GetStructured(ctx, "app-1", types.KindCV)
	require.NoError(t, err)
	require.Equal(t, "Professional", structured.Payload.JobTitle)

	bundle, err := store.GetBundle(ctx, "app-1", types.KindCV)
	require.NoError(t, err)
	require.Len(t, bundle.SkillVectors, types.SkillsCount)
	require.Len(t, bundle.ResponsibilityVectors, types.RespCount)

	linkedJD, ok := jd.LinkedJD("app-1")
	require.True(t, ok)
	require.Equal(t, "jd-token-1", linkedJD)
}

func TestPipeline_RejectsClosedJD(t *testing.T) {
	p, _, jd := newTestPipeline(t)
	jd.SetOpen("closed-jd", false)

	job := &types.Job{
		Application: types.ApplicationData{ApplicationID: "app-2", JDToken: "closed-jd", FileURI: "x", Filename: "x.pdf"},
	}

	_, err := p.Process(context.Background(), job)
	require.Error(t, err)
}

func TestPipeline_ReprocessingIsIdempotent(t *testing.T) {
	p, store, _ := newTestPipeline(t)

	job := &types.Job{
		Application: types.ApplicationData{ApplicationID: "app-3", JDToken: "jd-token-3", FileURI: "cv text v1", Filename: "cv.pdf"},
	}
	_, err := p.Process(context.Background(), job)
	require.NoError(t, err)

	job.Application.FileURI = "cv text v2"
	_, err = p.Process(context.Background(), job)
	require.NoError(t, err)

	doc, err := store.GetDocument(context.Background(), "app-3", types.KindCV)
	require.NoError(t, err)
	require.Equal(t, "cv text v2", doc.RawText)
}
