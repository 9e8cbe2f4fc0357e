package store

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"course-rag/internal/embedding"
	"course-rag/internal/models"
)

// mockEmbedder produces deterministic normalized vectors so similar texts get
// similar embeddings without a network call
type mockEmbedder struct {
	dims int
}

func (m *mockEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = m.vector(text)
	}
	return vectors, nil
}

func (m *mockEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return m.vector(text), nil
}

func (m *mockEmbedder) vector(text string) []float32 {
	vec := make([]float32, m.dims)
	for i, ch := range text {
		vec[(int(ch)+i)%m.dims]++
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec
}

func newTestManager(t *testing.T, uploadDir string) *Manager {
	t.Helper()
	embedder := &mockEmbedder{dims: 64}
	idx, err := NewChromemIndex("", "course_material", true, embedding.ToChromemFunc(embedder))
	require.NoError(t, err)
	return NewManager(idx, embedder, uploadDir)
}

func fragmentsFor(texts ...string) []models.Fragment {
	fragments := make([]models.Fragment, len(texts))
	offset := 0
	for i, text := range texts {
		fragments[i] = models.Fragment{
			Text:  text,
			Page:  1,
			Start: offset,
			End:   offset + len(text),
			Index: i,
		}
		offset += len(text)
	}
	return fragments
}

func TestAddAndListSources(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, "")

	frags := fragmentsFor(
		"进程调度决定下一个运行的进程",
		"内存管理负责分配与回收物理内存",
		"文件系统提供持久化存储抽象",
	)
	require.NoError(t, m.Add(ctx, "syllabus.pdf", models.ProcessingNative, frags))

	sources, err := m.ListSources(ctx)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "syllabus.pdf", sources[0].Filename)
	assert.Equal(t, 3, sources[0].ChunkCount)
	assert.NotEmpty(t, sources[0].UploadTime)
}

func TestReplaceSupersedesPreviousIngestion(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, "")

	require.NoError(t, m.Replace(ctx, "notes.docx", models.ProcessingNative,
		fragmentsFor("first version part one", "first version part two")))
	require.NoError(t, m.Replace(ctx, "notes.docx", models.ProcessingNative,
		fragmentsFor("second version, single fragment")))

	sources, err := m.ListSources(ctx)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "notes.docx", sources[0].Filename)
	assert.Equal(t, 1, sources[0].ChunkCount)
}

func TestDeleteSourceIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, "")

	require.NoError(t, m.Add(ctx, "syllabus.pdf", models.ProcessingNative,
		fragmentsFor("scheduling", "memory", "filesystem")))

	require.NoError(t, m.DeleteSource(ctx, "syllabus.pdf"))
	sources, err := m.ListSources(ctx)
	require.NoError(t, err)
	assert.Empty(t, sources)

	// second delete is a no-op, not an error
	require.NoError(t, m.DeleteSource(ctx, "syllabus.pdf"))
	// deleting a source that never existed is also fine
	require.NoError(t, m.DeleteSource(ctx, "ghost.pdf"))
}

func TestDeleteSourceRemovesUploadArtifact(t *testing.T) {
	ctx := context.Background()
	uploadDir := t.TempDir()
	m := newTestManager(t, uploadDir)

	artifact := filepath.Join(uploadDir, "syllabus.pdf")
	require.NoError(t, os.WriteFile(artifact, []byte("%PDF-1.4"), 0o644))
	require.NoError(t, m.Add(ctx, "syllabus.pdf", models.ProcessingNative,
		fragmentsFor("a fragment")))

	require.NoError(t, m.DeleteSource(ctx, "syllabus.pdf"))
	_, err := os.Stat(artifact)
	assert.True(t, os.IsNotExist(err))
}

func TestDeleteLeavesOtherSourcesAlone(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, "")

	require.NoError(t, m.Add(ctx, "one.pdf", models.ProcessingNative,
		fragmentsFor("scheduling chapter", "memory chapter")))
	require.NoError(t, m.Add(ctx, "two.docx", models.ProcessingOCR,
		fragmentsFor("network chapter")))

	require.NoError(t, m.DeleteSource(ctx, "one.pdf"))

	sources, err := m.ListSources(ctx)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "two.docx", sources[0].Filename)

	hits, err := m.Search(ctx, "network chapter", 5)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	for _, hit := range hits {
		assert.Equal(t, "two.docx", hit.Metadata[MetaSource])
	}
}

func TestSearchReturnsRankedFragmentsWithMetadata(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, "")

	require.NoError(t, m.Add(ctx, "os.pdf", models.ProcessingNative, fragmentsFor(
		"進程調度 scheduling algorithms round robin",
		"virtual memory paging and segmentation",
		"grading policy and office hours",
	)))

	hits, err := m.Search(ctx, "scheduling algorithms round robin", 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)

	// descending similarity, best match first
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Similarity, hits[i].Similarity)
	}
	assert.True(t, strings.Contains(hits[0].Content, "scheduling"))

	meta := hits[0].Metadata
	assert.Equal(t, "os.pdf", meta[MetaSource])
	assert.Equal(t, "1", meta[MetaPage])
	assert.Equal(t, models.ProcessingNative, meta[MetaMethod])
	assert.NotEmpty(t, meta[MetaUploadTime])
}

func TestListSourcesStaysOffTheEmbeddingAPI(t *testing.T) {
	ctx := context.Background()
	embedder := &mockEmbedder{dims: 64}
	calls := 0
	embedFunc := func(ctx context.Context, text string) ([]float32, error) {
		calls++
		return embedder.EmbedQuery(ctx, text)
	}
	idx, err := NewChromemIndex("", "course_material", true, embedFunc)
	require.NoError(t, err)
	m := NewManager(idx, embedder, "")

	require.NoError(t, m.Add(ctx, "syllabus.pdf", models.ProcessingNative,
		fragmentsFor("进程调度", "内存管理")))

	for i := 0; i < 3; i++ {
		sources, err := m.ListSources(ctx)
		require.NoError(t, err)
		require.Len(t, sources, 1)
		assert.Equal(t, 2, sources[0].ChunkCount)
	}
	assert.Zero(t, calls, "listing must reuse a stored embedding")
}

func TestSearchEmptyIndex(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, "")

	hits, err := m.Search(ctx, "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}
