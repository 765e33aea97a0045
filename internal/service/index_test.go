package service

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/cinematch/internal/repository"
	"github.com/user/cinematch/internal/vecindex"
)

// fakeVectorSource 内存向量源，记录扫描次数
type fakeVectorSource struct {
	rows  []repository.VectorRow
	err   error
	scans atomic.Int64
}

func (f *fakeVectorSource) AllVectors() ([]repository.VectorRow, error) {
	f.scans.Add(1)
	return f.rows, f.err
}

func newTestIndexService(source VectorSource, rebuildDeletes int) *IndexService {
	return NewIndexService(source, 2, vecindex.Options{Clusters: 100, Nprobe: 8}, rebuildDeletes, 0)
}

func TestIndexServiceCurrentBeforeRebuild(t *testing.T) {
	svc := newTestIndexService(&fakeVectorSource{}, 32)

	_, err := svc.Current()
	require.ErrorIs(t, err, ErrIndexNotBuilt)

	err = svc.Add(1, []float32{1, 0})
	require.ErrorIs(t, err, ErrIndexNotBuilt)
}

func TestIndexServiceRebuild(t *testing.T) {
	// 规范 JSON 和历史空格格式都能进索引，坏行跳过不中断
	source := &fakeVectorSource{rows: []repository.VectorRow{
		{MovieID: 1, Embeddings: "[1, 0]"},
		{MovieID: 2, Embeddings: "[0 1]"},
		{MovieID: 3, Embeddings: "not a vector"},
	}}
	svc := newTestIndexService(source, 32)

	require.NoError(t, svc.Rebuild())

	idx, err := svc.Current()
	require.NoError(t, err)
	assert.Equal(t, 2, idx.Len())
	assert.True(t, idx.Contains(1))
	assert.True(t, idx.Contains(2))
	assert.False(t, idx.Contains(3))
}

func TestIndexServiceRebuildSwapsHandle(t *testing.T) {
	// 重建整体替换句柄，旧句柄仍可继续检索
	source := &fakeVectorSource{rows: []repository.VectorRow{
		{MovieID: 1, Embeddings: "[1, 0]"},
	}}
	svc := newTestIndexService(source, 32)
	require.NoError(t, svc.Rebuild())

	old, err := svc.Current()
	require.NoError(t, err)

	source.rows = []repository.VectorRow{
		{MovieID: 1, Embeddings: "[1, 0]"},
		{MovieID: 2, Embeddings: "[0, 1]"},
	}
	require.NoError(t, svc.Rebuild())

	cur, err := svc.Current()
	require.NoError(t, err)
	assert.NotSame(t, old, cur)
	assert.Equal(t, 1, old.Len())
	assert.Equal(t, 2, cur.Len())

	hits, err := old.Search([]float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 1, hits[0].ID)
}

func TestIndexServiceRebuildError(t *testing.T) {
	source := &fakeVectorSource{err: errors.New("db gone")}
	svc := newTestIndexService(source, 32)

	require.Error(t, svc.Rebuild())
	_, err := svc.Current()
	require.ErrorIs(t, err, ErrIndexNotBuilt)
}

func TestIndexServiceAdd(t *testing.T) {
	source := &fakeVectorSource{rows: []repository.VectorRow{
		{MovieID: 1, Embeddings: "[1, 0]"},
	}}
	svc := newTestIndexService(source, 32)
	require.NoError(t, svc.Rebuild())

	require.NoError(t, svc.Add(2, []float32{0, 1}))

	idx, err := svc.Current()
	require.NoError(t, err)
	assert.Equal(t, 2, idx.Len())
	assert.True(t, idx.Contains(2))
}

func TestIndexServiceNoteDeleteTriggersRebuild(t *testing.T) {
	// 删除计数达到阈值后触发一次后台重建并清零计数
	source := &fakeVectorSource{rows: []repository.VectorRow{
		{MovieID: 1, Embeddings: "[1, 0]"},
	}}
	svc := newTestIndexService(source, 2)
	require.NoError(t, svc.Rebuild())
	require.EqualValues(t, 1, source.scans.Load())

	svc.NoteDelete()
	require.EqualValues(t, 1, source.scans.Load())

	svc.NoteDelete()
	require.Eventually(t, func() bool {
		return source.scans.Load() >= 2
	}, time.Second, 10*time.Millisecond)
}

func TestIndexServiceNoteDeleteDisabled(t *testing.T) {
	// 阈值 <= 0 时删除计数不触发任何重建
	source := &fakeVectorSource{rows: []repository.VectorRow{
		{MovieID: 1, Embeddings: "[1, 0]"},
	}}
	svc := newTestIndexService(source, 0)
	require.NoError(t, svc.Rebuild())

	for i := 0; i < 10; i++ {
		svc.NoteDelete()
	}
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 1, source.scans.Load())
}
