package service

import (
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/user/cinematch/internal/embedding"
	"github.com/user/cinematch/internal/repository"
	"github.com/user/cinematch/internal/vecindex"
)

// ErrIndexNotBuilt 索引尚未构建就有检索请求，属编程错误，启动阶段直接暴露
var ErrIndexNotBuilt = errors.New("service: 向量索引尚未构建")

// VectorSource 重建索引需要的向量扫描能力
type VectorSource interface {
	AllVectors() ([]repository.VectorRow, error)
}

// IndexService 维护进程内向量索引的生命周期
// 句柄通过 atomic.Pointer 发布：重建在旁侧完成后整体替换（copy-and-swap），
// 进行中的检索继续命中旧句柄，不会读到半成品。重建之间用互斥锁串行。
type IndexService struct {
	source VectorSource
	dim    int
	opts   vecindex.Options

	current   atomic.Pointer[vecindex.Index]
	rebuildMu sync.Mutex

	// 删除只能靠重建收敛，计数达到阈值触发一次
	deletes        atomic.Int64
	rebuildDeletes int
	interval       time.Duration
	stop           chan struct{}
}

// NewIndexService 创建索引服务
func NewIndexService(source VectorSource, dim int, opts vecindex.Options,
	rebuildDeletes int, interval time.Duration) *IndexService {
	return &IndexService{
		source:         source,
		dim:            dim,
		opts:           opts,
		rebuildDeletes: rebuildDeletes,
		interval:       interval,
		stop:           make(chan struct{}),
	}
}

// Current 取当前搜索就绪的索引句柄
func (s *IndexService) Current() (*vecindex.Index, error) {
	idx := s.current.Load()
	if idx == nil {
		return nil, ErrIndexNotBuilt
	}
	return idx, nil
}

// Rebuild 全量重建索引
// 按 id 升序扫出存量向量文本，逐条解码（坏数据跳过并打日志，不中断），
// 训练新索引后原子替换旧句柄。
func (s *IndexService) Rebuild() error {
	s.rebuildMu.Lock()
	defer s.rebuildMu.Unlock()

	start := time.Now()
	rows, err := s.source.AllVectors()
	if err != nil {
		return err
	}

	vectors := make([][]float32, 0, len(rows))
	ids := make([]int, 0, len(rows))
	skipped := 0
	for _, row := range rows {
		vec, err := embedding.DecodeVector(row.Embeddings, s.dim)
		if err != nil {
			// 坏行只降级跳过，绝不让整个索引构建失败
			log.Printf("[IndexService] 电影 %d 向量无法使用，已跳过: %v", row.MovieID, err)
			skipped++
			continue
		}
		vectors = append(vectors, vec)
		ids = append(ids, row.MovieID)
	}

	idx, err := vecindex.Build(vectors, ids, s.opts)
	if err != nil {
		return err
	}

	s.current.Store(idx)
	s.deletes.Store(0)
	log.Printf("[IndexService] 索引重建完成: %d 条向量, 跳过 %d 条, 耗时 %v",
		len(ids), skipped, time.Since(start))
	return nil
}

// Add 增量写入一条向量（新建或编辑后的电影立即可检索）
func (s *IndexService) Add(movieID int, vec []float32) error {
	idx := s.current.Load()
	if idx == nil {
		return ErrIndexNotBuilt
	}
	return idx.Add(movieID, vec)
}

// NoteDelete 记录一次删除，累计到阈值后台触发重建
func (s *IndexService) NoteDelete() {
	if s.rebuildDeletes <= 0 {
		return
	}
	if s.deletes.Add(1) >= int64(s.rebuildDeletes) {
		go func() {
			if err := s.Rebuild(); err != nil {
				log.Printf("[IndexService] 删除触发的重建失败: %v", err)
			}
		}()
	}
}

// Start 启动定时重建任务（兜底收敛删除和漏网的写入）
func (s *IndexService) Start() {
	if s.interval <= 0 {
		return
	}
	ticker := time.NewTicker(s.interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := s.Rebuild(); err != nil {
					log.Printf("[IndexService] 定时重建失败: %v", err)
				}
			case <-s.stop:
				return
			}
		}
	}()
}

// Stop 停止定时重建
func (s *IndexService) Stop() {
	close(s.stop)
}
