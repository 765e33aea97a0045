package embedding

import (
	"context"
	"time"

	"github.com/user/cinematch/internal/utils"
	"golang.org/x/sync/singleflight"
)

// CachedEncoder 带缓存的向量化装饰器
// 同一段描述的并发请求用 singleflight 合并为一次模型调用，
// 结果进 LRU 缓存（模型对固定版本是确定性的，缓存不会失真）。
type CachedEncoder struct {
	inner Encoder
	cache *utils.TTLCache[[]float32]
	sf    singleflight.Group
}

// NewCachedEncoder 包装一个 Encoder
func NewCachedEncoder(inner Encoder, size int, ttl time.Duration) *CachedEncoder {
	return &CachedEncoder{
		inner: inner,
		cache: utils.NewTTLCache[[]float32](size, ttl),
	}
}

// Dim 模型输出维度
func (e *CachedEncoder) Dim() int { return e.inner.Dim() }

// Encode 生成文本向量（缓存命中则不打模型）
func (e *CachedEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := e.cache.Get(text); ok {
		return vec, nil
	}

	val, err, _ := e.sf.Do(text, func() (interface{}, error) {
		vec, err := e.inner.Encode(ctx, text)
		if err != nil {
			return nil, err
		}
		e.cache.Set(text, vec)
		return vec, nil
	})
	if err != nil {
		return nil, err
	}
	return val.([]float32), nil
}
