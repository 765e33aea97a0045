package embedding

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrBadVector 存量向量无法按任何已知格式解析
	ErrBadVector = errors.New("embedding: 向量格式无法解析")
	// ErrDimensionMismatch 向量维度与期望不一致
	ErrDimensionMismatch = errors.New("embedding: 向量维度不匹配")
)

// EncodeVector 把向量编码为规范的 JSON 数组文本
func EncodeVector(vec []float32) string {
	data, _ := json.Marshal(vec)
	return string(data)
}

// DecodeVector 解析文本编码的向量
// 先按规范 JSON 解析，失败后回退到历史格式 "[0.1 0.2 0.3]"
// （方括号包裹、空白分隔）。want > 0 时校验维度。
func DecodeVector(raw string, want int) ([]float32, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrBadVector
	}

	var vec []float32
	if err := json.Unmarshal([]byte(raw), &vec); err != nil {
		legacy, lerr := decodeLegacy(raw)
		if lerr != nil {
			return nil, fmt.Errorf("%w: %s", ErrBadVector, lerr)
		}
		vec = legacy
	}

	if want > 0 && len(vec) != want {
		return nil, fmt.Errorf("%w: 期望 %d 实际 %d", ErrDimensionMismatch, want, len(vec))
	}
	return vec, nil
}

// decodeLegacy 解析历史的空格分隔格式
func decodeLegacy(raw string) ([]float32, error) {
	if !strings.HasPrefix(raw, "[") || !strings.HasSuffix(raw, "]") {
		return nil, errors.New("缺少方括号包裹")
	}
	body := strings.TrimSpace(raw[1 : len(raw)-1])
	if body == "" {
		return nil, errors.New("向量为空")
	}

	fields := strings.Fields(body)
	vec := make([]float32, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return nil, fmt.Errorf("无法解析分量 %q", f)
		}
		vec = append(vec, float32(v))
	}
	return vec, nil
}
