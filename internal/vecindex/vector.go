package vecindex

import "math"

// Norm 计算向量的 L2 范数
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Normalize 返回 v 的 L2 归一化副本
// 零向量没有方向，原样复制返回（与任何向量的内积恒为 0）。
func Normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	n := Norm(v)
	if n == 0 {
		copy(out, v)
		return out
	}
	inv := float32(1 / n)
	for i, x := range v {
		out[i] = x * inv
	}
	return out
}

// Dot 计算内积，长度以较短者为准
func Dot(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float32
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

// Cosine 计算余弦相似度，任一侧为零向量时返回 0
func Cosine(a, b []float32) float64 {
	na, nb := Norm(a), Norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return float64(Dot(a, b)) / (na * nb)
}
