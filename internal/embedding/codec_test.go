package embedding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeVectorJSON(t *testing.T) {
	vec, err := DecodeVector("[0.1, 0.2, 0.3]", 3)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}

func TestDecodeVectorLegacy(t *testing.T) {
	// 历史存量格式：方括号包裹、空白分隔
	vec, err := DecodeVector("[0.1 0.2 0.3]", 3)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}

func TestDecodeVectorFormatsAgree(t *testing.T) {
	// 两种编码表示同一向量时解析结果必须一致
	a, err := DecodeVector("[0.5, -1.25, 3]", 0)
	require.NoError(t, err)
	b, err := DecodeVector("[0.5 -1.25 3]", 0)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := []float32{0.25, -0.5, 1}
	out, err := DecodeVector(EncodeVector(in), 3)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecodeVectorMalformed(t *testing.T) {
	cases := []string{
		"",
		"   ",
		"0.1 0.2 0.3",
		"[0.1 abc 0.3]",
		"[,]",
		"not a vector",
	}
	for _, raw := range cases {
		_, err := DecodeVector(raw, 0)
		assert.ErrorIs(t, err, ErrBadVector, "raw=%q", raw)
	}
}

func TestDecodeVectorDimensionMismatch(t *testing.T) {
	_, err := DecodeVector("[0.1, 0.2]", 3)
	require.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = DecodeVector("[0.1 0.2]", 3)
	require.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestDecodeVectorNoDimensionCheck(t *testing.T) {
	// want <= 0 时跳过维度校验
	vec, err := DecodeVector("[1, 2, 3, 4, 5]", 0)
	require.NoError(t, err)
	assert.Len(t, vec, 5)
}
