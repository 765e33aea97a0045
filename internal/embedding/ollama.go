package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Encoder 文本向量化接口
type Encoder interface {
	// Encode 把一段 UTF-8 文本编码为定长向量
	Encode(ctx context.Context, text string) ([]float32, error)
	// Dim 模型输出维度
	Dim() int
}

// ollamaRequest Ollama embedding API 请求结构
type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// ollamaResponse Ollama embedding API 响应结构
type ollamaResponse struct {
	Embedding []float32 `json:"embedding"`
}

// OllamaClient 调用本地 Ollama 服务生成向量
// 模型在 Ollama 进程内只加载一次，客户端本身无状态，可被并发使用。
type OllamaClient struct {
	host   string
	model  string
	dim    int
	client *http.Client
}

// NewOllamaClient 创建 Ollama 向量客户端
func NewOllamaClient(host, model string, dim int) *OllamaClient {
	return &OllamaClient{
		host:  host,
		model: model,
		dim:   dim,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Dim 模型输出维度
func (c *OllamaClient) Dim() int { return c.dim }

// Encode 生成文本向量
// 空文本不打模型，直接返回零向量（零向量与任何向量的相似度按 0 处理）。
func (c *OllamaClient) Encode(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return make([]float32, c.dim), nil
	}

	jsonData, err := json.Marshal(ollamaRequest{Model: c.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("序列化请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/api/embeddings", c.host), bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求 Ollama 失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama 返回异常状态码: %d", resp.StatusCode)
	}

	var result ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("解析响应失败: %w", err)
	}

	if len(result.Embedding) != c.dim {
		return nil, fmt.Errorf("模型输出维度不符: 期望 %d 实际 %d", c.dim, len(result.Embedding))
	}

	return result.Embedding, nil
}
