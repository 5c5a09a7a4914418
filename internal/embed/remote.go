package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/cdeust/ai-prd-codeindex/internal/codeerr"
)

// RemoteConfig configures the HTTPS batch embedding provider.
type RemoteConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Dimension  int
	MaxBatch   int // 0 means no provider-declared cap
	HTTPClient *http.Client
}

type remoteProvider struct {
	cfg    RemoteConfig
	client *http.Client
}

// NewRemote constructs the HTTPS batch embedding provider that posts to
// {BaseURL}/embeddings.
func NewRemote(cfg RemoteConfig) Port {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = 1536
	}
	return &remoteProvider{cfg: cfg, client: cfg.HTTPClient}
}

func (p *remoteProvider) Dimension() int    { return p.cfg.Dimension }
func (p *remoteProvider) ModelName() string { return p.cfg.Model }

func (p *remoteProvider) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	if err := validateOne(text); err != nil {
		return nil, err
	}
	vecs, err := p.EmbedMany(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

type embeddingsRequest struct {
	Input          []string `json:"input"`
	Model          string   `json:"model"`
	EncodingFormat string   `json:"encoding_format"`
}

type embeddingDatum struct {
	Embedding []float32 `json:"embedding"`
	Index     int        `json:"index"`
}

type embeddingsResponse struct {
	Data  []embeddingDatum `json:"data"`
	Model string           `json:"model"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

func (p *remoteProvider) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	if err := validateMany(texts); err != nil {
		return nil, err
	}
	if err := checkBatchSize(texts, p.cfg.MaxBatch); err != nil {
		return nil, err
	}

	body, err := json.Marshal(embeddingsRequest{
		Input:          texts,
		Model:          p.cfg.Model,
		EncodingFormat: "float",
	})
	if err != nil {
		return nil, fmt.Errorf("marshal embeddings request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build embeddings request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embeddings request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embeddings response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		// fall through
	case http.StatusTooManyRequests:
		return nil, codeerr.RateLimited(string(respBody))
	default:
		return nil, codeerr.APIError(resp.StatusCode, string(respBody))
	}

	var parsed embeddingsResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode embeddings response: %w", err)
	}

	sort.Slice(parsed.Data, func(i, j int) bool { return parsed.Data[i].Index < parsed.Data[j].Index })

	out := make([][]float32, len(parsed.Data))
	for i, d := range parsed.Data {
		out[i] = d.Embedding
	}
	return out, nil
}
