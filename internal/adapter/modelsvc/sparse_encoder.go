package modelsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"law-rag/internal/domain"
)

type sparseEncodeRequest struct {
	Model string   `json:"model,omitempty"`
	Texts []string `json:"texts"`
}

type sparseVectorPayload struct {
	Indices []uint32  `json:"indices"`
	Values  []float32 `json:"values"`
}

type sparseEncodeResponse struct {
	Vectors []sparseVectorPayload `json:"vectors"`
}

// SparseEncoder implements domain.SparseEncoder against a SPLADE-style
// encoding service.
type SparseEncoder struct {
	BaseURL string
	Model   string
	Client  *http.Client
	logger  *slog.Logger
}

// NewSparseEncoder constructs a SparseEncoder.
func NewSparseEncoder(baseURL, model string, client *http.Client, logger *slog.Logger) *SparseEncoder {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &SparseEncoder{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Model:   model,
		Client:  client,
		logger:  logger,
	}
}

// Encode returns one sparse vector per input text, in input order.
func (s *SparseEncoder) Encode(ctx context.Context, texts []string) ([]domain.SparseVector, error) {
	if len(texts) == 0 {
		return []domain.SparseVector{}, nil
	}

	start := time.Now()
	s.logger.Info("sparse_encode_started",
		slog.Int("text_count", len(texts)),
		slog.String("model", s.Model))

	jsonPayload, err := json.Marshal(sparseEncodeRequest{Model: s.Model, Texts: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sparse encode request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/sparse-encode", s.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonPayload))
	if err != nil {
		return nil, fmt.Errorf("failed to create sparse encode request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		s.logger.Error("sparse_encode_failed",
			slog.String("error", err.Error()),
			slog.Int64("elapsed_ms", time.Since(start).Milliseconds()))
		return nil, fmt.Errorf("failed to call sparse encode endpoint: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		s.logger.Error("sparse_encode_bad_status",
			slog.Int("status", resp.StatusCode),
			slog.Int64("elapsed_ms", time.Since(start).Milliseconds()))
		return nil, fmt.Errorf("sparse encode endpoint returned %d: %s", resp.StatusCode, truncateString(string(body), 500))
	}

	var respBody sparseEncodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
		return nil, fmt.Errorf("failed to decode sparse encode response: %w", err)
	}
	if len(respBody.Vectors) != len(texts) {
		return nil, fmt.Errorf("sparse encode endpoint returned %d vectors for %d texts", len(respBody.Vectors), len(texts))
	}

	vectors := make([]domain.SparseVector, len(respBody.Vectors))
	for i, payload := range respBody.Vectors {
		if len(payload.Indices) != len(payload.Values) {
			return nil, fmt.Errorf("sparse vector %d has %d indices and %d values", i, len(payload.Indices), len(payload.Values))
		}
		v := make(domain.SparseVector, len(payload.Indices))
		for j, term := range payload.Indices {
			v[term] = payload.Values[j]
		}
		vectors[i] = v
	}

	s.logger.Info("sparse_encode_completed",
		slog.Int("vector_count", len(vectors)),
		slog.Int64("elapsed_ms", time.Since(start).Milliseconds()))

	return vectors, nil
}

// Version returns the wrapped model name.
func (s *SparseEncoder) Version() string {
	return s.Model
}

var _ domain.SparseEncoder = (*SparseEncoder)(nil)
