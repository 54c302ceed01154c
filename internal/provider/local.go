package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// LocalBackend calls a self-hosted model server over plain HTTP.
//
// Request:  POST <url> {"prompt", "temperature", "top_k", "top_p", "max_tokens", "safety"}
// Response: {"response": "...", "tokens": n} or {"error": "..."}
type LocalBackend struct {
	url        string
	httpClient *http.Client
}

// NewLocalBackend creates a local backend. A nil client means
// http.DefaultClient, which has no timeout.
func NewLocalBackend(url string, client *http.Client) *LocalBackend {
	if client == nil {
		client = http.DefaultClient
	}
	return &LocalBackend{url: url, httpClient: client}
}

type localModelRequest struct {
	Prompt      string  `json:"prompt"`
	Temperature float32 `json:"temperature"`
	TopK        float32 `json:"top_k"`
	TopP        float32 `json:"top_p"`
	MaxTokens   int32   `json:"max_tokens"`
	Safety      string  `json:"safety"`
}

type localModelResponse struct {
	Response string `json:"response"`
	Tokens   int    `json:"tokens"`
	Error    string `json:"error"`
}

func (l *LocalBackend) Kind() Kind { return KindLocal }

func (l *LocalBackend) Generate(ctx context.Context, prompt string, cfg GenerationConfig) (Result, error) {
	jsonData, err := json.Marshal(localModelRequest{
		Prompt:      prompt,
		Temperature: cfg.Temperature,
		TopK:        cfg.TopK,
		TopP:        cfg.TopP,
		MaxTokens:   cfg.MaxOutputTokens,
		Safety:      string(cfg.Safety),
	})
	if err != nil {
		return Result{}, fmt.Errorf("error marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return Result{}, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("error making API request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("error reading response body: %w", err)
	}

	var localResp localModelResponse
	if jsonErr := json.Unmarshal(body, &localResp); jsonErr != nil && resp.StatusCode == http.StatusOK {
		return Result{}, fmt.Errorf("error unmarshaling response: %w", jsonErr)
	}
	if localResp.Error != "" {
		return Result{}, errors.New(localResp.Error)
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("local API request failed with status code %d: %s", resp.StatusCode, string(body))
	}

	return Result{Text: localResp.Response, Tokens: localResp.Tokens}, nil
}

// GenerateStream has no incremental transport; the whole reply is one chunk
func (l *LocalBackend) GenerateStream(ctx context.Context, prompt string, cfg GenerationConfig, sink func(string)) (Result, error) {
	res, err := l.Generate(ctx, prompt, cfg)
	if err != nil {
		return Result{}, err
	}
	if sink != nil && res.Text != "" {
		sink(res.Text)
	}
	return res, nil
}
