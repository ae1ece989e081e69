// Package openrouter classifies damage photos through an OpenAI-compatible chat
// completions endpoint (OpenRouter by default).
package openrouter

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"damagereport-be/models"
	"damagereport-be/storage"
)

const (
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	DefaultModel   = "anthropic/claude-sonnet-4"

	requestTimeout = 60 * time.Second
	maxTokens      = 500
	maxReplyBytes  = 4 << 20
)

var requiredFields = []string{"severity", "damage_type", "value_impact", "liability"}

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

type Client struct {
	apiKey  string
	baseURL string
	model   string
	disk    storage.Disk
	httpc   *http.Client
}

// New fails with a KindMissingConfiguration error when the API key is empty.
func New(cfg Config, disk storage.Disk) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, missingConfiguration("api_key")
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		disk:    disk,
		httpc:   &http.Client{Timeout: requestTimeout},
	}, nil
}

// WithHTTPClient overrides the internal HTTP client.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	if h != nil {
		c.httpc = h
	}
	return c
}

func (c *Client) Model() string { return c.model }

// Analyze reads the photo from storage and asks the model to classify the damage.
func (c *Client) Analyze(ctx context.Context, photoPath string) (models.Analysis, error) {
	dataURL, err := c.readImageAsDataURL(ctx, photoPath)
	if err != nil {
		return models.Analysis{}, err
	}

	body := map[string]any{
		"model": c.model,
		"messages": []any{
			map[string]any{
				"role": "user",
				"content": []any{
					map[string]any{"type": "text", "text": analysisPrompt},
					map[string]any{"type": "image_url", "image_url": map[string]any{"url": dataURL}},
				},
			},
		},
		"max_tokens": maxTokens,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return models.Analysis{}, fmt.Errorf("openrouter: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return models.Analysis{}, fmt.Errorf("openrouter: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return models.Analysis{}, fmt.Errorf("openrouter: request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return models.Analysis{}, fmt.Errorf("openrouter: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return models.Analysis{}, apiError(errorMessage(raw), resp.StatusCode)
	}
	return parseResponse(raw)
}

func (c *Client) readImageAsDataURL(ctx context.Context, p string) (string, error) {
	ok, err := c.disk.Exists(ctx, p)
	if err != nil {
		return "", fmt.Errorf("openrouter: check image %s: %w", p, err)
	}
	if !ok {
		return "", imageNotFound(p)
	}

	img, err := c.disk.Get(ctx, p)
	if errors.Is(err, storage.ErrNotFound) {
		return "", imageNotFound(p)
	}
	if err != nil || img == nil {
		return "", invalidResponse("Could not read image at path: " + p)
	}

	mime, err := c.disk.MimeType(ctx, p)
	if err != nil || mime == "" {
		mime = mimetype.Detect(img).String()
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img), nil
}

func errorMessage(raw []byte) string {
	var e struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &e); err == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	return "Unknown error"
}

func parseResponse(raw []byte) (models.Analysis, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return models.Analysis{}, invalidResponse("Empty response")
	}

	var env struct {
		Choices []struct {
			Message struct {
				Content json.RawMessage `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return models.Analysis{}, invalidResponse("Empty response")
	}

	var content string
	if len(env.Choices) > 0 {
		_ = json.Unmarshal(env.Choices[0].Message.Content, &content)
	}
	if strings.TrimSpace(content) == "" {
		return models.Analysis{}, invalidResponse("No content in response")
	}

	dec := json.NewDecoder(strings.NewReader(stripCodeFences(content)))
	dec.UseNumber()
	var parsed map[string]any
	if err := dec.Decode(&parsed); err != nil || parsed == nil {
		return models.Analysis{}, invalidResponse("Response is not valid JSON")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return models.Analysis{}, invalidResponse("Response is not valid JSON")
	}

	values := make(map[string]string, len(requiredFields))
	for _, key := range requiredFields {
		v, ok := parsed[key]
		if !ok || v == nil {
			return models.Analysis{}, invalidResponse("Missing required field: " + key)
		}
		values[key] = stringify(v)
	}

	return models.Analysis{
		Severity:    values["severity"],
		DamageType:  values["damage_type"],
		ValueImpact: values["value_impact"],
		Liability:   values["liability"],
	}, nil
}

// stringify coerces a decoded JSON value to the string that gets stored.
func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	default:
		b, _ := json.Marshal(x)
		return string(b)
	}
}
