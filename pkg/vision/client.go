package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/caroduarte/lumina-backend/pkg/errors"
)

const (
	defaultBaseURL             = "https://api.vision-gateway.dev/v1"
	defaultModel               = "gemini-3-flash-preview"
	requestBodyReadLimit int64 = 1024

	describeSystemPrompt = "You are a face analysis assistant. Describe the person's face in the image in detail including: hair color, hair style, eye color, skin tone, facial structure, any distinctive features like glasses, beard, etc. Be very specific and detailed."
	describeUserPrompt   = "Describe this person's face in detail for identification purposes."
	matchUserPrompt      = "Does the target person appear in this image?"
)

var (
	errAPIKeyRequired = errors.New("vision api key is required")

	confidenceRe = regexp.MustCompile(`(\d+)%`)
)

// Client wraps the chat-completions vision API used for face matching.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithModel overrides the default vision model.
func WithModel(model string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(model)
		if trimmed != "" {
			c.model = trimmed
		}
	}
}

// NewClient builds the vision client given an API key.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	trimmedKey := strings.TrimSpace(apiKey)
	if trimmedKey == "" {
		return nil, errAPIKeyRequired
	}

	client := &Client{
		apiKey:     trimmedKey,
		baseURL:    defaultBaseURL,
		model:      defaultModel,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}
	if client.model == "" {
		client.model = defaultModel
	}

	return client, nil
}

// MatchResult reports whether a face description appears in a photo.
type MatchResult struct {
	Matched    bool
	Confidence int
}

// DescribeFace asks the model for an identifying description of the face
// in the provided base64-encoded image.
func (c *Client) DescribeFace(ctx context.Context, imageBase64 string) (string, error) {
	if c == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "vision client not configured")
	}
	if strings.TrimSpace(imageBase64) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "reference image is required")
	}

	content, err := c.complete(ctx, describeSystemPrompt, describeUserPrompt, imageBase64)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(content) == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "empty face description from vision model")
	}
	return content, nil
}

// MatchFace asks the model whether the described person appears in the
// provided base64-encoded photo. The model answers YES or NO with a
// confidence percentage; missing percentages default to 50.
func (c *Client) MatchFace(ctx context.Context, faceDescription, imageBase64 string) (MatchResult, error) {
	if c == nil {
		return MatchResult{}, pkgerrors.New(pkgerrors.CodeDependency, "vision client not configured")
	}
	if strings.TrimSpace(faceDescription) == "" {
		return MatchResult{}, pkgerrors.New(pkgerrors.CodeValidation, "face description is required")
	}
	if strings.TrimSpace(imageBase64) == "" {
		return MatchResult{}, pkgerrors.New(pkgerrors.CodeValidation, "photo image is required")
	}

	system := fmt.Sprintf("You are a face matching assistant. The target person has these features: %s\n\nLook at the provided image and determine if this person appears in it. Respond with only 'YES' or 'NO' followed by confidence percentage (e.g., 'YES 85%%' or 'NO 10%%').", faceDescription)

	content, err := c.complete(ctx, system, matchUserPrompt, imageBase64)
	if err != nil {
		return MatchResult{}, err
	}

	return parseMatchResult(content), nil
}

func parseMatchResult(content string) MatchResult {
	result := MatchResult{
		Matched:    strings.Contains(strings.ToUpper(content), "YES"),
		Confidence: 50,
	}
	if m := confidenceRe.FindStringSubmatch(content); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			result.Confidence = v
		}
	}
	return result
}

func (c *Client) complete(ctx context.Context, system, prompt, imageBase64 string) (string, error) {
	payload := map[string]any{
		"model": c.model,
		"messages": []map[string]any{
			{
				"role":    "system",
				"content": system,
			},
			{
				"role": "user",
				"content": []map[string]any{
					{"type": "text", "text": prompt},
					{
						"type": "image_url",
						"image_url": map[string]any{
							"url": "data:image/jpeg;base64," + imageBase64,
						},
					},
				},
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal vision request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL("chat/completions"), bytes.NewReader(body))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build vision request")
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute vision request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, requestBodyReadLimit))
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "vision request failed")
	}

	var apiResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode vision response")
	}
	if len(apiResp.Choices) == 0 {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "vision response contained no choices")
	}

	return apiResp.Choices[0].Message.Content, nil
}

func (c *Client) buildURL(path string) string {
	trimmed := strings.TrimRight(c.baseURL, "/")
	path = strings.TrimLeft(path, "/")
	return fmt.Sprintf("%s/%s", trimmed, path)
}
