package cloudinary

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/caroduarte/lumina-backend/pkg/config"
	"github.com/caroduarte/lumina-backend/pkg/enums"
	"github.com/caroduarte/lumina-backend/pkg/logger"
)

const (
	apiBase      = "https://api.cloudinary.com/v1_1"
	deliveryBase = "https://res.cloudinary.com"

	watermarkedTransform = "c_fill,w_1200,q_auto/l_text:Arial_50_bold:CAROLINA%20DUARTE%20©%20PREVIEW,o_30,co_white,g_center/fl_layer_apply,fl_tiled"
	thumbnailTransform   = "c_fill,w_400,h_400,q_auto/l_text:Arial_20_bold:©,o_40,co_white,g_center"

	responseBodyReadLimit int64 = 2048
)

// Client talks to the Cloudinary upload API and builds delivery URLs with
// the rendition transformations applied.
type Client struct {
	httpClient  *http.Client
	apiURL      string
	deliveryURL string
	cloudName   string
	apiKey      string
	apiSecret   string
	folder      string
	now         func() time.Time
}

// UploadResult carries the asset metadata returned by Cloudinary.
type UploadResult struct {
	PublicID  string `json:"public_id"`
	SecureURL string `json:"secure_url"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Bytes     int64  `json:"bytes"`
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

// WithAPIURL overrides the upload API base URL.
func WithAPIURL(base string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(base)
		if trimmed != "" {
			c.apiURL = trimmed
		}
	}
}

// WithDeliveryURL overrides the delivery base URL.
func WithDeliveryURL(base string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(base)
		if trimmed != "" {
			c.deliveryURL = trimmed
		}
	}
}

// NewClient builds a Cloudinary client from the configured credentials.
func NewClient(ctx context.Context, cfg config.CloudinaryConfig, logg *logger.Logger, opts ...Option) (*Client, error) {
	if !cfg.Enabled() {
		return nil, errors.New("cloudinary credentials are required")
	}

	client := &Client{
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		apiURL:      apiBase,
		deliveryURL: deliveryBase,
		cloudName:   cfg.CloudName,
		apiKey:      cfg.APIKey,
		apiSecret:   cfg.APISecret,
		folder:      cfg.Folder,
		now:         time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if logg != nil {
		logg.Info(ctx, "cloudinary client initialized")
	}

	return client, nil
}

// Upload pushes an image to Cloudinary under the configured folder and
// returns the stored asset metadata.
func (c *Client) Upload(ctx context.Context, publicID string, content []byte) (*UploadResult, error) {
	if c == nil {
		return nil, errors.New("cloudinary client not initialized")
	}
	if strings.TrimSpace(publicID) == "" {
		return nil, errors.New("public id is required")
	}
	if len(content) == 0 {
		return nil, errors.New("content is required")
	}

	timestamp := strconv.FormatInt(c.now().UTC().Unix(), 10)
	params := map[string]string{
		"public_id": publicID,
		"timestamp": timestamp,
		"overwrite": "true",
	}
	if c.folder != "" {
		params["folder"] = c.folder
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range params {
		if err := writer.WriteField(key, value); err != nil {
			return nil, fmt.Errorf("write form field %q: %w", key, err)
		}
	}
	if err := writer.WriteField("api_key", c.apiKey); err != nil {
		return nil, fmt.Errorf("write api key field: %w", err)
	}
	if err := writer.WriteField("signature", c.sign(params)); err != nil {
		return nil, fmt.Errorf("write signature field: %w", err)
	}
	dataURI := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(content)
	if err := writer.WriteField("file", dataURI); err != nil {
		return nil, fmt.Errorf("write file field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalize multipart body: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/image/upload", strings.TrimRight(c.apiURL, "/"), url.PathEscape(c.cloudName))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute upload request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return nil, fmt.Errorf("upload failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var result UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}
	return &result, nil
}

// Destroy removes an uploaded asset.
func (c *Client) Destroy(ctx context.Context, publicID string) error {
	if c == nil {
		return errors.New("cloudinary client not initialized")
	}
	if strings.TrimSpace(publicID) == "" {
		return errors.New("public id is required")
	}

	timestamp := strconv.FormatInt(c.now().UTC().Unix(), 10)
	params := map[string]string{
		"public_id": publicID,
		"timestamp": timestamp,
	}

	form := url.Values{}
	for key, value := range params {
		form.Set(key, value)
	}
	form.Set("api_key", c.apiKey)
	form.Set("signature", c.sign(params))

	endpoint := fmt.Sprintf("%s/%s/image/destroy", strings.TrimRight(c.apiURL, "/"), url.PathEscape(c.cloudName))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build destroy request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute destroy request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return fmt.Errorf("destroy failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

// Fetch downloads the requested rendition of the stored asset.
func (c *Client) Fetch(ctx context.Context, publicID string, rendition enums.Rendition) ([]byte, error) {
	if c == nil {
		return nil, errors.New("cloudinary client not initialized")
	}
	target := c.RenditionURL(publicID, rendition)
	if target == "" {
		return nil, errors.New("public id is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build fetch request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute fetch request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch failed: status %d", resp.StatusCode)
	}
	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read fetch response: %w", err)
	}
	return content, nil
}

// RenditionURL builds the delivery URL for the requested rendition of the
// stored asset. Thumbnails and watermarked previews bake the overlay into
// the transformation; originals are served untransformed.
func (c *Client) RenditionURL(publicID string, rendition enums.Rendition) string {
	if c == nil || publicID == "" {
		return ""
	}

	base := fmt.Sprintf("%s/%s/image/upload", strings.TrimRight(c.deliveryURL, "/"), c.cloudName)
	switch rendition {
	case enums.RenditionThumbnail:
		return fmt.Sprintf("%s/%s/%s", base, thumbnailTransform, publicID)
	case enums.RenditionWatermarked:
		return fmt.Sprintf("%s/%s/%s", base, watermarkedTransform, publicID)
	default:
		return fmt.Sprintf("%s/%s", base, publicID)
	}
}

// sign produces the Cloudinary request signature: the sorted query string
// of the signed params concatenated with the API secret, SHA-1 hashed.
func (c *Client) sign(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+params[key])
	}

	digest := sha1.Sum([]byte(strings.Join(pairs, "&") + c.apiSecret))
	return hex.EncodeToString(digest[:])
}
