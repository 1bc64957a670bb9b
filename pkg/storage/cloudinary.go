package storage

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.cloudinary.com/v1_1"

// CloudinaryClient uploads identity documents to Cloudinary using its
// signed upload REST API
type CloudinaryClient struct {
	cloudName string
	apiKey    string
	apiSecret string
	folder    string
	baseURL   string
	client    *http.Client
}

// CloudinaryConfig holds configuration for the Cloudinary client
type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string // optional destination folder
	BaseURL   string // overridable for tests
}

// UploadResult is the stable outcome of a successful upload
type UploadResult struct {
	URL      string // HTTPS delivery URL
	PublicID string // asset identifier used for later deletion
}

// NewCloudinaryClient creates a new Cloudinary client
func NewCloudinaryClient(config CloudinaryConfig) *CloudinaryClient {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &CloudinaryClient{
		cloudName: config.CloudName,
		apiKey:    config.APIKey,
		apiSecret: config.APISecret,
		folder:    config.Folder,
		baseURL:   baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
	Error     struct {
		Message string `json:"message"`
	} `json:"error"`
}

type destroyResponse struct {
	Result string `json:"result"`
	Error  struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Upload stores the document and returns its delivery URL and public id
func (c *CloudinaryClient) Upload(ctx context.Context, filename string, content io.Reader) (*UploadResult, error) {
	if c.cloudName == "" || c.apiKey == "" || c.apiSecret == "" {
		return nil, fmt.Errorf("cloudinary credentials are not configured")
	}

	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	params := map[string]string{
		"timestamp": timestamp,
	}
	if c.folder != "" {
		params["folder"] = c.folder
	}
	params["signature"] = c.sign(params)
	params["api_key"] = c.apiKey

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for key, value := range params {
		if err := writer.WriteField(key, value); err != nil {
			return nil, fmt.Errorf("failed to write form field %s: %w", key, err)
		}
	}

	part, err := writer.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("failed to copy file content: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/image/upload", c.baseURL, c.cloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send upload request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload response: %w", err)
	}

	var uploadResp uploadResponse
	if err := json.Unmarshal(respBody, &uploadResp); err != nil {
		return nil, fmt.Errorf("failed to parse upload response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || uploadResp.Error.Message != "" {
		return nil, fmt.Errorf("upload failed (status %d): %s", resp.StatusCode, uploadResp.Error.Message)
	}

	return &UploadResult{
		URL:      uploadResp.SecureURL,
		PublicID: uploadResp.PublicID,
	}, nil
}

// Delete removes an uploaded asset by its public id
func (c *CloudinaryClient) Delete(ctx context.Context, publicID string) error {
	if publicID == "" {
		return nil
	}

	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	params := map[string]string{
		"public_id": publicID,
		"timestamp": timestamp,
	}
	form := url.Values{
		"public_id": {publicID},
		"timestamp": {timestamp},
		"api_key":   {c.apiKey},
		"signature": {c.sign(params)},
	}

	endpoint := fmt.Sprintf("%s/%s/image/destroy", c.baseURL, c.cloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create destroy request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send destroy request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read destroy response: %w", err)
	}

	var destroyResp destroyResponse
	if err := json.Unmarshal(respBody, &destroyResp); err != nil {
		return fmt.Errorf("failed to parse destroy response: %w", err)
	}

	// "not found" is treated as success, the asset is already gone
	if destroyResp.Result != "ok" && destroyResp.Result != "not found" {
		return fmt.Errorf("destroy failed: %s %s", destroyResp.Result, destroyResp.Error.Message)
	}

	return nil
}

// sign computes the Cloudinary request signature: sorted key=value pairs
// joined with & followed by the API secret, hashed with SHA-1
func (c *CloudinaryClient) sign(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+params[key])
	}

	payload := strings.Join(pairs, "&") + c.apiSecret
	sum := sha1.Sum([]byte(payload))
	return hex.EncodeToString(sum[:])
}
