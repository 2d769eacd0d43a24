package filemoon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	appconfig "github.com/HaiFongPan/fmbot/internal/config"
)

// Client wraps the Filemoon HTTP JSON API
type Client struct {
	baseURL    *url.URL
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new API client from configuration
func NewClient(cfg *appconfig.APIConfig) (*Client, error) {
	return NewClientWithHTTP(cfg, &http.Client{Timeout: cfg.RequestTimeout()})
}

// NewClientWithHTTP creates a client that sends requests through httpClient
func NewClientWithHTTP(cfg *appconfig.APIConfig, httpClient *http.Client) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid api base url %q: %w", cfg.BaseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid api base url %q: scheme and host are required", cfg.BaseURL)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		baseURL:    base,
		apiKey:     cfg.Key,
		httpClient: httpClient,
	}, nil
}

// GetBaseURL returns the configured API base URL
func (c *Client) GetBaseURL() string {
	return c.baseURL.String()
}

// GetAccountInfo fetches account/info
func (c *Client) GetAccountInfo(ctx context.Context) (*AccountInfo, error) {
	env, err := c.call(ctx, "account/info", nil, "Error fetching account info.")
	if err != nil {
		return nil, err
	}

	var info AccountInfo
	if err := decodeResult("account/info", env, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// ListEncodings fetches encoding/list. The payload is returned undecoded.
func (c *Client) ListEncodings(ctx context.Context) (json.RawMessage, error) {
	env, err := c.call(ctx, "encoding/list", nil, "Error fetching encoding list.")
	if err != nil {
		return nil, err
	}
	return env.Result, nil
}

// ListFolders fetches the top level folders in API order
func (c *Client) ListFolders(ctx context.Context) ([]Folder, error) {
	params := url.Values{}
	params.Set("fld_id", "0")

	env, err := c.call(ctx, "folder/list", params, "Error fetching folders.")
	if err != nil {
		return nil, err
	}

	var result folderListResult
	if err := decodeResult("folder/list", env, &result); err != nil {
		return nil, err
	}
	if result.Folders == nil {
		return []Folder{}, nil
	}
	return result.Folders, nil
}

// ListFiles fetches the files stored in a folder
func (c *Client) ListFiles(ctx context.Context, folderID int64) ([]File, error) {
	params := url.Values{}
	params.Set("fld_id", strconv.FormatInt(folderID, 10))

	env, err := c.call(ctx, "file/list", params, "Error fetching files.")
	if err != nil {
		return nil, err
	}

	var result fileListResult
	if err := decodeResult("file/list", env, &result); err != nil {
		return nil, err
	}
	if result.Files == nil {
		return []File{}, nil
	}
	return result.Files, nil
}

// CreateFolder creates a top level folder and returns the API message
func (c *Client) CreateFolder(ctx context.Context, name string) (string, error) {
	params := url.Values{}
	params.Set("parent_id", "0")
	params.Set("name", name)

	env, err := c.call(ctx, "folder/create", params, "Error creating folder.")
	if err != nil {
		return "", err
	}
	return env.Msg, nil
}

// RenameFolder renames a folder
func (c *Client) RenameFolder(ctx context.Context, folderID int64, name string) error {
	params := url.Values{}
	params.Set("fld_id", strconv.FormatInt(folderID, 10))
	params.Set("name", name)

	_, err := c.call(ctx, "folder/rename", params, "Invalid operation")
	return err
}

// DeleteFolder deletes a folder
func (c *Client) DeleteFolder(ctx context.Context, folderID int64) error {
	params := url.Values{}
	params.Set("fld_id", strconv.FormatInt(folderID, 10))

	_, err := c.call(ctx, "folder/delete", params, "Invalid operation")
	return err
}

// SubmitRemoteUpload queues a remote upload and returns its file code
func (c *Client) SubmitRemoteUpload(ctx context.Context, sourceURL string, folderID int64) (string, error) {
	params := url.Values{}
	params.Set("url", sourceURL)
	params.Set("fld_id", strconv.FormatInt(folderID, 10))

	env, err := c.call(ctx, "remote/add", params, "Error initiating remote upload.")
	if err != nil {
		return "", err
	}

	var result remoteAddResult
	if err := decodeResult("remote/add", env, &result); err != nil {
		return "", err
	}
	if result.FileCode == "" {
		return "", &Error{
			Op:      "remote/add",
			Kind:    KindProtocol,
			Status:  env.Status,
			Message: "Remote upload accepted without a file code.",
		}
	}
	return result.FileCode, nil
}

// GetUploadStatus fetches remote/status for a file code. An empty Records
// slice is a valid answer.
func (c *Client) GetUploadStatus(ctx context.Context, fileCode string) (*UploadStatus, error) {
	params := url.Values{}
	params.Set("file_code", fileCode)

	env, err := c.call(ctx, "remote/status", params, "Error fetching upload status.")
	if err != nil {
		return nil, err
	}

	status := &UploadStatus{Msg: env.Msg}
	if isEmptyResult(env.Result) {
		return status, nil
	}
	if err := decodeResult("remote/status", env, &status.Records); err != nil {
		return nil, err
	}
	return status, nil
}

// call issues one GET request and validates the response envelope
func (c *Client) call(ctx context.Context, op string, params url.Values, fallbackMsg string) (*envelope, error) {
	endpoint := c.baseURL.ResolveReference(&url.URL{Path: op})

	query := url.Values{}
	for k, vs := range params {
		query[k] = vs
	}
	query.Set("key", c.apiKey)
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, &Error{Op: op, Kind: KindTransport, Message: err.Error(), Err: err}
	}
	req.Header.Set("Accept", "application/json")

	logrus.Debugf("filemoon: GET %s", op)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// *url.Error carries the request URL, key included
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			urlErr.URL = redact(urlErr.URL, c.apiKey)
		}
		msg := redact(err.Error(), c.apiKey)
		logrus.WithFields(logrus.Fields{"op": op, "error": msg}).Error("Request error")
		return nil, &Error{Op: op, Kind: KindTransport, Message: msg, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		msg := redact(err.Error(), c.apiKey)
		logrus.WithFields(logrus.Fields{"op": op, "error": msg}).Error("Failed to read response body")
		return nil, &Error{Op: op, Kind: KindTransport, Message: msg, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logrus.WithFields(logrus.Fields{"op": op, "http_status": resp.StatusCode}).Error("Unexpected HTTP status")
		return nil, &Error{
			Op:      op,
			Kind:    KindTransport,
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
		}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		logrus.WithFields(logrus.Fields{"op": op, "error": err}).Error("JSON decoding error")
		return nil, &Error{Op: op, Kind: KindProtocol, Message: "Error decoding JSON response.", Err: err}
	}

	if env.Status != StatusOK {
		msg := env.Msg
		if msg == "" {
			msg = fallbackMsg
		}
		logrus.WithFields(logrus.Fields{"op": op, "status": env.Status, "msg": env.Msg}).Warn("API returned failure status")
		return nil, &Error{Op: op, Kind: KindProtocol, Status: env.Status, Message: msg}
	}

	return &env, nil
}

// decodeResult unmarshals the envelope's result subtree into v
func decodeResult(op string, env *envelope, v interface{}) error {
	if isEmptyResult(env.Result) {
		return nil
	}
	if err := json.Unmarshal(env.Result, v); err != nil {
		logrus.WithFields(logrus.Fields{"op": op, "error": err}).Error("JSON decoding error")
		return &Error{Op: op, Kind: KindProtocol, Status: env.Status, Message: "Error decoding JSON response.", Err: err}
	}
	return nil
}

func isEmptyResult(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s == "" || s == "null" || s == "[]" || s == "{}" || s == `""`
}

// redact removes the API key from error text, url.Error includes the full URL
func redact(text, secret string) string {
	if secret == "" {
		return text
	}
	text = strings.ReplaceAll(text, url.QueryEscape(secret), "***")
	return strings.ReplaceAll(text, secret, "***")
}
