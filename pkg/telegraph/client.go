// Package telegraph is a client for the telegra.ph publishing API.
package telegraph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultBaseURL   = "https://api.telegra.ph"
	DefaultUploadURL = "https://telegra.ph/upload"
	DefaultTimeout   = 30 * time.Second
)

// Client represents a Telegraph API client
type Client struct {
	baseURL       string
	uploadURL     string
	httpClient    *http.Client
	logger        logrus.FieldLogger
	localFilename FilenameFunc
}

var _ ClientAPI = (*Client)(nil)

// Option customizes a Client during construction.
type Option func(*Client) error

// WithBaseURL sets the origin the API methods are posted to.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) error {
		if _, err := url.ParseRequestURI(baseURL); err != nil {
			return fmt.Errorf("base url is invalid: %v", err)
		}
		c.baseURL = strings.TrimRight(baseURL, "/")
		return nil
	}
}

// WithUploadURL sets the endpoint files are uploaded to.
func WithUploadURL(uploadURL string) Option {
	return func(c *Client) error {
		if _, err := url.ParseRequestURI(uploadURL); err != nil {
			return fmt.Errorf("upload url is invalid: %v", err)
		}
		c.uploadURL = uploadURL
		return nil
	}
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) error {
		if httpClient == nil {
			return fmt.Errorf("http client cannot be nil")
		}
		c.httpClient = httpClient
		return nil
	}
}

// WithLogger sets the logger used for per-call debug output.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Client) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		c.logger = logger
		return nil
	}
}

// WithLocalFilenames sets how local upload parts are named.
func WithLocalFilenames(fn FilenameFunc) Option {
	return func(c *Client) error {
		if fn == nil {
			return fmt.Errorf("filename func cannot be nil")
		}
		c.localFilename = fn
		return nil
	}
}

// NewClient creates a new Telegraph client
func NewClient(opts ...Option) (*Client, error) {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	c := &Client{
		baseURL:   DefaultBaseURL,
		uploadURL: DefaultUploadURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger:        discard,
		localFilename: PNGFilenames,
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// envelope is the wrapper every API method responds with
type envelope struct {
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

// call posts body as JSON to the method's path and decodes the result field
// of a successful envelope into out.
func (c *Client) call(ctx context.Context, method string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("error encoding %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	log := c.logger.WithField("method", method)
	log.Debug("Calling telegraph")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	log = log.WithField("status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Debug("Telegraph returned a non-success status")
		return &TransportError{Method: method, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading %s response: %w", method, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("error decoding %s response: %w", method, err)
	}

	if !env.OK {
		log.WithField("error", env.Error).Debug("Telegraph rejected the request")
		return &EnvelopeError{Method: method, Description: env.Error, Raw: raw}
	}

	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("error decoding %s result: %w", method, err)
	}

	return nil
}

// CreateAccount creates a new Telegraph account. The returned account carries
// its access token.
func (c *Client) CreateAccount(ctx context.Context, req CreateAccountRequest) (*Account, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	var result Account
	if err := c.call(ctx, "createAccount", req, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// EditAccountInfo updates information about an account
func (c *Client) EditAccountInfo(ctx context.Context, req EditAccountInfoRequest) (*Account, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	var result Account
	if err := c.call(ctx, "editAccountInfo", req, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// GetAccountInfo retrieves account information. Fields defaults to
// DefaultAccountFields.
func (c *Client) GetAccountInfo(ctx context.Context, req GetAccountInfoRequest) (*Account, error) {
	req = req.withDefaults()
	if err := req.validate(); err != nil {
		return nil, err
	}

	var result Account
	if err := c.call(ctx, "getAccountInfo", req, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// RevokeAccessToken revokes the access token and generates a new one
func (c *Client) RevokeAccessToken(ctx context.Context, req RevokeAccessTokenRequest) (*Account, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	var result Account
	if err := c.call(ctx, "revokeAccessToken", req, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// CreatePage creates a new page
func (c *Client) CreatePage(ctx context.Context, req CreatePageRequest) (*Page, error) {
	req = req.withDefaults()
	if err := req.validate(); err != nil {
		return nil, err
	}

	var result Page
	if err := c.call(ctx, "createPage", req, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// EditPage edits an existing page
func (c *Client) EditPage(ctx context.Context, req EditPageRequest) (*Page, error) {
	req = req.withDefaults()
	if err := req.validate(); err != nil {
		return nil, err
	}

	var result Page
	if err := c.call(ctx, "editPage", req, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// GetPage returns a page
func (c *Client) GetPage(ctx context.Context, req GetPageRequest) (*Page, error) {
	req = req.withDefaults()
	if err := req.validate(); err != nil {
		return nil, err
	}

	var result Page
	if err := c.call(ctx, "getPage", req, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// GetPageList returns the pages of an account, most recently created first.
// Offset and Limit default to 0 and 50.
func (c *Client) GetPageList(ctx context.Context, req GetPageListRequest) (*PageList, error) {
	req = req.withDefaults()
	if err := req.validate(); err != nil {
		return nil, err
	}

	var result PageList
	if err := c.call(ctx, "getPageList", req, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// GetViews returns the number of views for a page
func (c *Client) GetViews(ctx context.Context, req GetViewsRequest) (*PageViews, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	var result PageViews
	if err := c.call(ctx, "getViews", req, &result); err != nil {
		return nil, err
	}

	return &result, nil
}
