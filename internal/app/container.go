package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/ochronus/gotelegraph/internal/config"
	"github.com/ochronus/gotelegraph/pkg/telegraph"
	"github.com/sirupsen/logrus"
)

// Container centralizes the core dependencies used by the commands.
// It is intentionally small and uses interfaces so callers (and tests) can
// substitute implementations easily.
type Container struct {
	Config        *config.Config
	Logger        *logrus.Logger
	Client        telegraph.ClientAPI
	Out           io.Writer
	ValidateToken bool
}

// Option allows customizing the container during construction.
type Option func(*Container) error

// WithLogger overrides the default logger.
func WithLogger(logger *logrus.Logger) Option {
	return func(c *Container) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		c.Logger = logger
		return nil
	}
}

// WithClient overrides the default Telegraph client.
func WithClient(client telegraph.ClientAPI) Option {
	return func(c *Container) error {
		if client == nil {
			return fmt.Errorf("telegraph client cannot be nil")
		}
		c.Client = client
		return nil
	}
}

// WithOutput overrides where command results are written (default: stdout).
func WithOutput(w io.Writer) Option {
	return func(c *Container) error {
		if w == nil {
			return fmt.Errorf("output cannot be nil")
		}
		c.Out = w
		return nil
	}
}

// WithTokenValidation enables or disables access token validation (default: disabled).
func WithTokenValidation(validate bool) Option {
	return func(c *Container) error {
		c.ValidateToken = validate
		return nil
	}
}

// NewContainer builds a Container with sensible defaults derived from cfg.
// Options can be supplied to override specific dependencies (useful in tests).
func NewContainer(ctx context.Context, cfg *config.Config, opts ...Option) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	container := &Container{
		Config: cfg,
		Logger: buildDefaultLogger(cfg.Loglevel),
		Out:    os.Stdout,
	}

	// Apply options early so tests can inject mocks before defaults are created.
	for _, opt := range opts {
		if err := opt(container); err != nil {
			return nil, err
		}
	}

	if container.Client == nil {
		client, err := buildClient(cfg, container.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to build telegraph client: %w", err)
		}
		container.Client = client
	}

	if container.ValidateToken && cfg.AccessToken != "" {
		_, err := container.Client.GetAccountInfo(ctx, telegraph.GetAccountInfoRequest{AccessToken: cfg.AccessToken})
		if err != nil {
			return nil, fmt.Errorf("failed to verify telegraph access token: %w", err)
		}
	}

	return container, nil
}

func buildDefaultLogger(levelStr string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger
}

func buildClient(cfg *config.Config, logger *logrus.Logger) (*telegraph.Client, error) {
	opts := []telegraph.Option{
		telegraph.WithBaseURL(cfg.API.BaseURL),
		telegraph.WithUploadURL(cfg.API.UploadURL),
		telegraph.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second}),
		telegraph.WithLogger(logger),
	}
	if cfg.Upload.DetectExtension {
		opts = append(opts, telegraph.WithLocalFilenames(telegraph.DetectedFilenames))
	}
	return telegraph.NewClient(opts...)
}
