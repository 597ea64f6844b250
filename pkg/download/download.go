package download

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cavaliergopher/grab/v3"
	"github.com/dylanmazurek/debridify/internal/logger"
	"github.com/dylanmazurek/debridify/pkg/version"
	"github.com/rs/zerolog"
)

type Client struct {
	client           *grab.Client
	logger           zerolog.Logger
	progressInterval time.Duration
}

type Option func(*Client)

// WithProgressInterval sets how often progress is logged while a download runs.
func WithProgressInterval(d time.Duration) Option {
	return func(c *Client) {
		c.progressInterval = d
	}
}

func New(opts ...Option) *Client {
	gc := grab.NewClient()
	gc.UserAgent = version.UserAgent()

	c := &Client{
		client:           gc,
		logger:           logger.New("download"),
		progressInterval: 5 * time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Download fetches url into dir. When filename is empty grab picks it from the
// response headers or the URL. Returns the path written.
func (c *Client) Download(ctx context.Context, url, dir, filename string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}

	dst := dir
	if name := cleanFilename(filename); name != "" {
		dst = filepath.Join(dir, name)
	}

	req, err := grab.NewRequest(dst, url)
	if err != nil {
		return "", fmt.Errorf("create download request: %w", err)
	}
	req = req.WithContext(ctx)

	resp := c.client.Do(req)

	ticker := time.NewTicker(c.progressInterval)
	defer ticker.Stop()

Loop:
	for {
		select {
		case <-ticker.C:
			c.logger.Debug().
				Str("file", filepath.Base(resp.Filename)).
				Int64("bytes", resp.BytesComplete()).
				Float64("progress", resp.Progress()*100).
				Msg("downloading")
		case <-resp.Done:
			break Loop
		}
	}

	if err := resp.Err(); err != nil {
		return "", fmt.Errorf("download %s: %w", filepath.Base(dst), err)
	}

	c.logger.Info().
		Str("path", resp.Filename).
		Int64("bytes", resp.BytesComplete()).
		Dur("took", resp.Duration()).
		Msg("download complete")

	return resp.Filename, nil
}

func cleanFilename(name string) string {
	name = strings.TrimSpace(filepath.Base(strings.ReplaceAll(name, "\\", "/")))
	if name == "." || name == ".." || name == "/" {
		return ""
	}

	return name
}
