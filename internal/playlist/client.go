// Package playlist talks to the external playlist service. It is invoked
// only on positive feedback and always fire-and-forget: a slow or failing
// playlist call must never roll back a learning step.
package playlist

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Config holds the external service endpoint and credentials.
type Config struct {
	BaseURL    string        `mapstructure:"base_url"`
	PlaylistID string        `mapstructure:"playlist_id"`
	Token      string        `mapstructure:"token"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Retries    int           `mapstructure:"retries"`
}

// Client adds accepted tracks to the listener's playlist.
type Client struct {
	cfg    Config
	http   *resty.Client
	logger *zap.Logger
}

// New creates a playlist client. A client with no BaseURL is disabled and
// drops every call, which keeps the recommendation path independent of the
// external service being configured at all.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	http := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.Retries).
		SetAuthToken(cfg.Token)
	return &Client{cfg: cfg, http: http, logger: logger}
}

// Enabled reports whether an endpoint is configured.
func (c *Client) Enabled() bool {
	return c.cfg.BaseURL != ""
}

// AddTrackAsync queues the playlist mutation in the background and returns
// immediately. Errors are logged and dropped.
func (c *Client) AddTrackAsync(trackID string) {
	if !c.Enabled() || trackID == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.Timeout)
		defer cancel()
		if err := c.addTrack(ctx, trackID); err != nil {
			c.logger.Warn("playlist update failed",
				zap.String("trackId", trackID),
				zap.Error(err),
			)
		}
	}()
}

func (c *Client) addTrack(ctx context.Context, trackID string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("playlistId", c.cfg.PlaylistID).
		SetBody(map[string][]string{"uris": {"spotify:track:" + trackID}}).
		Post("/v1/playlists/{playlistId}/tracks")
	if err != nil {
		return err
	}
	if resp.IsError() {
		c.logger.Warn("playlist service rejected track",
			zap.String("trackId", trackID),
			zap.Int("status", resp.StatusCode()),
		)
	}
	return nil
}
