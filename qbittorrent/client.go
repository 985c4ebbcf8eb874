package qbittorrent

import (
	"context"
	"fmt"
	"sort"

	"github.com/autobrr/go-qbittorrent"
	"github.com/rs/zerolog"
)

// Client wraps the qBittorrent API client
type Client struct {
	client *qbittorrent.Client
	logger zerolog.Logger
}

// NewClient creates a typed qBittorrent client. No request is made here; the
// underlying client logs in on its first call. Use Login to check credentials
// up front.
func NewClient(url, username, password string, logger zerolog.Logger) *Client {
	client := qbittorrent.NewClient(qbittorrent.Config{
		Host:     url,
		Username: username,
		Password: password,
	})

	return &Client{
		client: client,
		logger: logger,
	}
}

// Login authenticates the typed client
func (c *Client) Login(ctx context.Context) error {
	if err := c.client.LoginCtx(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	return nil
}

// GetAllTorrents retrieves all torrents from qBittorrent, sorted by hash
func (c *Client) GetAllTorrents(ctx context.Context) ([]*TorrentInfo, error) {
	torrents, err := c.client.GetTorrentsCtx(ctx, qbittorrent.TorrentFilterOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get torrents: %w", err)
	}

	c.logger.Debug().Msgf("Retrieved %d torrents from qBittorrent", len(torrents))

	results := make([]*TorrentInfo, 0, len(torrents))
	for _, t := range torrents {
		results = append(results, NewTorrentInfo(t))
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Hash < results[j].Hash
	})

	return results, nil
}
