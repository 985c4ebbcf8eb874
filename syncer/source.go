//go:generate mockgen -source=source.go -destination=mock_source_test.go -package=syncer

package syncer

import "context"

// Source fetches one raw sync payload for the given cursor. rid 0 requests
// the full state. qbittorrent.SyncFetcher implements it.
type Source interface {
	Fetch(ctx context.Context, rid int64) ([]byte, error)
}
