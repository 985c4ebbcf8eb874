package filter

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/s0up4200/qbitsync/qbittorrent"
)

// EvaluatorOption configures an evaluator
type EvaluatorOption func(*ConcurrentEvaluator)

// WithWorkers sets the number of concurrent evaluation goroutines
func WithWorkers(workers int) EvaluatorOption {
	return func(e *ConcurrentEvaluator) {
		if workers > 0 {
			e.workerCount = workers
		}
	}
}

// WithBatchSize sets the batch size for chunked processing
func WithBatchSize(size int) EvaluatorOption {
	return func(e *ConcurrentEvaluator) {
		if size > 0 {
			e.batchSize = size
		}
	}
}

// ConcurrentEvaluator implements both Evaluator and BatchEvaluator interfaces
type ConcurrentEvaluator struct {
	workerCount int
	batchSize   int
}

// NewConcurrentEvaluator creates a new concurrent evaluator
func NewConcurrentEvaluator(opts ...EvaluatorOption) *ConcurrentEvaluator {
	e := &ConcurrentEvaluator{
		workerCount: runtime.GOMAXPROCS(0),
		batchSize:   100,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Evaluate evaluates a single filter against all torrents, keeping input order
func (e *ConcurrentEvaluator) Evaluate(ctx context.Context, filter CompiledFilter, torrents []*qbittorrent.TorrentInfo) ([]*qbittorrent.TorrentInfo, error) {
	if len(torrents) == 0 {
		return []*qbittorrent.TorrentInfo{}, nil
	}

	// For small lists, don't bother with concurrency
	if len(torrents) < e.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return evaluateChunk(filter, torrents), nil
	}

	return e.evaluateConcurrent(ctx, filter, torrents)
}

// EvaluateBatch evaluates multiple filters against torrents concurrently.
// The first failure cancels the remaining filters.
func (e *ConcurrentEvaluator) EvaluateBatch(ctx context.Context, filters map[string]CompiledFilter, torrents []*qbittorrent.TorrentInfo) (map[string][]*qbittorrent.TorrentInfo, error) {
	results := make(map[string][]*qbittorrent.TorrentInfo, len(filters))
	if len(filters) == 0 {
		return results, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workerCount)

	for name, filter := range filters {
		g.Go(func() error {
			matches, err := e.Evaluate(gctx, filter, torrents)
			if err != nil {
				return &EvaluationError{FilterName: name, Torrents: len(torrents), Reason: "evaluation aborted", Err: err}
			}

			mu.Lock()
			results[name] = matches
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// evaluateConcurrent splits torrents into chunks evaluated in parallel
func (e *ConcurrentEvaluator) evaluateConcurrent(ctx context.Context, filter CompiledFilter, torrents []*qbittorrent.TorrentInfo) ([]*qbittorrent.TorrentInfo, error) {
	chunkSize := max(len(torrents)/e.workerCount, e.batchSize)
	chunks := make([][]*qbittorrent.TorrentInfo, (len(torrents)+chunkSize-1)/chunkSize)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workerCount)

	for i := range chunks {
		start := i * chunkSize
		end := min(start+chunkSize, len(torrents))

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			chunks[i] = evaluateChunk(filter, torrents[start:end])
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, chunk := range chunks {
		total += len(chunk)
	}

	matches := make([]*qbittorrent.TorrentInfo, 0, total)
	for _, chunk := range chunks {
		matches = append(matches, chunk...)
	}
	return matches, nil
}

func evaluateChunk(filter CompiledFilter, torrents []*qbittorrent.TorrentInfo) []*qbittorrent.TorrentInfo {
	matches := make([]*qbittorrent.TorrentInfo, 0, len(torrents)/10)
	for _, torrent := range torrents {
		if filter.Evaluate(torrent) {
			matches = append(matches, torrent)
		}
	}
	return matches
}
