package filter

import (
	"context"

	"github.com/s0up4200/qbitsync/qbittorrent"
)

// Filter defines the basic interface for torrent filters
type Filter interface {
	// Evaluate checks if a torrent matches the filter criteria
	Evaluate(torrent *qbittorrent.TorrentInfo) bool
}

// CompiledFilter represents a pre-compiled filter ready for evaluation
type CompiledFilter interface {
	Filter

	// Expression returns the original filter expression
	Expression() string
}

// Compiler compiles filter expressions into executable filters
type Compiler interface {
	// Compile parses and compiles a filter expression
	Compile(expression string) (CompiledFilter, error)
}

// Evaluator evaluates filters against torrents
type Evaluator interface {
	// Evaluate evaluates a filter against all torrents
	Evaluate(ctx context.Context, filter CompiledFilter, torrents []*qbittorrent.TorrentInfo) ([]*qbittorrent.TorrentInfo, error)
}

// BatchEvaluator evaluates multiple filters concurrently
type BatchEvaluator interface {
	// EvaluateBatch evaluates multiple filters against torrents concurrently
	EvaluateBatch(ctx context.Context, filters map[string]CompiledFilter, torrents []*qbittorrent.TorrentInfo) (map[string][]*qbittorrent.TorrentInfo, error)
}

// CachingCompiler provides caching for compiled filters
type CachingCompiler interface {
	Compiler

	// Clear removes all cached filters
	Clear()

	// Size returns the number of cached filters
	Size() int
}
