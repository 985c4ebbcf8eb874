package service

import (
	"context"
	"fmt"
	"slices"

	"github.com/rs/zerolog"

	"github.com/s0up4200/qbitsync/config"
	"github.com/s0up4200/qbitsync/filter"
	"github.com/s0up4200/qbitsync/maindata"
	"github.com/s0up4200/qbitsync/qbittorrent"
	"github.com/s0up4200/qbitsync/syncer"
)

// Service owns the sync loop and the named filters of one qBittorrent instance
type Service struct {
	logger  zerolog.Logger
	client  *qbittorrent.Client
	syncer  *syncer.Syncer
	filters *filter.Manager
}

// Drift is the difference between the mirror and the server's torrent list
type Drift struct {
	Missing    []string // on the server, not mirrored
	Unexpected []string // mirrored, gone from the server
}

// Empty reports whether the mirror matched the server
func (d Drift) Empty() bool {
	return len(d.Missing) == 0 && len(d.Unexpected) == 0
}

// New logs in to qBittorrent, compiles the configured filters and prepares
// the sync loop. Nothing is polled until Run or Sync is called.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Service, error) {
	qb := cfg.Qbittorrent

	fetcherOpts := []qbittorrent.Option{
		qbittorrent.WithTimeout(qb.Timeout),
		qbittorrent.WithUserAgent(qb.UserAgent),
	}
	if qb.InsecureSkipVerify {
		fetcherOpts = append(fetcherOpts, qbittorrent.WithInsecureSkipVerify())
	}

	fetcher := qbittorrent.NewSyncFetcher(qb.URL, logger, fetcherOpts...)
	if err := fetcher.Login(ctx, qb.Username, qb.Password); err != nil {
		return nil, fmt.Errorf("failed to log in to qBittorrent: %w", err)
	}

	// The fetcher login above already checked the credentials; the typed
	// client opens its own session on first use.
	client := qbittorrent.NewClient(qb.URL, qb.Username, qb.Password, logger)

	syncOpts := []syncer.Option{
		syncer.WithInterval(cfg.Sync.Interval),
		syncer.WithObserverConcurrency(cfg.Sync.ObserverConcurrency),
		syncer.WithResyncOnError(cfg.Sync.ResyncOnError),
	}
	if cfg.Sync.StrictFullUpdate {
		syncOpts = append(syncOpts, syncer.WithStrictFullUpdate())
	}

	if qb.DetectAPIVersion {
		variant, err := fetcher.ExpectedCategoriesVariant(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("Could not determine Web API version, skipping categories check")
		} else {
			syncOpts = append(syncOpts, syncer.WithExpectedVariant(variant))
			logger.Debug().Stringer("variant", variant).Msg("Expecting categories encoding")
		}
	}

	filters := filter.NewManager(
		filter.WithCompiler(filter.NewExprCompiler(filter.WithCache(cfg.Filter.CacheSize))),
		filter.WithEvaluator(filter.NewConcurrentEvaluator(filter.WithWorkers(cfg.Filter.Workers))),
	)
	if err := filters.RegisterFilters(cfg.Filter.Expressions); err != nil {
		return nil, err
	}

	svc := &Service{
		logger:  logger.With().Str("component", "service").Logger(),
		client:  client,
		syncer:  syncer.New(fetcher, logger, syncOpts...),
		filters: filters,
	}
	svc.syncer.Subscribe(syncer.ObserverFunc(svc.logUpdate))

	return svc, nil
}

// Syncer exposes the underlying sync loop, e.g. to subscribe observers
func (s *Service) Syncer() *syncer.Syncer {
	return s.syncer
}

// Filters exposes the filter manager
func (s *Service) Filters() *filter.Manager {
	return s.filters
}

// Run polls until ctx is cancelled
func (s *Service) Run(ctx context.Context) error {
	return s.syncer.Run(ctx)
}

// Sync performs a single poll
func (s *Service) Sync(ctx context.Context) (*syncer.Update, error) {
	return s.syncer.Sync(ctx)
}

// Matches returns the sorted hashes of mirrored torrents matching a named filter
func (s *Service) Matches(ctx context.Context, name string) ([]string, error) {
	mirror := s.syncer.Mirror()
	if mirror == nil {
		return nil, ErrNotSynced
	}
	return s.filters.EvaluateMirror(ctx, name, mirror)
}

// Verify compares the mirrored torrents with the server's torrent list and
// requests a full resync when they disagree
func (s *Service) Verify(ctx context.Context) (Drift, error) {
	mirror := s.syncer.Mirror()
	if mirror == nil {
		return Drift{}, ErrNotSynced
	}

	torrents, err := s.client.GetAllTorrents(ctx)
	if err != nil {
		return Drift{}, err
	}

	drift := diffHashes(mirror, torrents)
	if !drift.Empty() {
		s.logger.Warn().
			Int("missing", len(drift.Missing)).
			Int("unexpected", len(drift.Unexpected)).
			Int64("rid", mirror.ResponseID).
			Msg("Mirror drifted from server, requesting full resync")
		s.syncer.Resync()
	}

	return drift, nil
}

func diffHashes(mirror *maindata.Mirror, torrents []*qbittorrent.TorrentInfo) Drift {
	var drift Drift
	seen := make(map[string]struct{}, len(torrents))

	for _, t := range torrents {
		seen[t.Hash] = struct{}{}
		if _, ok := mirror.Torrents[t.Hash]; !ok {
			drift.Missing = append(drift.Missing, t.Hash)
		}
	}
	for hash := range mirror.Torrents {
		if _, ok := seen[hash]; !ok {
			drift.Unexpected = append(drift.Unexpected, hash)
		}
	}

	slices.Sort(drift.Missing)
	slices.Sort(drift.Unexpected)
	return drift
}

func (s *Service) logUpdate(_ context.Context, u *syncer.Update) error {
	if u.Changes.Empty() {
		return nil
	}

	s.logger.Info().
		Str("update", u.ID.String()).
		Int64("rid", u.Changes.ResponseID).
		Bool("full", u.Changes.Full).
		Int("torrents", len(u.Mirror.Torrents)).
		Int("added", len(u.Changes.Torrents.Added)).
		Int("updated", len(u.Changes.Torrents.Updated)).
		Int("removed", len(u.Changes.Torrents.Removed)).
		Msg("Mirror updated")
	return nil
}
