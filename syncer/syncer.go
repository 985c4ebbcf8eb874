package syncer

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/s0up4200/qbitsync/maindata"
)

// Syncer polls a Source and keeps a mirror of the server state current.
//
// Fetch and merge of one cycle run under a single lock, so a poll never
// observes a cursor that a concurrent merge is about to replace. Readers use
// Mirror or View and never wait on the network.
type Syncer struct {
	source Source
	logger zerolog.Logger
	opts   options

	cycleMu sync.Mutex
	merger  *maindata.Merger

	mu     sync.RWMutex
	mirror *maindata.Mirror

	obsMu     sync.RWMutex
	observers []Observer

	statsMu sync.Mutex
	stats   Stats
}

// New returns a Syncer without a baseline; its first poll requests the full state.
func New(source Source, logger zerolog.Logger, opts ...Option) *Syncer {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &Syncer{
		source: source,
		logger: logger.With().Str("component", "syncer").Logger(),
		opts:   o,
		merger: maindata.NewMerger(),
	}
}

// Subscribe registers an observer for every update applied from now on.
func (s *Syncer) Subscribe(obs Observer) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	s.observers = append(s.observers, obs)
}

// Mirror returns a private copy of the current mirror, or nil before the
// first full update has been applied.
func (s *Syncer) Mirror() *maindata.Mirror {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mirror.Clone()
}

// View calls fn with the current mirror under the read lock. fn must not
// modify the mirror or retain it after returning. The mirror is nil before
// the first full update.
func (s *Syncer) View(fn func(m *maindata.Mirror)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.mirror)
}

// Sync performs one poll: fetch with the current cursor, parse, merge, and
// notify observers. A payload that cannot be applied leaves the mirror
// unchanged; with resync enabled it also drops the baseline so the next
// poll requests the full state.
func (s *Syncer) Sync(ctx context.Context) (*Update, error) {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	rid := s.merger.ResponseID()
	// After a resync, report changes against what observers last saw.
	resyncing := s.merger.Mirror() == nil && s.mirror != nil

	body, err := s.source.Fetch(ctx, rid)
	if err != nil {
		s.recordFailure(err)
		return nil, fmt.Errorf("failed to fetch maindata (rid %d): %w", rid, err)
	}

	snap, err := maindata.DecodeSnapshot(body, s.opts.parseOptions()...)
	if err != nil {
		return nil, s.rejectSnapshot(rid, err)
	}

	changes, err := s.merger.Apply(snap)
	if errors.Is(err, maindata.ErrStaleSnapshot) && snap.FullUpdate {
		// The server restarted its response ids; its full state is the new baseline.
		s.logger.Warn().Err(err).Int64("rid", rid).Msg("Response id went backwards, rebuilding mirror from full update")
		s.merger.Reset()

		s.statsMu.Lock()
		s.stats.Resyncs++
		s.statsMu.Unlock()

		resyncing = s.mirror != nil
		changes, err = s.merger.Apply(snap)
	}
	if err != nil {
		return nil, s.rejectSnapshot(rid, err)
	}

	s.checkVariant(snap)

	if resyncing {
		changes = maindata.Diff(s.mirror, s.merger.Mirror())
	}

	mirror := s.merger.Mirror().Clone()
	s.mu.Lock()
	s.mirror = mirror
	s.mu.Unlock()

	update := &Update{
		ID:              uuid.New(),
		Changes:         changes,
		Mirror:          mirror,
		Extra:           snap.Extra,
		Variant:         snap.Variant,
		CategoriesAdded: snap.CategoriesAdded(),
	}
	s.recordApplied(update)

	s.logger.Debug().
		Str("update", update.ID.String()).
		Int64("rid", changes.ResponseID).
		Bool("full", changes.Full).
		Int("torrents_added", len(changes.Torrents.Added)).
		Int("torrents_updated", len(changes.Torrents.Updated)).
		Int("torrents_removed", len(changes.Torrents.Removed)).
		Msg("Applied sync update")

	s.notify(ctx, update)
	return update, nil
}

// Resync drops the baseline so the next poll requests the full state. The
// published mirror stays readable until that poll replaces it.
func (s *Syncer) Resync() {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	s.merger.Reset()

	s.statsMu.Lock()
	s.stats.Resyncs++
	s.statsMu.Unlock()
}

// Run polls until ctx is cancelled and returns ctx.Err(). Failed cycles are
// logged and retried on the next tick.
func (s *Syncer) Run(ctx context.Context) error {
	s.logger.Info().Dur("interval", s.opts.interval).Msg("Starting sync loop")

	ticker := time.NewTicker(s.opts.interval)
	defer ticker.Stop()

	for {
		s.runCycle(ctx)

		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Sync loop stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Syncer) runCycle(ctx context.Context) {
	_, err := s.Sync(ctx)
	switch {
	case err == nil:
	case ctx.Err() != nil:
	case errors.Is(err, maindata.ErrStaleSnapshot):
		// already logged at debug level
	default:
		s.logger.Error().Err(err).Msg("Sync cycle failed")
	}
}

func (s *Syncer) rejectSnapshot(rid int64, err error) error {
	if errors.Is(err, maindata.ErrStaleSnapshot) {
		s.statsMu.Lock()
		s.stats.Stale++
		s.statsMu.Unlock()

		s.logger.Debug().Err(err).Int64("rid", rid).Msg("Discarded stale snapshot")
		return fmt.Errorf("discarded snapshot: %w", err)
	}

	s.recordFailure(err)

	if s.opts.resyncOnError && maindata.RequiresFullSync(err) {
		s.merger.Reset()

		s.statsMu.Lock()
		s.stats.Resyncs++
		s.statsMu.Unlock()

		s.logger.Warn().Err(err).Int64("rid", rid).Msg("Rejected snapshot, requesting full resync")
	}

	return fmt.Errorf("failed to apply snapshot (rid %d): %w", rid, err)
}

func (s *Syncer) checkVariant(snap *maindata.Snapshot) {
	expected := s.opts.expectedVariant
	if expected == maindata.VariantAbsent || snap.Variant == maindata.VariantAbsent || snap.Variant == expected {
		return
	}

	s.logger.Warn().
		Stringer("expected", expected).
		Stringer("received", snap.Variant).
		Int64("rid", snap.ResponseID).
		Msg("Categories encoding does not match the server's Web API version")
}

func (s *Syncer) notify(ctx context.Context, update *Update) {
	s.obsMu.RLock()
	observers := slices.Clone(s.observers)
	s.obsMu.RUnlock()

	if len(observers) == 0 {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.observerConcurrency)

	for _, obs := range observers {
		g.Go(func() error {
			if err := obs.OnUpdate(gctx, update); err != nil {
				s.logger.Warn().
					Err(err).
					Str("update", update.ID.String()).
					Msg("Observer failed to handle update")
			}
			return nil
		})
	}

	_ = g.Wait()
}
