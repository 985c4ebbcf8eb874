package syncer

import (
	"runtime"
	"time"

	"github.com/s0up4200/qbitsync/maindata"
)

// Option configures a Syncer.
type Option func(*options)

type options struct {
	interval            time.Duration
	observerConcurrency int
	resyncOnError       bool
	strictFullUpdate    bool
	expectedVariant     maindata.SchemaVariant
}

func defaultOptions() options {
	return options{
		interval:            2 * time.Second,
		observerConcurrency: runtime.GOMAXPROCS(0),
		resyncOnError:       true,
	}
}

func (o options) parseOptions() []maindata.ParseOption {
	if o.strictFullUpdate {
		return nil
	}
	return []maindata.ParseOption{maindata.AllowMissingFullUpdate()}
}

// WithInterval sets the delay between polls in Run.
func WithInterval(interval time.Duration) Option {
	return func(o *options) {
		if interval > 0 {
			o.interval = interval
		}
	}
}

// WithObserverConcurrency bounds how many observers run at once for one update.
func WithObserverConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.observerConcurrency = n
		}
	}
}

// WithResyncOnError controls whether a payload that cannot be applied drops
// the baseline so the next poll requests the full state. Enabled by default.
func WithResyncOnError(enabled bool) Option {
	return func(o *options) {
		o.resyncOnError = enabled
	}
}

// WithStrictFullUpdate rejects payloads without a full_update key instead of
// reading them as incremental updates.
func WithStrictFullUpdate() Option {
	return func(o *options) {
		o.strictFullUpdate = true
	}
}

// WithExpectedVariant logs a warning whenever a payload encodes categories
// differently from what the server's Web API version implies.
func WithExpectedVariant(variant maindata.SchemaVariant) Option {
	return func(o *options) {
		o.expectedVariant = variant
	}
}
