package syncer

import "time"

// Stats counts sync cycle outcomes since the Syncer was created.
type Stats struct {
	Applied     int64     `json:"applied"`
	FullUpdates int64     `json:"full_updates"`
	Stale       int64     `json:"stale"`
	Failed      int64     `json:"failed"`
	Resyncs     int64     `json:"resyncs"`
	ResponseID  int64     `json:"rid"`
	LastUpdate  time.Time `json:"last_update"`
	LastError   string    `json:"last_error,omitempty"`
}

// Stats returns a snapshot of the counters.
func (s *Syncer) Stats() Stats {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return s.stats
}

func (s *Syncer) recordApplied(update *Update) {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()

	s.stats.Applied++
	if update.Changes.Full {
		s.stats.FullUpdates++
	}
	s.stats.ResponseID = update.Changes.ResponseID
	s.stats.LastUpdate = time.Now()
	s.stats.LastError = ""
}

func (s *Syncer) recordFailure(err error) {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()

	s.stats.Failed++
	s.stats.LastError = err.Error()
}
