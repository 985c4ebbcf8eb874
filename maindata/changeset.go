package maindata

import "slices"

// KeyChanges lists the keys of one entity kind touched by a merge.
// Each slice is sorted.
type KeyChanges struct {
	Added   []string `json:"added,omitempty"`
	Updated []string `json:"updated,omitempty"`
	Removed []string `json:"removed,omitempty"`
}

// Empty reports whether no key was touched.
func (k KeyChanges) Empty() bool {
	return len(k.Added) == 0 && len(k.Updated) == 0 && len(k.Removed) == 0
}

// ChangeSet describes what one successful merge changed, so observers can
// react without diffing mirrors themselves.
type ChangeSet struct {
	ResponseID int64 `json:"rid"`
	Full       bool  `json:"full_update"`

	Torrents   KeyChanges `json:"torrents"`
	Categories KeyChanges `json:"categories"`
	Tags       KeyChanges `json:"tags"`

	ServerStateChanged bool `json:"server_state_changed"`
	QueueingChanged    bool `json:"queueing_changed"`
}

// Empty reports whether the merge left the mirror's content unchanged
// (only the cursor advanced).
func (c *ChangeSet) Empty() bool {
	return c.Torrents.Empty() && c.Categories.Empty() && c.Tags.Empty() &&
		!c.ServerStateChanged && !c.QueueingChanged
}

// keyTracker accumulates added/updated/removed keys for one entity kind
// while a snapshot is applied.
type keyTracker struct {
	added   map[string]struct{}
	updated map[string]struct{}
	removed map[string]struct{}
}

func newKeyTracker() *keyTracker {
	return &keyTracker{
		added:   make(map[string]struct{}),
		updated: make(map[string]struct{}),
		removed: make(map[string]struct{}),
	}
}

func (t *keyTracker) add(key string) {
	t.added[key] = struct{}{}
}

func (t *keyTracker) update(key string) {
	if _, ok := t.added[key]; ok {
		return
	}
	t.updated[key] = struct{}{}
}

// remove records the deletion of a key that existed in the mirror. A key
// added by the same snapshot never existed from the observer's point of view.
func (t *keyTracker) remove(key string) {
	if _, ok := t.added[key]; ok {
		delete(t.added, key)
		return
	}
	delete(t.updated, key)
	t.removed[key] = struct{}{}
}

func (t *keyTracker) result() KeyChanges {
	return KeyChanges{
		Added:   setToSorted(t.added),
		Updated: setToSorted(t.updated),
		Removed: setToSorted(t.removed),
	}
}

func setToSorted(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
