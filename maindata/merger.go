package maindata

import (
	"fmt"
	"maps"
	"slices"
)

// Merge applies snap to current and returns the next mirror together with the
// change-set. current may be nil, in which case snap must be a full update.
//
// current is never modified. On error the returned mirror is nil and the
// caller keeps using current.
func Merge(current *Mirror, snap *Snapshot) (*Mirror, *ChangeSet, error) {
	if snap == nil {
		return nil, nil, fmt.Errorf("%w: nil snapshot", ErrMalformedPayload)
	}
	if current == nil {
		if !snap.FullUpdate {
			return nil, nil, ErrFullSyncRequired
		}
	} else if snap.ResponseID <= current.ResponseID {
		return nil, nil, &StaleSnapshotError{Current: current.ResponseID, Received: snap.ResponseID}
	}

	if snap.FullUpdate {
		next := mirrorFromSnapshot(snap)
		return next, diffMirrors(current, next), nil
	}

	next := current.Clone()
	changes := applyDelta(next, snap)
	return next, changes, nil
}

func mirrorFromSnapshot(snap *Snapshot) *Mirror {
	m := &Mirror{
		Torrents:    make(map[string]Fields, len(snap.TorrentsChanged)),
		Categories:  maps.Clone(snap.CategoriesChanged),
		Tags:        sortedSet(snap.TagsAdded),
		ServerState: snap.ServerState.Clone(),
		ResponseID:  snap.ResponseID,
	}
	if m.Categories == nil {
		m.Categories = make(map[string]Category)
	}
	if m.ServerState == nil {
		m.ServerState = make(Fields)
	}
	if snap.Queueing != nil {
		m.Queueing = *snap.Queueing
	}
	for hash, fields := range snap.TorrentsChanged {
		if fields == nil {
			fields = Fields{}
		}
		m.Torrents[hash] = fields.Clone()
	}
	return m
}

// Diff reports the changes between two mirrors as if next had arrived as a
// full update on top of prev. prev may be nil.
func Diff(prev, next *Mirror) *ChangeSet {
	return diffMirrors(prev, next)
}

// diffMirrors computes the change-set of a full update against the previous mirror.
func diffMirrors(prev, next *Mirror) *ChangeSet {
	cs := &ChangeSet{ResponseID: next.ResponseID, Full: true}
	if prev == nil {
		prev = &Mirror{}
	}

	torrents := newKeyTracker()
	for hash, fields := range next.Torrents {
		old, ok := prev.Torrents[hash]
		switch {
		case !ok:
			torrents.add(hash)
		case !old.Equal(fields):
			torrents.update(hash)
		}
	}
	for hash := range prev.Torrents {
		if _, ok := next.Torrents[hash]; !ok {
			torrents.remove(hash)
		}
	}
	cs.Torrents = torrents.result()

	categories := newKeyTracker()
	for name, cat := range next.Categories {
		old, ok := prev.Categories[name]
		switch {
		case !ok:
			categories.add(name)
		case old != cat:
			categories.update(name)
		}
	}
	for name := range prev.Categories {
		if _, ok := next.Categories[name]; !ok {
			categories.remove(name)
		}
	}
	cs.Categories = categories.result()

	tags := newKeyTracker()
	for _, tag := range next.Tags {
		if !prev.HasTag(tag) {
			tags.add(tag)
		}
	}
	for _, tag := range prev.Tags {
		if !next.HasTag(tag) {
			tags.remove(tag)
		}
	}
	cs.Tags = tags.result()

	cs.ServerStateChanged = !prev.ServerState.Equal(next.ServerState)
	cs.QueueingChanged = prev.Queueing != next.Queueing
	return cs
}

// applyDelta mutates m, which must be a private copy, with an incremental
// snapshot. Upserts run before removals so a key named by both ends up removed.
func applyDelta(m *Mirror, snap *Snapshot) *ChangeSet {
	cs := &ChangeSet{ResponseID: snap.ResponseID}

	torrents := newKeyTracker()
	for hash, patch := range snap.TorrentsChanged {
		existing, ok := m.Torrents[hash]
		if !ok {
			fields := patch.Clone()
			if fields == nil {
				fields = make(Fields)
			}
			m.Torrents[hash] = fields
			torrents.add(hash)
			continue
		}
		if existing.Merge(patch) {
			torrents.update(hash)
		}
	}
	for _, hash := range snap.TorrentsRemoved {
		if _, ok := m.Torrents[hash]; !ok {
			continue
		}
		delete(m.Torrents, hash)
		torrents.remove(hash)
	}
	cs.Torrents = torrents.result()

	categories := newKeyTracker()
	for name, cat := range snap.CategoriesChanged {
		old, ok := m.Categories[name]
		if present, partial := snap.CategoryFieldsPresent[name]; ok && partial {
			cat = old.patch(cat, present)
		}
		switch {
		case !ok:
			categories.add(name)
		case old != cat:
			categories.update(name)
		default:
			continue
		}
		m.Categories[name] = cat
	}
	for _, name := range snap.CategoriesRemoved {
		if _, ok := m.Categories[name]; !ok {
			continue
		}
		delete(m.Categories, name)
		categories.remove(name)
	}
	cs.Categories = categories.result()

	tags := newKeyTracker()
	for _, tag := range snap.TagsAdded {
		if m.HasTag(tag) {
			continue
		}
		m.Tags = insertSorted(m.Tags, tag)
		tags.add(tag)
	}
	for _, tag := range snap.TagsRemoved {
		i, ok := slices.BinarySearch(m.Tags, tag)
		if !ok {
			continue
		}
		m.Tags = slices.Delete(m.Tags, i, i+1)
		tags.remove(tag)
	}
	cs.Tags = tags.result()

	cs.ServerStateChanged = m.ServerState.Merge(snap.ServerState)

	if snap.Queueing != nil && *snap.Queueing != m.Queueing {
		m.Queueing = *snap.Queueing
		cs.QueueingChanged = true
	}

	m.ResponseID = snap.ResponseID
	return cs
}

func sortedSet(items []string) []string {
	out := slices.Clone(items)
	slices.Sort(out)
	return slices.Compact(out)
}

func insertSorted(tags []string, tag string) []string {
	i, _ := slices.BinarySearch(tags, tag)
	return slices.Insert(tags, i, tag)
}

// Merger keeps the current mirror between merges. It is not safe for
// concurrent use; at most one Apply may run at a time.
type Merger struct {
	mirror *Mirror
}

// NewMerger returns a Merger without a baseline; the first snapshot applied
// must be a full update.
func NewMerger() *Merger {
	return &Merger{}
}

// Apply merges snap into the current mirror. On error the mirror is unchanged.
func (m *Merger) Apply(snap *Snapshot) (*ChangeSet, error) {
	next, changes, err := Merge(m.mirror, snap)
	if err != nil {
		return nil, err
	}
	m.mirror = next
	return changes, nil
}

// Mirror returns the current mirror, or nil before the first full update.
// The returned value must not be modified; use Clone for a private copy.
func (m *Merger) Mirror() *Mirror {
	return m.mirror
}

// ResponseID returns the cursor to send on the next poll: 0 without a baseline.
func (m *Merger) ResponseID() int64 {
	if m.mirror == nil {
		return 0
	}
	return m.mirror.ResponseID
}

// Reset drops the baseline so the next snapshot must be a full update.
func (m *Merger) Reset() {
	m.mirror = nil
}
