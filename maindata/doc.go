// Package maindata folds qBittorrent's incremental sync payloads
// (/api/v2/sync/maindata) into a local mirror of the remote state.
//
// A payload is decoded into a Snapshot by ParseSnapshot or DecodeSnapshot.
// Older servers encode the "categories" key as a flat list of names while
// WebAPI 2.1.0 and newer send a map of category descriptors; both shapes are
// normalized into one map of Category values, and the deprecated list view is
// derived from it on demand (see Snapshot.CategoriesAdded).
//
// Merge applies a Snapshot to a Mirror and reports what changed:
//
//	snap, err := maindata.DecodeSnapshot(body)
//	if err != nil {
//	    return err
//	}
//	next, changes, err := maindata.Merge(current, snap)
//	switch {
//	case errors.Is(err, maindata.ErrStaleSnapshot):
//	    // discard and keep polling
//	case maindata.RequiresFullSync(err):
//	    // request rid=0
//	}
//
// Merges are all-or-nothing: the current mirror is never modified, a new
// Mirror is returned instead. Nothing in this package performs I/O or logs,
// and nothing is safe for concurrent mutation; callers serialize merges
// (see package syncer).
package maindata
