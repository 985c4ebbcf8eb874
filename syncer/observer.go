package syncer

import (
	"context"

	"github.com/google/uuid"

	"github.com/s0up4200/qbitsync/maindata"
)

// Update is delivered to observers after every successful merge.
type Update struct {
	// ID correlates this update across observers and log lines.
	ID uuid.UUID
	// Changes lists the keys the merge touched.
	Changes *maindata.ChangeSet
	// Mirror is the state after the merge. It is shared by all observers and
	// must not be modified.
	Mirror *maindata.Mirror
	// Extra holds the payload's unrecognized top-level keys.
	Extra map[string]any
	// Variant is the categories encoding the payload used.
	Variant maindata.SchemaVariant
	// CategoriesAdded is the pre-2.1.0 "added categories" view.
	//
	// Deprecated: use Changes.Categories.
	CategoriesAdded []string
}

// Observer reacts to applied updates. Errors are logged and never undo the merge.
type Observer interface {
	OnUpdate(ctx context.Context, update *Update) error
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, update *Update) error

// OnUpdate calls f.
func (f ObserverFunc) OnUpdate(ctx context.Context, update *Update) error {
	return f(ctx, update)
}
