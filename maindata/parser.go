package maindata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// Top-level keys interpreted by ParseSnapshot. Anything else lands in Snapshot.Extra.
const (
	keyResponseID        = "rid"
	keyFullUpdate        = "full_update"
	keyTorrents          = "torrents"
	keyTorrentsRemoved   = "torrents_removed"
	keyCategories        = "categories"
	keyCategoriesRemoved = "categories_removed"
	keyTags              = "tags"
	keyTagsRemoved       = "tags_removed"
	keyQueueing          = "queueing"
	keyServerState       = "server_state"
)

// ParseOption configures ParseSnapshot.
type ParseOption func(*parseOptions)

type parseOptions struct {
	allowMissingFullUpdate bool
}

// AllowMissingFullUpdate treats an absent full_update key as false.
// qBittorrent only sends the key when it is true; a present key of the wrong
// type is still rejected.
func AllowMissingFullUpdate() ParseOption {
	return func(o *parseOptions) {
		o.allowMissingFullUpdate = true
	}
}

// DecodeSnapshot decodes a JSON sync payload and parses it. Numbers are kept
// as json.Number so cursors and byte counters are not rounded through float64.
func DecodeSnapshot(data []byte, opts ...ParseOption) (*Snapshot, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, &MalformedPayloadError{Key: "", Reason: fmt.Sprintf("invalid JSON object: %v", err)}
	}
	if raw == nil {
		return nil, &MalformedPayloadError{Key: "", Reason: "payload is null"}
	}
	return ParseSnapshot(raw, opts...)
}

// ParseSnapshot builds a Snapshot from a payload already decoded into generic
// form. rid and full_update are required; every other key is optional.
// Unrecognized keys are copied into Snapshot.Extra unchanged.
func ParseSnapshot(raw map[string]any, opts ...ParseOption) (*Snapshot, error) {
	var o parseOptions
	for _, opt := range opts {
		opt(&o)
	}

	snap := &Snapshot{
		TorrentsChanged: make(map[string]Fields),
		ServerState:     make(Fields),
		Extra:           make(map[string]any),
	}

	ridRaw, ok := raw[keyResponseID]
	if !ok {
		return nil, &MalformedPayloadError{Key: keyResponseID, Reason: "missing"}
	}
	rid, ok := asInt64(ridRaw)
	if !ok {
		return nil, &MalformedPayloadError{Key: keyResponseID, Reason: fmt.Sprintf("expected integer, got %s", typeName(ridRaw))}
	}
	snap.ResponseID = rid

	fullRaw, ok := raw[keyFullUpdate]
	switch {
	case !ok && o.allowMissingFullUpdate:
	case !ok:
		return nil, &MalformedPayloadError{Key: keyFullUpdate, Reason: "missing"}
	default:
		full, isBool := fullRaw.(bool)
		if !isBool {
			return nil, &MalformedPayloadError{Key: keyFullUpdate, Reason: fmt.Sprintf("expected bool, got %s", typeName(fullRaw))}
		}
		snap.FullUpdate = full
	}

	for key, value := range raw {
		var err error
		switch key {
		case keyResponseID, keyFullUpdate:
		case keyTorrents:
			err = parseTorrents(value, snap.TorrentsChanged)
		case keyTorrentsRemoved:
			snap.TorrentsRemoved, err = parseStringList(key, value)
		case keyCategories:
			// handled after the loop, once full_update is known
		case keyCategoriesRemoved:
			snap.CategoriesRemoved, err = parseStringList(key, value)
		case keyTags:
			snap.TagsAdded, err = parseStringList(key, value)
		case keyTagsRemoved:
			snap.TagsRemoved, err = parseStringList(key, value)
		case keyQueueing:
			snap.Queueing, err = parseOptionalBool(key, value)
		case keyServerState:
			err = parseObjectInto(key, value, snap.ServerState)
		default:
			snap.Extra[key] = value
		}
		if err != nil {
			return nil, err
		}
	}

	categories, err := NormalizeCategories(raw[keyCategories], snap.FullUpdate)
	if err != nil {
		return nil, err
	}
	snap.CategoriesChanged = categories.Changed
	snap.CategoryFieldsPresent = categories.Present
	snap.LegacyNamesAdded = categories.LegacyNamesAdded
	snap.Variant = categories.Variant

	return snap, nil
}

func parseTorrents(value any, into map[string]Fields) error {
	if value == nil {
		return nil
	}
	obj, ok := value.(map[string]any)
	if !ok {
		return &MalformedPayloadError{Key: keyTorrents, Reason: fmt.Sprintf("expected object, got %s", typeName(value))}
	}
	for hash, item := range obj {
		fields, ok := item.(map[string]any)
		if !ok {
			return &MalformedPayloadError{
				Key:    keyTorrents + "." + hash,
				Reason: fmt.Sprintf("expected object, got %s", typeName(item)),
			}
		}
		into[hash] = Fields(fields)
	}
	return nil
}

func parseObjectInto(key string, value any, into Fields) error {
	if value == nil {
		return nil
	}
	obj, ok := value.(map[string]any)
	if !ok {
		return &MalformedPayloadError{Key: key, Reason: fmt.Sprintf("expected object, got %s", typeName(value))}
	}
	for k, v := range obj {
		into[k] = v
	}
	return nil
}

func parseStringList(key string, value any) ([]string, error) {
	if value == nil {
		return nil, nil
	}
	items, ok := value.([]any)
	if !ok {
		return nil, &MalformedPayloadError{Key: key, Reason: fmt.Sprintf("expected array, got %s", typeName(value))}
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, &MalformedPayloadError{
				Key:    fmt.Sprintf("%s[%d]", key, i),
				Reason: fmt.Sprintf("expected string, got %s", typeName(item)),
			}
		}
		out = append(out, s)
	}
	return out, nil
}

func parseOptionalBool(key string, value any) (*bool, error) {
	if value == nil {
		return nil, nil
	}
	b, ok := value.(bool)
	if !ok {
		return nil, &MalformedPayloadError{Key: key, Reason: fmt.Sprintf("expected bool, got %s", typeName(value))}
	}
	return &b, nil
}

// asInt64 accepts the numeric forms produced by encoding/json (json.Number or
// float64) as well as Go integers from hand-built payloads.
func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case float64:
		if n != math.Trunc(n) || n >= math.MaxInt64 || n < math.MinInt64 {
			return 0, false
		}
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	case int32:
		return int64(n), true
	default:
		return 0, false
	}
}
