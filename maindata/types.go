package maindata

import (
	"maps"
	"reflect"
	"slices"
)

// Fields is a partial record: only the keys present were sent by the server.
type Fields map[string]any

// Clone returns a deep copy of f. Nested objects and arrays are copied too.
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = cloneValue(v)
	}
	return out
}

// Merge copies every key of patch into f and reports whether any value changed.
// Keys missing from patch are left untouched.
func (f Fields) Merge(patch Fields) bool {
	changed := false
	for k, v := range patch {
		if old, ok := f[k]; ok && reflect.DeepEqual(old, v) {
			continue
		}
		f[k] = cloneValue(v)
		changed = true
	}
	return changed
}

// Equal reports whether f and other hold the same keys and values.
func (f Fields) Equal(other Fields) bool {
	return maps.EqualFunc(f, other, func(a, b any) bool {
		return reflect.DeepEqual(a, b)
	})
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[k] = cloneValue(inner)
		}
		return out
	case Fields:
		return val.Clone()
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = cloneValue(inner)
		}
		return out
	default:
		return v
	}
}

// Category is a category descriptor as sent by WebAPI 2.1.0 and newer.
type Category struct {
	Name     string `json:"name"`
	SavePath string `json:"savePath"`
}

// CategoryFields is a set of descriptor fields carried by a payload.
type CategoryFields uint8

const (
	CategoryFieldName CategoryFields = 1 << iota
	CategoryFieldSavePath
)

// patch overwrites the fields of c named in present with those of upd.
func (c Category) patch(upd Category, present CategoryFields) Category {
	if present&CategoryFieldName != 0 {
		c.Name = upd.Name
	}
	if present&CategoryFieldSavePath != 0 {
		c.SavePath = upd.SavePath
	}
	return c
}

// SchemaVariant tells how the categories key of one payload was encoded.
type SchemaVariant int

const (
	// VariantAbsent means the payload had no categories key.
	VariantAbsent SchemaVariant = iota
	// VariantLegacyNameList is a bare array of category names.
	VariantLegacyNameList
	// VariantDescriptorMap is an object of name to descriptor.
	VariantDescriptorMap
)

func (v SchemaVariant) String() string {
	switch v {
	case VariantAbsent:
		return "absent"
	case VariantLegacyNameList:
		return "legacy-name-list"
	case VariantDescriptorMap:
		return "descriptor-map"
	default:
		return "unknown"
	}
}

// Snapshot is one decoded sync payload, either a full state or the delta
// since the cursor the client sent.
type Snapshot struct {
	ResponseID int64
	FullUpdate bool

	TorrentsChanged map[string]Fields
	TorrentsRemoved []string

	CategoriesChanged map[string]Category
	CategoriesRemoved []string
	// CategoryFieldsPresent names, per descriptor in CategoriesChanged, the
	// fields the payload actually sent. A category without an entry replaces
	// the stored descriptor as a whole.
	CategoryFieldsPresent map[string]CategoryFields

	TagsAdded   []string
	TagsRemoved []string

	// Queueing is nil when the payload did not carry the flag.
	Queueing    *bool
	ServerState Fields

	// Extra holds every top-level key this package does not interpret.
	Extra map[string]any

	// Variant records how categories were encoded on the wire.
	Variant SchemaVariant
	// LegacyNamesAdded is the set of categories older consumers see as "added".
	LegacyNamesAdded []string
}

// CategoriesAdded returns the category names in the pre-2.1.0 "added" view.
// It is nil for incremental updates that used the descriptor map encoding.
//
// Deprecated: use CategoriesChanged.
func (s *Snapshot) CategoriesAdded() []string {
	if len(s.LegacyNamesAdded) == 0 {
		return nil
	}
	return slices.Clone(s.LegacyNamesAdded)
}

// Mirror is the accumulated local view of the remote state.
type Mirror struct {
	Torrents    map[string]Fields
	Categories  map[string]Category
	Tags        []string // sorted, no duplicates
	ServerState Fields
	Queueing    bool
	ResponseID  int64
}

// Clone returns a deep copy of m.
func (m *Mirror) Clone() *Mirror {
	if m == nil {
		return nil
	}
	out := &Mirror{
		Torrents:    make(map[string]Fields, len(m.Torrents)),
		Categories:  maps.Clone(m.Categories),
		Tags:        slices.Clone(m.Tags),
		ServerState: m.ServerState.Clone(),
		Queueing:    m.Queueing,
		ResponseID:  m.ResponseID,
	}
	if out.Categories == nil {
		out.Categories = make(map[string]Category)
	}
	if out.ServerState == nil {
		out.ServerState = make(Fields)
	}
	for hash, fields := range m.Torrents {
		out.Torrents[hash] = fields.Clone()
	}
	return out
}

// HasTag reports whether tag is present in the mirror.
func (m *Mirror) HasTag(tag string) bool {
	_, ok := slices.BinarySearch(m.Tags, tag)
	return ok
}

// TorrentsInCategory returns the sorted hashes of torrents assigned to category.
func (m *Mirror) TorrentsInCategory(category string) []string {
	var hashes []string
	for hash, fields := range m.Torrents {
		if name, _ := fields["category"].(string); name == category {
			hashes = append(hashes, hash)
		}
	}
	slices.Sort(hashes)
	return hashes
}
