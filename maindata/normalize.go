package maindata

import (
	"encoding/json"
	"fmt"
	"slices"
)

// CategoryChanges is the canonical form of one payload's categories key.
type CategoryChanges struct {
	Changed          map[string]Category
	Present          map[string]CategoryFields // descriptor map only
	LegacyNamesAdded []string
	Variant          SchemaVariant
}

// NormalizeCategories converts the raw categories value of a payload into a
// map of descriptors. raw is nil when the key was absent (or null).
//
// A legacy array of names yields descriptors with an empty save path, and all
// of those names count as added. A descriptor map counts every key as added
// only on a full update; incremental updates in that encoding never populated
// the deprecated view.
func NormalizeCategories(raw any, fullUpdate bool) (CategoryChanges, error) {
	out := CategoryChanges{Changed: make(map[string]Category)}

	switch val := raw.(type) {
	case nil:
		out.Variant = VariantAbsent
		return out, nil

	case []any:
		out.Variant = VariantLegacyNameList
		for i, item := range val {
			name, ok := item.(string)
			if !ok {
				return CategoryChanges{}, &SchemaMismatchError{
					Path:   fmt.Sprintf("categories[%d]", i),
					Reason: fmt.Sprintf("expected category name, got %s", typeName(item)),
				}
			}
			if _, seen := out.Changed[name]; seen {
				continue
			}
			out.Changed[name] = Category{Name: name}
			out.LegacyNamesAdded = append(out.LegacyNamesAdded, name)
		}
		return out, nil

	case map[string]any:
		out.Variant = VariantDescriptorMap
		out.Present = make(map[string]CategoryFields, len(val))
		for key, item := range val {
			cat, present, err := parseCategory(key, item)
			if err != nil {
				return CategoryChanges{}, err
			}
			out.Changed[key] = cat
			out.Present[key] = present
		}
		if fullUpdate && len(out.Changed) > 0 {
			out.LegacyNamesAdded = sortedKeys(out.Changed)
		}
		return out, nil

	default:
		return CategoryChanges{}, &SchemaMismatchError{
			Path:   "categories",
			Reason: fmt.Sprintf("expected array or object, got %s", typeName(raw)),
		}
	}
}

// parseCategory reads one descriptor and reports which of its fields were
// sent. A missing name falls back to the map key.
func parseCategory(key string, raw any) (Category, CategoryFields, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return Category{}, 0, &SchemaMismatchError{
			Path:   fmt.Sprintf("categories.%s", key),
			Reason: fmt.Sprintf("expected descriptor object, got %s", typeName(raw)),
		}
	}

	cat := Category{Name: key}
	var present CategoryFields

	name, ok, err := categoryString(obj, key, "name")
	if err != nil {
		return Category{}, 0, err
	}
	if ok {
		cat.Name = name
		present |= CategoryFieldName
	}

	savePath, ok, err := categoryString(obj, key, "savePath")
	if err != nil {
		return Category{}, 0, err
	}
	if ok {
		cat.SavePath = savePath
		present |= CategoryFieldSavePath
	}

	return cat, present, nil
}

func categoryString(obj map[string]any, key, field string) (string, bool, error) {
	v, present := obj[field]
	if !present || v == nil {
		return "", false, nil
	}
	str, ok := v.(string)
	if !ok {
		return "", false, &SchemaMismatchError{
			Path:   fmt.Sprintf("categories.%s.%s", key, field),
			Reason: fmt.Sprintf("expected string, got %s", typeName(v)),
		}
	}
	return str, true, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	case json.Number, float64, float32, int, int64, int32:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}
