package maindata

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSnapshotFullPayload(t *testing.T) {
	body := []byte(`{
		"rid": 15,
		"full_update": true,
		"torrents": {
			"abc": {"name": "Ubuntu", "state": "uploading", "size": 3221225472, "category": "linux"}
		},
		"categories": {"linux": {"name": "linux", "savePath": "/data/linux"}},
		"tags": ["iso", "seed"],
		"queueing": true,
		"server_state": {"dl_info_speed": 1024, "connection_status": "connected"},
		"trackers": {"udp://tracker": ["abc"]},
		"future_field": 42
	}`)

	snap, err := DecodeSnapshot(body)
	require.NoError(t, err)

	assert.Equal(t, int64(15), snap.ResponseID)
	assert.True(t, snap.FullUpdate)
	require.Contains(t, snap.TorrentsChanged, "abc")
	assert.Equal(t, "Ubuntu", snap.TorrentsChanged["abc"]["name"])
	assert.Equal(t, json.Number("3221225472"), snap.TorrentsChanged["abc"]["size"])
	assert.Equal(t, map[string]Category{"linux": {Name: "linux", SavePath: "/data/linux"}}, snap.CategoriesChanged)
	assert.Equal(t, []string{"linux"}, snap.CategoriesAdded())
	assert.Equal(t, VariantDescriptorMap, snap.Variant)
	assert.Equal(t, []string{"iso", "seed"}, snap.TagsAdded)
	require.NotNil(t, snap.Queueing)
	assert.True(t, *snap.Queueing)
	assert.Equal(t, "connected", snap.ServerState["connection_status"])

	assert.Equal(t, json.Number("42"), snap.Extra["future_field"])
	assert.Contains(t, snap.Extra, "trackers")
	assert.NotContains(t, snap.Extra, "categories")
	assert.NotContains(t, snap.Extra, "rid")
}

func TestParseSnapshotDefaults(t *testing.T) {
	snap, err := ParseSnapshot(map[string]any{
		"rid":         json.Number("3"),
		"full_update": false,
	})
	require.NoError(t, err)

	assert.Empty(t, snap.TorrentsChanged)
	assert.Nil(t, snap.TorrentsRemoved)
	assert.Empty(t, snap.CategoriesChanged)
	assert.Nil(t, snap.CategoriesAdded())
	assert.Nil(t, snap.Queueing)
	assert.Empty(t, snap.ServerState)
	assert.Empty(t, snap.Extra)
	assert.Equal(t, VariantAbsent, snap.Variant)
}

func TestParseSnapshotNullOptionalKeys(t *testing.T) {
	snap, err := ParseSnapshot(map[string]any{
		"rid":          float64(4),
		"full_update":  false,
		"torrents":     nil,
		"tags_removed": nil,
		"categories":   nil,
		"queueing":     nil,
		"server_state": nil,
	})
	require.NoError(t, err)
	assert.Empty(t, snap.TorrentsChanged)
	assert.Nil(t, snap.TagsRemoved)
	assert.Nil(t, snap.Queueing)
}

func TestParseSnapshotMalformed(t *testing.T) {
	tests := []struct {
		name    string
		raw     map[string]any
		wantKey string
	}{
		{
			name:    "missing rid",
			raw:     map[string]any{"full_update": true},
			wantKey: "rid",
		},
		{
			name:    "rid is a string",
			raw:     map[string]any{"rid": "7", "full_update": true},
			wantKey: "rid",
		},
		{
			name:    "rid is fractional",
			raw:     map[string]any{"rid": 1.5, "full_update": true},
			wantKey: "rid",
		},
		{
			name:    "missing full_update",
			raw:     map[string]any{"rid": json.Number("1")},
			wantKey: "full_update",
		},
		{
			name:    "full_update is a number",
			raw:     map[string]any{"rid": json.Number("1"), "full_update": json.Number("1")},
			wantKey: "full_update",
		},
		{
			name:    "torrents is an array",
			raw:     map[string]any{"rid": json.Number("1"), "full_update": true, "torrents": []any{}},
			wantKey: "torrents",
		},
		{
			name:    "torrent record is a string",
			raw:     map[string]any{"rid": json.Number("1"), "full_update": true, "torrents": map[string]any{"abc": "x"}},
			wantKey: "torrents.abc",
		},
		{
			name:    "tags contains a number",
			raw:     map[string]any{"rid": json.Number("1"), "full_update": true, "tags": []any{"a", json.Number("2")}},
			wantKey: "tags[1]",
		},
		{
			name:    "queueing is a string",
			raw:     map[string]any{"rid": json.Number("1"), "full_update": true, "queueing": "yes"},
			wantKey: "queueing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := ParseSnapshot(tt.raw)
			require.Error(t, err)
			assert.Nil(t, snap)
			assert.ErrorIs(t, err, ErrMalformedPayload)
			assert.True(t, RequiresFullSync(err))

			var malformed *MalformedPayloadError
			require.ErrorAs(t, err, &malformed)
			assert.Equal(t, tt.wantKey, malformed.Key)
		})
	}
}

func TestParseSnapshotAllowMissingFullUpdate(t *testing.T) {
	raw := map[string]any{"rid": json.Number("9"), "server_state": map[string]any{"dl_info_speed": json.Number("1")}}

	_, err := ParseSnapshot(raw)
	require.ErrorIs(t, err, ErrMalformedPayload)

	snap, err := ParseSnapshot(raw, AllowMissingFullUpdate())
	require.NoError(t, err)
	assert.False(t, snap.FullUpdate)
	assert.Equal(t, int64(9), snap.ResponseID)

	raw["full_update"] = "true"
	_, err = ParseSnapshot(raw, AllowMissingFullUpdate())
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestParseSnapshotRejectsOutOfRangeRid(t *testing.T) {
	for _, rid := range []float64{9223372036854775808, 1e19, -1e19, 1.5} {
		_, err := ParseSnapshot(map[string]any{"rid": rid, "full_update": true})
		assert.ErrorIs(t, err, ErrMalformedPayload, "rid %v", rid)
	}

	snap, err := ParseSnapshot(map[string]any{"rid": float64(1 << 53), "full_update": true})
	require.NoError(t, err)
	assert.Equal(t, int64(1<<53), snap.ResponseID)
}

func TestParseSnapshotSchemaMismatchPropagates(t *testing.T) {
	_, err := ParseSnapshot(map[string]any{
		"rid":         json.Number("1"),
		"full_update": true,
		"categories":  json.Number("5"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchemaMismatch)
	assert.NotErrorIs(t, err, ErrMalformedPayload)
}

func TestDecodeSnapshotInvalidJSON(t *testing.T) {
	for _, body := range []string{`not json`, `[1,2]`, `null`} {
		_, err := DecodeSnapshot([]byte(body))
		assert.ErrorIs(t, err, ErrMalformedPayload, body)
	}
}

func TestDecodeSnapshotLegacyCategories(t *testing.T) {
	snap, err := DecodeSnapshot([]byte(`{"rid":1,"full_update":true,"categories":["movies","docs"]}`))
	require.NoError(t, err)

	assert.Equal(t, VariantLegacyNameList, snap.Variant)
	assert.Equal(t, map[string]Category{
		"movies": {Name: "movies", SavePath: ""},
		"docs":   {Name: "docs", SavePath: ""},
	}, snap.CategoriesChanged)
	assert.ElementsMatch(t, []string{"movies", "docs"}, snap.CategoriesAdded())
	assert.NotContains(t, snap.Extra, "categories")
}
