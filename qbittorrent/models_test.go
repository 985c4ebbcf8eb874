package qbittorrent

import (
	"encoding/json"
	"testing"

	"github.com/autobrr/go-qbittorrent"
	"github.com/blang/semver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/qbitsync/maindata"
)

func TestNewTorrentInfo(t *testing.T) {
	info := NewTorrentInfo(qbittorrent.Torrent{
		Hash:     "abc",
		Name:     "Ubuntu",
		SavePath: "/data",
		State:    qbittorrent.TorrentStateStalledUp,
		Progress: 1,
		Tags:     "iso, linux",
		AddedOn:  1700000000,
	})

	assert.Equal(t, []string{"iso", "linux"}, info.Tags)
	assert.True(t, info.IsSeeding)
	assert.True(t, info.IsComplete())
	assert.True(t, info.HasTag("ISO"))
	assert.Equal(t, "/data/Ubuntu", info.GetFullPath())
	assert.Equal(t, int64(1700000000), info.AddedOn.Unix())
	assert.True(t, info.CompletionOn.IsZero())
}

func TestSplitTags(t *testing.T) {
	cases := map[string][]string{
		"":          nil,
		"a":         {"a"},
		"a, b":      {"a", "b"},
		" a ,, b ,": {"a", "b"},
	}

	for input, want := range cases {
		assert.Equal(t, want, splitTags(input), "splitTags(%q)", input)
	}
}

func TestTorrentsFromMirror(t *testing.T) {
	snap, err := maindata.DecodeSnapshot([]byte(`{
		"rid": 1,
		"full_update": true,
		"torrents": {
			"bbb": {"name": "B", "state": "downloading", "progress": 0.2, "tags": ""},
			"aaa": {"name": "A", "state": "uploading", "progress": 1, "tags": "keep", "category": "linux"}
		}
	}`))
	require.NoError(t, err)

	mirror, _, err := maindata.Merge(nil, snap)
	require.NoError(t, err)

	torrents, err := TorrentsFromMirror(mirror)
	require.NoError(t, err)
	require.Len(t, torrents, 2)

	assert.Equal(t, "aaa", torrents[0].Hash)
	assert.True(t, torrents[0].IsSeeding)
	assert.Equal(t, []string{"keep"}, torrents[0].Tags)
	assert.Equal(t, "linux", torrents[0].Category)
	assert.Equal(t, "bbb", torrents[1].Hash)
	assert.False(t, torrents[1].IsComplete())

	none, err := TorrentsFromMirror(nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestTorrentsFromMirrorDecodeError(t *testing.T) {
	mirror := &maindata.Mirror{
		Torrents: map[string]maindata.Fields{
			"abc": {"name": json.Number("12")},
		},
	}

	_, err := TorrentsFromMirror(mirror)
	require.Error(t, err)
}

func TestCategoriesVariantFor(t *testing.T) {
	tests := []struct {
		raw  string
		want maindata.SchemaVariant
	}{
		{raw: "2.0", want: maindata.VariantLegacyNameList},
		{raw: "2.0.2", want: maindata.VariantLegacyNameList},
		{raw: "2.1", want: maindata.VariantDescriptorMap},
		{raw: "v2.1.0", want: maindata.VariantDescriptorMap},
		{raw: "2.9.3", want: maindata.VariantDescriptorMap},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			version, err := ParseAPIVersion(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, CategoriesVariantFor(version))
		})
	}
}

func TestParseAPIVersionInvalid(t *testing.T) {
	for _, raw := range []string{"", "   ", "not-a-version"} {
		_, err := ParseAPIVersion(raw)
		assert.ErrorIs(t, err, ErrBadResponse, raw)
	}

	assert.True(t, semver.MustParse("2.1.0").EQ(categoryDescriptorsSince))
}
