package filter

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/qbitsync/maindata"
	"github.com/s0up4200/qbitsync/qbittorrent"
)

func testTorrent() *qbittorrent.TorrentInfo {
	return &qbittorrent.TorrentInfo{
		Hash:         "abc",
		Name:         "Ubuntu 24.04 Desktop",
		SavePath:     "/data/iso",
		State:        "stalledUP",
		Size:         6 << 30,
		Progress:     1,
		Ratio:        2.5,
		AddedOn:      time.Now().AddDate(0, 0, -40),
		CompletionOn: time.Now().AddDate(0, 0, -39),
		Category:     "Linux",
		Tags:         []string{"iso", "Keep"},
		IsSeeding:    true,
	}
}

func TestCompileFilter(t *testing.T) {
	tests := []struct {
		name        string
		expression  string
		wantErr     bool
		errContains string
	}{
		{
			name:       "valid expression",
			expression: `hasTag("keep")`,
		},
		{
			name:        "empty expression",
			expression:  "   ",
			wantErr:     true,
			errContains: "empty expression",
		},
		{
			name:       "invalid syntax",
			expression: `hasTag("unclosed`,
			wantErr:    true,
		},
		{
			name:       "unknown variable",
			expression: `Seeders > 3`,
			wantErr:    true,
		},
		{
			name:       "non boolean result",
			expression: `Ratio * 2`,
			wantErr:    true,
		},
		{
			name:       "complex expression",
			expression: `hasTag("iso") and inCategory("linux") and Ratio >= 2 and daysSince(AddedOn) > 30`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter, err := Compile(tt.expression)

			if tt.wantErr {
				require.Error(t, err)
				var compileErr *CompilationError
				assert.ErrorAs(t, err, &compileErr)
				if tt.errContains != "" {
					assert.Contains(t, err.Error(), tt.errContains)
				}
				return
			}

			require.NoError(t, err)
			require.NotNil(t, filter)
		})
	}
}

func TestFilterEvaluation(t *testing.T) {
	torrent := testTorrent()

	tests := []struct {
		name       string
		expression string
		expected   bool
	}{
		{name: "has tag", expression: `hasTag("KEEP")`, expected: true},
		{name: "does not have tag", expression: `hasTag("tv")`, expected: false},
		{name: "category ignores case", expression: `inCategory("linux")`, expected: true},
		{name: "state list", expression: `inState("uploading", "stalledUP")`, expected: true},
		{name: "state list miss", expression: `inState("downloading")`, expected: false},
		{name: "ratio comparison", expression: `Ratio >= 2`, expected: true},
		{name: "size helper", expression: `Size > gib(5) and Size < gib(7)`, expected: true},
		{name: "age", expression: `daysSince(AddedOn) >= 39`, expected: true},
		{name: "time comparison", expression: `CompletionOn < daysAgo(30)`, expected: true},
		{name: "name contains", expression: `contains(Name, "ubuntu")`, expected: true},
		{name: "full path", expression: `Path == "/data/iso/Ubuntu 24.04 Desktop"`, expected: true},
		{name: "seeding and complete", expression: `IsSeeding and IsComplete`, expected: true},
		{name: "struct access", expression: `Torrent.Hash == "abc"`, expected: true},
		{name: "negation", expression: `not hasTag("iso")`, expected: false},
		{name: "missing content is not linked", expression: `hasHardlinks()`, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter, err := Compile(tt.expression)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, filter.Evaluate(torrent))
		})
	}
}

func TestCustomFunctions(t *testing.T) {
	compiler := NewExprCompiler(WithCustomFunctions(map[string]any{
		"isPrivate": func(name string) bool { return name == "private" },
	}))

	filter, err := compiler.Compile(`isPrivate(Category)`)
	require.NoError(t, err)

	torrent := testTorrent()
	assert.False(t, filter.Evaluate(torrent))

	torrent.Category = "private"
	assert.True(t, filter.Evaluate(torrent))
}

func TestConcurrentEvaluation(t *testing.T) {
	torrents := make([]*qbittorrent.TorrentInfo, 1000)
	for i := range torrents {
		torrents[i] = &qbittorrent.TorrentInfo{
			Hash:  fmt.Sprintf("%04d", i),
			Ratio: float64(i % 10),
		}
	}

	filter, err := Compile(`Ratio >= 5`)
	require.NoError(t, err)

	evaluator := NewConcurrentEvaluator(WithWorkers(4), WithBatchSize(50))
	matches, err := evaluator.Evaluate(context.Background(), filter, torrents)
	require.NoError(t, err)
	require.Len(t, matches, 500)

	// input order is preserved across chunks
	for i := 1; i < len(matches); i++ {
		assert.Less(t, matches[i-1].Hash, matches[i].Hash)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = evaluator.Evaluate(ctx, filter, torrents)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBatchEvaluation(t *testing.T) {
	torrents := []*qbittorrent.TorrentInfo{
		testTorrent(),
		{Hash: "def", Name: "Fedora", State: "downloading", Progress: 0.3},
	}

	seeding, err := Compile(`IsSeeding`)
	require.NoError(t, err)
	downloading, err := Compile(`inState("downloading")`)
	require.NoError(t, err)

	evaluator := NewConcurrentEvaluator(WithWorkers(2))
	results, err := evaluator.EvaluateBatch(context.Background(), map[string]CompiledFilter{
		"seeding":     seeding,
		"downloading": downloading,
	}, torrents)
	require.NoError(t, err)

	require.Len(t, results["seeding"], 1)
	assert.Equal(t, "abc", results["seeding"][0].Hash)
	require.Len(t, results["downloading"], 1)
	assert.Equal(t, "def", results["downloading"][0].Hash)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = evaluator.EvaluateBatch(ctx, map[string]CompiledFilter{"seeding": seeding}, torrents)
	var evalErr *EvaluationError
	require.ErrorAs(t, err, &evalErr)
	assert.Equal(t, "seeding", evalErr.FilterName)
	assert.Equal(t, len(torrents), evalErr.Torrents)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFilterManager(t *testing.T) {
	manager := NewManager(WithEvaluator(NewConcurrentEvaluator(WithWorkers(2))))

	require.NoError(t, manager.RegisterFilter("keep", `hasTag("keep")`))
	require.NoError(t, manager.RegisterFilters(map[string]string{
		"seeding": `IsSeeding`,
		"old":     `daysSince(AddedOn) > 30`,
	}))

	err := manager.RegisterFilters(map[string]string{
		"good": `IsSeeding`,
		"bad":  `hasTag(`,
	})
	require.Error(t, err)
	_, exists := manager.GetFilter("good")
	assert.False(t, exists, "a failed batch registers nothing")

	assert.Equal(t, []string{"keep", "old", "seeding"}, manager.ListFilters())

	torrents := []*qbittorrent.TorrentInfo{testTorrent()}
	matches, err := manager.EvaluateFilter(context.Background(), "keep", torrents)
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	_, err = manager.EvaluateFilter(context.Background(), "missing", torrents)
	assert.ErrorIs(t, err, ErrFilterNotFound)

	all, err := manager.EvaluateAll(context.Background(), torrents)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	selected, err := manager.EvaluateSelected(context.Background(), []string{"old"}, torrents)
	require.NoError(t, err)
	assert.Len(t, selected, 1)

	_, err = manager.EvaluateSelected(context.Background(), []string{"old", "missing"}, torrents)
	assert.ErrorIs(t, err, ErrFilterNotFound)

	manager.UnregisterFilter("old")
	assert.Equal(t, []string{"keep", "seeding"}, manager.ListFilters())
}

func TestEvaluateMirror(t *testing.T) {
	snap, err := maindata.DecodeSnapshot([]byte(`{
		"rid": 1,
		"full_update": true,
		"torrents": {
			"ccc": {"name": "C", "state": "uploading", "progress": 1, "tags": "keep"},
			"aaa": {"name": "A", "state": "stalledUP", "progress": 1, "tags": "Keep, iso"},
			"bbb": {"name": "B", "state": "downloading", "progress": 0.1, "tags": ""}
		}
	}`))
	require.NoError(t, err)
	mirror, _, err := maindata.Merge(nil, snap)
	require.NoError(t, err)

	manager := NewManager()
	require.NoError(t, manager.RegisterFilter("keep", `hasTag("keep") and IsSeeding`))

	hashes, err := manager.EvaluateMirror(context.Background(), "keep", mirror)
	require.NoError(t, err)
	assert.Equal(t, []string{"aaa", "ccc"}, hashes)

	empty, err := manager.EvaluateMirror(context.Background(), "keep", nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = manager.EvaluateMirror(context.Background(), "missing", mirror)
	assert.True(t, errors.Is(err, ErrFilterNotFound))
}

func TestCacheEffectiveness(t *testing.T) {
	compiler := NewExprCompiler(WithCache(2))

	first, err := compiler.Compile(`hasTag("a")`)
	require.NoError(t, err)
	again, err := compiler.Compile(`  hasTag("a")  `)
	require.NoError(t, err)
	assert.Same(t, first, again)
	assert.Equal(t, 1, compiler.Size())

	_, err = compiler.Compile(`hasTag("b")`)
	require.NoError(t, err)
	_, err = compiler.Compile(`hasTag("c")`)
	require.NoError(t, err)
	assert.Equal(t, 2, compiler.Size())

	// "a" was least recently used and has been evicted
	evicted, err := compiler.Compile(`hasTag("a")`)
	require.NoError(t, err)
	assert.NotSame(t, first, evicted)

	compiler.Clear()
	assert.Equal(t, 0, compiler.Size())
}
