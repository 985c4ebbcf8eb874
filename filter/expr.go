package filter

import (
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/s0up4200/qbitsync/hardlink"
	"github.com/s0up4200/qbitsync/qbittorrent"
)

var defaultCompiler = NewExprCompiler(WithCache(100))

// Compile compiles an expression with the shared, cached default compiler
func Compile(expression string) (CompiledFilter, error) {
	return defaultCompiler.Compile(expression)
}

// exprFilter implements CompiledFilter using the expr language
type exprFilter struct {
	expression string
	program    *vm.Program
	helpers    map[string]any
}

// ExprCompilerOption configures an expr compiler
type ExprCompilerOption func(*exprCompiler)

// WithCache enables filter caching with the specified size
func WithCache(size int) ExprCompilerOption {
	return func(c *exprCompiler) {
		if size > 0 {
			c.cache = newLRUCache[CompiledFilter](size)
		}
	}
}

// WithCustomFunctions adds custom helper functions
func WithCustomFunctions(funcs map[string]any) ExprCompilerOption {
	return func(c *exprCompiler) {
		maps.Copy(c.helperFuncs, funcs)
	}
}

// NewExprCompiler creates a new expr-based filter compiler
func NewExprCompiler(opts ...ExprCompilerOption) CachingCompiler {
	c := &exprCompiler{
		helperFuncs: createHelperFunctions(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// exprCompiler implements Compiler for expr-based filters
type exprCompiler struct {
	helperFuncs map[string]any
	cache       *lruCache[CompiledFilter]
}

// Compile compiles an expression into an executable filter
func (c *exprCompiler) Compile(expression string) (CompiledFilter, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "empty expression",
		}
	}

	// Check cache if enabled
	if c.cache != nil {
		if cached, ok := c.cache.Get(expression); ok {
			return cached, nil
		}
	}

	// Type-check against the environment of an empty torrent so unknown
	// names and mismatched operands fail here rather than at evaluation
	env := createRuntimeEnvironment(&qbittorrent.TorrentInfo{}, c.helperFuncs)

	program, err := expr.Compile(expression,
		expr.Env(env),
		expr.AsBool(),
	)
	if err != nil {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "failed to compile expression",
			Err:        err,
		}
	}

	filter := &exprFilter{
		expression: expression,
		program:    program,
		helpers:    c.helperFuncs,
	}

	if c.cache != nil {
		c.cache.Put(expression, filter)
	}

	return filter, nil
}

// Clear removes all cached filters
func (c *exprCompiler) Clear() {
	if c.cache != nil {
		c.cache.Clear()
	}
}

// Size returns the number of cached filters
func (c *exprCompiler) Size() int {
	if c.cache != nil {
		return c.cache.Size()
	}
	return 0
}

// Evaluate evaluates the filter against a torrent. Runtime errors count as no match.
func (f *exprFilter) Evaluate(torrent *qbittorrent.TorrentInfo) bool {
	matched, err := f.run(torrent)
	return err == nil && matched
}

func (f *exprFilter) run(torrent *qbittorrent.TorrentInfo) (bool, error) {
	env := createRuntimeEnvironment(torrent, f.helpers)

	result, err := expr.Run(f.program, env)
	if err != nil {
		return false, err
	}

	// Result is guaranteed to be bool due to AsBool() option during compilation
	return result.(bool), nil
}

// Expression returns the original expression
func (f *exprFilter) Expression() string {
	return f.expression
}

// createHelperFunctions creates the static helper functions used during compilation
func createHelperFunctions() map[string]any {
	funcs := make(map[string]any, 16)

	// Date helpers
	funcs["daysSince"] = func(t time.Time) int {
		return int(time.Since(t).Hours() / 24)
	}
	funcs["hoursSince"] = func(t time.Time) int {
		return int(time.Since(t).Hours())
	}
	funcs["daysAgo"] = func(days int) time.Time {
		return time.Now().AddDate(0, 0, -days)
	}
	funcs["monthsAgo"] = func(months int) time.Time {
		return time.Now().AddDate(0, -months, 0)
	}
	funcs["parseDate"] = func(dateStr string) time.Time {
		t, _ := time.Parse("2006-01-02", dateStr)
		return t
	}
	// String helpers
	funcs["contains"] = func(str, substr string) bool {
		return strings.Contains(strings.ToLower(str), strings.ToLower(substr))
	}
	funcs["startsWith"] = func(str, prefix string) bool {
		return strings.HasPrefix(strings.ToLower(str), strings.ToLower(prefix))
	}
	funcs["endsWith"] = func(str, suffix string) bool {
		return strings.HasSuffix(strings.ToLower(str), strings.ToLower(suffix))
	}
	funcs["lower"] = strings.ToLower
	funcs["upper"] = strings.ToUpper
	// Size helpers
	funcs["gib"] = func(n int) int64 {
		return int64(n) << 30
	}
	funcs["mib"] = func(n int) int64 {
		return int64(n) << 20
	}
	// Current time
	funcs["now"] = time.Now

	return funcs
}

// createRuntimeEnvironment creates the runtime environment for filter evaluation
func createRuntimeEnvironment(torrent *qbittorrent.TorrentInfo, helpers map[string]any) map[string]any {
	env := make(map[string]any, len(helpers)+24)
	maps.Copy(env, helpers)

	env["Torrent"] = torrent

	// Torrent-specific helper functions using closures
	env["hasTag"] = createHasTagFunc(torrent.Tags)
	env["inCategory"] = createInCategoryFunc(torrent.Category)
	env["inState"] = createInStateFunc(torrent.State)
	env["hasHardlinks"] = createHasHardlinksFunc(torrent.GetFullPath())

	// Direct torrent properties for convenience
	env["Hash"] = torrent.Hash
	env["Name"] = torrent.Name
	env["State"] = torrent.State
	env["Category"] = torrent.Category
	env["Tags"] = torrent.Tags
	env["Size"] = torrent.Size
	env["Progress"] = torrent.Progress
	env["Ratio"] = torrent.Ratio
	env["Downloaded"] = torrent.DownloadedSize
	env["Uploaded"] = torrent.UploadedSize
	env["AddedOn"] = torrent.AddedOn
	env["CompletionOn"] = torrent.CompletionOn
	env["SavePath"] = torrent.SavePath
	env["Path"] = torrent.GetFullPath()
	env["IsSeeding"] = torrent.IsSeeding
	env["IsComplete"] = torrent.IsComplete()

	return env
}

func createHasTagFunc(tags []string) func(string) bool {
	// Pre-convert to lowercase for case-insensitive comparison
	lowerTags := make([]string, len(tags))
	for i, tag := range tags {
		lowerTags[i] = strings.ToLower(tag)
	}
	return func(tag string) bool {
		return slices.Contains(lowerTags, strings.ToLower(tag))
	}
}

func createInCategoryFunc(category string) func(string) bool {
	return func(name string) bool {
		return strings.EqualFold(category, name)
	}
}

func createInStateFunc(state string) func(...string) bool {
	return func(states ...string) bool {
		return slices.Contains(states, state)
	}
}

// createHasHardlinksFunc defers the filesystem access until an expression
// actually calls it. Unreadable content counts as not linked.
func createHasHardlinksFunc(path string) func() bool {
	return func() bool {
		linked, err := hardlink.HasHardlinks(path)
		return err == nil && linked
	}
}
