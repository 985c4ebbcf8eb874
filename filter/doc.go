// Package filter selects torrents with expr-lang expressions.
//
// Expressions see the torrent's fields as variables (Name, State, Category,
// Tags, Size, Progress, Ratio, AddedOn, IsSeeding, ...) and a set of helpers:
//
//	hasTag("keep")              case-insensitive tag match
//	inCategory("movies")        case-insensitive category match
//	inState("stalledUP", "uploading")
//	daysSince(AddedOn) > 30
//	Size > gib(10)
//	contains(Name, "linux")
//	hasHardlinks()              content still linked elsewhere on disk
//
// A Manager holds named filters and evaluates them against a maindata mirror:
//
//	m := filter.NewManager()
//	if err := m.RegisterFilter("stale", `IsSeeding && daysSince(CompletionOn) > 30`); err != nil {
//		return err
//	}
//	hashes, err := m.EvaluateMirror(ctx, "stale", mirror)
package filter
