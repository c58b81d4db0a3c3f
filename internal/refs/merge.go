// Package refs parses scripture reference literals and reconciles reference lists.
package refs

import (
	"log/slog"
	"slices"
	"strings"

	"quran-corpus/internal/logging"
)

// ListSeparator joins literals in the canonical form of a reference list
const ListSeparator = "; "

// Branch names the rule a merge applied
type Branch string

const (
	// BranchOverride replaces the existing list with the incoming one
	BranchOverride Branch = "override"
	// BranchConcatenate replaces the existing list with the sorted union of both
	BranchConcatenate Branch = "concatenate"
)

// Merger combines two reference lists that landed on the same taxonomy leaf
type Merger struct {
	logger *slog.Logger
}

// NewMerger creates a merger; a nil logger uses the slog default
func NewMerger(logger *slog.Logger) *Merger {
	return &Merger{logger: logging.OrDefault(logger)}
}

// Merge combines the existing list with the incoming one. When every existing
// literal is also in the incoming list, the incoming list wins as written.
// Otherwise the union of both lists is returned in canonical order. key only
// labels the audit record.
func (m *Merger) Merge(key, existing, incoming string) (string, Branch) {
	current := Literals(existing)
	next := Literals(incoming)

	if isSubset(current, next) {
		result := strings.TrimSpace(incoming)
		if joinsLiterals(incoming) {
			result = strings.Join(next, ListSeparator)
		}
		m.logger.Info("reference merge",
			"branch", string(BranchOverride),
			"key", key,
			"existing", existing,
			"incoming", incoming,
			"result", result)
		return result, BranchOverride
	}

	result := strings.Join(Sort(union(current, next)), ListSeparator)
	m.logger.Info("reference merge",
		"branch", string(BranchConcatenate),
		"key", key,
		"existing", existing,
		"incoming", incoming,
		"result", result)
	return result, BranchConcatenate
}

// Sort orders literals ascending by (chapter, verseStart) of their first span.
// Ties are broken by the literal text so the order never depends on input order.
// Unparseable literals go last.
func Sort(literals []string) []string {
	type keyed struct {
		literal string
		key     Key
	}
	items := make([]keyed, len(literals))
	for i, l := range literals {
		items[i] = keyed{literal: l, key: SortKey(l)}
	}
	slices.SortStableFunc(items, func(a, b keyed) int {
		if c := a.key.Compare(b.key); c != 0 {
			return c
		}
		return strings.Compare(a.literal, b.literal)
	})

	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.literal
	}
	return out
}

// joinsLiterals reports whether a ';' group of list holds more than one literal,
// as in "1:2,1:5"
func joinsLiterals(list string) bool {
	for _, group := range strings.Split(list, ";") {
		if len(Literals(group)) > 1 {
			return true
		}
	}
	return false
}

func isSubset(sub, super []string) bool {
	set := make(map[string]struct{}, len(super))
	for _, s := range super {
		set[s] = struct{}{}
	}
	for _, s := range sub {
		if _, ok := set[s]; !ok {
			return false
		}
	}
	return true
}

func union(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, s := range list {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}
