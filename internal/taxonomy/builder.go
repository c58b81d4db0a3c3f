package taxonomy

import (
	"log/slog"
	"strings"

	"quran-corpus/internal/logging"
	"quran-corpus/internal/refs"
)

// EmptySlot is the sub-key that holds a mapping's own reference list
const EmptySlot = ""

// Builder grows a taxonomy one leaf at a time. A leaf and a mapping never
// silently replace each other: a leaf met where a mapping is needed moves into
// the new mapping's empty slot, and two values meeting at one leaf are merged.
type Builder struct {
	root   *Node
	merger *refs.Merger
	logger *slog.Logger
}

// NewBuilder creates a builder with an empty root mapping
func NewBuilder(merger *refs.Merger, logger *slog.Logger) *Builder {
	logger = logging.OrDefault(logger)
	if merger == nil {
		merger = refs.NewMerger(logger)
	}
	return &Builder{root: NewMapping(), merger: merger, logger: logger}
}

// Root returns the tree built so far
func (b *Builder) Root() *Node {
	return b.root
}

// Insert stores value at path, creating intermediate mappings as needed
func (b *Builder) Insert(path []string, value string) {
	if len(path) == 0 {
		return
	}

	parent := b.root
	for i, seg := range path[:len(path)-1] {
		parent = b.descend(parent, path[:i+1], seg)
	}
	b.place(parent, path, value)
}

// descend returns the mapping under seg, creating it or rewrapping a leaf
func (b *Builder) descend(parent *Node, path []string, seg string) *Node {
	child, ok := parent.Child(seg)
	switch {
	case !ok:
		child = NewMapping()
		parent.Set(seg, child)
	case child.IsLeaf():
		b.logger.Warn("structure adjusted",
			"path", joinPath(path),
			"reason", "expected mapping, found leaf",
			"preserved", child.Value())
		wrapped := NewMapping()
		wrapped.Set(EmptySlot, child)
		parent.Set(seg, wrapped)
		child = wrapped
	}
	return child
}

func (b *Builder) place(parent *Node, path []string, value string) {
	key := path[len(path)-1]
	existing, ok := parent.Child(key)
	switch {
	case !ok:
		parent.Set(key, Leaf(value))
	case existing.IsLeaf():
		merged, _ := b.merger.Merge(joinPath(path), existing.Value(), value)
		parent.Set(key, Leaf(merged))
	default:
		if _, has := existing.Child(EmptySlot); !has {
			b.logger.Info("empty slot created", "path", joinPath(path), "value", value)
		}
		b.place(existing, append(append([]string(nil), path...), EmptySlot), value)
	}
}

func joinPath(path []string) string {
	return strings.Join(path, " > ")
}
