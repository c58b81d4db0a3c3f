package taxonomy

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	cerrors "quran-corpus/internal/errors"
	"quran-corpus/internal/logging"
	"quran-corpus/internal/models"
	"quran-corpus/internal/refs"
)

// keySeparator splits an encoded key into its disambiguator and value
const keySeparator = "__"

// emptyMarker in an encoded key means the leaf value is the empty string
const emptyMarker = "empty"

// Reconstructor rebuilds a nested taxonomy from flattened entries
type Reconstructor struct {
	merger *refs.Merger
	logger *slog.Logger
	less   Less
}

// Option configures a Reconstructor
type Option func(*Reconstructor)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconstructor) { r.logger = logger }
}

// WithMerger sets the reference merger used on leaf collisions
func WithMerger(m *refs.Merger) Option {
	return func(r *Reconstructor) { r.merger = m }
}

// WithLess sets the key order applied to every mapping level
func WithLess(less Less) Option {
	return func(r *Reconstructor) { r.less = less }
}

// NewReconstructor creates a Reconstructor. Keys default to byte order.
func NewReconstructor(opts ...Option) *Reconstructor {
	r := &Reconstructor{less: ByteOrder}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.OrDefault(r.logger)
	if r.merger == nil {
		r.merger = refs.NewMerger(r.logger)
	}
	return r
}

// Reconstruct applies the entries in order and returns the sorted tree
func (r *Reconstructor) Reconstruct(entries []models.FlattenedEntry) (*Node, error) {
	if len(entries) == 0 {
		return nil, cerrors.EmptyDocument("reconstruct", "flattened entries")
	}

	b := NewBuilder(r.merger, r.logger)
	for _, e := range entries {
		b.Insert(e.Segments(), DecodeValue(e.EncodedKey))
	}

	root := b.Root()
	root.Sort(r.less)
	return root, nil
}

// DecodeValue extracts the leaf value from an encoded key
func DecodeValue(encodedKey string) string {
	if strings.Contains(encodedKey, emptyMarker) {
		return ""
	}
	if _, value, ok := strings.Cut(encodedKey, keySeparator); ok {
		return value
	}
	return encodedKey
}

// Flatten encodes every leaf of the tree as an entry. Non-empty values become
// "0__value", repeats of a value "1__value", "2__value" and so on, and empty
// leaves "empty_N". Values are kept as written. Empty mappings have no leaf and
// produce no entry. Entries are returned sorted by encoded key.
func Flatten(root *Node) ([]models.FlattenedEntry, error) {
	if root == nil || (!root.IsLeaf() && root.Len() == 0) {
		return nil, cerrors.EmptyDocument("flatten", "taxonomy entries")
	}
	if root.IsLeaf() {
		return nil, cerrors.NewInputError("flatten", "taxonomy root must be a mapping")
	}

	byKey := make(map[string]string)
	var empties []models.FlattenedEntry

	root.Walk(func(path []string, value string) {
		joined := strings.Join(path, models.PathSeparator)
		if value == "" {
			empties = append(empties, models.FlattenedEntry{
				EncodedKey: fmt.Sprintf("%s_%d", emptyMarker, len(empties)+1),
				Path:       joined,
			})
			return
		}
		for i := 0; ; i++ {
			key := fmt.Sprintf("%d%s%s", i, keySeparator, value)
			if _, taken := byKey[key]; !taken {
				byKey[key] = joined
				return
			}
		}
	})

	out := make([]models.FlattenedEntry, 0, len(byKey)+len(empties))
	for k, p := range byKey {
		out = append(out, models.FlattenedEntry{EncodedKey: k, Path: p})
	}
	out = append(out, empties...)
	sort.Slice(out, func(i, j int) bool {
		return out[i].EncodedKey < out[j].EncodedKey
	})
	return out, nil
}
