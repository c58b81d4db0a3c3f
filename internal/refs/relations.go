package refs

import (
	"regexp"
	"strings"
)

var relationRefRe = regexp.MustCompile(`\d+:\d+(?:-\d+|,\d+)?`)

// RelationMap maps a reference literal to the other literals it is linked to
type RelationMap map[string][]string

// Relations builds the cross-reference map from index text. Every ';'-separated
// group of references links each of its members to all the others.
func Relations(texts ...string) RelationMap {
	linked := make(map[string]map[string]struct{})

	for _, text := range texts {
		for _, group := range strings.Split(text, ";") {
			found := relationRefRe.FindAllString(group, -1)
			for _, ref := range found {
				if linked[ref] == nil {
					linked[ref] = make(map[string]struct{})
				}
				for _, other := range found {
					if other != ref {
						linked[ref][other] = struct{}{}
					}
				}
			}
		}
	}

	out := make(RelationMap, len(linked))
	for ref, others := range linked {
		list := make([]string, 0, len(others))
		for o := range others {
			list = append(list, o)
		}
		out[ref] = Sort(list)
	}
	return out
}

// Merge folds other into m, keeping each related literal once
func (m RelationMap) Merge(other RelationMap) {
	for ref, list := range other {
		m[ref] = Sort(union(m[ref], list))
	}
}

// Link records every literal of the group as related to all the others
func (m RelationMap) Link(group []string) {
	for _, ref := range group {
		var others []string
		for _, o := range group {
			if o != ref {
				others = append(others, o)
			}
		}
		if _, ok := m[ref]; !ok || len(others) > 0 {
			m[ref] = Sort(union(m[ref], others))
		}
	}
}
