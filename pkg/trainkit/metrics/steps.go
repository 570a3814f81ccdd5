package metrics

import (
	"maps"
	"slices"
)

// stepTable tracks the next step per tag. Single-valued types and grouped
// scalars use separate namespaces, so a tag may appear in both.
type stepTable struct {
	single  map[string]int
	grouped map[string]map[string]int
}

func newStepTable() *stepTable {
	return &stepTable{
		single:  make(map[string]int),
		grouped: make(map[string]map[string]int),
	}
}

// resolve returns the step for a single-valued item and advances the tag.
func (t *stepTable) resolve(tag string, explicit *int) int {
	step := t.single[tag]
	if explicit != nil {
		step = *explicit
	}
	t.single[tag] = step + 1
	return step
}

// resolveGroup returns the shared step for the sub-tags of a grouped item
// and advances each of them. The table is untouched on error.
func (t *stepTable) resolveGroup(tag string, subTags []string, explicit *int) (int, error) {
	known := t.grouped[tag]

	step := 0
	if explicit != nil {
		step = *explicit
	} else {
		var (
			found   = make(map[string]int, len(subTags))
			unknown []string
		)
		for _, sub := range subTags {
			if next, ok := known[sub]; ok {
				found[sub] = next
			} else {
				unknown = append(unknown, sub)
			}
		}

		switch {
		case len(found) == 0:
			step = 0
		case len(unknown) > 0:
			return 0, &StepMismatchError{Tag: tag, Steps: found, Unknown: unknown}
		default:
			first := true
			for _, next := range found {
				if first {
					step, first = next, false
					continue
				}
				if next != step {
					return 0, &StepMismatchError{Tag: tag, Steps: found}
				}
			}
		}
	}

	if known == nil {
		known = make(map[string]int, len(subTags))
		t.grouped[tag] = known
	}
	for _, sub := range subTags {
		known[sub] = step + 1
	}
	return step, nil
}

// next returns the next step for a single-valued tag.
func (t *stepTable) next(tag string) (int, bool) {
	step, ok := t.single[tag]
	return step, ok
}

// nextGroup returns the next step for one sub-tag of a grouped tag.
func (t *stepTable) nextGroup(tag, subTag string) (int, bool) {
	step, ok := t.grouped[tag][subTag]
	return step, ok
}

// sortedKeys returns the keys of m in ascending order.
func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
