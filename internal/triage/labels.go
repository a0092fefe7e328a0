package triage

import "strings"

// LabelSet is an ordered list of distinct candidate labels. Order matters:
// ties resolve to the earliest label.
type LabelSet []string

// NewLabelSet trims, drops empty entries and removes exact duplicates while
// keeping the first occurrence.
func NewLabelSet(labels []string) (LabelSet, error) {
	seen := make(map[string]bool, len(labels))
	out := make(LabelSet, 0, len(labels))
	for _, label := range labels {
		label = strings.TrimSpace(label)
		if label == "" || seen[label] {
			continue
		}
		seen[label] = true
		out = append(out, label)
	}
	if len(out) == 0 {
		return nil, &ConfigurationError{Field: "labels", Msg: "at least one label is required"}
	}
	return out, nil
}

// ParseLabels reads labels separated by "," or ";". User labels replace the
// defaults; an input with no usable label yields the defaults.
func ParseLabels(input string, defaults []string) (LabelSet, error) {
	parts := strings.FieldsFunc(input, func(r rune) bool { return r == ',' || r == ';' })
	if set, err := NewLabelSet(parts); err == nil {
		return set, nil
	}
	return NewLabelSet(defaults)
}

func (l LabelSet) Contains(label string) bool {
	for _, candidate := range l {
		if candidate == label {
			return true
		}
	}
	return false
}

func (l LabelSet) String() string {
	return strings.Join(l, ", ")
}
