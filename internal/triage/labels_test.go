package triage

import (
	"reflect"
	"testing"
)

func TestParseLabels(t *testing.T) {
	cases := []struct {
		in   string
		want LabelSet
	}{
		{"A, B; C", LabelSet{"A", "B", "C"}},
		{"A,a,A, B", LabelSet{"A", "a", "B"}},
		{" ; , ", LabelSet(defaultLabels)},
		{"", LabelSet(defaultLabels)},
	}
	for _, tc := range cases {
		got, err := ParseLabels(tc.in, defaultLabels)
		if err != nil {
			t.Fatalf("ParseLabels(%q): %v", tc.in, err)
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("ParseLabels(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseLabelsWithoutDefaults(t *testing.T) {
	if _, err := ParseLabels("", nil); !IsConfigurationError(err) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}
