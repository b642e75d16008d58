package setutil_test

import (
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dius/cser/internal/setutil"
)

var empty = struct{}{}

func TestNewStrings(t *testing.T) {
	testcases := []struct {
		input []string
		want  setutil.Strings
	}{
		{input: nil, want: setutil.Strings{}},
		{input: []string{"Widget"}, want: setutil.Strings{"Widget": empty}},
		{
			input: []string{"foo", "bar"},
			want:  setutil.Strings{"bar": empty, "foo": empty},
		},
		{
			input: []string{"foo", "bar", "foo"},
			want:  setutil.Strings{"bar": empty, "foo": empty},
		},
	}

	for _, tc := range testcases {
		t.Run("", func(t *testing.T) {
			got := setutil.NewStrings(tc.input...)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("diff -want +got\n%s", diff)
			}
		})
	}
}

func TestAdd(t *testing.T) {
	s := setutil.NewStrings("Point")
	if added := s.Add("Point"); added {
		t.Errorf("Add(%q) on existing member = true, want false", "Point")
	}
	if added := s.Add("Line"); !added {
		t.Errorf("Add(%q) on new member = false, want true", "Line")
	}
	if !s.Contains("Line") || !s.Contains("Point") {
		t.Errorf("set = %v, want both Point and Line", s)
	}
}

func TestRemove(t *testing.T) {
	s := setutil.NewStrings("Point", "Line")
	s.Remove("Point")
	if s.Contains("Point") {
		t.Errorf("set still contains Point after Remove")
	}
	if !s.Contains("Line") {
		t.Errorf("set lost Line after removing Point")
	}
}

func TestToSlice(t *testing.T) {
	testcases := [][]string{
		{},
		{"a"},
		{"z", "a", "j"},
	}

	for _, input := range testcases {
		t.Run("", func(t *testing.T) {
			s := setutil.NewStrings(input...)
			got := s.ToSlice()
			sort.Strings(got)
			sort.Strings(input)
			if diff := cmp.Diff(input, got); diff != "" {
				t.Errorf("diff -want +got\n%s", diff)
			}
		})
	}
}
