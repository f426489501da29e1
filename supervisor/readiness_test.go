package supervisor

import "testing"

func TestDefaultReadinessPredicateMatchesMarkers(t *testing.T) {
	cases := []struct {
		lines []string
		want  bool
	}{
		{[]string{"loading world..."}, false},
		{[]string{"loading world...", "Done (3.2s)!"}, true},
		{[]string{"Server started on port 6000"}, true},
		{[]string{"Listening on 0.0.0.0:6000"}, true},
		{nil, false},
	}
	for _, c := range cases {
		if got := DefaultReadinessPredicate(c.lines); got != c.want {
			t.Errorf("DefaultReadinessPredicate(%v) = %v, want %v", c.lines, got, c.want)
		}
	}
}
