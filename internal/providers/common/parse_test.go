package common

import "testing"

func TestCleanText(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"  A thief who steals &amp; plants ideas.  ", "A thief who steals & plants ideas."},
		{"Line one<br/>line   two", "Line one line two"},
		{"", ""},
		{"\n\t", ""},
	}
	for _, tc := range cases {
		if got := CleanText(tc.input); got != tc.want {
			t.Errorf("CleanText(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestOptionalText(t *testing.T) {
	for _, placeholder := range []string{"N/A", "n/a", " null ", "-", ""} {
		if got := OptionalText(placeholder); got != "" {
			t.Errorf("OptionalText(%q) = %q, want empty", placeholder, got)
		}
	}
	if got := OptionalText(" Christopher Nolan "); got != "Christopher Nolan" {
		t.Errorf("OptionalText kept value = %q", got)
	}
}
