package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain text unchanged", in: "Build a login form", want: "Build a login form"},
		{name: "simple tag", in: "<b>bold</b> move", want: "bold move"},
		{name: "script block", in: `<script>alert("x")</script>hello`, want: `alert("x")hello`},
		{name: "attributes", in: `<a href="http://x">link</a>`, want: "link"},
		{name: "unclosed tag runs to end", in: "keep <img src=x onerror=alert(1)", want: "keep "},
		{name: "nested angle brackets", in: "a <<b>> c", want: "a > c"},
		{name: "empty", in: "", want: ""},
		{name: "only markup", in: "<p></p>", want: ""},
		{name: "greater-than alone is kept", in: "x > y", want: "x > y"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Text(tt.in))
		})
	}
}

func TestText_NoTagsRemainAndIdempotent(t *testing.T) {
	inputs := []string{
		"<div><span>hi</span></div>",
		"<<<>>>",
		"a<b<c>d>e",
		"trailing <",
		"<",
		">>< <> <x",
		"mixed <i>text</i> and 3 < 4 > 2",
		"unicode <ü>straße</ü>",
	}

	for _, in := range inputs {
		once := Text(in)
		assert.NotRegexp(t, tagPattern, once, "input %q", in)
		assert.NotContains(t, once, "<", "input %q", in)
		assert.Equal(t, once, Text(once), "input %q", in)
	}
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "brief.pdf", Filename("brief.pdf"))
	assert.Equal(t, "brief.pdf", Filename("../../etc/brief.pdf"))
	assert.Equal(t, "report.txt", Filename("<x>report.txt"))
	assert.Equal(t, "", Filename(""))
	assert.Equal(t, "", Filename("<script>"))
}
