package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	s := New()

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"  morning run  ", "morning run"},
		{"<b>bold</b> move", "bold move"},
		{`<script>alert("x")</script>ok`, "ok"},
		{`<a href="javascript:alert(1)" onclick="x()">link</a>`, "link"},
		{"fish & chips", "fish & chips"},
		{"&lt;script&gt;alert(1)&lt;/script&gt; &lt;img src=x onerror=alert(1)&gt;", ""},
		{"&lt;b&gt;bold&lt;/b&gt; move", "bold move"},
		{"&amp;lt;img src=x onerror=alert(1)&amp;gt;", "&lt;img src=x onerror=alert(1)&gt;"},
		{"1 < 2", "1 &lt; 2"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, s.Text(tt.in), tt.in)
	}
}

func TestTextNeverEmitsTags(t *testing.T) {
	s := New()
	for _, in := range []string{
		"&lt;script&gt;x&lt;/script&gt;",
		"&#60;img src=x onerror=alert(1)&#62;",
		"&amp;lt;svg onload=alert(1)&amp;gt;",
		"<<b>i</b>mg src=x onerror=alert(1)>",
	} {
		assert.NotContains(t, s.Text(in), "<", in)
	}
}
