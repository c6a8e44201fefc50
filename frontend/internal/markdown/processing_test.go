package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	tp := New()

	tests := []struct {
		name     string
		input    string
		contains []string
		excludes []string
	}{
		{
			name:     "emphasis",
			input:    "**bold** and *italic* and ~~gone~~",
			contains: []string{"<strong>bold</strong>", "<em>italic</em>", "<del>gone</del>"},
		},
		{
			name:     "heading gets an id",
			input:    "# Lab meeting",
			contains: []string{`<h1 id="lab-meeting">Lab meeting</h1>`},
		},
		{
			name:     "fenced code keeps language",
			input:    "```go\nfmt.Println(\"<hi>\")\n```",
			contains: []string{`<code class="language-go">`, "&lt;hi&gt;"},
		},
		{
			name:     "script is stripped",
			input:    "hello <script>alert(1)</script>",
			contains: []string{"hello"},
			excludes: []string{"<script", "alert(1)"},
		},
		{
			name:     "event handlers are stripped",
			input:    `<img src="https://lab.example/a.png" onerror="steal()">`,
			contains: []string{`src="https://lab.example/a.png"`},
			excludes: []string{"onerror"},
		},
		{
			name:     "javascript links are dropped",
			input:    "[click](javascript:alert(1))",
			excludes: []string{"javascript:"},
		},
		{
			name:     "external links",
			input:    "<https://lab.example/paper>",
			contains: []string{"nofollow", `target="_blank"`},
		},
		{
			name:     "table",
			input:    "| a | b |\n|---|---|\n| 1 | 2 |",
			contains: []string{"<table>", "<td>1</td>"},
		},
		{
			name:     "korean text survives",
			input:    "자유게시판 공지",
			contains: []string{"자유게시판 공지"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := tp.Render(tt.input)
			require.NoError(t, err)
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
			for _, bad := range tt.excludes {
				assert.NotContains(t, out, bad)
			}
		})
	}
}

func TestSanitize(t *testing.T) {
	tp := New()

	assert.Equal(t, "<p>ok</p>", tp.Sanitize(`<p onclick="x()">ok</p><script>bad()</script>`))
	assert.Equal(t, "", tp.Sanitize("  "))
}
