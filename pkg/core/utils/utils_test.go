package utils

import (
	"strings"
	"testing"
)

type sample struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

func TestDecodeLenient(t *testing.T) {
	inputs := map[string]string{
		"strict":   `{"name": "a", "value": 1.5}`,
		"trailing": `{"name": "a", "value": 1.5,}`,
		"hjson": `{
  # comment
  name: a
  value: 1.5
}`,
	}
	for label, in := range inputs {
		var s sample
		if _, err := DecodeLenient([]byte(in), &s); err != nil {
			t.Errorf("%s: DecodeLenient failed: %v", label, err)
			continue
		}
		if s.Name != "a" || s.Value != 1.5 {
			t.Errorf("%s: decoded %+v", label, s)
		}
	}
}

func TestMarkdownToHTML(t *testing.T) {
	html, err := MarkdownToHTML("# Title\n\n| a | b |\n|---|---|\n| 1 | 2 |\n")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(html, "<h1>Title</h1>") || !strings.Contains(html, "<table>") {
		t.Errorf("unexpected html: %s", html)
	}
}
