package review

import (
	"strings"
	"testing"
)

func TestRenderPage(t *testing.T) {
	t.Run("index renders inside the layout", func(t *testing.T) {
		var b strings.Builder
		err := RenderPage(&b, "index.html", map[string]any{
			"Title":       "Test project",
			"Description": "Some *markdown* here",
			"Images":      nil,
		})
		if err != nil {
			t.Fatal(err)
		}
		out := b.String()
		for _, want := range []string{"<!DOCTYPE html>", "<title>Test project</title>", "<em>markdown</em>"} {
			if !strings.Contains(out, want) {
				t.Errorf("rendered index misses %q", want)
			}
		}
	})

	t.Run("help renders markdown content", func(t *testing.T) {
		var b strings.Builder
		err := RenderPage(&b, "help.html", map[string]any{
			"Title":   "Class: Car",
			"Content": "## Car\n\nFour wheels",
		})
		if err != nil {
			t.Fatal(err)
		}
		out := b.String()
		if !strings.Contains(out, "<h2>Car</h2>") || !strings.Contains(out, "Four wheels") {
			t.Errorf("rendered help misses the markdown body:\n%s", out)
		}
	})

	t.Run("unknown page errors", func(t *testing.T) {
		var b strings.Builder
		if err := RenderPage(&b, "missing.html", nil); err == nil {
			t.Errorf("expected an error for an unknown page")
		}
	})
}
