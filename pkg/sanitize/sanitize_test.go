package sanitize

import (
	"strings"
	"testing"
)

func TestHTMLStripsScripts(t *testing.T) {
	got := HTML(`<p onclick="steal()">Soft <b>cotton</b></p><script>alert(1)</script>`)
	if strings.Contains(got, "script") || strings.Contains(got, "onclick") {
		t.Fatalf("unsafe markup survived: %q", got)
	}
	if !strings.Contains(got, "<b>cotton</b>") {
		t.Fatalf("expected formatting to survive: %q", got)
	}
}

func TestTextStripsEverything(t *testing.T) {
	if got := Text(" <i>Dhaka</i> "); got != "Dhaka" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestSlug(t *testing.T) {
	cases := map[string]string{
		"Cast Iron Pan":     "cast-iron-pan",
		"  --Hello, World!": "hello-world",
		"Home & Living":     "home-living",
		"ÄÖ":                "",
	}
	for in, want := range cases {
		if got := Slug(in); got != want {
			t.Errorf("Slug(%q) = %q, want %q", in, got, want)
		}
	}
}
