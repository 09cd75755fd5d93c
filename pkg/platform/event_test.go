package platform

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSegmentSource(t *testing.T) {
	real := filepath.Join(t.TempDir(), "img.png")
	if err := os.WriteFile(real, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name string
		seg  ImageSegment
		want ImageSource
	}{
		{"local path wins", ImageSegment{Path: real, URL: "https://x/a.png"}, LocalPath{Path: real}},
		{"missing path falls back to url", ImageSegment{Path: "/no/such/file", URL: "https://x/a.png", File: "a.png"},
			RemoteURL{URL: "https://x/a.png", FilenameHint: "a.png"}},
		{"url only", ImageSegment{URL: "https://x/b.jpg"}, RemoteURL{URL: "https://x/b.jpg"}},
		{"nothing usable", ImageSegment{File: "opaque.png"}, Unknown{}},
	}
	for _, c := range cases {
		if got := c.seg.Source(); got != c.want {
			t.Errorf("%s: Source() = %#v, want %#v", c.name, got, c.want)
		}
	}
}

func TestFirstImage(t *testing.T) {
	if _, ok := (Event{}).FirstImage(); ok {
		t.Error("empty event reported an image")
	}
	ev := Event{Images: []ImageSegment{{File: "a.png"}, {File: "b.png"}}}
	img, ok := ev.FirstImage()
	if !ok || img.File != "a.png" {
		t.Errorf("FirstImage = %+v, %v", img, ok)
	}
}
