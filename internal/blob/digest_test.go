package blob

import "testing"

func TestSum(t *testing.T) {
	d := Sum([]byte("hello"))
	if d != "5D41402ABC4B2A76B9719D911017C592" {
		t.Errorf("Sum = %s", d)
	}
	if d != Sum([]byte("hello")) {
		t.Error("same bytes must yield the same digest")
	}
	if d == Sum([]byte("hello!")) {
		t.Error("different bytes yielded the same digest")
	}
}

func TestParseDigest(t *testing.T) {
	d, ok := ParseDigest("5d41402abc4b2a76b9719d911017c592")
	if !ok {
		t.Fatal("lowercase digest rejected")
	}
	if d != "5D41402ABC4B2A76B9719D911017C592" {
		t.Errorf("not canonicalized: %s", d)
	}

	for _, s := range []string{
		"",
		"5D41402ABC4B2A76B9719D911017C59",    // 31 chars
		"5D41402ABC4B2A76B9719D911017C5922",  // 33 chars
		"5D41402ABC4B2A76B9719D911017C59G",   // non-hex
		"my favourite meme",
	} {
		if _, ok := ParseDigest(s); ok {
			t.Errorf("ParseDigest(%q) accepted", s)
		}
	}
}

func TestDigestFilename(t *testing.T) {
	d := Digest("5D41402ABC4B2A76B9719D911017C592")
	cases := []struct {
		ext  string
		want string
	}{
		{".png", d.String() + ".png"},
		{".JPG", d.String() + ".jpg"},
		{"gif", d.String() + ".gif"},
		{"", d.String() + ".png"},
		{"  ", d.String() + ".png"},
	}
	for _, c := range cases {
		if got := d.Filename(c.ext); got != c.want {
			t.Errorf("Filename(%q) = %q, want %q", c.ext, got, c.want)
		}
	}
}
