package blob

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// Digest identifies a blob by the uppercase hex MD5 of its bytes. It is
// the primary key of the registry: identical content always yields the
// same digest, so stored filenames never collide across distinct blobs.
type Digest string

// DigestHexLen is the length of a digest's hex form.
const DigestHexLen = 32

// Sum computes the digest of data.
func Sum(data []byte) Digest {
	sum := md5.Sum(data)
	return Digest(strings.ToUpper(hex.EncodeToString(sum[:])))
}

// ParseDigest reports whether s is syntactically a digest and returns its
// canonical uppercase form. Content is not consulted.
func ParseDigest(s string) (Digest, bool) {
	if len(s) != DigestHexLen {
		return "", false
	}
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return "", false
		}
	}
	return Digest(strings.ToUpper(s)), true
}

func (d Digest) String() string { return string(d) }

// Filename builds the stored name for this digest. The extension is
// lowercased and dot-prefixed; empty means .png.
func (d Digest) Filename(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		ext = ".png"
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return string(d) + ext
}
