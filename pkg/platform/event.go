// Package platform defines the wire types exchanged with a chat platform
// adapter: inbound message events and the replies the registry emits.
package platform

import "os"

// ImageSource says where a segment's original bytes live. It is resolved
// once at the transport boundary; nothing downstream probes segment
// fields ad hoc.
type ImageSource interface {
	isImageSource()
}

// LocalPath points at an image file already on this machine.
type LocalPath struct {
	Path string
}

// RemoteURL points at an image only reachable over the network.
type RemoteURL struct {
	URL string
	// FilenameHint, when present, supplies the original file extension.
	FilenameHint string
}

// Unknown marks a segment with no usable source; ingest of it fails.
type Unknown struct{}

func (LocalPath) isImageSource() {}
func (RemoteURL) isImageSource() {}
func (Unknown) isImageSource()   {}

// ImageSegment is one image attachment of an inbound message. Platforms
// fill whichever fields they have; all are optional.
type ImageSegment struct {
	Path string `json:"path,omitempty"` // local file, when the platform stages one
	URL  string `json:"url,omitempty"`  // remote original
	File string `json:"file,omitempty"` // opaque platform filename
}

// Source classifies the segment. A local path wins when it actually
// exists as a regular file, otherwise the URL; a segment with neither is
// Unknown.
func (s ImageSegment) Source() ImageSource {
	if s.Path != "" {
		if info, err := os.Stat(s.Path); err == nil && info.Mode().IsRegular() {
			return LocalPath{Path: s.Path}
		}
	}
	if s.URL != "" {
		return RemoteURL{URL: s.URL, FilenameHint: s.File}
	}
	return Unknown{}
}

// Event is one inbound chat message. Conversation and Participant may be
// empty strings when the platform omits them; the pair is still a valid
// key.
type Event struct {
	Conversation string         `json:"conversation"`
	Participant  string         `json:"participant"`
	Text         string         `json:"text,omitempty"`
	Images       []ImageSegment `json:"images,omitempty"`
}

// FirstImage returns the event's first image segment, if any.
func (e Event) FirstImage() (ImageSegment, bool) {
	if len(e.Images) == 0 {
		return ImageSegment{}, false
	}
	return e.Images[0], true
}

// Reply is what a handled event emits: plain text or one image
// attachment by local path, never both.
type Reply struct {
	Text      string `json:"text,omitempty"`
	ImagePath string `json:"image_path,omitempty"`
}
