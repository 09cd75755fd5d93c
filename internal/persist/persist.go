// Package persist reads and writes the registry's durable JSON mappings.
// Documents are flat string-to-string objects, pretty-printed, rewritten
// in full on every mutation, with entry order preserved across round
// trips.
package persist

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"
)

// Entry is one key/value pair of a durable mapping, in document order.
type Entry struct {
	Key   string
	Value string
}

const mappingSchema = `{
  "type": "object",
  "additionalProperties": {"type": "string"}
}`

// LoadMapping reads a JSON object document as an ordered list of pairs.
// Read, parse, and schema failures are all returned as errors; callers
// treat any failure as an empty mapping and recover from there.
func LoadMapping(path string) ([]Entry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(mappingSchema),
		gojsonschema.NewBytesLoader(raw),
	)
	if err != nil {
		return nil, fmt.Errorf("validate %s: %w", filepath.Base(path), err)
	}
	if !result.Valid() {
		return nil, fmt.Errorf("%s: not a string-to-string object", filepath.Base(path))
	}
	return decodeOrdered(raw)
}

// decodeOrdered walks the document token by token so key order survives;
// a plain map unmarshal would scramble it.
func decodeOrdered(raw []byte) ([]Entry, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected a JSON object")
	}
	var entries []Entry
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("expected a string key")
		}
		var val string
		if err := dec.Decode(&val); err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Key: key, Value: val})
	}
	return entries, nil
}

// SaveMapping rewrites the full document at path, pretty-printed,
// preserving entry order. The bytes go to a uniquely named temp file in
// the same directory and are swapped in with a rename, so readers never
// observe a partial document.
func SaveMapping(path string, entries []Entry) error {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString("\n  ")
		writeJSONString(&buf, e.Key)
		buf.WriteString(": ")
		writeJSONString(&buf, e.Value)
	}
	if len(entries) > 0 {
		buf.WriteByte('\n')
	}
	buf.WriteString("}\n")

	tmp := path + "." + uuid.NewString() + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

func writeJSONString(buf *bytes.Buffer, s string) {
	b, err := json.Marshal(s)
	if err != nil {
		// Marshaling a string cannot fail; keep the document well formed
		// even if it somehow does.
		b = []byte(`""`)
	}
	buf.Write(b)
}
