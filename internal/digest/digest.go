// Package digest fingerprints ingestion payloads for deduplication. The hash
// is not collision resistant and must not be used for integrity checks.
package digest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/wsgraph/engine/internal/snapshot"
	"github.com/wsgraph/engine/pkg/utils"
)

// Payload is the digested part of a submission.
type Payload struct {
	WorkspaceID    string             `json:"workspaceId"`
	ScannerName    string             `json:"scannerName"`
	ScannerVersion string             `json:"scannerVersion,omitempty"`
	Snapshot       *snapshot.Snapshot `json:"snapshot"`
}

// Compute returns the hex digest of the payload.
func Compute(workspaceID, scannerName, scannerVersion string, snap *snapshot.Snapshot) (string, error) {
	s, err := StableStringify(Payload{
		WorkspaceID:    workspaceID,
		ScannerName:    scannerName,
		ScannerVersion: scannerVersion,
		Snapshot:       snap,
	})
	if err != nil {
		return "", err
	}
	return utils.Sum64Hex([]byte(s)), nil
}

// StableStringify renders v as JSON with object keys sorted recursively.
// Object members whose value is null are omitted; arrays keep their order.
func StableStringify(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("digest marshal: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return "", fmt.Errorf("digest decode: %w", err)
	}

	var buf bytes.Buffer
	if err := write(&buf, tree); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func write(buf *bytes.Buffer, v any) error {
	switch t := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if t {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case json.Number:
		buf.WriteString(t.String())
	case string:
		return writeString(buf, t)
	case []any:
		buf.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := write(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k, e := range t {
			if e != nil {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeString(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := write(buf, t[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("digest: unexpected %T", v)
	}
	return nil
}

func writeString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	// Encode appends a newline.
	buf.Truncate(buf.Len() - 1)
	return nil
}
