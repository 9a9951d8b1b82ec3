package adapter

import (
	"bytes"
	"encoding/json"

	"github.com/gowebpki/jcs"
)

// JSON defines the JSON operations used to render snapshots
type JSON interface {
	// MarshalCanonicalIndent renders v in RFC 8785 canonical form and then
	// indents it, so two equal snapshots always produce identical bytes
	MarshalCanonicalIndent(v interface{}, indent string) ([]byte, error)
}

// RealJSON implements JSON using encoding/json and gowebpki/jcs
type RealJSON struct{}

// NewJSON creates a new real JSON implementation
func NewJSON() JSON {
	return &RealJSON{}
}

func (j *RealJSON) MarshalCanonicalIndent(v interface{}, indent string) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	if err := json.Indent(&out, canonical, "", indent); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}
