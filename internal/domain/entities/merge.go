package entities

import (
	"encoding/json"
	"fmt"
)

// DecodeProgress merges a serialized aggregate over a base snapshot.
//
// The decode seeds the result with base (or a fresh default aggregate when
// base is nil) and unmarshals the payload on top, so any key missing from
// the payload keeps the base value. This is the deep-merge guarantee that
// lets an old cached copy pick up preference keys introduced after it was
// written. The result is normalized before being returned.
func DecodeProgress(data []byte, base *Progress) (*Progress, error) {
	var out *Progress
	if base != nil {
		out = base.Clone()
	} else {
		out = NewProgress()
	}

	if err := json.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("decode progress: %w", err)
	}

	out.Normalize()
	return out, nil
}

// EncodeProgress serializes the aggregate for persistence.
func EncodeProgress(p *Progress) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode progress: %w", err)
	}
	return data, nil
}
