package game

import (
	"encoding/json"
	"fmt"

	"sketchdash/internal/store"
)

const roomPrefix = "rooms"

func roomDocKey(code string) string { return roomPrefix + "/" + code }

// encodeRoom and decodeRoom round-trip through JSON so the store only ever
// sees the wire schema, never Go-side types.
func encodeRoom(r Room) store.Doc {
	b, _ := json.Marshal(r)
	var doc store.Doc
	_ = json.Unmarshal(b, &doc)
	return doc
}

func decodeRoom(doc store.Doc) (Room, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return Room{}, fmt.Errorf("encode snapshot: %w", err)
	}
	var r Room
	if err := json.Unmarshal(b, &r); err != nil {
		return Room{}, fmt.Errorf("decode room: %w", err)
	}
	return r, nil
}
