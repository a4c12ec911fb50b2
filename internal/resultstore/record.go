package resultstore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/specialistvlad/conduit/internal/result"
)

// Record is the persisted form of one node result, shared by every backend.
type Record struct {
	Label    string        `json:"label"`
	StoredAt time.Time     `json:"stored_at"`
	Result   result.Result `json:"result"`
}

// EncodeRecord serializes a result for storage.
func EncodeRecord(label string, res result.Result) ([]byte, error) {
	b, err := json.Marshal(Record{Label: label, StoredAt: time.Now().UTC(), Result: res})
	if err != nil {
		return nil, fmt.Errorf("failed to encode result of %q: %w", label, err)
	}
	return b, nil
}

// DecodeRecord parses a record written by EncodeRecord.
func DecodeRecord(b []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return Record{}, fmt.Errorf("failed to decode result record: %w", err)
	}
	return rec, nil
}
