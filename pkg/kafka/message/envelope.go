// Package message defines the envelope every published record is wrapped in.
package message

import (
	"encoding/json"
	"fmt"
	"time"
)

// TypeChainStatus is the envelope type of a status snapshot record.
const TypeChainStatus = "chain_status"

type Envelope struct {
	Type    string          `json:"type"`
	Version int             `json:"version"`
	ID      string          `json:"id,omitempty"`
	TS      time.Time       `json:"ts"`
	Data    json.RawMessage `json:"data"`
}

// Seal marshals v and wraps it in an envelope.
func Seal(msgType string, version int, id string, ts time.Time, v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	return json.Marshal(Envelope{
		Type:    msgType,
		Version: version,
		ID:      id,
		TS:      ts.UTC(),
		Data:    data,
	})
}

func Open(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	return &env, nil
}
