// Package persist saves and loads the radio beacon descriptor (Epan) the
// adapter discovers during a scan, so a restart can rejoin the same PAN
// without re-scanning.
package persist

import (
	"encoding/json"
	"fmt"
	"os"
)

// Epan mirrors radio.Epan's fields in the camelCase JSON form the source
// tooling writes and reads. It is declared here, rather than depending on
// the radio package's Epan type directly, so this package stays a leaf.
type Epan struct {
	Channel     *byte   `json:"channel,omitempty"`
	ChannelPage *byte   `json:"channelPage,omitempty"`
	PanID       *uint16 `json:"panId,omitempty"`
	MacAddress  *string `json:"macAddress,omitempty"`
	LQI         *byte   `json:"lqi,omitempty"`
	PairID      *string `json:"pairId,omitempty"`
}

var epanFields = map[string]bool{
	"channel":     true,
	"channelPage": true,
	"panId":       true,
	"macAddress":  true,
	"lqi":         true,
	"pairId":      true,
}

// IsComplete reports whether every field needed to rejoin a PAN without a
// fresh scan has been observed.
func (e *Epan) IsComplete() bool {
	return e.Channel != nil && e.ChannelPage != nil && e.PanID != nil &&
		e.MacAddress != nil && e.LQI != nil && e.PairID != nil
}

func (e *Epan) toJSON() ([]byte, error) {
	return json.MarshalIndent(e, "", "    ")
}

// Save writes e to path as indented camelCase JSON.
func Save(path string, e *Epan) error {
	data, err := e.toJSON()
	if err != nil {
		return fmt.Errorf("persist: marshal epan: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("persist: write %s: %w", path, err)
	}
	return nil
}

// Load reads an Epan from path, rejecting any JSON object key that is not
// one of the known camelCase field names.
func Load(path string) (*Epan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("persist: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes raw JSON bytes into an Epan, rejecting unknown keys the same
// way Load does.
func Parse(data []byte) (*Epan, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("persist: parse epan: %w", err)
	}
	for key := range raw {
		if !epanFields[key] {
			return nil, fmt.Errorf("persist: unknown field %q in epan data", key)
		}
	}

	var e Epan
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("persist: parse epan: %w", err)
	}
	return &e, nil
}
