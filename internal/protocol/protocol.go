// Package protocol defines the wire messages exchanged between an
// external editor shell and the engine over internal/bridge/ws, plus
// the JSON Schemas used to validate them before they reach TSE or AS.
package protocol

import "encoding/json"

const Version = "1.0"

// Message types, matching the "type" discriminator on the wire.
const (
	TypeCameraSample = "camera_sample"
	TypeAddTask      = "add_task"
	TypeSetTile      = "set_tile"
	TypeTileUpdated  = "tile_updated"
	TypeTaskEvent    = "task_event"
	TypeError        = "error"
)

// BaseMessage lets the bridge route an inbound frame by type before
// committing to a concrete struct.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
