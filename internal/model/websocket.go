package model

// WebSocket message types
const (
	WSMessageTypeStatus   = "status"
	WSMessageTypeDeployed = "deployed"
	WSMessageTypeError    = "error"
	WSMessageTypePing     = "ping"
	WSMessageTypePong     = "pong"
)

// WSMessage represents a generic WebSocket message
type WSMessage struct {
	Type string `json:"type"`
}

// WSStatusMessage is broadcast whenever a generation task changes state.
type WSStatusMessage struct {
	Type   string     `json:"type"`
	TaskID string     `json:"taskId"`
	Status TaskStatus `json:"status"`
	Error  string     `json:"error,omitempty"`
}

// WSDeployedMessage is broadcast when a task reaches the catalog.
type WSDeployedMessage struct {
	Type    string `json:"type"`
	TaskID  string `json:"taskId"`
	TrackID string `json:"trackId"`
}
