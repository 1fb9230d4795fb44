package protocol

// CameraSampleMsg reports the editor's camera pose so the bridge can
// feed it into a tilemap.Camera implementation.
type CameraSampleMsg struct {
	BaseMessage
	CenterX float64 `json:"center_x"`
	CenterY float64 `json:"center_y"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Zoom    float64 `json:"zoom"`
}

// AddTaskMsg requests admission of a new attention task.
type AddTaskMsg struct {
	BaseMessage
	Kind       string `json:"kind"`
	Cost       int    `json:"cost"`
	DurationMs int    `json:"duration_ms"`
}

// SetTileMsg asks the engine to overwrite a single world tile.
type SetTileMsg struct {
	BaseMessage
	X     int `json:"x"`
	Y     int `json:"y"`
	Index int `json:"index"`
}

// TileUpdatedMsg is an outbound notification that a tile in the
// active buffer changed; the bridge sends it after applying a
// SetTileMsg.
type TileUpdatedMsg struct {
	BaseMessage
	X     int `json:"x"`
	Y     int `json:"y"`
	Index int `json:"index"`
}

// TaskEventMsg reports an attention task's pool transition.
type TaskEventMsg struct {
	BaseMessage
	TaskID string `json:"task_id"`
	Pool   string `json:"pool"`
}

// ErrorMsg reports a rejected request using the codes in errors.go.
type ErrorMsg struct {
	BaseMessage
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewError(code, message string) ErrorMsg {
	return ErrorMsg{BaseMessage: BaseMessage{Type: TypeError}, Code: code, Message: message}
}
