package ws

import (
	"sync"

	"tilestream/internal/tilemap"
)

// BridgeCamera implements tilemap.Camera over the latest camera_sample
// frame received from whichever editor connection is currently driving
// the process-wide engine. Nothing has sampled it yet on construction,
// so Sample returns the zero pose until the first frame lands.
type BridgeCamera struct {
	mu     sync.Mutex
	sample tilemap.CameraSample
}

func NewBridgeCamera() *BridgeCamera {
	return &BridgeCamera{}
}

func (c *BridgeCamera) Sample() tilemap.CameraSample {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sample
}

func (c *BridgeCamera) update(centerX, centerY, width, height, zoom float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sample = tilemap.CameraSample{
		CenterX: centerX,
		CenterY: centerY,
		WorldView: tilemap.WorldView{
			Left: centerX - width/2, Right: centerX + width/2,
			Top: centerY - height/2, Bottom: centerY + height/2,
		},
		Width:  width,
		Height: height,
		Zoom:   zoom,
	}
}
