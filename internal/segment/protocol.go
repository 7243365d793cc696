package segment

import (
	"encoding/json"
	"fmt"
)

// --- Worker wire types ---
//
// The worker speaks line-delimited JSON: one event per line on stdout, one
// request per line on stdin. Everything else the worker prints goes to
// stderr and is captured for error classification.

// WorkerEvent is the single worker-to-driver message shape.
type WorkerEvent struct {
	Event       string `json:"event"` // "ready", "fatal" or "result".
	Device      string `json:"device,omitempty"`
	Accelerated bool   `json:"accelerated,omitempty"`
	OK          bool   `json:"ok,omitempty"`
	Error       string `json:"error,omitempty"`
	Mask        string `json:"mask,omitempty"`
	Shape       []int  `json:"shape,omitempty"`
}

// inferRequest is the driver-to-worker message for one image.
type inferRequest struct {
	Image     string  `json:"image"`
	Mask      string  `json:"mask"`
	Channels  []int   `json:"channels"`
	Diameter  float64 `json:"diameter"`
	Downscale float64 `json:"downscale"`
}

// ParseEvent converts one stdout line into a WorkerEvent.
// Exported for testing without a real worker process.
func ParseEvent(data []byte) (*WorkerEvent, error) {
	var ev WorkerEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrWorkerProtocol, string(data))
	}
	switch ev.Event {
	case "ready", "fatal", "result":
		return &ev, nil
	}
	return nil, fmt.Errorf("%w: unknown event %q", ErrWorkerProtocol, ev.Event)
}
