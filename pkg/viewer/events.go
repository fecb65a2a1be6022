package viewer

import (
	"fmt"

	"github.com/lehigh-university-libraries/wordlens/pkg/interaction"
)

// Event types accepted by Dispatch.
const (
	EventDown     = "down"
	EventMove     = "move"
	EventUp       = "up"
	EventWindowUp = "window_up"
	EventWheel    = "wheel"
)

// Event is a serialised pointer or wheel event, as posted by the browser
// page or listed in a gesture script.
type Event struct {
	Type     string  `json:"type" yaml:"type"`
	X        float64 `json:"x" yaml:"x"`
	Y        float64 `json:"y" yaml:"y"`
	Modifier bool    `json:"modifier,omitempty" yaml:"modifier,omitempty"`
	DeltaY   float64 `json:"deltaY,omitempty" yaml:"delta_y,omitempty"`
}

// EventResult reports what an event did.
type EventResult struct {
	Emitted        bool   `json:"emitted"`
	Text           string `json:"text,omitempty"`
	PreventDefault bool   `json:"preventDefault,omitempty"`
	Cursor         string `json:"cursor"`
}

// Dispatch routes ev to the matching session method.
func (s *Session) Dispatch(ev Event) (EventResult, error) {
	var res EventResult
	pointer := interaction.PointerEvent{ClientX: ev.X, ClientY: ev.Y, Modifier: ev.Modifier}

	switch ev.Type {
	case EventDown:
		s.PointerDown(pointer)
	case EventMove:
		s.PointerMove(pointer)
	case EventUp:
		res.Text, res.Emitted = s.PointerUp(pointer)
	case EventWindowUp:
		res.Text, res.Emitted = s.WindowPointerUp()
	case EventWheel:
		res.PreventDefault = s.Wheel(interaction.WheelEvent{ClientX: ev.X, ClientY: ev.Y, DeltaY: ev.DeltaY})
	default:
		return res, fmt.Errorf("unknown event type %q", ev.Type)
	}

	s.mu.Lock()
	res.Cursor = string(s.controller.Cursor())
	s.mu.Unlock()
	return res, nil
}
