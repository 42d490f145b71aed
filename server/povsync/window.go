// Package povsync keeps per-role secondary "point of view" clips in lock-step
// with the main video's timeline. Each role owns a fixed window of the main
// timeline during which its clip plays synced; outside the window the clip is
// frozen on its first or last frame.
package povsync

import "fmt"

// Window is the sub-interval of the main video during which a role's POV feed
// is active. Static configuration, never mutated at runtime.
type Window struct {
	Start    float64 `json:"start_time"`
	Duration float64 `json:"duration"`
	End      float64 `json:"end_time"`

	// PreRoll enables the two-phase variant: an idle loop clip is shown
	// (looping, muted) while the main time is before SwitchTime, then hidden
	// in favor of the synced clip. SwitchTime is distinct from Start.
	PreRoll    bool    `json:"pre_roll,omitempty"`
	SwitchTime float64 `json:"switch_time,omitempty"`
}

func NewWindow(start, duration float64) Window {
	return Window{Start: start, Duration: duration, End: start + duration}
}

// WithPreRoll returns a copy of the window with the idle-loop phase enabled
// until switchTime.
func (w Window) WithPreRoll(switchTime float64) Window {
	w.PreRoll = true
	w.SwitchTime = switchTime
	return w
}

func (w Window) Validate() error {
	if w.Start >= w.End {
		return fmt.Errorf("pov window start %v must precede end %v", w.Start, w.End)
	}
	if w.End != w.Start+w.Duration {
		return fmt.Errorf("pov window end %v does not equal start %v + duration %v", w.End, w.Start, w.Duration)
	}
	return nil
}
