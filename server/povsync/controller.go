package povsync

import (
	"math"

	"github.com/matchvision/pov-overlay/server/models"
)

// State describes where the main video time sits relative to a role's window.
type State string

const (
	StateBeforeWindow State = "before_window"
	StateInWindow     State = "in_window"
	StateAfterWindow  State = "after_window"
)

// Command is what the clip player should do right now. It is recomputed from
// scratch on every evaluation; applying the same command twice is harmless.
type Command struct {
	State State `json:"state"`
	// ClipTime is the clip-local time the player should be at, clamped to
	// [0, duration].
	ClipTime float64 `json:"clip_time"`
	// Seek is set only when the player's reported time has drifted beyond
	// tolerance, so the sync does not fight the player's own playback clock.
	Seek    bool `json:"seek"`
	Playing bool `json:"playing"`
	// ShowPreRoll is set while the idle loop clip should be displayed instead
	// of the synced clip (looping, muted).
	ShowPreRoll bool `json:"show_pre_roll"`
}

// Controller is the per-role sync state machine. It has no memory beyond the
// window's static bounds: state is purely a function of the main video time,
// which makes seeks and rewinds free.
type Controller struct {
	role      models.Role
	window    Window
	tolerance float64
}

const DefaultDriftTolerance = 0.1

func NewController(role models.Role, window Window, tolerance float64) *Controller {
	if tolerance <= 0 {
		tolerance = DefaultDriftTolerance
	}
	return &Controller{role: role, window: window, tolerance: tolerance}
}

func (c *Controller) Role() models.Role { return c.role }
func (c *Controller) Window() Window    { return c.window }

// Evaluate computes the command for the current main-video time. clipTime is
// the secondary player's self-reported local time, used only for the drift
// check; callers that do not know it should pass the previous command's
// ClipTime (or 0) and apply seeks themselves.
func (c *Controller) Evaluate(mainTime float64, mainPlaying bool, clipTime float64) Command {
	cmd := Command{
		ShowPreRoll: c.window.PreRoll && mainTime < c.window.SwitchTime,
	}

	switch {
	case mainTime < c.window.Start:
		cmd.State = StateBeforeWindow
		cmd.ClipTime = 0
	case mainTime < c.window.End:
		cmd.State = StateInWindow
		cmd.ClipTime = clamp(mainTime-c.window.Start, 0, c.window.Duration)
		cmd.Playing = mainPlaying
	default:
		cmd.State = StateAfterWindow
		cmd.ClipTime = c.window.Duration
	}

	cmd.Seek = math.Abs(clipTime-cmd.ClipTime) > c.tolerance
	return cmd
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
