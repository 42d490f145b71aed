package povsync

import "go.uber.org/zap"

// ClipPlayer is the boundary to whatever actually plays the secondary clip.
// Play may be rejected by the host (autoplay policy, decode failure); the
// driver tolerates that so the seek position is already correct once playback
// is permitted.
type ClipPlayer interface {
	Play() error
	Pause()
	SeekTo(t float64)
	CurrentTime() float64
}

// Driver applies controller commands to a concrete player. One driver per
// role per session.
type Driver struct {
	ctrl   *Controller
	player ClipPlayer
	logger *zap.Logger
}

func NewDriver(ctrl *Controller, player ClipPlayer, logger *zap.Logger) *Driver {
	return &Driver{ctrl: ctrl, player: player, logger: logger}
}

// Sync evaluates the controller against the player's own clock and applies
// the result. Fully idempotent; call it on every time update.
func (d *Driver) Sync(mainTime float64, mainPlaying bool) Command {
	cmd := d.ctrl.Evaluate(mainTime, mainPlaying, d.player.CurrentTime())

	if cmd.Seek {
		d.player.SeekTo(cmd.ClipTime)
	}

	if cmd.Playing {
		if err := d.player.Play(); err != nil {
			// Fire-and-forget: sync keeps tracking time even while the host
			// refuses to play.
			d.logger.Debug("Clip play rejected",
				zap.String("role", string(d.ctrl.Role())),
				zap.Error(err))
		}
	} else {
		d.player.Pause()
	}

	return cmd
}
