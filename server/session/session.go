package session

import (
	"sync"
	"time"

	"github.com/matchvision/pov-overlay/server/match"
	"github.com/matchvision/pov-overlay/server/models"
	"github.com/matchvision/pov-overlay/server/povsync"
	"github.com/matchvision/pov-overlay/server/tracking"
)

type Status string

const (
	StatusQueued  Status = "queued"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusFailed  Status = "failed"
)

// Session is one viewer's run at a game: the loaded tracking engine, the
// per-role POV controllers and the match timeline, behind a single
// time-indexed query. Sessions hold no persistent state; they live for the
// viewing and are reaped when idle.
type Session struct {
	ID     string `json:"id"`
	GameID string `json:"game_id"`

	mu        sync.RWMutex
	status    Status
	progress  float64
	loadErr   string
	createdAt time.Time
	lastSeen  time.Time

	game        match.Game
	engine      *tracking.Engine
	controllers map[models.Role]*povsync.Controller
	timeline    *match.Timeline
}

// Snapshot is the wire form of a session's lifecycle state, polled by the
// processing screen until the dataset is in.
type Snapshot struct {
	ID       string  `json:"id"`
	GameID   string  `json:"game_id"`
	Status   Status  `json:"status"`
	Progress float64 `json:"progress"`
	Error    string  `json:"error,omitempty"`
}

// OverlayFrame is everything the rendering layer needs for one query time.
type OverlayFrame struct {
	T        float64 `json:"t"`
	Playing  bool    `json:"playing"`
	// Tracking is false while positions come from the static fallback table
	// (dataset still loading, or load failed).
	Tracking   bool                                     `json:"tracking"`
	Positions  map[models.Role]models.ProjectedPosition `json:"positions"`
	Clips      map[models.Role]povsync.Command          `json:"clips"`
	Score      models.ScoreState                        `json:"score"`
	Commentary []match.CommentaryLine                   `json:"commentary,omitempty"`
}

func newSession(id string, game match.Game, driftTolerance float64) *Session {
	controllers := make(map[models.Role]*povsync.Controller, len(game.Windows))
	for role, window := range game.Windows {
		controllers[role] = povsync.NewController(role, window, driftTolerance)
	}

	now := time.Now()
	return &Session{
		ID:          id,
		GameID:      game.ID,
		status:      StatusQueued,
		createdAt:   now,
		lastSeen:    now,
		game:        game,
		controllers: controllers,
		timeline:    match.NewTimeline(game.Events, game.Commentary),
	}
}

func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		ID:       s.ID,
		GameID:   s.GameID,
		Status:   s.status,
		Progress: s.progress,
		Error:    s.loadErr,
	}
}

func (s *Session) Game() match.Game {
	return s.game
}

// Overlay answers a single time-update tick. clipTimes carries the
// self-reported local times of the client's secondary players, keyed by role;
// roles absent from it get Seek=false so the server never fights a clock it
// cannot see.
//
// The whole result is derived from t. Rewinds re-derive the historical frame
// and roll the score board back, with the continuity cache as the only
// carried state.
func (s *Session) Overlay(t float64, playing bool, clipTimes map[models.Role]float64) OverlayFrame {
	s.touch()

	s.mu.RLock()
	ready := s.status == StatusReady
	s.mu.RUnlock()

	frame := OverlayFrame{
		T:        t,
		Playing:  playing,
		Tracking: ready,
		Clips:    make(map[models.Role]povsync.Command, len(s.controllers)),
		Score:    s.timeline.ScoreAt(t),
	}

	if ready {
		frame.Positions = s.engine.Query(t)
	} else {
		frame.Positions = s.fallbackPositions()
	}

	for role, ctrl := range s.controllers {
		clipTime, reported := clipTimes[role]
		cmd := ctrl.Evaluate(t, playing, clipTime)
		if !reported {
			cmd.Seek = false
		}
		frame.Clips[role] = cmd
	}

	frame.Commentary = s.timeline.CommentaryAt(t, 3)
	return frame
}

// fallbackPositions serves the compiled-in card coordinates while no dataset
// is available, so the overlay never crashes or blanks on a load failure.
func (s *Session) fallbackPositions() map[models.Role]models.ProjectedPosition {
	out := make(map[models.Role]models.ProjectedPosition, len(s.game.Fallback))
	for role, pos := range s.game.Fallback {
		pos.Visible = true
		out[role] = pos
	}
	return out
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSeen
}

func (s *Session) setLoading(progress float64) {
	s.mu.Lock()
	s.status = StatusLoading
	s.progress = progress
	s.mu.Unlock()
}

func (s *Session) setReady(engine *tracking.Engine) {
	s.mu.Lock()
	s.engine = engine
	s.status = StatusReady
	s.progress = 1.0
	s.mu.Unlock()
}

func (s *Session) setFailed(err error) {
	s.mu.Lock()
	s.status = StatusFailed
	s.loadErr = err.Error()
	s.mu.Unlock()
}
