package tracking

import "github.com/matchvision/pov-overlay/server/models"

// Engine composes the sampler, role table, projector and continuity cache
// into a single pull-based query: the caller (the render loop, a websocket
// tick) decides the cadence, and sampling correctness never depends on timer
// jitter or on queries arriving in time order.
type Engine struct {
	ds         *models.TrackingDataset
	roles      RoleTable
	continuity *ContinuityCache
}

func NewEngine(ds *models.TrackingDataset, roles RoleTable) *Engine {
	return &Engine{
		ds:         ds,
		roles:      roles,
		continuity: NewContinuityCache(),
	}
}

// Query returns the projected position of every modeled role at main-video
// time t. Rewinds are supported: the frame is re-derived from t on every
// call. The continuity cache is the only state touched, and its hold-last
// behavior is direction-agnostic; immediately after a rewind it may briefly
// serve a position newer than the rewound time until the next detection
// corrects it, an accepted cosmetic artifact.
func (e *Engine) Query(t float64) map[models.Role]models.ProjectedPosition {
	frame := SampleAt(e.ds, t)

	// Last track wins when several ids in the frame resolve to one role.
	sampled := make(map[models.Role]*models.TrackRecord)
	for i := range frame.Tracks {
		track := &frame.Tracks[i]
		if role, ok := e.roles.Resolve(track.ID); ok {
			sampled[role] = track
		}
	}

	positions := make(map[models.Role]models.ProjectedPosition, len(e.roles.Roles()))
	for _, role := range e.roles.Roles() {
		positions[role] = e.continuity.Update(role, sampled[role], e.ds.VideoW, e.ds.VideoH)
	}
	return positions
}

// ResetContinuity drops all hold-last state. Not called automatically on
// rewind; see Query.
func (e *Engine) ResetContinuity() {
	e.continuity.Reset()
}

func (e *Engine) Dataset() *models.TrackingDataset {
	return e.ds
}

func (e *Engine) Roles() []models.Role {
	return e.roles.Roles()
}
