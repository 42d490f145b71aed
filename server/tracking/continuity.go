package tracking

import (
	"sync"

	"github.com/matchvision/pov-overlay/server/models"
)

// ContinuityCache holds the last projected position per role so that a role
// missing from the current sampled frame keeps its last visible position
// instead of disappearing or snapping to origin. Broadcast overlays look
// worse vanishing and reappearing than drifting slightly stale during an
// occlusion.
//
// Entries are only ever overwritten, never expired. Updates arrive from a
// single time-update stream per session, but the map is still mutex-guarded
// because HTTP queries and the websocket loop may race.
type ContinuityCache struct {
	mu   sync.RWMutex
	last map[models.Role]models.ProjectedPosition
}

func NewContinuityCache() *ContinuityCache {
	return &ContinuityCache{
		last: make(map[models.Role]models.ProjectedPosition),
	}
}

// Update resolves the position for one role given the track sampled for it in
// the current frame (nil when absent).
//
//   - track present: project it, remember it, report visible.
//   - track absent, prior entry exists: report the prior entry, still visible.
//   - track absent, never seen: origin, not visible.
func (c *ContinuityCache) Update(role models.Role, track *models.TrackRecord, videoW, videoH int) models.ProjectedPosition {
	if track != nil {
		x, y := Project(track.BBox, videoW, videoH)
		pos := models.ProjectedPosition{X: x, Y: y, Visible: true}
		c.mu.Lock()
		c.last[role] = pos
		c.mu.Unlock()
		return pos
	}

	c.mu.RLock()
	pos, ok := c.last[role]
	c.mu.RUnlock()
	if ok {
		pos.Visible = true
		return pos
	}

	return models.ProjectedPosition{}
}

// Peek returns the cached position without mutating anything.
func (c *ContinuityCache) Peek(role models.Role) (models.ProjectedPosition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	pos, ok := c.last[role]
	return pos, ok
}

// Reset clears all entries. Sessions start with an empty cache; this exists
// for callers that want a clean slate after a hard rewind.
func (c *ContinuityCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = make(map[models.Role]models.ProjectedPosition)
}

func (c *ContinuityCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.last)
}
