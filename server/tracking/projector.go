package tracking

import "github.com/matchvision/pov-overlay/server/models"

// Project converts a bounding box in source pixel space to the box center as
// a percentage of the frame, so the overlay layer can position elements at
// any render resolution.
//
// No clamping is applied: if the upstream detector emits boxes outside the
// frame the values pass through, and a renderer that cares clamps to [0,100]
// itself.
func Project(b models.BoundingBox, videoW, videoH int) (x, y float64) {
	x = b.CenterX() / float64(videoW) * 100
	y = b.CenterY() / float64(videoH) * 100
	return x, y
}
