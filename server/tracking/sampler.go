package tracking

import (
	"sort"

	"github.com/matchvision/pov-overlay/server/models"
)

// SampleAt returns the latest frame whose timestamp does not exceed t.
//
// This is a hold-last-known policy, not interpolation: the detector samples
// discretely and inventing positions between detections looks worse than
// holding the previous one. Query times before the first frame return the
// first frame; times beyond the last return the last. An empty dataset yields
// a synthetic empty frame so callers never have to special-case it.
func SampleAt(ds *models.TrackingDataset, t float64) models.Frame {
	frames := ds.Frames
	if len(frames) == 0 {
		return models.Frame{Index: -1, Timestamp: t}
	}

	// First frame with timestamp strictly greater than t. Among duplicate
	// timestamps this keeps the last one, matching a forward linear scan.
	idx := sort.Search(len(frames), func(i int) bool {
		return frames[i].Timestamp > t
	})
	if idx == 0 {
		return frames[0]
	}
	return frames[idx-1]
}
