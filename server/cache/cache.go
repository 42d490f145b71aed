package cache

import (
	"context"
	"errors"

	"github.com/matchvision/pov-overlay/server/models"
)

var ErrCacheMiss = errors.New("cache miss")

// DatasetCache keeps loaded tracking datasets around so that repeat and
// concurrent sessions against the same game skip the fetch. Datasets are
// immutable after load, which is what makes sharing one pointer safe.
type DatasetCache interface {
	Get(ctx context.Context, source string) (*models.TrackingDataset, error)

	Set(ctx context.Context, source string, ds *models.TrackingDataset) error

	Delete(ctx context.Context, source string) error

	Stats(ctx context.Context) (*Stats, error)

	Close() error
}

type Stats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}
