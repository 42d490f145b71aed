package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/matchvision/pov-overlay/server/models"
)

var (
	// ErrDataUnavailable means the source could not be retrieved at all
	// (missing file, network failure, non-200 response).
	ErrDataUnavailable = errors.New("tracking data unavailable")
	// ErrDataMalformed means the source was retrieved but is not a valid
	// tracking dataset. Loads are all-or-nothing, partial data is rejected.
	ErrDataMalformed = errors.New("tracking data malformed")
)

// Store loads tracking datasets from local files or an HTTP endpoint.
type Store struct {
	dataDir    string
	httpClient *http.Client
	retries    int
	retryDelay time.Duration
	logger     *zap.Logger
}

type StoreOptions struct {
	DataDir      string
	FetchTimeout time.Duration
	Retries      int
	RetryDelay   time.Duration
}

func NewStore(opts StoreOptions, logger *zap.Logger) *Store {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 30 * time.Second
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}

	return &Store{
		dataDir:    opts.DataDir,
		retries:    opts.Retries,
		retryDelay: opts.RetryDelay,
		logger:     logger,
		httpClient: &http.Client{
			Timeout: opts.FetchTimeout,
			Transport: &http.Transport{
				MaxIdleConns:       10,
				IdleConnTimeout:    30 * time.Second,
				DisableCompression: true,
			},
		},
	}
}

// Load retrieves and validates a dataset. source is either an http(s) URL or
// a file path (relative paths resolve against the configured data dir).
func (s *Store) Load(ctx context.Context, source string) (*models.TrackingDataset, error) {
	var (
		raw []byte
		err error
	)

	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		raw, err = s.fetch(ctx, source)
	} else {
		raw, err = s.readFile(source)
	}
	if err != nil {
		return nil, err
	}

	var ds models.TrackingDataset
	if err := json.Unmarshal(raw, &ds); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataMalformed, err)
	}

	if err := validateDataset(&ds); err != nil {
		return nil, err
	}

	// The sampler assumes ascending timestamps; the offline tracker emits
	// them in order but a stable sort costs little on a once-per-session load.
	sort.SliceStable(ds.Frames, func(i, j int) bool {
		return ds.Frames[i].Timestamp < ds.Frames[j].Timestamp
	})

	s.logger.Info("Tracking dataset loaded",
		zap.String("source", source),
		zap.Int("frames", len(ds.Frames)),
		zap.Int("video_w", ds.VideoW),
		zap.Int("video_h", ds.VideoH))

	return &ds, nil
}

func (s *Store) readFile(source string) ([]byte, error) {
	path := source
	if !filepath.IsAbs(path) && s.dataDir != "" {
		path = filepath.Join(s.dataDir, path)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	return raw, nil
}

func (s *Store) fetch(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= s.retries; attempt++ {
		if attempt > 0 {
			s.logger.Warn("Retrying tracking data fetch",
				zap.Int("attempt", attempt),
				zap.Error(lastErr))
			select {
			case <-time.After(s.retryDelay * time.Duration(attempt)):
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, ctx.Err())
			}
		}

		raw, err := s.fetchOnce(ctx, url)
		if err == nil {
			return raw, nil
		}
		lastErr = err
	}

	return nil, fmt.Errorf("%w: fetch failed after %d attempts: %v",
		ErrDataUnavailable, s.retries+1, lastErr)
}

func (s *Store) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "pov-overlay/1.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	return io.ReadAll(resp.Body)
}

func validateDataset(ds *models.TrackingDataset) error {
	if ds.VideoW <= 0 || ds.VideoH <= 0 {
		return fmt.Errorf("%w: video resolution %dx%d", ErrDataMalformed, ds.VideoW, ds.VideoH)
	}
	if ds.FPS <= 0 {
		return fmt.Errorf("%w: frame rate %v", ErrDataMalformed, ds.FPS)
	}
	for i, f := range ds.Frames {
		if f.Timestamp < 0 {
			return fmt.Errorf("%w: frame %d has negative timestamp %v", ErrDataMalformed, i, f.Timestamp)
		}
		for _, tr := range f.Tracks {
			if tr.BBox[0] > tr.BBox[2] || tr.BBox[1] > tr.BBox[3] {
				return fmt.Errorf("%w: frame %d track %d has inverted bbox", ErrDataMalformed, i, tr.ID)
			}
		}
	}
	return nil
}
