package models

import "time"

// TrackingDataset is the pre-computed per-video tracking document produced by
// the offline detector pass. It is immutable after load.
type TrackingDataset struct {
	VideoW int     `json:"videoW"`
	VideoH int     `json:"videoH"`
	FPS    float64 `json:"fps"`
	Frames []Frame `json:"frames"`
}

// Frame holds every detection present at one capture timestamp. Frames are
// ordered ascending by timestamp; Index is diagnostic only.
type Frame struct {
	Index     int           `json:"frame"`
	Timestamp float64       `json:"t"`
	Tracks    []TrackRecord `json:"tracks"`
}

// TrackRecord is a single detection. The track id is only stable within one
// continuous detection run; after occlusion the tracker may hand the same
// person a new id.
type TrackRecord struct {
	ID         int         `json:"id"`
	Confidence float64     `json:"conf"`
	BBox       BoundingBox `json:"bbox"`
}

// BoundingBox is (x1, y1, x2, y2) in source pixel space, x1<=x2, y1<=y2.
type BoundingBox [4]float64

func (b BoundingBox) CenterX() float64 { return (b[0] + b[2]) / 2 }
func (b BoundingBox) CenterY() float64 { return (b[1] + b[3]) / 2 }

// Role is the stable semantic identity an overlay element is keyed by.
// Multiple raw track ids may feed the same role over the video's duration.
type Role string

const (
	RolePenaltyTaker Role = "penalty-taker"
	RoleGoalkeeper   Role = "goalkeeper"
	RoleReferee      Role = "referee"
	RoleAssistantRef Role = "assistant-referee"
)

// ProjectedPosition is a bounding-box center expressed as a percentage of the
// frame, so the overlay can be placed at any render resolution. Visible is
// false only when the role has never been seen in the dataset.
type ProjectedPosition struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Visible bool    `json:"visible"`
}

type Team struct {
	Name      string `json:"name"`
	ShortName string `json:"short_name"`
	Color     string `json:"color"`
}

// Player is the card metadata attached to a tracked role.
type Player struct {
	Role     Role   `json:"role"`
	Name     string `json:"name"`
	Number   int    `json:"number"`
	Position string `json:"position"`
	Team     string `json:"team"`
	Color    string `json:"color"`
}

type PenaltyCount struct {
	Scored int `json:"scored"`
	Taken  int `json:"taken"`
	Saved  int `json:"saved"`
}

// ScoreState is the penalty board derived purely from the query time, so a
// rewind before a goal rolls the board back with it.
type ScoreState struct {
	Home         PenaltyCount `json:"home"`
	Away         PenaltyCount `json:"away"`
	CurrentRound int          `json:"current_round"`
	HomeTurn     bool         `json:"home_turn"`
	// JustScored is "home" or "away" during the celebration window after a
	// goal, empty otherwise.
	JustScored string `json:"just_scored,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ResponseMeta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}
