// Package match carries the declarative broadcast data around the tracking
// core: the games catalog, the per-game event timeline driving the penalty
// score board, and the commentary feed.
package match

import (
	"sort"

	"github.com/matchvision/pov-overlay/server/models"
)

const (
	EventGoal = "goal"
	EventSave = "save"
	EventMiss = "miss"
)

// Event is a timestamped occurrence on the main video's timeline.
type Event struct {
	Time        float64 `json:"time"`
	Type        string  `json:"type"`
	Team        string  `json:"team"` // "home" or "away"
	Player      string  `json:"player"`
	Description string  `json:"description"`
}

// CommentaryLine is a broadcast commentary entry that becomes available once
// the main video reaches its time.
type CommentaryLine struct {
	Time float64 `json:"time"`
	Text string  `json:"text"`
	Kind string  `json:"kind"` // "action", "goal", "general"
}

// celebrationSeconds is how long JustScored stays set after a goal, matching
// the confetti auto-hide in the stream UI.
const celebrationSeconds = 4.0

// Timeline derives score state from the query time alone, so rewinding the
// main video before a goal rolls the board back with it. No internal state.
type Timeline struct {
	events     []Event
	commentary []CommentaryLine
}

func NewTimeline(events []Event, commentary []CommentaryLine) *Timeline {
	ev := make([]Event, len(events))
	copy(ev, events)
	sort.SliceStable(ev, func(i, j int) bool { return ev[i].Time < ev[j].Time })

	cm := make([]CommentaryLine, len(commentary))
	copy(cm, commentary)
	sort.SliceStable(cm, func(i, j int) bool { return cm[i].Time < cm[j].Time })

	return &Timeline{events: ev, commentary: cm}
}

// ScoreAt folds every event with time <= t into a penalty board.
func (tl *Timeline) ScoreAt(t float64) models.ScoreState {
	state := models.ScoreState{CurrentRound: 1, HomeTurn: true}

	for _, ev := range tl.events {
		if ev.Time > t {
			break
		}

		var side *models.PenaltyCount
		if ev.Team == "home" {
			side = &state.Home
		} else {
			side = &state.Away
		}

		switch ev.Type {
		case EventGoal:
			side.Scored++
			side.Taken++
		case EventSave:
			side.Saved++
			side.Taken++
		case EventMiss:
			side.Taken++
		default:
			continue
		}

		state.HomeTurn = ev.Team != "home"
		state.CurrentRound = min(state.Home.Taken, state.Away.Taken) + 1

		if ev.Type == EventGoal && t-ev.Time < celebrationSeconds {
			state.JustScored = ev.Team
		} else {
			state.JustScored = ""
		}
	}

	return state
}

// EventsThrough returns the events that have occurred by time t.
func (tl *Timeline) EventsThrough(t float64) []Event {
	idx := sort.Search(len(tl.events), func(i int) bool { return tl.events[i].Time > t })
	return tl.events[:idx]
}

// CommentaryAt returns the latest commentary lines available at time t,
// newest first, capped at limit (0 means all).
func (tl *Timeline) CommentaryAt(t float64, limit int) []CommentaryLine {
	idx := sort.Search(len(tl.commentary), func(i int) bool { return tl.commentary[i].Time > t })
	avail := tl.commentary[:idx]

	out := make([]CommentaryLine, 0, len(avail))
	for i := len(avail) - 1; i >= 0; i-- {
		out = append(out, avail[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
