package match

import (
	"errors"

	"github.com/matchvision/pov-overlay/server/models"
	"github.com/matchvision/pov-overlay/server/povsync"
)

var ErrUnknownGame = errors.New("unknown game")

const (
	StatusLive     = "live"
	StatusUpcoming = "upcoming"
	StatusFinished = "finished"
)

// Game is one catalog entry. For playable games the tracking source, role
// table, POV windows and fallback positions are all fixed compiled-in
// configuration, injected into the session rather than read from package
// globals.
type Game struct {
	ID               string      `json:"id"`
	HomeTeam         models.Team `json:"home_team"`
	AwayTeam         models.Team `json:"away_team"`
	Competition      string      `json:"competition"`
	CompetitionShort string      `json:"competition_short"`
	Kickoff          string      `json:"kickoff"`
	Status           string      `json:"status"`
	Playable         bool        `json:"playable"`

	TrackingSource string                                   `json:"-"`
	Roles          map[int]models.Role                      `json:"-"`
	Windows        map[models.Role]povsync.Window           `json:"-"`
	Fallback       map[models.Role]models.ProjectedPosition `json:"-"`
	Players        []models.Player                          `json:"-"`
	Events         []Event                                  `json:"-"`
	Commentary     []CommentaryLine                         `json:"-"`
}

type Catalog struct {
	games []Game
	byID  map[string]Game
}

func NewCatalog(games []Game) *Catalog {
	byID := make(map[string]Game, len(games))
	for _, g := range games {
		byID[g.ID] = g
	}
	return &Catalog{games: games, byID: byID}
}

func (c *Catalog) Games() []Game {
	return c.games
}

func (c *Catalog) Get(id string) (Game, error) {
	g, ok := c.byID[id]
	if !ok {
		return Game{}, ErrUnknownGame
	}
	return g, nil
}

// DefaultCatalog is the demo catalog. The first game carries the penalty
// shootout footage the tracking dataset was generated from; the others are
// display-only cards.
func DefaultCatalog() *Catalog {
	return NewCatalog([]Game{
		{
			ID:               "mun-ars-facup",
			HomeTeam:         models.Team{Name: "Manchester United", ShortName: "MUN", Color: "#DA291C"},
			AwayTeam:         models.Team{Name: "Arsenal", ShortName: "ARS", Color: "#EF0107"},
			Competition:      "FA Cup",
			CompetitionShort: "FA CUP",
			Kickoff:          "17:30",
			Status:           StatusLive,
			Playable:         true,

			TrackingSource: "bruno_tracks.json",

			// Track ids verified by visual position analysis of the source
			// footage. The goalkeeper picks up a fresh id after diving.
			Roles: map[int]models.Role{
				2:   models.RolePenaltyTaker,
				1:   models.RoleReferee,
				21:  models.RoleGoalkeeper,
				103: models.RoleGoalkeeper,
				3:   models.RoleAssistantRef,
			},

			Windows: map[models.Role]povsync.Window{
				models.RolePenaltyTaker: povsync.NewWindow(6.5, 1.0).WithPreRoll(6.0),
				models.RoleGoalkeeper:   povsync.NewWindow(6.5, 1.5),
				models.RoleReferee:      povsync.NewWindow(7.5, 1.0),
				models.RoleAssistantRef: povsync.NewWindow(7.5, 1.0),
			},

			// Static card positions (frame percent) used while tracking is
			// loading or failed.
			Fallback: map[models.Role]models.ProjectedPosition{
				models.RoleReferee:      {X: 46.9, Y: 27.8},
				models.RolePenaltyTaker: {X: 7.8, Y: 41.7},
				models.RoleGoalkeeper:   {X: 78.1, Y: 20.8},
				models.RoleAssistantRef: {X: 78.1, Y: 48.6},
			},

			Players: []models.Player{
				{Role: models.RoleGoalkeeper, Name: "David Raya", Number: 22, Position: "Goalkeeper", Team: "away", Color: "#F5A623"},
				{Role: models.RolePenaltyTaker, Name: "Bruno Fernandes", Number: 8, Position: "Penalty Taker", Team: "home", Color: "#3B82F6"},
				{Role: models.RoleReferee, Name: "Anthony Taylor", Position: "Referee", Team: "home", Color: "#F97316"},
				{Role: models.RoleAssistantRef, Name: "G. Mayfield", Position: "Assistant Referee", Team: "home", Color: "#F97316"},
			},

			Events: []Event{
				{Time: 8.0, Type: EventGoal, Team: "home", Player: "Bruno Fernandes",
					Description: "Bruno Fernandes scores for Manchester United!"},
			},

			Commentary: []CommentaryLine{
				{Time: 0.0, Text: "Bruno Fernandes steps up to take the first penalty.", Kind: "general"},
				{Time: 5.0, Text: "Raya sets himself on the line. The stadium holds its breath.", Kind: "action"},
				{Time: 8.0, Text: "GOAL! Fernandes sends Raya the wrong way!", Kind: "goal"},
			},
		},
		{
			ID:               "liv-che-prem",
			HomeTeam:         models.Team{Name: "Liverpool", ShortName: "LIV", Color: "#C8102E"},
			AwayTeam:         models.Team{Name: "Chelsea", ShortName: "CHE", Color: "#034694"},
			Competition:      "Premier League",
			CompetitionShort: "PREM",
			Kickoff:          "20:00",
			Status:           StatusLive,
		},
		{
			ID:               "mci-tot-prem",
			HomeTeam:         models.Team{Name: "Manchester City", ShortName: "MCI", Color: "#6CABDD"},
			AwayTeam:         models.Team{Name: "Tottenham Hotspur", ShortName: "TOT", Color: "#132257"},
			Competition:      "Premier League",
			CompetitionShort: "PREM",
			Kickoff:          "15:00",
			Status:           StatusUpcoming,
		},
	})
}
