package scoreboard

import (
	"sort"
)

// Standing is one row of the ranking table.
type Standing struct {
	Position int      `json:"position"`
	PlayerID PlayerID `json:"player_id"`
	Name     string   `json:"name"`
	Rounds   []int    `json:"rounds"`
	Total    int      `json:"total"`
}

// Ranking orders players by the sum of their committed rounds, highest
// first. Players with equal totals keep their insertion order. Round
// breakdowns are padded with zeros to the longest history.
func (s *Session) Ranking() []Standing {
	maxRounds := 0
	for _, id := range s.order {
		if n := len(s.players[id].Rounds); n > maxRounds {
			maxRounds = n
		}
	}

	standings := make([]Standing, 0, len(s.order))
	for _, id := range s.order {
		p := s.players[id]

		rounds := make([]int, maxRounds)
		copy(rounds, p.Rounds)

		total := 0
		for _, v := range p.Rounds {
			total += v
		}

		standings = append(standings, Standing{
			PlayerID: p.ID,
			Name:     p.Name,
			Rounds:   rounds,
			Total:    total,
		})
	}

	sort.SliceStable(standings, func(i, j int) bool {
		return standings[i].Total > standings[j].Total
	})

	for i := range standings {
		standings[i].Position = i + 1
	}

	return standings
}

// Snapshot is a consistent, detached view of a session.
type Snapshot struct {
	GameName  string     `json:"game_name"`
	Round     int        `json:"round"`
	Players   []Player   `json:"players"`
	Ranking   []Standing `json:"ranking"`
	CanRemove bool       `json:"can_remove"`
}

func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		GameName:  s.gameName,
		Round:     s.round,
		Players:   s.Players(),
		Ranking:   s.Ranking(),
		CanRemove: s.CanRemove(),
	}
}
