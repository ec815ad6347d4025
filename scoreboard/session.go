/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package scoreboard tracks per-player scores across the rounds of a single
// game sitting.
//
// A Session always holds at least one player. Every player carries one
// committed entry per closed round, so all round histories have the same
// length, which is always one less than the number of the round in progress.
// The live score of the open round is committed verbatim when the round
// closes and then starts again from zero.
//
// A Session is not safe for concurrent use; its owner must serialize calls.
package scoreboard

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// DefaultNamePrefix is used to name players added without a name.
const DefaultNamePrefix = "Jogador"

var (
	ErrLastPlayer    = errors.New("cannot remove the last remaining player")
	ErrUnknownPlayer = errors.New("unknown player")
)

type PlayerID string

// Player is a copy of a player's state; mutating it does not affect the session.
type Player struct {
	ID     PlayerID `json:"id"`
	Name   string   `json:"name"`
	Rounds []int    `json:"rounds"`
	Score  int      `json:"score"`
}

type Option func(*Session)

// WithIDSource replaces the UUID generator used for new player identifiers.
func WithIDSource(next func() string) Option {
	return func(s *Session) {
		s.newID = next
	}
}

// WithGameName sets the initial descriptive label of the session.
func WithGameName(name string) Option {
	return func(s *Session) {
		s.gameName = strings.TrimSpace(name)
	}
}

type Session struct {
	players  map[PlayerID]*Player
	order    []PlayerID
	round    int
	gameName string
	newID    func() string
}

// New starts a session at round 1 with a single default player.
func New(opts ...Option) *Session {
	s := &Session{
		players: make(map[PlayerID]*Player),
		round:   1,
		newID:   uuid.NewString,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.AddPlayer("")

	return s
}

// AddPlayer appends a player, backfilled with a zero for every closed round.
func (s *Session) AddPlayer(name string) Player {
	name = strings.TrimSpace(name)
	if name == "" {
		name = fmt.Sprintf("%s %d", DefaultNamePrefix, len(s.players)+1)
	}

	id := PlayerID(s.newID())
	for {
		if _, exists := s.players[id]; !exists {
			break
		}
		id = PlayerID(s.newID())
	}

	p := &Player{
		ID:     id,
		Name:   name,
		Rounds: make([]int, s.round-1),
	}

	s.players[id] = p
	s.order = append(s.order, id)

	return clonePlayer(p)
}

// RemovePlayer deletes a player. Removing an unknown player is a no-op.
func (s *Session) RemovePlayer(id PlayerID) error {
	if _, ok := s.players[id]; !ok {
		return nil
	}

	if len(s.players) <= 1 {
		return ErrLastPlayer
	}

	delete(s.players, id)

	dst := s.order[:0]
	for _, pid := range s.order {
		if pid != id {
			dst = append(dst, pid)
		}
	}
	s.order = dst

	return nil
}

// SetName renames a player. Blank names are ignored and the old name is kept.
func (s *Session) SetName(id PlayerID, name string) error {
	p, ok := s.players[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPlayer, id)
	}

	if name = strings.TrimSpace(name); name != "" {
		p.Name = name
	}

	return nil
}

func (s *Session) SetScore(id PlayerID, value int) error {
	p, ok := s.players[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPlayer, id)
	}

	p.Score = value

	return nil
}

func (s *Session) AdjustScore(id PlayerID, delta int) error {
	p, ok := s.players[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPlayer, id)
	}

	p.Score += delta

	return nil
}

// CloseRound commits every live score into the round history, zeroes the
// live scores and advances the round counter. It returns the number of the
// round that was closed.
func (s *Session) CloseRound() int {
	closed := s.round

	for _, id := range s.order {
		p := s.players[id]
		p.Rounds = append(p.Rounds, p.Score)
		p.Score = 0
	}

	s.round++

	return closed
}

// Reset zeroes every live score. With clearHistory it also drops every
// committed round and restarts the counter at round 1.
func (s *Session) Reset(clearHistory bool) {
	for _, id := range s.order {
		p := s.players[id]
		p.Score = 0
		if clearHistory {
			p.Rounds = p.Rounds[:0:0]
		}
	}

	if clearHistory {
		s.round = 1
	}
}

// Round is the number of the round in progress.
func (s *Session) Round() int {
	return s.round
}

func (s *Session) GameName() string {
	return s.gameName
}

func (s *Session) SetGameName(name string) {
	s.gameName = strings.TrimSpace(name)
}

func (s *Session) Len() int {
	return len(s.players)
}

// CanRemove reports whether RemovePlayer would succeed for a known player.
func (s *Session) CanRemove() bool {
	return len(s.players) > 1
}

func (s *Session) Player(id PlayerID) (Player, bool) {
	p, ok := s.players[id]
	if !ok {
		return Player{}, false
	}

	return clonePlayer(p), true
}

// Players returns copies of all players in insertion order.
func (s *Session) Players() []Player {
	out := make([]Player, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, clonePlayer(s.players[id]))
	}

	return out
}

func clonePlayer(p *Player) Player {
	c := *p
	c.Rounds = append(make([]int, 0, len(p.Rounds)), p.Rounds...)

	return c
}
