// Package message provides Envelope, a ready-made message type for stages
// that need identity and ordering on top of their payload.
package message

import (
	"slices"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Envelope carries one unit of work for one simulation tick. Subject is the
// index of the entity the work is about.
type Envelope[T any] struct {
	ID        uuid.UUID
	Seq       uint64
	Tick      uint64
	Subject   int
	CreatedAt time.Time
	Payload   T
}

func New[T any](tick uint64, subject int, seq uint64, payload T) Envelope[T] {
	return Envelope[T]{
		ID:        uuid.New(),
		Seq:       seq,
		Tick:      tick,
		Subject:   subject,
		CreatedAt: time.Now().UTC(),
		Payload:   payload,
	}
}

// Map keeps the identity of env and swaps its payload, so a stage's output
// can still be matched and ordered against its input.
func Map[In, Out any](env Envelope[In], payload Out) Envelope[Out] {
	return Envelope[Out]{
		ID:        env.ID,
		Seq:       env.Seq,
		Tick:      env.Tick,
		Subject:   env.Subject,
		CreatedAt: env.CreatedAt,
		Payload:   payload,
	}
}

// Sequencer hands out increasing sequence numbers starting at 1.
type Sequencer struct {
	n atomic.Uint64
}

func (s *Sequencer) Next() uint64 {
	return s.n.Add(1)
}

// SortBySeq restores the order envelopes were issued in.
func SortBySeq[T any](envs []Envelope[T]) {
	slices.SortFunc(envs, func(a, b Envelope[T]) int {
		switch {
		case a.Seq < b.Seq:
			return -1
		case a.Seq > b.Seq:
			return 1
		default:
			return 0
		}
	})
}
