package stage

import (
	"errors"
	"fmt"
	"time"

	"github.com/ib-77/stagepool/pkg/pipe"
	"github.com/ib-77/stagepool/pkg/rop"
)

// run is the loop of worker i. Stop is checked at the top of every
// iteration so a message already taken is always processed and published.
func (s *Stage[In, Out]) run(worker int, c Callable[In, Out]) {
	defer s.wg.Done()

	for {
		if s.stop.Err() != nil {
			return
		}

		in, err := s.in.Pop(s.stop)
		if err != nil {
			if errors.Is(err, pipe.ErrClosed) {
				s.logger.Debug("input drained", "worker", worker)
			}
			return
		}
		s.stats.consumed.Add(1)

		s.observer.Begin(s.name, worker)
		start := time.Now()
		outs, outcome, perr := s.invoke(c, in)
		published := s.publish(worker, outs)
		s.record(worker, outcome, perr)

		s.observer.Observe(Event{
			Stage:     s.name,
			Worker:    worker,
			Outcome:   outcome,
			Published: published,
			Elapsed:   time.Since(start),
			Err:       perr,
		})
	}
}

// invoke calls c outside any lock. A panic is turned into a fault so the
// worker keeps running.
func (s *Stage[In, Out]) invoke(c Callable[In, Out], in In) (outs []Out, outcome Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			outs = nil
			outcome = OutcomePanicked
			err = fmt.Errorf("%w: %v", ErrProcessingFault, r)
		}
	}()

	if fo, ok := c.(FanOut[In, Out]); ok {
		res := fo.ProcessMany(s.work, in)
		if res.HasResult() {
			if len(res.Result()) == 0 {
				return nil, OutcomeEmpty, nil
			}
			return res.Result(), OutcomePublished, nil
		}
		outcome, err = classify(res)
		return nil, outcome, err
	}

	res := c.Process(s.work, in)
	if res.HasResult() {
		return []Out{res.Result()}, OutcomePublished, nil
	}
	outcome, err = classify(res)
	return nil, outcome, err
}

// classify maps a Result without a value to its outcome. The zero Result
// counts as no output.
func classify[T any](res rop.Result[T]) (Outcome, error) {
	switch {
	case res.IsCancel():
		return OutcomeCancelled, res.Err()
	case res.IsFailure():
		return OutcomeFailed, res.Err()
	case res.IsNone(), res.IsEmpty():
		return OutcomeEmpty, nil
	default:
		return OutcomeFailed, fmt.Errorf("%w: unpublishable result", ErrProcessingFault)
	}
}

// publish appends outs to the output pipe. If stop interrupts a blocked
// push the message is forced in past the capacity rather than lost.
func (s *Stage[In, Out]) publish(worker int, outs []Out) int {
	n := 0
	for _, o := range outs {
		err := s.out.Push(s.stop, o)
		if err != nil && rop.IsCancellationError(err) {
			err = s.out.Force(o)
		}
		if err != nil {
			s.stats.rejected.Add(1)
			s.logger.Warn("output refused", "worker", worker, "error", err)
			continue
		}
		n++
	}
	s.stats.published.Add(uint64(n))
	return n
}

func (s *Stage[In, Out]) record(worker int, outcome Outcome, err error) {
	switch outcome {
	case OutcomeEmpty:
		s.stats.empty.Add(1)
	case OutcomeFailed:
		s.stats.faults.Add(1)
		s.logger.Debug("callable failed", "worker", worker, "error", err)
	case OutcomeCancelled:
		s.stats.cancelled.Add(1)
	case OutcomePanicked:
		s.stats.faults.Add(1)
		s.stats.panics.Add(1)
		s.logger.Warn("callable panicked", "worker", worker, "error", err)
	}
}
