package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/agenda/internal/index"
	"github.com/roach88/agenda/internal/model"
)

// persistFunc writes state captured when a command was applied.
type persistFunc func(ctx context.Context) error

// applyFunc mutates coordinator state on the loop goroutine. It returns the
// write to perform, or nil when nothing needs persisting.
type applyFunc func(now time.Time) (persistFunc, error)

// command is a unit of work submitted by a caller.
type command struct {
	op    string
	apply applyFunc
	done  chan error // buffered, receives exactly one value
}

// submit queues a command and waits for it to settle: rejected, applied with
// nothing to write, or applied and written (successfully or not).
func (c *Coordinator) submit(ctx context.Context, op string, apply applyFunc) error {
	cmd := &command{op: op, apply: apply, done: make(chan error, 1)}
	if !c.queue.Enqueue(event{kind: eventCommand, cmd: cmd}) {
		return ErrClosed
	}
	select {
	case err := <-cmd.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runCommand applies a command on the loop and starts its write.
// Called only from the loop goroutine.
func (c *Coordinator) runCommand(cmd *command) {
	persist, err := cmd.apply(c.clock.Now())
	if err != nil {
		c.logger.Debug("command rejected", "op", cmd.op, "error", err)
		cmd.done <- err
		return
	}
	if persist == nil {
		cmd.done <- nil
		return
	}

	c.writes.Add(1)
	go func() {
		defer c.writes.Done()
		err := persist(c.writeCtx)
		if err != nil {
			werr := &Error{Code: CodeWriteFailed, Op: cmd.op, Err: err}
			c.notifier.Notify(Notification{
				Level:   slog.LevelError,
				Code:    CodeWriteFailed,
				Message: fmt.Sprintf("%s could not be saved; local changes are kept until the next sync", cmd.op),
				Err:     werr,
			})
			cmd.done <- werr
			return
		}
		c.logger.Debug("command persisted", "op", cmd.op)
		cmd.done <- nil
	}()
}

// persistDay captures the full payload for dayKey from ix now, so a later
// mutation cannot change what this write sends.
func (c *Coordinator) persistDay(ix *index.Index, dayKey string, now time.Time) persistFunc {
	doc := index.DayPayload(ix, dayKey, now)
	return func(ctx context.Context) error {
		data, err := model.EncodeDay(doc)
		if err != nil {
			return err
		}
		if err := c.store.Set(ctx, c.paths.Agenda, dayKey, data); err != nil {
			return fmt.Errorf("write day %s: %w", dayKey, err)
		}
		c.logger.Debug("day document written", "day_key", dayKey, "items", doc.Len())
		return nil
	}
}

func (c *Coordinator) persistSpecials(dates []model.SpecialDate) persistFunc {
	snapshot := make([]model.SpecialDate, len(dates))
	copy(snapshot, dates)
	now := c.clock.Now()
	return func(ctx context.Context) error {
		data, err := model.EncodeSpecialDates(snapshot, now)
		if err != nil {
			return err
		}
		if err := c.store.Set(ctx, c.paths.Meta, SpecialDatesKey, data); err != nil {
			return fmt.Errorf("write special dates: %w", err)
		}
		return nil
	}
}

func (c *Coordinator) persistLedger(l model.MonthLedger, now time.Time) persistFunc {
	snapshot := l.Clone()
	snapshot.UpdatedAt = now
	return func(ctx context.Context) error {
		data, err := model.EncodeLedger(snapshot)
		if err != nil {
			return err
		}
		if err := c.store.Set(ctx, c.paths.Finances, snapshot.Month, data); err != nil {
			return fmt.Errorf("write month %s: %w", snapshot.Month, err)
		}
		return nil
	}
}
