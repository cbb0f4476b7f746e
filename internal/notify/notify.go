// Package notify implements the notification fan-out engine: one logical
// alert broadcast independently to every registrant of an event.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tickalert/tickalert/internal/gateway"
	"github.com/tickalert/tickalert/internal/lib/logger/sl"
	"github.com/tickalert/tickalert/internal/metrics"
	"github.com/tickalert/tickalert/internal/model"
)

// maxConcurrentSends bounds in-flight deliveries so a large registrant set
// cannot overwhelm the outbound gateway.
const maxConcurrentSends = 8

// Sender delivers a single outbound message.
type Sender interface {
	Send(ctx context.Context, msg model.Outgoing) error
}

// BlockChecker answers whether a recipient is currently blocked.
type BlockChecker interface {
	IsBlocked(ctx context.Context, telegramID int64) (bool, error)
}

// Result is the delivery outcome for one recipient. Err is nil on success.
type Result struct {
	RecipientID int64
	Err         error
}

// Notifier broadcasts alerts to registrant sets.
type Notifier struct {
	log    *slog.Logger
	sender Sender
	blocks BlockChecker
}

// New constructs a Notifier.
func New(log *slog.Logger, sender Sender, blocks BlockChecker) *Notifier {
	return &Notifier{log: log, sender: sender, blocks: blocks}
}

// Broadcast sends text to every id in recipients except exclude, skipping
// recipients that are blocked at send time. Each recipient gets at most one
// message per call even if they appear twice in the input.
//
// Per-recipient failures are recorded and never abort the batch; a gateway
// auth failure cancels the remaining sends since they would all fail the
// same way. The returned results cover every attempted recipient so callers
// can assert the exact success/failure split.
func (n *Notifier) Broadcast(ctx context.Context, recipients []int64, exclude int64, text string) []Result {
	const op = "notify.Notifier.Broadcast"
	log := n.log.With(slog.String("op", op))

	targets := dedupe(recipients, exclude)
	if len(targets) == 0 {
		return nil
	}

	var (
		mu      sync.Mutex
		results []Result
	)
	record := func(res Result) {
		mu.Lock()
		defer mu.Unlock()
		results = append(results, res)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentSends)
	for _, id := range targets {
		id := id
		g.Go(func() error {
			// A batch-fatal failure elsewhere cancels the group; recipients
			// not yet attempted are skipped entirely.
			if gctx.Err() != nil {
				return nil
			}

			// Block state may have changed since the flow started, so it is
			// re-read here rather than cached from an earlier check.
			blocked, err := n.blocks.IsBlocked(gctx, id)
			if err != nil {
				log.Error("block check failed", slog.Int64("recipient", id), sl.Err(err))
				record(Result{RecipientID: id, Err: err})
				metrics.NotificationsFailed.Inc()
				return nil
			}
			if blocked {
				return nil
			}

			err = n.sender.Send(gctx, model.Outgoing{RecipientID: id, Text: text})
			if err == nil {
				record(Result{RecipientID: id})
				metrics.NotificationsDelivered.Inc()
				return nil
			}

			record(Result{RecipientID: id, Err: err})
			metrics.NotificationsFailed.Inc()
			if errors.Is(err, gateway.ErrRecipientUnreachable) {
				log.Warn("recipient unreachable", slog.Int64("recipient", id), sl.Err(err))
				return nil
			}
			// Auth/config failure or gateway outage: remaining sends would
			// fail identically, stop the batch.
			log.Error("aborting fan-out batch", slog.Int64("recipient", id), sl.Err(err))
			return err
		})
	}
	_ = g.Wait()

	log.Info("fan-out complete",
		slog.Int("recipients", len(targets)),
		slog.Int("delivered", SuccessCount(results)),
	)
	return results
}

// SuccessCount returns the number of successful deliveries in results.
func SuccessCount(results []Result) int {
	count := 0
	for _, r := range results {
		if r.Err == nil {
			count++
		}
	}
	return count
}

// dedupe drops the excluded id and repeated ids, preserving first-seen order.
func dedupe(recipients []int64, exclude int64) []int64 {
	seen := make(map[int64]struct{}, len(recipients))
	var out []int64
	for _, id := range recipients {
		if id == exclude {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
