package appointment

import (
	"context"
	"log/slog"
	"time"

	"github.com/gracefellowship/church-admin-backend/internal/notify"
)

type ReminderConfig struct {
	Lookahead    time.Duration
	Statuses     []Status
	SendTimeout  time.Duration
	StoreTimeout time.Duration
	Interval     time.Duration
}

// Failure is one booking a pass could not remind.
type Failure struct {
	BookingID string `json:"booking_id"`
	Reason    string `json:"reason"`
}

// PassResult summarizes one reminder pass. Bookings claimed by a concurrent
// pass are counted as skipped.
type PassResult struct {
	Sent    []string  `json:"sent"`
	Failed  []Failure `json:"failed"`
	Skipped int       `json:"skipped"`
}

// Reminder sends one reminder per eligible booking. A booking whose send fails
// stays unreminded and is retried by the next pass.
type Reminder struct {
	repo     Repository
	messages *Messages
	sender   notify.Sender
	logger   *slog.Logger
	cfg      ReminderConfig
}

func NewReminder(repo Repository, messages *Messages, sender notify.Sender, logger *slog.Logger, cfg ReminderConfig) *Reminder {
	if cfg.Lookahead <= 0 {
		cfg.Lookahead = 24 * time.Hour
	}
	if len(cfg.Statuses) == 0 {
		cfg.Statuses = []Status{StatusPending}
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 5 * time.Second
	}
	return &Reminder{
		repo:     repo,
		messages: messages,
		sender:   sender,
		logger:   logger,
		cfg:      cfg,
	}
}

// RunPass reminds every eligible booking starting in [now, now+lookahead).
// A non-positive lookahead uses the configured one. Failures are isolated per
// booking; only a failed candidate lookup aborts the pass.
func (r *Reminder) RunPass(ctx context.Context, now time.Time, lookahead time.Duration) (PassResult, error) {
	result := PassResult{Sent: []string{}, Failed: []Failure{}}
	if lookahead <= 0 {
		lookahead = r.cfg.Lookahead
	}

	from := now
	to := now.Add(lookahead)
	unreminded := false

	queryCtx, cancel := context.WithTimeout(ctx, r.cfg.StoreTimeout)
	candidates, _, err := r.repo.Query(queryCtx, Filter{
		StatusIn:     r.cfg.Statuses,
		From:         &from,
		To:           &to,
		ReminderSent: &unreminded,
	})
	cancel()
	if err != nil {
		return result, err
	}

	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		claimed, err := r.claim(ctx, c.ID, now)
		switch {
		case err != nil:
			r.logger.WarnContext(ctx, "reminder failed", "booking_id", c.ID, "error", err)
			result.Failed = append(result.Failed, Failure{BookingID: c.ID, Reason: err.Error()})
		case !claimed:
			result.Skipped++
		default:
			result.Sent = append(result.Sent, c.ID)
		}
	}

	r.logger.InfoContext(ctx, "reminder pass finished",
		"candidates", len(candidates),
		"sent", len(result.Sent),
		"failed", len(result.Failed),
		"skipped", result.Skipped,
	)
	return result, nil
}

// claim holds the booking row for at most StoreTimeout plus SendTimeout.
func (r *Reminder) claim(ctx context.Context, id string, now time.Time) (bool, error) {
	claimCtx, cancel := context.WithTimeout(ctx, r.cfg.StoreTimeout+r.cfg.SendTimeout)
	defer cancel()

	return r.repo.ClaimReminder(claimCtx, id, r.cfg.Statuses, func(b *Booking) error {
		sendCtx, cancel := context.WithTimeout(claimCtx, r.cfg.SendTimeout)
		defer cancel()
		if err := r.sender.Send(sendCtx, r.messages.Reminder(b)); err != nil {
			return err
		}
		MarkReminderSent(b, now)
		return nil
	})
}

// Run triggers a pass every Interval until ctx is done. A zero Interval disables it.
func (r *Reminder) Run(ctx context.Context) {
	if r.cfg.Interval <= 0 {
		return
	}
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			if _, err := r.RunPass(ctx, t.UTC(), 0); err != nil {
				r.logger.ErrorContext(ctx, "reminder pass failed", "error", err)
			}
		}
	}
}
