// Package application contains the use-case services that orchestrate the
// domain ports: credential lifecycle, the poll-filter-forward loop, and the
// in-memory state served over HTTP.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"mailwatch/internal/domain/model"
	"mailwatch/internal/domain/port/driven"
)

// maxAuthAttempts bounds how many passes one tick may run: the initial pass
// plus a single retry after a credential refresh.
const maxAuthAttempts = 2

// CredentialRefresher is the slice of the credential manager the poll loop
// depends on.
type CredentialRefresher interface {
	Refresh(ctx context.Context) (model.Credential, error)
}

// PollService orchestrates the poll-filter-forward cycle: list unread mail,
// fetch and decode each item, forward subjects containing the marker to the
// webhook, and mark every handled item read.
type PollService struct {
	mail      *MailProvider
	refresher CredentialRefresher
	forwarder driven.Forwarder
	status    *StatusService

	interval time.Duration
	maxItems int
	marker   string

	// processed holds message IDs already handled by this process, so slow
	// label propagation at the provider cannot cause duplicate forwards.
	// Only the poll goroutine touches it.
	processed map[string]struct{}
}

// NewPollService creates a PollService. interval is the tick period, maxItems
// caps how many unread items one tick may list, and marker is the
// case-sensitive substring a subject must contain to be forwarded.
func NewPollService(
	mail *MailProvider,
	refresher CredentialRefresher,
	forwarder driven.Forwarder,
	status *StatusService,
	interval time.Duration,
	maxItems int,
	marker string,
) *PollService {
	return &PollService{
		mail:      mail,
		refresher: refresher,
		forwarder: forwarder,
		status:    status,
		interval:  interval,
		maxItems:  maxItems,
		marker:    marker,
		processed: make(map[string]struct{}),
	}
}

// Start begins the polling loop. It runs an immediate tick, then ticks on the
// configured interval. Start blocks until the context is canceled.
func (s *PollService) Start(ctx context.Context) {
	slog.Info("poll service started",
		"interval", s.interval,
		"max_items", s.maxItems,
		"marker", s.marker)

	s.Tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("poll service stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one poll-filter-forward cycle. When the provider rejects the
// credentials mid-cycle, the credential is refreshed and the whole cycle
// retried exactly once; a second rejection abandons the tick. Tick never
// returns an error: every failure degrades to a log entry and the next
// scheduled tick.
func (s *PollService) Tick(ctx context.Context) {
	// forwarded tracks deliveries within this tick so the refresh retry
	// cannot deliver the same item twice.
	forwarded := make(map[string]struct{})

	var tickErr error
	for attempt := 1; attempt <= maxAuthAttempts; attempt++ {
		err := s.poll(ctx, forwarded)
		if err == nil {
			tickErr = nil
			break
		}
		if errors.Is(err, context.Canceled) {
			return
		}
		tickErr = err

		if !errors.Is(err, driven.ErrUnauthorized) {
			slog.Error("poll cycle failed", "error", err)
			break
		}
		if attempt == maxAuthAttempts {
			slog.Error("provider still unauthorized after refresh, abandoning tick", "error", err)
			break
		}

		slog.Warn("provider rejected credentials, refreshing")
		if _, rerr := s.refresher.Refresh(ctx); rerr != nil {
			slog.Error("credential refresh failed", "error", rerr)
			tickErr = rerr
			break
		}
	}

	s.status.RecordTick(time.Now(), tickErr)
}

// poll runs a single pass over the unread items. Errors wrapping
// driven.ErrUnauthorized abort the pass so Tick can refresh and retry;
// every other per-item failure is absorbed here.
func (s *PollService) poll(ctx context.Context, forwarded map[string]struct{}) error {
	client := s.mail.Get()
	if client == nil {
		slog.Debug("no mail client yet, authorization pending")
		return nil
	}

	start := time.Now()

	ids, err := client.ListUnread(ctx, s.maxItems)
	if err != nil {
		return fmt.Errorf("list unread: %w", err)
	}

	s.status.AddUnreadSeen(len(ids))

	if len(ids) == 0 {
		slog.Info("no unread messages")
		return nil
	}

	var delivered, marked, alreadyDone int
	for _, id := range ids {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if _, done := s.processed[id]; done {
			alreadyDone++
			continue
		}

		msg, err := client.FetchMessage(ctx, id)
		if err != nil {
			if errors.Is(err, driven.ErrUnauthorized) {
				return err
			}
			slog.Warn("fetch failed, skipping item", "id", id, "error", err)
			continue
		}

		if _, sent := forwarded[id]; !sent && msg.MatchesMarker(s.marker) {
			// Delivery is best-effort. A failed forward is logged and the
			// item still marked read below.
			forwarded[id] = struct{}{}
			if err := s.forwarder.Forward(ctx, msg); err != nil {
				slog.Error("forward failed", "id", id, "subject", msg.Subject, "error", err)
			} else {
				delivered++
				s.status.RecordForward()
				slog.Info("message forwarded", "id", id, "subject", msg.Subject)
			}
		} else if !sent {
			slog.Info("marker not found, skipping forward", "id", id, "subject", msg.Subject)
		}

		if err := client.MarkRead(ctx, id); err != nil {
			if errors.Is(err, driven.ErrUnauthorized) {
				return err
			}
			slog.Warn("mark read failed", "id", id, "error", err)
			continue
		}
		marked++
		s.status.RecordMarkRead()
		s.processed[id] = struct{}{}
	}

	slog.Info("poll cycle complete",
		"unread", len(ids),
		"forwarded", delivered,
		"marked_read", marked,
		"already_processed", alreadyDone,
		"duration", time.Since(start).Round(time.Millisecond))

	return nil
}
