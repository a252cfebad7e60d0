package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mmcdole/haul/internal/domain"
)

const (
	// DefaultPollInterval is how often the queue is fetched
	DefaultPollInterval = 5 * time.Second

	// DefaultFetchTimeout bounds a single queue fetch
	DefaultFetchTimeout = 10 * time.Second
)

// repository is everything Sync needs from the server client
type repository interface {
	domain.QueueRepository
	domain.ActionRepository
}

// opener shows a finished download locally (consumer-defined interface)
type opener interface {
	Open(url string) error
}

// Observer is notified after each applied fetch result
type Observer interface {
	OnQueueUpdate(state ViewState)
}

// Options tunes the polling loop. Zero values use the defaults.
type Options struct {
	PollInterval time.Duration
	FetchTimeout time.Duration
}

// Sync keeps a View consistent with the server's queue.
// Every fetch is stamped with a sequence number when issued; the view only
// accepts results newer than the last one applied.
type Sync struct {
	repo     repository
	opener   opener
	logger   *slog.Logger
	view     *View
	interval time.Duration
	timeout  time.Duration

	seq atomic.Uint64

	obsMu     sync.RWMutex
	observers []Observer

	mu      sync.Mutex
	cancel  context.CancelFunc
	loopWG  sync.WaitGroup
	fetchWG sync.WaitGroup
}

// NewSync creates a queue synchronizer
func NewSync(repo repository, opener opener, logger *slog.Logger, opts Options) *Sync {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	return &Sync{
		repo:     repo,
		opener:   opener,
		logger:   logger,
		view:     NewView(),
		interval: opts.PollInterval,
		timeout:  opts.FetchTimeout,
	}
}

// Subscribe registers an observer for view updates
func (s *Sync) Subscribe(o Observer) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	s.observers = append(s.observers, o)
}

// View returns the current rendered state
func (s *Sync) View() ViewState {
	return s.view.State()
}

// FetchSnapshot performs one read of the queue without touching the view
func (s *Sync) FetchSnapshot(ctx context.Context) (domain.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	snapshot, err := s.repo.FetchQueue(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching queue: %w", err)
	}
	return snapshot, nil
}

// Refresh fetches, reconciles and applies one snapshot.
// On failure the rendered rows are kept and the error is recorded on the view.
// A result superseded by a newer fetch is dropped and reports no error.
func (s *Sync) Refresh(ctx context.Context) error {
	seq := s.seq.Add(1)

	snapshot, err := s.FetchSnapshot(ctx)
	if err != nil && ctx.Err() != nil {
		// Caller went away (teardown); nothing to show
		return err
	}
	result := fetchResult{seq: seq, err: err, at: time.Now()}
	if err == nil {
		result.plan = Reconcile(snapshot)
	}

	applied := s.view.applyRenderPlan(result)
	if !applied {
		// A newer fetch already landed
		s.logger.Debug("discarding stale queue fetch", "seq", seq, "error", err)
		return nil
	}
	s.notify()

	if err != nil {
		return err
	}
	s.logger.Debug("queue refreshed", "seq", seq, "rows", len(result.plan.Rows))
	return nil
}

// Dispatch runs a row action. Open is handled locally; the others call the
// server and refresh immediately on success. Failures are not retried.
func (s *Sync) Dispatch(ctx context.Context, kind domain.ActionKind, localID string) error {
	if localID == "" {
		return fmt.Errorf("%s: %w", kind, domain.ErrItemNotFound)
	}

	var err error
	switch kind {
	case domain.ActionOpen:
		url := s.repo.DownloadURL(localID)
		s.logger.Info("opening download", "localID", localID, "url", url)
		if err := s.opener.Open(url); err != nil {
			s.logger.Error("failed to open download", "localID", localID, "error", err)
			return fmt.Errorf("opening %s: %w", localID, err)
		}
		return nil
	case domain.ActionDownload:
		err = s.repo.Download(ctx, localID)
	case domain.ActionRetry:
		err = s.repo.Retry(ctx, localID)
	case domain.ActionCancel:
		err = s.repo.Cancel(ctx, localID)
	case domain.ActionDelete:
		return s.Delete(ctx, localID)
	default:
		return fmt.Errorf("unknown action %q", kind)
	}

	if err != nil {
		s.logger.Error("queue action failed", "action", kind, "localID", localID, "error", err)
		return fmt.Errorf("%s %s: %w", kind, localID, err)
	}

	s.logger.Info("queue action accepted", "action", kind, "localID", localID)
	s.refreshOutOfBand(ctx)
	return nil
}

// Delete removes the finished file of a row in the current view, then refreshes.
// Rows without a finished file are refused without a request.
func (s *Sync) Delete(ctx context.Context, localID string) error {
	plan := s.view.State().Plan
	idx := plan.Index(localID)
	if idx < 0 {
		return fmt.Errorf("delete %s: %w", localID, domain.ErrItemNotFound)
	}
	if row := plan.Rows[idx]; !row.Allows(domain.ActionDelete) {
		return fmt.Errorf("delete %s (%s): %w", localID, row.Status, domain.ErrNoFile)
	}

	if err := s.repo.Delete(ctx, localID); err != nil {
		s.logger.Error("queue action failed", "action", domain.ActionDelete, "localID", localID, "error", err)
		return fmt.Errorf("delete %s: %w", localID, err)
	}

	s.logger.Info("queue action accepted", "action", domain.ActionDelete, "localID", localID)
	s.refreshOutOfBand(ctx)
	return nil
}

// ClearFinished asks the server to purge finished items, then refreshes
func (s *Sync) ClearFinished(ctx context.Context) error {
	if err := s.repo.ClearFinished(ctx); err != nil {
		s.logger.Error("clearing finished items failed", "error", err)
		return fmt.Errorf("clearing finished items: %w", err)
	}
	s.refreshOutOfBand(ctx)
	return nil
}

// refreshOutOfBand refreshes after a user action; a failure only lands on the view
func (s *Sync) refreshOutOfBand(ctx context.Context) {
	if err := s.Refresh(ctx); err != nil {
		s.logger.Warn("refresh after action failed", "error", err)
	}
}

// Start begins polling: one fetch now, then one per interval until Stop.
// Ticks are not skipped while earlier fetches are still in flight.
func (s *Sync) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.loopWG.Add(1)
	go s.pollLoop(ctx)
}

// Stop ends polling and waits for in-flight fetches. Safe to call more than once.
func (s *Sync) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	s.loopWG.Wait()
	s.fetchWG.Wait()
}

func (s *Sync) pollLoop(ctx context.Context) {
	defer s.loopWG.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.scheduledRefresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.scheduledRefresh(ctx)
		}
	}
}

// scheduledRefresh runs one poll in the background; errors never stop the loop
func (s *Sync) scheduledRefresh(ctx context.Context) {
	s.fetchWG.Add(1)
	go func() {
		defer s.fetchWG.Done()
		if err := s.Refresh(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.logger.Warn("scheduled queue poll failed", "kind", domain.ErrorKind(err), "error", err)
		}
	}()
}

func (s *Sync) notify() {
	state := s.view.State()

	s.obsMu.RLock()
	observers := append([]Observer(nil), s.observers...)
	s.obsMu.RUnlock()

	for _, o := range observers {
		o.OnQueueUpdate(state)
	}
}
