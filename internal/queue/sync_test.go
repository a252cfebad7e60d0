package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/haul/internal/domain"
)

type fakeRepo struct {
	mu        sync.Mutex
	fetches   int
	fetchFn   func(ctx context.Context, call int) (domain.Snapshot, error)
	actions   []string
	actionErr error
	clearErr  error
}

func (f *fakeRepo) FetchQueue(ctx context.Context) (domain.Snapshot, error) {
	f.mu.Lock()
	f.fetches++
	call := f.fetches
	fn := f.fetchFn
	f.mu.Unlock()
	return fn(ctx, call)
}

func (f *fakeRepo) record(action, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, action+":"+id)
	return f.actionErr
}

func (f *fakeRepo) Download(ctx context.Context, id string) error { return f.record("download", id) }
func (f *fakeRepo) Retry(ctx context.Context, id string) error    { return f.record("retry", id) }
func (f *fakeRepo) Cancel(ctx context.Context, id string) error   { return f.record("cancel", id) }
func (f *fakeRepo) Delete(ctx context.Context, id string) error   { return f.record("delete", id) }

func (f *fakeRepo) ClearFinished(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, "clear")
	return f.clearErr
}

func (f *fakeRepo) DownloadURL(localID string) string {
	return "http://server.test/download/" + localID
}

func (f *fakeRepo) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

type fakeOpener struct {
	opened []string
	err    error
}

func (o *fakeOpener) Open(url string) error {
	o.opened = append(o.opened, url)
	return o.err
}

type recordingObserver struct {
	mu     sync.Mutex
	states []ViewState
}

func (r *recordingObserver) OnQueueUpdate(state ViewState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
}

func staticFetch(snapshot domain.Snapshot) func(context.Context, int) (domain.Snapshot, error) {
	return func(context.Context, int) (domain.Snapshot, error) { return snapshot, nil }
}

func newTestSync(repo *fakeRepo, op *fakeOpener) *Sync {
	if op == nil {
		op = &fakeOpener{}
	}
	return NewSync(repo, op, nil, Options{PollInterval: 10 * time.Millisecond, FetchTimeout: time.Second})
}

func TestRefreshAppliesSnapshot(t *testing.T) {
	repo := &fakeRepo{fetchFn: staticFetch(domain.Snapshot{
		{LocalID: "a", Status: domain.StatusWaiting},
		{LocalID: "b", Status: domain.StatusDownloaded},
	})}
	obs := &recordingObserver{}
	s := newTestSync(repo, nil)
	s.Subscribe(obs)

	require.NoError(t, s.Refresh(context.Background()))

	state := s.View()
	assert.True(t, state.Loaded)
	assert.NoError(t, state.Err)
	assert.Equal(t, uint64(1), state.Seq)
	assert.Len(t, state.Plan.Rows, 2)
	require.Len(t, obs.states, 1)
	assert.Equal(t, uint64(1), obs.states[0].Seq)
}

func TestFailedRefreshKeepsRows(t *testing.T) {
	malformed := &domain.ProtocolError{Op: "fetch queue"}
	repo := &fakeRepo{fetchFn: func(_ context.Context, call int) (domain.Snapshot, error) {
		if call == 1 {
			return domain.Snapshot{{LocalID: "a", Status: domain.StatusWaiting}}, nil
		}
		return nil, malformed
	}}
	s := newTestSync(repo, nil)

	require.NoError(t, s.Refresh(context.Background()))
	err := s.Refresh(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMalformedResponse)

	state := s.View()
	require.Len(t, state.Plan.Rows, 1)
	assert.Equal(t, "a", state.Plan.Rows[0].LocalID)
	assert.ErrorIs(t, state.Err, domain.ErrMalformedResponse)
	assert.True(t, state.Loaded)
}

func TestSuccessClearsErrorIndicator(t *testing.T) {
	repo := &fakeRepo{fetchFn: func(_ context.Context, call int) (domain.Snapshot, error) {
		if call == 1 {
			return nil, &domain.TransportError{Op: "fetch queue", Err: errors.New("connection refused")}
		}
		return domain.Snapshot{}, nil
	}}
	s := newTestSync(repo, nil)

	assert.Error(t, s.Refresh(context.Background()))
	assert.False(t, s.View().Loaded)
	assert.ErrorIs(t, s.View().Err, domain.ErrServerOffline)

	require.NoError(t, s.Refresh(context.Background()))
	state := s.View()
	assert.NoError(t, state.Err)
	assert.True(t, state.Loaded)
	assert.True(t, state.Plan.Empty())
}

func TestSlowOlderFetchDoesNotOverwriteNewer(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	repo := &fakeRepo{fetchFn: func(_ context.Context, call int) (domain.Snapshot, error) {
		if call == 1 {
			close(started)
			<-release
			return domain.Snapshot{{LocalID: "old", Status: domain.StatusWaiting}}, nil
		}
		return domain.Snapshot{{LocalID: "new", Status: domain.StatusDownloaded}}, nil
	}}
	s := newTestSync(repo, nil)

	done := make(chan error, 1)
	go func() { done <- s.Refresh(context.Background()) }()
	<-started

	require.NoError(t, s.Refresh(context.Background()))
	close(release)
	require.NoError(t, <-done)

	state := s.View()
	require.Len(t, state.Plan.Rows, 1)
	assert.Equal(t, "new", state.Plan.Rows[0].LocalID)
	assert.Equal(t, uint64(2), state.Seq)
}

func TestSlowOlderFailureIsIgnored(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	repo := &fakeRepo{fetchFn: func(_ context.Context, call int) (domain.Snapshot, error) {
		if call == 1 {
			close(started)
			<-release
			return nil, &domain.TransportError{Op: "fetch queue", Err: errors.New("timeout")}
		}
		return domain.Snapshot{{LocalID: "new"}}, nil
	}}
	s := newTestSync(repo, nil)

	done := make(chan error, 1)
	go func() { done <- s.Refresh(context.Background()) }()
	<-started

	require.NoError(t, s.Refresh(context.Background()))
	close(release)
	assert.NoError(t, <-done, "a superseded failure is not reported")

	state := s.View()
	assert.NoError(t, state.Err)
	assert.Equal(t, "new", state.Plan.Rows[0].LocalID)
}

func TestDispatchRefreshesAfterServerAction(t *testing.T) {
	repo := &fakeRepo{fetchFn: staticFetch(domain.Snapshot{{LocalID: "a", Status: domain.StatusFailed}})}
	s := newTestSync(repo, nil)

	for _, kind := range []domain.ActionKind{domain.ActionCancel, domain.ActionRetry, domain.ActionDownload} {
		require.NoError(t, s.Dispatch(context.Background(), kind, "a"))
	}

	assert.Equal(t, []string{"cancel:a", "retry:a", "download:a"}, repo.actions)
	assert.Equal(t, 3, repo.fetchCount())
}

func TestDispatchFailureLeavesViewAlone(t *testing.T) {
	repo := &fakeRepo{
		fetchFn:   staticFetch(domain.Snapshot{{LocalID: "a", Status: domain.StatusWaiting}}),
		actionErr: &domain.ApplicationError{Op: "cancel", StatusCode: 500},
	}
	s := newTestSync(repo, nil)
	require.NoError(t, s.Refresh(context.Background()))

	err := s.Dispatch(context.Background(), domain.ActionCancel, "a")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRejected)
	assert.Equal(t, 1, repo.fetchCount(), "no refresh after a failed action")
	assert.Equal(t, []string{"cancel:a"}, repo.actions, "no automatic retry")
	assert.Equal(t, domain.StatusWaiting, s.View().Plan.Rows[0].Status)
}

func TestDispatchOpenIsLocal(t *testing.T) {
	repo := &fakeRepo{fetchFn: staticFetch(nil)}
	op := &fakeOpener{}
	s := newTestSync(repo, op)

	require.NoError(t, s.Dispatch(context.Background(), domain.ActionOpen, "a"))

	assert.Equal(t, []string{"http://server.test/download/a"}, op.opened)
	assert.Empty(t, repo.actions)
	assert.Equal(t, 0, repo.fetchCount())
}

func TestDispatchRejectsUnknownAction(t *testing.T) {
	s := newTestSync(&fakeRepo{fetchFn: staticFetch(nil)}, nil)

	assert.Error(t, s.Dispatch(context.Background(), "rename", "a"))
	assert.ErrorIs(t, s.Dispatch(context.Background(), domain.ActionCancel, ""), domain.ErrItemNotFound)
}

func TestDeleteFinishedFile(t *testing.T) {
	repo := &fakeRepo{fetchFn: func(_ context.Context, call int) (domain.Snapshot, error) {
		if call == 1 {
			return domain.Snapshot{{LocalID: "a", Status: domain.StatusDownloaded}}, nil
		}
		return domain.Snapshot{{LocalID: "a", Status: domain.StatusDeleted}}, nil
	}}
	s := newTestSync(repo, nil)
	require.NoError(t, s.Refresh(context.Background()))

	require.NoError(t, s.Dispatch(context.Background(), domain.ActionDelete, "a"))

	assert.Equal(t, []string{"delete:a"}, repo.actions)
	assert.Equal(t, 2, repo.fetchCount())
	assert.Equal(t, domain.StatusDeleted, s.View().Plan.Rows[0].Status)
}

func TestDeleteRefusesRowsWithoutFile(t *testing.T) {
	repo := &fakeRepo{fetchFn: staticFetch(domain.Snapshot{
		{LocalID: "w", Status: domain.StatusWaiting},
		{LocalID: "f", Status: domain.StatusFailed},
	})}
	s := newTestSync(repo, nil)
	require.NoError(t, s.Refresh(context.Background()))

	assert.ErrorIs(t, s.Delete(context.Background(), "w"), domain.ErrNoFile)
	assert.ErrorIs(t, s.Delete(context.Background(), "f"), domain.ErrNoFile)
	assert.ErrorIs(t, s.Delete(context.Background(), "missing"), domain.ErrItemNotFound)
	assert.Empty(t, repo.actions)
	assert.Equal(t, 1, repo.fetchCount())
}

func TestDeleteFailureIsNotRetried(t *testing.T) {
	repo := &fakeRepo{
		fetchFn:   staticFetch(domain.Snapshot{{LocalID: "a", Status: domain.StatusAlreadyExists}}),
		actionErr: &domain.ApplicationError{Op: "delete", StatusCode: 500},
	}
	s := newTestSync(repo, nil)
	require.NoError(t, s.Refresh(context.Background()))

	err := s.Delete(context.Background(), "a")

	assert.ErrorIs(t, err, domain.ErrRejected)
	assert.Equal(t, []string{"delete:a"}, repo.actions)
	assert.Equal(t, 1, repo.fetchCount())
}

func TestClearFinishedRefreshes(t *testing.T) {
	repo := &fakeRepo{fetchFn: staticFetch(domain.Snapshot{})}
	s := newTestSync(repo, nil)

	require.NoError(t, s.ClearFinished(context.Background()))

	assert.Equal(t, []string{"clear"}, repo.actions)
	assert.Equal(t, 1, repo.fetchCount())
}

func TestPollingSurvivesFailuresUntilStopped(t *testing.T) {
	repo := &fakeRepo{fetchFn: func(_ context.Context, call int) (domain.Snapshot, error) {
		if call%2 == 1 {
			return nil, &domain.TransportError{Op: "fetch queue", Err: errors.New("refused")}
		}
		return domain.Snapshot{{LocalID: "a"}}, nil
	}}
	s := newTestSync(repo, nil)

	s.Start(context.Background())
	s.Start(context.Background())

	assert.Eventually(t, func() bool { return repo.fetchCount() >= 4 }, 2*time.Second, 5*time.Millisecond)

	s.Stop()
	s.Stop()
	stopped := repo.fetchCount()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, stopped, repo.fetchCount())
	assert.True(t, s.View().Loaded)
}
