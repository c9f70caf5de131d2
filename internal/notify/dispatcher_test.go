package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeEnqueuer struct {
	enqueued []string
	failOn   map[string]bool
}

func (f *fakeEnqueuer) EnqueueNotifyDispatch(_ context.Context, outboxID string) error {
	if f.failOn[outboxID] {
		return errors.New("queue unavailable")
	}
	f.enqueued = append(f.enqueued, outboxID)
	return nil
}

func TestDispatchEnqueuesAll(t *testing.T) {
	enq := &fakeEnqueuer{}
	d := NewDispatcher(enq, slog.New(slog.NewTextHandler(io.Discard, nil)))

	d.Dispatch(context.Background(), []string{"a", "b", "c"})
	require.Equal(t, []string{"a", "b", "c"}, enq.enqueued)
}

func TestDispatchSwallowsFailures(t *testing.T) {
	enq := &fakeEnqueuer{failOn: map[string]bool{"b": true}}
	d := NewDispatcher(enq, slog.New(slog.NewTextHandler(io.Discard, nil)))

	// Must not panic or abort: the billing transaction already
	// committed, so remaining ids still get their chance.
	d.Dispatch(context.Background(), []string{"a", "b", "c"})
	require.Equal(t, []string{"a", "c"}, enq.enqueued)
}

func TestDispatchNilSafe(t *testing.T) {
	var d *Dispatcher
	d.Dispatch(context.Background(), []string{"a"})

	d = NewDispatcher(nil, nil)
	d.Dispatch(context.Background(), []string{"a"})
}

func TestMessageConstructors(t *testing.T) {
	role := ForRole("billing", 3, "Cut ready", "body", "/orders/1/cuts")
	require.Equal(t, AudienceRole, role.Audience)
	require.Equal(t, StatusPending, role.Status)
	require.NotEmpty(t, role.ID)

	user := ForUser(9, "Cut created", "body", "/orders/1/cuts")
	require.Equal(t, AudienceUser, user.Audience)
	require.Equal(t, int64(9), user.UserID)
	require.NotEqual(t, role.ID, user.ID)
}
