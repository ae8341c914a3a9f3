package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/spoagent/internal/spop"
)

func TestAdapterInvokeSuccess(t *testing.T) {
	svc := func(ctx context.Context, messages []spop.Message) ([]spop.Action, error) {
		return []spop.Action{spop.SetVar(spop.ScopeSession, "x", spop.Uint32Value(7))}, nil
	}
	a := NewAdapter(svc, time.Second, 1)

	actions, err := a.Invoke(context.Background(), []spop.Message{{Name: "m"}})
	require.NoError(t, err)
	assert.Len(t, actions, 1)
}

func TestAdapterInvokeTimeout(t *testing.T) {
	svc := func(ctx context.Context, messages []spop.Message) ([]spop.Action, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	a := NewAdapter(svc, 10*time.Millisecond, 1)

	_, err := a.Invoke(context.Background(), nil)
	require.Error(t, err)

	var perr *spop.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, spop.StatusTimeout, perr.Status)
}

func TestAdapterInvokeServiceError(t *testing.T) {
	wantErr := errors.New("boom")
	svc := func(ctx context.Context, messages []spop.Message) ([]spop.Action, error) {
		return nil, wantErr
	}
	a := NewAdapter(svc, time.Second, 1)

	_, err := a.Invoke(context.Background(), nil)
	require.Error(t, err)

	var perr *spop.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, spop.StatusUnknown, perr.Status)
}

func TestAdapterBoundsConcurrency(t *testing.T) {
	started := make(chan struct{}, 2)
	release := make(chan struct{})

	svc := func(ctx context.Context, messages []spop.Message) ([]spop.Action, error) {
		started <- struct{}{}
		<-release
		return nil, nil
	}
	a := NewAdapter(svc, time.Second, 1)

	go func() { _, _ = a.Invoke(context.Background(), nil) }()

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("first invocation never started")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := a.Invoke(ctx, nil)
	require.Error(t, err, "second invocation should block on the inflight bound and time out")

	close(release)
}
