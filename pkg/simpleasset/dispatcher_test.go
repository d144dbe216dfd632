package simpleasset

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherRunsJobs(t *testing.T) {
	var ran int32
	d := newDispatcher(2, 4, func(ctx context.Context, job DerivativeJob) {
		atomic.AddInt32(&ran, 1)
	}, slog.Default())

	for i := 0; i < 4; i++ {
		d.Enqueue(context.Background(), DerivativeJob{AssetID: uuid.New()})
	}
	d.Close()

	assert.Equal(t, int32(4), atomic.LoadInt32(&ran))
}

func TestDispatcherCallerRunsWhenFull(t *testing.T) {
	block := make(chan struct{})
	slow := uuid.New()
	overflow := uuid.New()

	var started int32
	var overflowRan int32
	run := func(ctx context.Context, job DerivativeJob) {
		if job.AssetID == slow {
			atomic.AddInt32(&started, 1)
			<-block
			return
		}
		atomic.AddInt32(&overflowRan, 1)
	}

	d := newDispatcher(1, 1, run, slog.Default())
	defer func() {
		close(block)
		d.Close()
	}()

	// Occupy the single worker
	d.Enqueue(context.Background(), DerivativeJob{AssetID: slow})
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&started) == 1
	}, time.Second, time.Millisecond)

	// Fill the single queue slot
	d.Enqueue(context.Background(), DerivativeJob{AssetID: slow})

	// Queue is full: this call must execute the job on our goroutine
	// before returning.
	d.Enqueue(context.Background(), DerivativeJob{AssetID: overflow})
	assert.Equal(t, int32(1), atomic.LoadInt32(&overflowRan),
		"overflow job runs inline on the enqueueing goroutine")
}

func TestDispatcherDefaultSizing(t *testing.T) {
	assert.GreaterOrEqual(t, defaultWorkerCount(), 2)
}

func TestAfterCommitWithoutRegistryRunsImmediately(t *testing.T) {
	ran := false
	AfterCommit(context.Background(), func(ctx context.Context) { ran = true })
	assert.True(t, ran)
}

func TestAfterCommitDefersUntilRunCommitHooks(t *testing.T) {
	ctx := WithCommitHooks(context.Background())

	var order []int
	AfterCommit(ctx, func(ctx context.Context) { order = append(order, 1) })
	AfterCommit(ctx, func(ctx context.Context) { order = append(order, 2) })
	require.Empty(t, order, "hooks must not run before commit")

	RunCommitHooks(ctx)
	assert.Equal(t, []int{1, 2}, order, "hooks run in registration order")

	// A second run is a no-op
	RunCommitHooks(ctx)
	assert.Equal(t, []int{1, 2}, order)
}

func TestRunCommitHooksWithoutRegistry(t *testing.T) {
	// Must not panic
	RunCommitHooks(context.Background())
}
