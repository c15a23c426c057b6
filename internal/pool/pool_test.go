package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestWorkers(t *testing.T) {
	t.Run("override wins", func(t *testing.T) {
		assert.Equal(t, 3, Workers(3, false))
		assert.Equal(t, 16, Workers(16, true))
	})

	t.Run("CI caps host parallelism", func(t *testing.T) {
		n := Workers(0, true)
		assert.GreaterOrEqual(t, n, 1)
		assert.LessOrEqual(t, n, MaxCIWorkers)
	})

	t.Run("at least one worker", func(t *testing.T) {
		assert.GreaterOrEqual(t, Workers(0, false), 1)
	})
}

func TestRun_EveryItemExactlyOnce(t *testing.T) {
	defer goleak.VerifyNone(t)

	for _, workers := range []int{1, 2, 8, 32} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			const count = 100
			var executions [count]atomic.Int32

			err := Run(context.Background(), workers, count, nil,
				func(ctx context.Context, idx int) error {
					executions[idx].Add(1)
					return nil
				})
			require.NoError(t, err)

			for i := range executions {
				assert.Equal(t, int32(1), executions[i].Load(), "item %d", i)
			}
		})
	}
}

func TestRun_SetupCompletesBeforeDispatch(t *testing.T) {
	defer goleak.VerifyNone(t)

	for _, workers := range []int{1, 4, 16} {
		var setupDone atomic.Bool
		setup := func(ctx context.Context) error {
			// Give racing workers a chance to misbehave if dispatch were
			// not gated on setup completion.
			time.Sleep(20 * time.Millisecond)
			setupDone.Store(true)
			return nil
		}

		err := Run(context.Background(), workers, 50, setup,
			func(ctx context.Context, idx int) error {
				if !setupDone.Load() {
					return errors.New("work dispatched before setup completed")
				}
				return nil
			})
		require.NoError(t, err, "workers=%d", workers)
	}
}

func TestRun_SetupFailureAbortsBeforeDispatch(t *testing.T) {
	defer goleak.VerifyNone(t)

	var dispatched atomic.Int32
	err := Run(context.Background(), 4, 10,
		func(ctx context.Context) error { return errors.New("restore failed") },
		func(ctx context.Context, idx int) error {
			dispatched.Add(1)
			return nil
		})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "setup phase")
	assert.Zero(t, dispatched.Load())
}

func TestRun_HardFailurePropagates(t *testing.T) {
	defer goleak.VerifyNone(t)

	boom := errors.New("verification failed: typegen --src-lang json -o main.go s.json")
	var started sync.Map

	err := Run(context.Background(), 4, 200, nil,
		func(ctx context.Context, idx int) error {
			if _, loaded := started.LoadOrStore(idx, true); loaded {
				return errors.New("item dispatched twice")
			}
			if idx == 17 {
				return boom
			}
			return nil
		})

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestRun_StopsClaimingAfterFailure(t *testing.T) {
	defer goleak.VerifyNone(t)

	// One worker fails immediately; remaining workers must drain without
	// hanging and Run must return the failure after in-flight items finish.
	var ran atomic.Int32
	err := Run(context.Background(), 2, 1000, nil,
		func(ctx context.Context, idx int) error {
			if idx == 0 {
				return errors.New("fatal")
			}
			ran.Add(1)
			time.Sleep(time.Millisecond)
			return nil
		})

	require.Error(t, err)
	// Fail-fast: nowhere near the full queue should have run.
	assert.Less(t, ran.Load(), int32(1000))
}

func TestRun_InvalidWorkerCount(t *testing.T) {
	err := Run(context.Background(), 0, 1, nil, func(ctx context.Context, idx int) error { return nil })
	assert.Error(t, err)
}

func TestRun_EmptyQueue(t *testing.T) {
	defer goleak.VerifyNone(t)

	err := Run(context.Background(), 8, 0, nil, func(ctx context.Context, idx int) error {
		return errors.New("must not be called")
	})
	assert.NoError(t, err)
}
