package gate

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAdminBypassesChecker(t *testing.T) {
	var calls atomic.Int32
	g := New(CheckerFunc(func(context.Context, int64) (bool, error) {
		calls.Add(1)
		return false, nil
	}), 1, time.Second)

	assert.True(t, g.Allow(context.Background(), 1))
	assert.Zero(t, calls.Load())
}

func TestMembershipDecides(t *testing.T) {
	members := map[int64]bool{10: true}
	g := New(CheckerFunc(func(_ context.Context, id int64) (bool, error) {
		return members[id], nil
	}), 1, time.Second)

	assert.True(t, g.Allow(context.Background(), 10))
	assert.False(t, g.Allow(context.Background(), 11))
}

func TestCheckerErrorFailsClosed(t *testing.T) {
	g := New(CheckerFunc(func(context.Context, int64) (bool, error) {
		return true, errors.New("api down")
	}), 1, time.Second)

	assert.False(t, g.Allow(context.Background(), 10))
}

func TestCheckerTimeoutFailsClosed(t *testing.T) {
	g := New(CheckerFunc(func(ctx context.Context, _ int64) (bool, error) {
		<-ctx.Done()
		return false, ctx.Err()
	}), 1, 10*time.Millisecond)

	assert.False(t, g.Allow(context.Background(), 10))
}

func TestNoCheckerAllowsEveryone(t *testing.T) {
	g := New(nil, 1, 0)
	assert.False(t, g.Enabled())
	assert.True(t, g.Allow(context.Background(), 99))
}
