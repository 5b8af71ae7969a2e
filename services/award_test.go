package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"vibedojo-ledger/models"
)

func TestAwardNonDedupAlwaysApplies(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := env.awards.Award(ctx, "u1", models.ActionCommentCreated, 5, "c-1")
		require.NoError(t, err)
		require.True(t, res.Applied)
		require.EqualValues(t, 5*(i+1), res.NewTotalXP)
	}
	require.EqualValues(t, 3, env.logCount(t, "u1", models.ActionCommentCreated, "c-1"))
	require.EqualValues(t, 15, env.totalXP(t, "u1"))
}

func TestAwardDedupAppliesOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.awards.Award(ctx, "u1", models.ActionQuizPerfect, 20, "01")
	require.NoError(t, err)
	require.True(t, first.Applied)
	require.EqualValues(t, 20, first.NewTotalXP)

	second, err := env.awards.Award(ctx, "u1", models.ActionQuizPerfect, 20, "01")
	require.NoError(t, err)
	require.False(t, second.Applied)
	require.EqualValues(t, 20, second.NewTotalXP)

	// another chapter is another key
	third, err := env.awards.Award(ctx, "u1", models.ActionQuizPerfect, 20, "02")
	require.NoError(t, err)
	require.True(t, third.Applied)

	require.EqualValues(t, 1, env.logCount(t, "u1", models.ActionQuizPerfect, "01"))
	require.EqualValues(t, 40, env.totalXP(t, "u1"))
}

func TestAwardDedupIsPerUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a, err := env.awards.Award(ctx, "u1", models.ActionQuizPerfect, 20, "01")
	require.NoError(t, err)
	b, err := env.awards.Award(ctx, "u2", models.ActionQuizPerfect, 20, "01")
	require.NoError(t, err)
	require.True(t, a.Applied)
	require.True(t, b.Applied)
}

func TestAwardDedupConcurrent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	const workers = 12
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		applied int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := env.awards.Award(ctx, "u1", models.ActionQuizPerfect, 20, "07")
			if err != nil {
				t.Errorf("award: %v", err)
				return
			}
			if res.Applied {
				mu.Lock()
				applied++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, applied)
	require.EqualValues(t, 1, env.logCount(t, "u1", models.ActionQuizPerfect, "07"))
	require.EqualValues(t, 20, env.totalXP(t, "u1"))
}

func TestAwardConcurrentNonDedupSums(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := env.awards.Award(ctx, "u1", models.ActionLikeReceived, 2, "p-1"); err != nil {
				t.Errorf("award: %v", err)
			}
		}()
	}
	wg.Wait()
	require.EqualValues(t, 20, env.totalXP(t, "u1"))
}

func TestAwardRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.awards.Award(ctx, "u1", models.XPAction("teleport"), 5, "")
	require.True(t, errors.Is(err, ErrInvalidAction))

	_, err = env.awards.Award(ctx, "u1", models.ActionPostCreated, 0, "p")
	require.True(t, errors.Is(err, ErrInvalidAmount))

	_, err = env.awards.Award(ctx, "u1", models.ActionQuizPerfect, 20, "")
	require.True(t, errors.Is(err, ErrInvalidInput))

	_, err = env.awards.Award(ctx, "", models.ActionPostCreated, 10, "p")
	require.True(t, errors.Is(err, ErrInvalidInput))
}

func TestRevokeAnswerAccepted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.awards.Award(ctx, "u1", models.ActionPostCreated, 10, "p-1")
	require.NoError(t, err)
	before := env.totalXP(t, "u1")

	res, err := env.awards.Award(ctx, "u1", models.ActionAnswerAccepted, 10, "reply-1")
	require.NoError(t, err)
	require.True(t, res.Applied)
	require.Equal(t, before+10, env.totalXP(t, "u1"))

	rev, err := env.awards.RevokeAnswerAccepted(ctx, "reply-1", "u1")
	require.NoError(t, err)
	require.True(t, rev.Applied)
	require.Equal(t, before, rev.NewTotalXP)
	require.EqualValues(t, 0, env.logCount(t, "u1", models.ActionAnswerAccepted, "reply-1"))

	again, err := env.awards.RevokeAnswerAccepted(ctx, "reply-1", "u1")
	require.NoError(t, err)
	require.False(t, again.Applied)
	require.Equal(t, before, env.totalXP(t, "u1"))

	// accepting again after a revoke is a fresh grant
	res, err = env.awards.Award(ctx, "u1", models.ActionAnswerAccepted, 10, "reply-1")
	require.NoError(t, err)
	require.True(t, res.Applied)
}

func TestCountLogsWithoutReference(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, _ = env.awards.Award(ctx, "u1", models.ActionPostCreated, 10, "p-1")
	_, _ = env.awards.Award(ctx, "u1", models.ActionPostCreated, 10, "p-2")
	require.EqualValues(t, 2, env.logCount(t, "u1", models.ActionPostCreated, ""))
	require.EqualValues(t, 1, env.logCount(t, "u1", models.ActionPostCreated, "p-2"))
}
