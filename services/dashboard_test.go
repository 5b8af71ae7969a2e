package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"vibedojo-ledger/logger"
	"vibedojo-ledger/models"
)

func TestBucketByDojoDate(t *testing.T) {
	stamps := []time.Time{
		time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 7, 1, 14, 59, 0, 0, time.UTC),
		time.Date(2025, 7, 1, 15, 0, 0, 0, time.UTC), // July 2 in UTC+9
		time.Date(2025, 7, 3, 1, 0, 0, 0, time.UTC),
	}
	require.Equal(t, []HeatmapDay{
		{Date: "2025-07-01", Count: 2},
		{Date: "2025-07-02", Count: 1},
		{Date: "2025-07-03", Count: 1},
	}, bucketByDojoDate(stamps))
	require.Empty(t, bucketByDojoDate(nil))
}

func newDashboard(env *testEnv, expiry time.Duration, clock *fixedClock) *DashboardService {
	svc := NewDashboardService(env.db, env.streaks, env.profiles, env.badges, 16, expiry, logger.NewNop(), 5*time.Second)
	svc.now = clock.Now
	env.streaks.now = clock.Now
	return svc
}

func TestDashboardLoad(t *testing.T) {
	env := newTestEnv(t)
	clock := &fixedClock{t: time.Now()}
	dash := newDashboard(env, time.Minute, clock)
	ctx := context.Background()

	_, err := env.completion.Complete(ctx, "u1", perfectInput("01"))
	require.NoError(t, err)

	d, err := dash.Load(ctx, "u1")
	require.NoError(t, err)
	require.EqualValues(t, 70, d.Profile.TotalXP)
	require.Equal(t, "yellow", d.Profile.Belt.ID)
	require.Len(t, d.Badges, 1)
	require.Equal(t, "First Steps", d.Badges[0].Badge.Name)
	require.Len(t, d.Heatmap, 1)
	require.Equal(t, 2, d.Heatmap[0].Count)

	// the completion already touched today's streak
	require.False(t, d.Streak.IsNewDay)
	require.Equal(t, 1, d.Streak.CurrentStreak)
}

func TestHeatmapCache(t *testing.T) {
	env := newTestEnv(t)
	clock := &fixedClock{t: time.Now()}
	dash := newDashboard(env, time.Minute, clock)
	ctx := context.Background()

	_, err := env.awards.Award(ctx, "u1", models.ActionPostCreated, 10, "p-1")
	require.NoError(t, err)
	days, err := dash.Heatmap(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 1, days[0].Count)

	_, err = env.awards.Award(ctx, "u1", models.ActionPostCreated, 10, "p-2")
	require.NoError(t, err)
	days, err = dash.Heatmap(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 1, days[0].Count, "served from cache")

	dash.InvalidateHeatmap("u1")
	days, err = dash.Heatmap(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 2, days[0].Count)
}

func TestHeatmapCacheExpires(t *testing.T) {
	env := newTestEnv(t)
	start := time.Date(2025, 7, 1, 3, 0, 0, 0, time.UTC)
	clock := &fixedClock{t: start}
	dash := newDashboard(env, time.Minute, clock)
	ctx := context.Background()

	env.awards.now = clock.Now
	_, err := env.awards.Award(ctx, "u1", models.ActionPostCreated, 10, "p-1")
	require.NoError(t, err)
	_, err = dash.Heatmap(ctx, "u1")
	require.NoError(t, err)

	_, err = env.awards.Award(ctx, "u1", models.ActionPostCreated, 10, "p-2")
	require.NoError(t, err)
	clock.Set(start.Add(2 * time.Minute))
	days, err := dash.Heatmap(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, []HeatmapDay{{Date: "2025-07-01", Count: 2}}, days)
}

func TestHeatmapRefreshesAfterAwards(t *testing.T) {
	env := newTestEnv(t)
	clock := &fixedClock{t: time.Now()}
	dash := newDashboard(env, time.Hour, clock)
	env.completion.SetHeatmapInvalidator(dash)
	env.community.SetHeatmapInvalidator(dash)
	ctx := context.Background()

	days, err := dash.Heatmap(ctx, "u1")
	require.NoError(t, err)
	require.Empty(t, days)

	_, err = env.completion.Complete(ctx, "u1", perfectInput("01"))
	require.NoError(t, err)
	days, err = dash.Heatmap(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, days, 1)
	require.Equal(t, 2, days[0].Count)

	_, _, err = env.community.CreatePost(ctx, "u1", PostInput{Type: models.PostTypeGeneral, Title: "Hi"})
	require.NoError(t, err)
	days, err = dash.Heatmap(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 3, days[0].Count)
}
