package services

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBeltForXP(t *testing.T) {
	cases := []struct {
		xp   int64
		want string
	}{
		{0, "white"},
		{49, "white"},
		{50, "yellow"},
		{95, "yellow"},
		{150, "orange"},
		{1799, "brown"},
		{1800, "black"},
		{1_000_000, "black"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, BeltForXP(tc.xp).ID, "xp=%d", tc.xp)
	}
}

func TestNextBelt(t *testing.T) {
	next, ok := NextBelt(45)
	require.True(t, ok)
	require.Equal(t, "yellow", next.ID)

	_, ok = NextBelt(5000)
	require.False(t, ok)
}

func TestLevelForXP(t *testing.T) {
	require.Equal(t, 1, LevelForXP(0))
	require.Equal(t, 1, LevelForXP(49))
	require.Equal(t, 2, LevelForXP(50))
	require.Equal(t, 2, LevelForXP(119))
	require.Equal(t, 3, LevelForXP(120))
	require.Equal(t, len(LevelThresholds), LevelForXP(1_000_000))
}

func TestXPForLevelClamps(t *testing.T) {
	require.EqualValues(t, 0, XPForLevel(0))
	require.EqualValues(t, 50, XPForLevel(2))
	require.Equal(t, LevelThresholds[len(LevelThresholds)-1], XPForLevel(99))
}

func TestNextLevelXP(t *testing.T) {
	xp, ok := NextLevelXP(70)
	require.True(t, ok)
	require.EqualValues(t, 120, xp)

	_, ok = NextLevelXP(1_000_000)
	require.False(t, ok)
}

func TestTierTransitions(t *testing.T) {
	tr := TierTransitions(45, 95)
	require.NotNil(t, tr.BeltUp)
	require.Equal(t, "white", tr.BeltUp.From.ID)
	require.Equal(t, "yellow", tr.BeltUp.To.ID)
	require.NotNil(t, tr.LevelUp)
	require.Equal(t, 1, tr.LevelUp.From)
	require.Equal(t, 2, tr.LevelUp.To)

	same := TierTransitions(95, 95)
	require.Nil(t, same.BeltUp)
	require.Nil(t, same.LevelUp)
	require.Empty(t, same.NewBadges)
}

func TestCurriculumShape(t *testing.T) {
	c := NewCurriculum()
	require.Equal(t, 30, c.Size())
	require.Equal(t, "30", c.FinalChapterID())
	require.Equal(t, 10, c.PartSize(1))
	require.Equal(t, 0, c.PartSize(4))

	ch, ok := c.Chapter("01")
	require.True(t, ok)
	require.EqualValues(t, 50, ch.XPReward)
	require.Equal(t, 1, ch.Part)

	ch, ok = c.Chapter("21")
	require.True(t, ok)
	require.Equal(t, 3, ch.Part)
	require.EqualValues(t, 100, ch.XPReward)

	_, ok = c.Chapter("31")
	require.False(t, ok)
	require.Len(t, c.PartChapterIDs(2), 10)
}
