package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"vibedojo-ledger/logger"
	"vibedojo-ledger/models"
	"vibedojo-ledger/store/storetest"
)

type testEnv struct {
	db         *gorm.DB
	curriculum *Curriculum
	awards     *AwardEngine
	streaks    *StreakTracker
	detector   *TransitionDetector
	profiles   *ProfileService
	progress   *ProgressService
	badges     *BadgeService
	community  *CommunityService
	completion *CompletionService
	dispatcher *inlineDispatcher
	notifier   *recordingNotifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := storetest.DB(t)
	log := logger.NewNop()
	timeout := 5 * time.Second

	env := &testEnv{
		db:         db,
		curriculum: NewCurriculum(),
		dispatcher: &inlineDispatcher{},
		notifier:   &recordingNotifier{},
	}
	env.awards = NewAwardEngine(db, log, timeout)
	env.streaks = NewStreakTracker(db, log, timeout)
	env.detector = NewTransitionDetector(db, env.curriculum, log)
	env.profiles = NewProfileService(db, log, timeout)
	env.progress = NewProgressService(db, env.curriculum, timeout)
	env.badges = NewBadgeService(db, timeout)
	env.community = NewCommunityService(db, env.awards, env.dispatcher, env.notifier, log, timeout)
	env.completion = NewCompletionService(db, env.curriculum, env.awards, env.detector, env.community, env.streaks, log, timeout)
	env.completion.SetSideEffects(env.dispatcher, env.notifier, nil)
	return env
}

func (e *testEnv) totalXP(t *testing.T, userID string) int64 {
	t.Helper()
	var p models.Profile
	if err := e.db.Where("user_id = ?", userID).First(&p).Error; err != nil {
		t.Fatalf("load profile %s: %v", userID, err)
	}
	return p.TotalXP
}

func (e *testEnv) logCount(t *testing.T, userID string, action models.XPAction, ref string) int64 {
	t.Helper()
	n, err := e.awards.CountLogs(context.Background(), userID, action, ref)
	if err != nil {
		t.Fatalf("count logs: %v", err)
	}
	return n
}

// fixedClock returns a settable clock for date-boundary tests.
type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

// inlineDispatcher runs tasks synchronously so side effects are observable in tests.
type inlineDispatcher struct {
	mu    sync.Mutex
	names []string
	errs  []error
}

func (d *inlineDispatcher) Submit(name string, task func(ctx context.Context) error) bool {
	err := task(context.Background())
	d.mu.Lock()
	d.names = append(d.names, name)
	if err != nil {
		d.errs = append(d.errs, err)
	}
	d.mu.Unlock()
	return true
}

type notification struct {
	userID string
	kind   models.NotificationKind
	title  string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (n *recordingNotifier) Notify(_ context.Context, userID string, kind models.NotificationKind, title, _, _ string) error {
	n.mu.Lock()
	n.sent = append(n.sent, notification{userID: userID, kind: kind, title: title})
	n.mu.Unlock()
	return nil
}

func (n *recordingNotifier) kinds(userID string) []models.NotificationKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []models.NotificationKind
	for _, s := range n.sent {
		if s.userID == userID {
			out = append(out, s.kind)
		}
	}
	return out
}
