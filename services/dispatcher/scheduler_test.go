package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"workorder-autopilot/pkg/config"
	"workorder-autopilot/services/cron"
	"workorder-autopilot/services/integration"
	"workorder-autopilot/services/testutil"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

type fakeEnqueuer struct {
	mu    sync.Mutex
	tasks []*asynq.Task
}

func (f *fakeEnqueuer) Enqueue(task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{}, nil
}

func (f *fakeEnqueuer) cronIDs(t *testing.T) []int64 {
	t.Helper()

	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]int64, 0, len(f.tasks))
	for _, task := range f.tasks {
		require.Equal(t, TaskCronRun, task.Type())
		var payload RunPayload
		require.NoError(t, json.Unmarshal(task.Payload(), &payload))
		out = append(out, payload.CronID)
	}
	return out
}

func TestSchedulerEnqueuesEligibleCrons(t *testing.T) {
	db := testutil.NewTestDB(t, &cron.Cron{}, &integration.Integration{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	crons := cron.NewService(cron.ServiceParams{DB: db, Node: node})

	cfg := &config.Config{}
	cfg.Scheduler.TickInterval = time.Minute
	cfg.Scheduler.Concurrency = 4

	now := time.Now()
	closedStart := now.Add(2 * time.Hour)
	closedEnd := now.Add(3 * time.Hour)

	seed := func(id int64, windowStart, windowEnd string, status cron.Status, startAt time.Time) {
		require.NoError(t, db.Create(&cron.Cron{
			CronID:               id,
			UserID:               1,
			CenterZip:            "60601",
			DrivingRadius:        25,
			CronStartAt:          startAt,
			CronEndAt:            now.Add(48 * time.Hour),
			WorkingWindowStartAt: windowStart,
			WorkingWindowEndAt:   windowEnd,
			TypesOfWorkOrder:     datatypes.NewJSONSlice([]int64{}),
			RequestedWoIDs:       datatypes.NewJSONSlice([]string{}),
			Status:               status,
		}).Error)
	}

	// Open all day, should be enqueued.
	seed(1, "00:00", "23:59", cron.StatusActive, now.Add(-time.Hour))
	// Daily window not open right now.
	seed(2, fmt.Sprintf("%02d:%02d", closedStart.Hour(), closedStart.Minute()),
		fmt.Sprintf("%02d:%02d", closedEnd.Hour(), closedEnd.Minute()),
		cron.StatusActive, now.Add(-time.Hour))
	// Paused by its owner.
	seed(3, "00:00", "23:59", cron.StatusInactive, now.Add(-time.Hour))
	// Overall schedule has not started yet.
	seed(4, "00:00", "23:59", cron.StatusActive, now.Add(24*time.Hour))

	enqueuer := &fakeEnqueuer{}
	s := NewScheduler(SchedulerParams{Crons: crons, Enqueuer: enqueuer, Config: cfg})
	s.tick(context.Background())

	require.Equal(t, []int64{1}, enqueuer.cronIDs(t))
}

func TestSchedulerTickSurvivesEmptySet(t *testing.T) {
	db := testutil.NewTestDB(t, &cron.Cron{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	crons := cron.NewService(cron.ServiceParams{DB: db, Node: node})

	cfg := &config.Config{}
	cfg.Scheduler.Concurrency = 2

	enqueuer := &fakeEnqueuer{}
	s := NewScheduler(SchedulerParams{Crons: crons, Enqueuer: enqueuer, Config: cfg})
	s.tick(context.Background())

	require.Empty(t, enqueuer.cronIDs(t))
}
