package dispatcher

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TaskCronRun = "cron:run"

type RunPayload struct {
	CronID int64 `json:"cron_id"`
}

// NewRunTask builds the queue task for one cron execution. MaxRetry is
// zero: a failed run is not retried in place, the next scheduler tick
// picks the cron up again.
func NewRunTask(cronID int64) *asynq.Task {
	payload, _ := json.Marshal(RunPayload{CronID: cronID})
	return asynq.NewTask(TaskCronRun, payload,
		asynq.MaxRetry(0),
		asynq.Timeout(5*time.Minute),
		asynq.Queue("dispatch"),
	)
}
