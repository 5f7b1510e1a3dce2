package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"workorder-autopilot/pkg/config"
	"workorder-autopilot/pkg/errutil"
	"workorder-autopilot/pkg/fieldnation"
	"workorder-autopilot/pkg/locker"
	"workorder-autopilot/pkg/rediskey"
	"workorder-autopilot/services/cron"
	"workorder-autopilot/services/integration"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// RunOutcome summarises a single cron execution.
type RunOutcome struct {
	CronID       int64    `json:"cronId"`
	Skipped      bool     `json:"skipped"`
	SkipReason   string   `json:"skipReason,omitempty"`
	Fetched      int      `json:"fetched"`
	Candidates   int      `json:"candidates"`
	Submitted    []string `json:"submitted"`
	AlreadyTaken int      `json:"alreadyTaken"`
	Failed       int      `json:"failed"`
}

// Runner executes one cron end to end: lock, re-check eligibility, fetch
// available work orders, filter, request each candidate, persist the
// requested ids. Submissions are at-least-once: ids are recorded only
// after Field Nation acknowledged the request, and the marketplace
// tolerates duplicate requests for the same work order.
type Runner struct {
	crons        *cron.Service
	integrations *integration.Service
	fn           fieldnation.Client
	locks        locker.Locker
	loc          *time.Location
	lockTTL      time.Duration
}

type RunnerParams struct {
	fx.In
	Crons        *cron.Service
	Integrations *integration.Service
	FN           fieldnation.Client
	Locks        locker.Locker
	Config       *config.Config
}

func NewRunner(p RunnerParams) *Runner {
	return &Runner{
		crons:        p.Crons,
		integrations: p.Integrations,
		fn:           p.FN,
		locks:        p.Locks,
		loc:          p.Config.SchedulerLocation(),
		lockTTL:      p.Config.Scheduler.LockTTL,
	}
}

func skipped(cronID int64, reason string) *RunOutcome {
	return &RunOutcome{CronID: cronID, Skipped: true, SkipReason: reason, Submitted: []string{}}
}

// Run executes the cron once. A second Run for the same cron while one is
// in flight is skipped, not queued.
func (r *Runner) Run(ctx context.Context, cronID int64) (*RunOutcome, error) {
	release, ok, err := r.locks.Acquire(ctx, rediskey.BuildCronLockKey(cronID), r.lockTTL)
	if err != nil {
		return nil, errutil.Internal("failed to acquire cron lock", errutil.WithErr(err))
	}
	if !ok {
		zap.L().Debug("cron already running, skipping", zap.Int64("cron_id", cronID))
		return skipped(cronID, "already running"), nil
	}
	defer release()

	c, err := r.crons.LoadForRun(ctx, cronID)
	if err != nil {
		var be errutil.BaseError
		if errors.As(err, &be) && be.Code == errutil.StatusNotFound {
			// Deleted or deactivated after enqueue; drop quietly.
			return skipped(cronID, "cron no longer active"), nil
		}
		return nil, err
	}

	now := time.Now()
	if !c.EligibleAt(now, r.loc) {
		return skipped(cronID, "outside working window"), nil
	}

	integ, err := r.integrations.GetByUserID(ctx, c.UserID)
	if err != nil {
		zap.L().Warn("cron owner has no integration",
			zap.Int64("cron_id", cronID), zap.Int64("user_id", c.UserID))
		return skipped(cronID, "owner not connected"), nil
	}
	if integ.Status != integration.StatusConnected {
		return skipped(cronID, "integration not connected"), nil
	}

	filter := fieldnation.Filter{
		Zip:         c.CenterZip,
		RadiusMiles: c.DrivingRadius,
		TypeIDs:     c.TypesOfWorkOrder,
	}
	available, token, err := r.fetch(ctx, c.UserID, integ, filter)
	if err != nil {
		return nil, err
	}

	candidates := cron.FilterCandidates(available, c)
	out := &RunOutcome{
		CronID:     cronID,
		Fetched:    len(available),
		Candidates: len(candidates),
		Submitted:  []string{},
	}

	for _, wo := range candidates {
		err := r.fn.RequestWorkOrder(ctx, token, wo.ID)
		switch {
		case err == nil:
			out.Submitted = append(out.Submitted, wo.ID)
		case errors.Is(err, fieldnation.ErrAlreadyTaken):
			out.AlreadyTaken++
		default:
			// One bad work order must not sink the rest of the batch.
			out.Failed++
			zap.L().Warn("work order request failed",
				zap.Int64("cron_id", cronID),
				zap.String("wo_id", wo.ID),
				zap.Error(err))
		}
	}

	if len(out.Submitted) > 0 {
		if _, err := r.crons.ApplyRunResult(ctx, cronID, out.Submitted); err != nil {
			return nil, err
		}
	}

	zap.L().Info("cron run completed",
		zap.Int64("cron_id", cronID),
		zap.Int("fetched", out.Fetched),
		zap.Int("candidates", out.Candidates),
		zap.Int("submitted", len(out.Submitted)),
		zap.Int("already_taken", out.AlreadyTaken),
		zap.Int("failed", out.Failed),
	)
	return out, nil
}

// fetch lists available work orders, refreshing the token pair at most
// once when the access token is rejected. It returns the token that
// succeeded so submissions reuse it. A failed refresh demotes the
// integration so subsequent ticks skip the owner until reconnect.
func (r *Runner) fetch(ctx context.Context, userID int64, integ *integration.Integration, filter fieldnation.Filter) ([]fieldnation.WorkOrder, string, error) {
	token, err := r.integrations.AccessToken(integ)
	if err != nil {
		return nil, "", err
	}

	available, err := r.fn.ListWorkOrders(ctx, token, filter)
	if err == nil {
		return available, token, nil
	}
	if !errors.Is(err, fieldnation.ErrAuth) {
		return nil, "", errutil.BadGateway("failed to list work orders", errutil.WithErr(err))
	}

	zap.L().Info("access token rejected, refreshing", zap.Int64("user_id", userID))
	refreshed, err := r.integrations.Refresh(ctx, userID)
	if err != nil {
		var be errutil.BaseError
		if errors.As(err, &be) && be.Code == errutil.StatusConflict {
			// Another run is mid-refresh; back off until the next tick.
			return nil, "", err
		}
		_ = r.integrations.MarkNotConnected(ctx, userID)
		return nil, "", err
	}

	token, err = r.integrations.AccessToken(refreshed)
	if err != nil {
		return nil, "", err
	}
	available, err = r.fn.ListWorkOrders(ctx, token, filter)
	if err != nil {
		if errors.Is(err, fieldnation.ErrAuth) {
			// Fresh token rejected too; something is wrong upstream.
			_ = r.integrations.MarkNotConnected(ctx, userID)
			return nil, "", errutil.Unauthorized("field nation rejected a freshly refreshed token")
		}
		return nil, "", errutil.BadGateway("failed to list work orders", errutil.WithErr(err))
	}
	return available, token, nil
}

// HandleCronRun is the asynq handler for cron:run tasks. Errors are
// logged, not returned: failed runs wait for the next scheduler tick
// instead of entering the queue's retry loop.
func (r *Runner) HandleCronRun(ctx context.Context, t *asynq.Task) error {
	var payload RunPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("malformed cron:run payload: %w", err)
	}

	if _, err := r.Run(ctx, payload.CronID); err != nil {
		zap.L().Error("cron run failed",
			zap.Int64("cron_id", payload.CronID),
			zap.Error(err))
	}
	return nil
}
