package cron

import (
	"context"
	"errors"
	"time"

	"workorder-autopilot/pkg/errutil"
	"workorder-autopilot/services/user"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	db   *gorm.DB
	node *snowflake.Node
}

type ServiceParams struct {
	fx.In
	DB   *gorm.DB
	Node *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	return &Service{db: p.DB, node: p.Node}
}

type CreateInput struct {
	CenterZip            string
	DrivingRadius        float64
	CronStartAt          time.Time
	CronEndAt            time.Time
	WorkingWindowStartAt string
	WorkingWindowEndAt   string
	TypesOfWorkOrder     []int64
}

func (in CreateInput) validate() error {
	details := []errutil.Detail{}
	if in.CenterZip == "" {
		details = append(details, errutil.Detail{Field: "centerZip", Message: "must not be empty"})
	}
	if in.DrivingRadius <= 0 {
		details = append(details, errutil.Detail{Field: "drivingRadius", Message: "must be positive"})
	}
	if !in.CronEndAt.After(in.CronStartAt) {
		details = append(details, errutil.Detail{Field: "cronEndAt", Message: "must be after cronStartAt"})
	}
	if _, err := ParseWindowTime(in.WorkingWindowStartAt); err != nil {
		details = append(details, errutil.Detail{Field: "workingWindowStartAt", Message: err.Error()})
	}
	if _, err := ParseWindowTime(in.WorkingWindowEndAt); err != nil {
		details = append(details, errutil.Detail{Field: "workingWindowEndAt", Message: err.Error()})
	}
	if len(details) > 0 {
		return errutil.ValidationFailed("invalid cron configuration", errutil.WithDetails(details...))
	}
	return nil
}

// Create stores a new cron for the owner with empty run state.
func (s *Service) Create(ctx context.Context, ownerID int64, in CreateInput) (*Cron, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	c := &Cron{
		CronID:               s.node.Generate().Int64(),
		UserID:               ownerID,
		CenterZip:            in.CenterZip,
		DrivingRadius:        in.DrivingRadius,
		CronStartAt:          in.CronStartAt,
		CronEndAt:            in.CronEndAt,
		WorkingWindowStartAt: in.WorkingWindowStartAt,
		WorkingWindowEndAt:   in.WorkingWindowEndAt,
		TypesOfWorkOrder:     datatypes.NewJSONSlice(in.TypesOfWorkOrder),
		RequestedWoIDs:       datatypes.NewJSONSlice([]string{}),
		TotalRequested:       0,
		Status:               StatusActive,
	}

	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		zap.L().Error("failed to create cron", zap.Int64("user_id", ownerID), zap.Error(err))
		return nil, errutil.Internal("failed to create cron", errutil.WithErr(err))
	}

	zap.L().Info("cron created",
		zap.Int64("cron_id", c.CronID),
		zap.Int64("user_id", ownerID),
	)
	return c, nil
}

func (s *Service) get(ctx context.Context, cronID int64) (*Cron, error) {
	var c Cron
	err := s.db.WithContext(ctx).Where("cron_id = ?", cronID).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errutil.NotFound("cron not found")
	}
	if err != nil {
		return nil, errutil.Internal("failed to get cron", errutil.WithErr(err))
	}
	return &c, nil
}

// Get returns a single non-deleted cron joined with its owner's name.
func (s *Service) Get(ctx context.Context, actor *user.User, cronID int64) (*Detail, error) {
	var d Detail
	err := s.db.WithContext(ctx).Table("crons").
		Select("crons.*, users.name AS owner_name").
		Joins("LEFT JOIN users ON users.user_id = crons.user_id").
		Where("crons.cron_id = ? AND crons.deleted = ?", cronID, false).
		Take(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errutil.NotFound("cron not found")
	}
	if err != nil {
		return nil, errutil.Internal("failed to get cron", errutil.WithErr(err))
	}

	if !actor.IsAdmin && actor.UserID != d.UserID {
		return nil, errutil.Forbidden("you do not have permission to view this cron")
	}
	if d.OwnerName == "" {
		d.OwnerName = "Unknown"
	}
	return &d, nil
}

// List returns all non-deleted crons for an admin, or the actor's own
// crons otherwise.
func (s *Service) List(ctx context.Context, actor *user.User) ([]*Detail, error) {
	q := s.db.WithContext(ctx).Table("crons").
		Select("crons.*, users.name AS owner_name").
		Joins("LEFT JOIN users ON users.user_id = crons.user_id").
		Where("crons.deleted = ?", false)
	if !actor.IsAdmin {
		q = q.Where("crons.user_id = ?", actor.UserID)
	}

	var out []*Detail
	if err := q.Order("crons.created_at DESC").Find(&out).Error; err != nil {
		return nil, errutil.Internal("failed to list crons", errutil.WithErr(err))
	}
	return out, nil
}

// Update applies a partial patch. The requested-set is append-only: a
// patch may not remove ids already present.
func (s *Service) Update(ctx context.Context, actor *user.User, cronID int64, patch Patch) (*Cron, error) {
	existing, err := s.get(ctx, cronID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin && actor.UserID != existing.UserID {
		return nil, errutil.Forbidden("you do not have permission to update this cron")
	}

	updates := map[string]any{}
	if patch.CenterZip != nil {
		if *patch.CenterZip == "" {
			return nil, errutil.ValidationFailed("centerZip must not be empty")
		}
		updates["center_zip"] = *patch.CenterZip
	}
	if patch.DrivingRadius != nil {
		if *patch.DrivingRadius <= 0 {
			return nil, errutil.ValidationFailed("drivingRadius must be positive")
		}
		updates["driving_radius"] = *patch.DrivingRadius
	}
	if patch.CronStartAt != nil {
		updates["cron_start_at"] = *patch.CronStartAt
	}
	if patch.CronEndAt != nil {
		updates["cron_end_at"] = *patch.CronEndAt
	}
	if patch.WorkingWindowStartAt != nil {
		if _, err := ParseWindowTime(*patch.WorkingWindowStartAt); err != nil {
			return nil, errutil.ValidationFailed(err.Error())
		}
		updates["working_window_start_at"] = *patch.WorkingWindowStartAt
	}
	if patch.WorkingWindowEndAt != nil {
		if _, err := ParseWindowTime(*patch.WorkingWindowEndAt); err != nil {
			return nil, errutil.ValidationFailed(err.Error())
		}
		updates["working_window_end_at"] = *patch.WorkingWindowEndAt
	}
	if patch.TypesOfWorkOrder != nil {
		updates["types_of_work_order"] = datatypes.NewJSONSlice(*patch.TypesOfWorkOrder)
	}
	if patch.RequestedWoIDs != nil {
		next := make(map[string]struct{}, len(*patch.RequestedWoIDs))
		for _, id := range *patch.RequestedWoIDs {
			next[id] = struct{}{}
		}
		for _, id := range existing.RequestedWoIDs {
			if _, ok := next[id]; !ok {
				return nil, errutil.ValidationFailed("requestedWoIds may only grow")
			}
		}
		updates["requested_wo_ids"] = datatypes.NewJSONSlice(*patch.RequestedWoIDs)
		updates["total_requested"] = int64(len(*patch.RequestedWoIDs))
	}
	if patch.Status != nil {
		if *patch.Status != StatusActive && *patch.Status != StatusInactive {
			return nil, errutil.ValidationFailed("status must be active or inactive")
		}
		updates["status"] = *patch.Status
	}
	if patch.Deleted != nil {
		updates["deleted"] = *patch.Deleted
	}

	if len(updates) == 0 {
		return existing, nil
	}

	if err := s.db.WithContext(ctx).Model(&Cron{}).Where("cron_id = ?", cronID).Updates(updates).Error; err != nil {
		zap.L().Error("failed to update cron", zap.Int64("cron_id", cronID), zap.Error(err))
		return nil, errutil.Internal("failed to update cron", errutil.WithErr(err))
	}
	return s.get(ctx, cronID)
}

// SoftDelete flags the cron as deleted, hiding it from listings and the
// dispatcher. The row is kept.
func (s *Service) SoftDelete(ctx context.Context, actor *user.User, cronID int64) error {
	existing, err := s.get(ctx, cronID)
	if err != nil {
		return err
	}
	if !actor.IsAdmin && actor.UserID != existing.UserID {
		return errutil.Forbidden("you do not have permission to delete this cron")
	}

	if err := s.db.WithContext(ctx).Model(&Cron{}).Where("cron_id = ?", cronID).Update("deleted", true).Error; err != nil {
		return errutil.Internal("failed to delete cron", errutil.WithErr(err))
	}

	zap.L().Info("cron soft-deleted", zap.Int64("cron_id", cronID))
	return nil
}

// ActiveCrons loads the crons the dispatcher should consider: active, not
// deleted, and inside their overall [start, end] range at now. The daily
// working window is evaluated separately per run.
func (s *Service) ActiveCrons(ctx context.Context, now time.Time) ([]*Cron, error) {
	var out []*Cron
	err := s.db.WithContext(ctx).
		Where("status = ? AND deleted = ?", StatusActive, false).
		Where("cron_start_at <= ? AND cron_end_at >= ?", now, now).
		Find(&out).Error
	if err != nil {
		return nil, errutil.Internal("failed to load active crons", errutil.WithErr(err))
	}
	return out, nil
}

// LoadForRun returns a cron by id regardless of run-state freshness in the
// caller; deleted or inactive crons yield not-found so stale queue entries
// die quietly.
func (s *Service) LoadForRun(ctx context.Context, cronID int64) (*Cron, error) {
	c, err := s.get(ctx, cronID)
	if err != nil {
		return nil, err
	}
	if c.Deleted || c.Status != StatusActive {
		return nil, errutil.NotFound("cron is no longer active")
	}
	return c, nil
}

// ApplyRunResult appends the newly requested work order ids to the cron's
// run state in a single atomic write, keeping TotalRequested equal to the
// requested-set cardinality. Ids already present are ignored.
func (s *Service) ApplyRunResult(ctx context.Context, cronID int64, newIDs []string) (*Cron, error) {
	if len(newIDs) == 0 {
		return s.get(ctx, cronID)
	}

	var updated *Cron
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c Cron
		if err := tx.Where("cron_id = ?", cronID).First(&c).Error; err != nil {
			return err
		}

		seen := make(map[string]struct{}, len(c.RequestedWoIDs))
		for _, id := range c.RequestedWoIDs {
			seen[id] = struct{}{}
		}
		merged := append([]string{}, c.RequestedWoIDs...)
		for _, id := range newIDs {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			merged = append(merged, id)
		}

		if err := tx.Model(&Cron{}).Where("cron_id = ?", cronID).Updates(map[string]any{
			"requested_wo_ids": datatypes.NewJSONSlice(merged),
			"total_requested":  int64(len(merged)),
		}).Error; err != nil {
			return err
		}

		c.RequestedWoIDs = datatypes.NewJSONSlice(merged)
		c.TotalRequested = int64(len(merged))
		updated = &c
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errutil.NotFound("cron not found")
		}
		zap.L().Error("failed to persist run result", zap.Int64("cron_id", cronID), zap.Error(err))
		return nil, errutil.Internal("failed to persist run result", errutil.WithErr(err))
	}
	return updated, nil
}
