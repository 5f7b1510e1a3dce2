package user

import (
	"context"
	"errors"
	"fmt"

	"workorder-autopilot/pkg/config"
	"workorder-autopilot/pkg/errutil"
	"workorder-autopilot/pkg/security"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db     *gorm.DB
	node   *snowflake.Node
	config *config.Config
}

type ServiceParams struct {
	fx.In
	DB     *gorm.DB
	Node   *snowflake.Node
	Config *config.Config
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:     p.DB,
		node:   p.Node,
		config: p.Config,
	}
}

type RegisterAdminInput struct {
	Name            string
	Email           string
	Password        string
	RegistrationKey string
}

// RegisterAdmin creates an admin account behind the registration key gate.
// The first admin is activated immediately; later ones stay inactive until
// an existing admin activates them.
func (s *Service) RegisterAdmin(ctx context.Context, in RegisterAdminInput) (*User, error) {
	if in.Email == "" || in.Password == "" {
		return nil, errutil.BadRequest("email and password must be provided")
	}
	if in.RegistrationKey == "" {
		return nil, errutil.BadRequest("admin registration key is missing")
	}
	if in.RegistrationKey != s.config.AdminRegistrationKey {
		return nil, errutil.Unauthorized("incorrect admin registration key")
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&User{}).Where("email = ?", in.Email).Count(&count).Error; err != nil {
		zap.L().Error("failed to check existing user", zap.Error(err))
		return nil, errutil.Internal("failed to register admin", errutil.WithErr(err))
	}
	if count > 0 {
		return nil, errutil.Conflict("account already exists")
	}

	activeAdminExists, err := s.activeAdminExists(ctx)
	if err != nil {
		return nil, errutil.Internal("failed to register admin", errutil.WithErr(err))
	}

	hash, err := security.HashArgon2(in.Password)
	if err != nil {
		return nil, errutil.Internal("failed to hash password", errutil.WithErr(err))
	}

	u := &User{
		UserID:   s.node.Generate().Int64(),
		Name:     in.Name,
		Email:    in.Email,
		Password: hash,
		IsAdmin:  true,
		IsActive: !activeAdminExists,
	}
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		zap.L().Error("failed to create admin", zap.Error(err))
		return nil, errutil.Internal("failed to register admin", errutil.WithErr(err))
	}

	zap.L().Info("admin registered",
		zap.Int64("user_id", u.UserID),
		zap.Bool("is_active", u.IsActive),
	)
	return u, nil
}

func (s *Service) activeAdminExists(ctx context.Context) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&User{}).
		Where("is_admin = ? AND is_active = ? AND deleted = ?", true, true, false).
		Count(&count).Error
	return count > 0, err
}

// Authenticate verifies email/password and returns the account.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	if email == "" || password == "" {
		return nil, errutil.BadRequest("email and password must be provided")
	}

	var u User
	err := s.db.WithContext(ctx).Where("email = ? AND deleted = ?", email, false).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errutil.Unauthorized("invalid email or password")
	}
	if err != nil {
		zap.L().Error("failed to query user by email", zap.Error(err))
		return nil, errutil.Internal("authentication failed", errutil.WithErr(err))
	}

	if !security.VerifyArgon2(password, u.Password) {
		return nil, errutil.Unauthorized("invalid email or password")
	}
	if u.Blocked {
		return nil, errutil.Forbidden("account is blocked")
	}
	if !u.IsActive {
		return nil, errutil.Forbidden("account is not activated yet")
	}

	return &u, nil
}

func (s *Service) Get(ctx context.Context, userID int64) (*User, error) {
	var u User
	err := s.db.WithContext(ctx).Where("user_id = ? AND deleted = ?", userID, false).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errutil.NotFound("account not found")
	}
	if err != nil {
		return nil, errutil.Internal("failed to get account", errutil.WithErr(err))
	}
	return &u, nil
}

type ProfilePatch struct {
	Name     *string
	Email    *string
	Password *string
}

// UpdateProfile applies the supplied profile fields; absent fields are
// left untouched.
func (s *Service) UpdateProfile(ctx context.Context, userID int64, patch ProfilePatch) (*User, error) {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if patch.Name != nil {
		updates["name"] = *patch.Name
	}
	if patch.Email != nil {
		updates["email"] = *patch.Email
	}
	if patch.Password != nil {
		hash, err := security.HashArgon2(*patch.Password)
		if err != nil {
			return nil, errutil.Internal("failed to hash password", errutil.WithErr(err))
		}
		updates["password"] = hash
	}

	if len(updates) == 0 {
		return u, nil
	}

	if err := s.db.WithContext(ctx).Model(u).Updates(updates).Error; err != nil {
		zap.L().Error("failed to update profile", zap.Int64("user_id", userID), zap.Error(err))
		return nil, errutil.Internal("failed to update profile", errutil.WithErr(err))
	}
	return s.Get(ctx, userID)
}

// List returns a page of non-deleted accounts, newest first.
func (s *Service) List(ctx context.Context, page, limit int) ([]*User, int64, error) {
	if limit <= 0 {
		limit = 10
	}
	offset := 0
	if page > 1 {
		offset = (page - 1) * limit
	}

	q := s.db.WithContext(ctx).Model(&User{}).Where("deleted = ?", false)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, errutil.Internal("failed to count users", errutil.WithErr(err))
	}

	var users []*User
	if err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return nil, 0, errutil.Internal("failed to list users", errutil.WithErr(err))
	}
	return users, total, nil
}

// ActiveProviders returns every account that can currently hold work:
// active, not blocked, not deleted.
func (s *Service) ActiveProviders(ctx context.Context) ([]*User, error) {
	var out []*User
	err := s.db.WithContext(ctx).
		Where("is_active = ? AND blocked = ? AND deleted = ?", true, false, false).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, errutil.Internal("failed to list active providers", errutil.WithErr(err))
	}
	return out, nil
}

// SetFnServiceCompanyAdmin moves the service-company-admin flag to the
// given account. The flag is exclusive: it is cleared everywhere else in
// the same transaction.
func (s *Service) SetFnServiceCompanyAdmin(ctx context.Context, userID int64) (*User, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&User{}).
			Where("is_fn_service_company_admin = ?", true).
			Update("is_fn_service_company_admin", false).Error; err != nil {
			return err
		}

		res := tx.Model(&User{}).
			Where("user_id = ? AND deleted = ?", userID, false).
			Update("is_fn_service_company_admin", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errutil.NotFound("account not found")
		}
		return nil
	})
	if err != nil {
		var base errutil.BaseError
		if errors.As(err, &base) {
			return nil, err
		}
		zap.L().Error("failed to set service company admin", zap.Int64("user_id", userID), zap.Error(err))
		return nil, errutil.Internal("failed to set service company admin", errutil.WithErr(err))
	}
	return s.Get(ctx, userID)
}

// Update applies an admin partial update to an account.
func (s *Service) Update(ctx context.Context, userID int64, patch Patch) (*User, error) {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if patch.Name != nil {
		updates["name"] = *patch.Name
	}
	if patch.Email != nil {
		updates["email"] = *patch.Email
	}
	if patch.IsActive != nil {
		updates["is_active"] = *patch.IsActive
	}
	if patch.Blocked != nil {
		updates["blocked"] = *patch.Blocked
	}

	if len(updates) == 0 {
		return u, nil
	}

	if err := s.db.WithContext(ctx).Model(u).Updates(updates).Error; err != nil {
		return nil, errutil.Internal("failed to update user", errutil.WithErr(err))
	}
	return s.Get(ctx, userID)
}

func (s *Service) SetBlocked(ctx context.Context, userID int64, blocked bool) error {
	res := s.db.WithContext(ctx).Model(&User{}).
		Where("user_id = ? AND deleted = ?", userID, false).
		Update("blocked", blocked)
	if res.Error != nil {
		return errutil.Internal("failed to update block status", errutil.WithErr(res.Error))
	}
	if res.RowsAffected == 0 {
		return errutil.NotFound("account not found")
	}
	return nil
}

func (s *Service) Activate(ctx context.Context, userID int64) error {
	res := s.db.WithContext(ctx).Model(&User{}).
		Where("user_id = ? AND deleted = ?", userID, false).
		Update("is_active", true)
	if res.Error != nil {
		return errutil.Internal("failed to activate account", errutil.WithErr(res.Error))
	}
	if res.RowsAffected == 0 {
		return errutil.NotFound("account not found")
	}
	return nil
}

// SoftDelete flags the account as deleted and cascades the flag to the
// account's crons so the dispatcher stops considering them.
func (s *Service) SoftDelete(ctx context.Context, userID int64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&User{}).
			Where("user_id = ? AND deleted = ?", userID, false).
			Update("deleted", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errutil.NotFound("account not found")
		}

		if err := tx.Table("crons").Where("user_id = ?", userID).Update("deleted", true).Error; err != nil {
			return fmt.Errorf("failed to cascade cron deletion: %w", err)
		}
		return nil
	})
	if err != nil {
		var base errutil.BaseError
		if errors.As(err, &base) {
			return err
		}
		zap.L().Error("failed to delete user", zap.Int64("user_id", userID), zap.Error(err))
		return errutil.Internal("failed to delete user", errutil.WithErr(err))
	}

	zap.L().Info("user soft-deleted", zap.Int64("user_id", userID))
	return nil
}
