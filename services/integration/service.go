package integration

import (
	"context"
	"errors"
	"time"

	"workorder-autopilot/pkg/config"
	"workorder-autopilot/pkg/errutil"
	"workorder-autopilot/pkg/fieldnation"
	"workorder-autopilot/pkg/locker"
	"workorder-autopilot/pkg/rediskey"
	"workorder-autopilot/pkg/security"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db      *gorm.DB
	node    *snowflake.Node
	fn      fieldnation.Client
	locks   locker.Locker
	aesKey  [32]byte
	lockTTL time.Duration
}

type ServiceParams struct {
	fx.In
	DB     *gorm.DB
	Node   *snowflake.Node
	FN     fieldnation.Client
	Locks  locker.Locker
	Config *config.Config
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:      p.DB,
		node:    p.Node,
		fn:      p.FN,
		locks:   p.Locks,
		aesKey:  security.DeriveKey(p.Config.SecretAES),
		lockTTL: p.Config.Scheduler.LockTTL,
	}
}

// Connect performs the password grant against Field Nation and upserts
// the user's integration record with freshly encrypted tokens.
func (s *Service) Connect(ctx context.Context, userID int64, username, password string) (*Integration, error) {
	if username == "" || password == "" {
		return nil, errutil.BadRequest("username and password must be provided")
	}

	grant, err := s.fn.Authenticate(ctx, username, password)
	if err != nil {
		_ = s.MarkNotConnected(ctx, userID)
		if errors.Is(err, fieldnation.ErrInvalidGrant) {
			return nil, errutil.Unauthorized("field nation rejected the credentials")
		}
		zap.L().Error("field nation authentication failed", zap.Int64("user_id", userID), zap.Error(err))
		return nil, errutil.BadGateway("failed to connect account", errutil.WithErr(err))
	}

	accessEnc, err := security.EncryptToken(grant.AccessToken, s.aesKey)
	if err != nil {
		return nil, errutil.Internal("failed to protect access token", errutil.WithErr(err))
	}
	refreshEnc, err := security.EncryptToken(grant.RefreshToken, s.aesKey)
	if err != nil {
		return nil, errutil.Internal("failed to protect refresh token", errutil.WithErr(err))
	}

	now := time.Now().UTC()
	var out *Integration
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing Integration
		err := tx.Where("user_id = ?", userID).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			existing = Integration{
				ID:     s.node.Generate().Int64(),
				UserID: userID,
			}
		case err != nil:
			return err
		}

		existing.FnUserID = grant.User.ID
		existing.FnUserName = username
		existing.AccessToken = accessEnc
		existing.RefreshToken = refreshEnc
		existing.Status = StatusConnected
		existing.LastConnectedAt = &now

		if err := tx.Save(&existing).Error; err != nil {
			return err
		}
		out = &existing
		return nil
	})
	if err != nil {
		zap.L().Error("failed to save integration", zap.Int64("user_id", userID), zap.Error(err))
		return nil, errutil.Internal("failed to connect account", errutil.WithErr(err))
	}

	zap.L().Info("integration connected",
		zap.Int64("user_id", userID),
		zap.Int64("fn_user_id", out.FnUserID),
	)
	return out, nil
}

func (s *Service) GetByUserID(ctx context.Context, userID int64) (*Integration, error) {
	var i Integration
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&i).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errutil.NotFound("integration information not found")
	}
	if err != nil {
		return nil, errutil.Internal("failed to get integration info", errutil.WithErr(err))
	}
	return &i, nil
}

// AccessToken decrypts the stored access token for outbound calls.
func (s *Service) AccessToken(i *Integration) (string, error) {
	if i.AccessToken == "" {
		return "", errutil.NotFound("no access token stored")
	}
	token, err := security.DecryptToken(i.AccessToken, s.aesKey)
	if err != nil {
		return "", errutil.Internal("failed to decrypt access token", errutil.WithErr(err))
	}
	return token, nil
}

// Refresh rotates the token pair using the stored refresh token. The
// per-integration lock serialises the interactive reconnect flow and the
// dispatcher's automatic refresh: refresh tokens are single-use, so a
// concurrent double-refresh would strand one caller with a dead token.
func (s *Service) Refresh(ctx context.Context, userID int64) (*Integration, error) {
	release, ok, err := s.locks.Acquire(ctx, rediskey.BuildIntegrationLockKey(userID), s.lockTTL)
	if err != nil {
		return nil, errutil.Internal("failed to acquire refresh lock", errutil.WithErr(err))
	}
	if !ok {
		// Another caller is refreshing right now; let it finish and reuse
		// its result.
		return nil, errutil.Conflict("a token refresh is already in progress")
	}
	defer release()

	existing, err := s.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if existing.RefreshToken == "" {
		return nil, errutil.NotFound("failed to retrieve existing refresh token")
	}

	refreshToken, err := security.DecryptToken(existing.RefreshToken, s.aesKey)
	if err != nil {
		return nil, errutil.Internal("failed to decrypt refresh token", errutil.WithErr(err))
	}

	grant, err := s.fn.Refresh(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, fieldnation.ErrInvalidGrant) {
			_ = s.MarkNotConnected(ctx, userID)
			return nil, errutil.Unauthorized("refresh token is no longer valid")
		}
		zap.L().Error("token refresh failed", zap.Int64("user_id", userID), zap.Error(err))
		return nil, errutil.BadGateway("failed to refresh connection", errutil.WithErr(err))
	}

	accessEnc, err := security.EncryptToken(grant.AccessToken, s.aesKey)
	if err != nil {
		return nil, errutil.Internal("failed to protect access token", errutil.WithErr(err))
	}

	updates := map[string]any{
		"access_token": accessEnc,
		"status":       StatusConnected,
	}
	if grant.RefreshToken != "" {
		refreshEnc, err := security.EncryptToken(grant.RefreshToken, s.aesKey)
		if err != nil {
			return nil, errutil.Internal("failed to protect refresh token", errutil.WithErr(err))
		}
		updates["refresh_token"] = refreshEnc
	}

	if err := s.db.WithContext(ctx).Model(&Integration{}).Where("user_id = ?", userID).Updates(updates).Error; err != nil {
		zap.L().Error("failed to save refreshed tokens", zap.Int64("user_id", userID), zap.Error(err))
		return nil, errutil.Internal("failed to save refreshed tokens", errutil.WithErr(err))
	}

	zap.L().Info("integration tokens refreshed", zap.Int64("user_id", userID))
	return s.GetByUserID(ctx, userID)
}

// MarkNotConnected demotes the integration status after repeated auth
// failures. Missing records are ignored.
func (s *Service) MarkNotConnected(ctx context.Context, userID int64) error {
	return s.db.WithContext(ctx).Model(&Integration{}).
		Where("user_id = ?", userID).
		Update("status", StatusNotConnected).Error
}
