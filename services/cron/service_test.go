package cron

import (
	"context"
	"testing"
	"time"

	"workorder-autopilot/pkg/errutil"
	"workorder-autopilot/services/testutil"
	"workorder-autopilot/services/user"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	db := testutil.NewTestDB(t, &Cron{}, &user.User{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return NewService(ServiceParams{DB: db, Node: node}), db
}

func validInput() CreateInput {
	return CreateInput{
		CenterZip:            "60601",
		DrivingRadius:        25,
		CronStartAt:          time.Now().Add(-time.Hour),
		CronEndAt:            time.Now().Add(30 * 24 * time.Hour),
		WorkingWindowStartAt: "08:00",
		WorkingWindowEndAt:   "18:00",
		TypesOfWorkOrder:     []int64{1, 2},
	}
}

func asAdmin() *user.User { return &user.User{UserID: 999, IsAdmin: true} }
func asOwner() *user.User { return &user.User{UserID: 7} }
func asOther() *user.User { return &user.User{UserID: 8} }

func TestCreateCron(t *testing.T) {
	svc, _ := newTestService(t)

	c, err := svc.Create(context.Background(), 7, validInput())
	require.NoError(t, err)
	require.NotZero(t, c.CronID)
	require.Equal(t, int64(7), c.UserID)
	require.Equal(t, StatusActive, c.Status)
	require.Empty(t, c.RequestedWoIDs)
	require.Zero(t, c.TotalRequested)
}

func TestCreateCronValidation(t *testing.T) {
	svc, _ := newTestService(t)

	in := validInput()
	in.CenterZip = ""
	in.DrivingRadius = -1
	in.WorkingWindowStartAt = "25:00"

	_, err := svc.Create(context.Background(), 7, in)
	require.Error(t, err)

	var be errutil.BaseError
	require.ErrorAs(t, err, &be)
	require.Equal(t, errutil.StatusValidationFailed, be.Code)
	require.Len(t, be.Details, 3)
}

func TestUpdateCronPartialPatch(t *testing.T) {
	svc, _ := newTestService(t)

	c, err := svc.Create(context.Background(), 7, validInput())
	require.NoError(t, err)

	radius := 40.0
	updated, err := svc.Update(context.Background(), asOwner(), c.CronID, Patch{DrivingRadius: &radius})
	require.NoError(t, err)

	require.Equal(t, 40.0, updated.DrivingRadius)
	// Untouched fields survive.
	require.Equal(t, "60601", updated.CenterZip)
	require.Equal(t, "08:00", updated.WorkingWindowStartAt)
	require.Equal(t, []int64{1, 2}, []int64(updated.TypesOfWorkOrder))
}

func TestUpdateCronRequestedSetMayOnlyGrow(t *testing.T) {
	svc, db := newTestService(t)

	c, err := svc.Create(context.Background(), 7, validInput())
	require.NoError(t, err)

	grown := []string{"wo-1", "wo-2"}
	updated, err := svc.Update(context.Background(), asOwner(), c.CronID, Patch{RequestedWoIDs: &grown})
	require.NoError(t, err)
	require.Equal(t, int64(2), updated.TotalRequested)

	shrunk := []string{"wo-1"}
	_, err = svc.Update(context.Background(), asOwner(), c.CronID, Patch{RequestedWoIDs: &shrunk})
	require.Error(t, err)

	var be errutil.BaseError
	require.ErrorAs(t, err, &be)
	require.Equal(t, errutil.StatusValidationFailed, be.Code)

	// Rejected patch left nothing behind.
	var stored Cron
	require.NoError(t, db.Where("cron_id = ?", c.CronID).First(&stored).Error)
	require.Equal(t, int64(2), stored.TotalRequested)
}

func TestUpdateCronOwnership(t *testing.T) {
	svc, _ := newTestService(t)

	c, err := svc.Create(context.Background(), 7, validInput())
	require.NoError(t, err)

	radius := 30.0
	_, err = svc.Update(context.Background(), asOther(), c.CronID, Patch{DrivingRadius: &radius})
	var be errutil.BaseError
	require.ErrorAs(t, err, &be)
	require.Equal(t, errutil.StatusForbidden, be.Code)

	// Admins may update anyone's cron.
	_, err = svc.Update(context.Background(), asAdmin(), c.CronID, Patch{DrivingRadius: &radius})
	require.NoError(t, err)
}

func TestUpdateCronStatusValidation(t *testing.T) {
	svc, _ := newTestService(t)

	c, err := svc.Create(context.Background(), 7, validInput())
	require.NoError(t, err)

	bad := Status("paused")
	_, err = svc.Update(context.Background(), asOwner(), c.CronID, Patch{Status: &bad})
	require.Error(t, err)

	good := StatusInactive
	updated, err := svc.Update(context.Background(), asOwner(), c.CronID, Patch{Status: &good})
	require.NoError(t, err)
	require.Equal(t, StatusInactive, updated.Status)
}

func TestSoftDeleteHidesCron(t *testing.T) {
	svc, db := newTestService(t)

	c, err := svc.Create(context.Background(), 7, validInput())
	require.NoError(t, err)

	require.NoError(t, svc.SoftDelete(context.Background(), asOwner(), c.CronID))

	_, err = svc.Get(context.Background(), asOwner(), c.CronID)
	var be errutil.BaseError
	require.ErrorAs(t, err, &be)
	require.Equal(t, errutil.StatusNotFound, be.Code)

	list, err := svc.List(context.Background(), asAdmin())
	require.NoError(t, err)
	require.Empty(t, list)

	_, err = svc.LoadForRun(context.Background(), c.CronID)
	require.Error(t, err)

	// Row survives the delete.
	var stored Cron
	require.NoError(t, db.Where("cron_id = ?", c.CronID).First(&stored).Error)
	require.True(t, stored.Deleted)
}

func TestListScopedToOwner(t *testing.T) {
	svc, db := newTestService(t)

	require.NoError(t, db.Create(&user.User{UserID: 7, Name: "Dana", Email: "dana@example.com", IsActive: true}).Error)

	_, err := svc.Create(context.Background(), 7, validInput())
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), 8, validInput())
	require.NoError(t, err)

	own, err := svc.List(context.Background(), asOwner())
	require.NoError(t, err)
	require.Len(t, own, 1)
	require.Equal(t, "Dana", own[0].OwnerName)

	all, err := svc.List(context.Background(), asAdmin())
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestActiveCrons(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	now := time.Now()

	current, err := svc.Create(ctx, 7, validInput())
	require.NoError(t, err)

	expired := validInput()
	expired.CronStartAt = now.Add(-48 * time.Hour)
	expired.CronEndAt = now.Add(-24 * time.Hour)
	_, err = svc.Create(ctx, 7, expired)
	require.NoError(t, err)

	paused, err := svc.Create(ctx, 7, validInput())
	require.NoError(t, err)
	inactive := StatusInactive
	_, err = svc.Update(ctx, asOwner(), paused.CronID, Patch{Status: &inactive})
	require.NoError(t, err)

	deleted, err := svc.Create(ctx, 7, validInput())
	require.NoError(t, err)
	require.NoError(t, svc.SoftDelete(ctx, asOwner(), deleted.CronID))

	active, err := svc.ActiveCrons(ctx, now)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, current.CronID, active[0].CronID)
}

func TestApplyRunResultMergesAndDedups(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, 7, validInput())
	require.NoError(t, err)

	updated, err := svc.ApplyRunResult(ctx, c.CronID, []string{"wo-1", "wo-2"})
	require.NoError(t, err)
	require.Equal(t, int64(2), updated.TotalRequested)

	// Overlapping batch: only the new id lands, invariant holds.
	updated, err = svc.ApplyRunResult(ctx, c.CronID, []string{"wo-2", "wo-3", "wo-3"})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"wo-1", "wo-2", "wo-3"}, []string(updated.RequestedWoIDs))
	require.Equal(t, int64(3), updated.TotalRequested)
	require.Equal(t, int64(len(updated.RequestedWoIDs)), updated.TotalRequested)
}

func TestApplyRunResultEmptyBatch(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, 7, validInput())
	require.NoError(t, err)

	updated, err := svc.ApplyRunResult(ctx, c.CronID, nil)
	require.NoError(t, err)
	require.Zero(t, updated.TotalRequested)
}
