package cron

import (
	"time"

	"gorm.io/datatypes"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Cron is a user-owned recurring auto-request definition: a geographic,
// temporal and type filter over marketplace work orders, plus the mutable
// run state the dispatcher maintains.
type Cron struct {
	CronID        int64   `gorm:"column:cron_id;primaryKey" json:"cronId"`
	UserID        int64   `gorm:"column:user_id;index;not null" json:"userId"`
	CenterZip     string  `gorm:"column:center_zip;type:varchar(16);not null" json:"centerZip"`
	DrivingRadius float64 `gorm:"column:driving_radius;not null" json:"drivingRadius"`

	CronStartAt          time.Time `gorm:"column:cron_start_at;not null" json:"cronStartAt"`
	CronEndAt            time.Time `gorm:"column:cron_end_at;not null" json:"cronEndAt"`
	WorkingWindowStartAt string    `gorm:"column:working_window_start_at;type:varchar(5);not null" json:"workingWindowStartAt"`
	WorkingWindowEndAt   string    `gorm:"column:working_window_end_at;type:varchar(5);not null" json:"workingWindowEndAt"`

	TypesOfWorkOrder datatypes.JSONSlice[int64] `gorm:"column:types_of_work_order" json:"typesOfWorkOrder"`

	// Run state. RequestedWoIDs only ever grows; TotalRequested tracks its
	// cardinality exactly.
	RequestedWoIDs datatypes.JSONSlice[string] `gorm:"column:requested_wo_ids" json:"requestedWoIds"`
	TotalRequested int64                       `gorm:"column:total_requested;default:0" json:"totalRequested"`

	Status    Status    `gorm:"column:status;type:varchar(20);default:'active'" json:"status"`
	Deleted   bool      `gorm:"column:deleted;default:false;index" json:"deleted"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Cron) TableName() string { return "crons" }

// HasRequested reports whether the work order id is already in the
// requested set.
func (c *Cron) HasRequested(woID string) bool {
	for _, id := range c.RequestedWoIDs {
		if id == woID {
			return true
		}
	}
	return false
}

// Patch is a partial update. Only non-nil fields overwrite existing
// values; absent fields are untouched, not nulled.
type Patch struct {
	CenterZip            *string    `json:"centerZip"`
	DrivingRadius        *float64   `json:"drivingRadius"`
	CronStartAt          *time.Time `json:"cronStartAt"`
	CronEndAt            *time.Time `json:"cronEndAt"`
	WorkingWindowStartAt *string    `json:"workingWindowStartAt"`
	WorkingWindowEndAt   *string    `json:"workingWindowEndAt"`
	TypesOfWorkOrder     *[]int64   `json:"typesOfWorkOrder"`
	RequestedWoIDs       *[]string  `json:"requestedWoIds"`
	Status               *Status    `json:"status"`
	Deleted              *bool      `json:"deleted"`
}

// Detail is a cron joined with its owner's display name for the admin
// listing.
type Detail struct {
	Cron
	OwnerName string `gorm:"column:owner_name" json:"name"`
}
