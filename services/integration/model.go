package integration

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusConnected    Status = "Connected"
	StatusNotConnected Status = "Not Connected"
)

// Integration is the per-user linkage to a Field Nation account. Tokens
// are stored AES-encrypted; the refresh token is the durable credential,
// the access token is short-lived and replaced via refresh.
type Integration struct {
	ID              int64      `gorm:"column:id;primaryKey" json:"-"`
	UserID          int64      `gorm:"column:user_id;uniqueIndex;not null" json:"userId"`
	FnUserID        int64      `gorm:"column:fn_user_id" json:"fnUserId"`
	FnUserName      string     `gorm:"column:fn_user_name;type:varchar(255)" json:"fnUserName"`
	AccessToken     string     `gorm:"column:access_token;type:text" json:"-"`
	RefreshToken    string     `gorm:"column:refresh_token;type:text" json:"-"`
	Status          Status     `gorm:"column:status;type:varchar(20);default:'Not Connected'" json:"integrationStatus"`
	LastConnectedAt *time.Time `gorm:"column:last_connected_at" json:"lastConnectedAt"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Integration) TableName() string { return "integrations" }

// LastConnectedAgo renders how long ago the refresh token was issued,
// matching the "{n} days ago" string the UI shows.
func (i *Integration) LastConnectedAgo(now time.Time) string {
	if i.LastConnectedAt == nil {
		return ""
	}
	days := int(now.Sub(*i.LastConnectedAt).Hours() / 24)
	if days == 1 {
		return "1 day ago"
	}
	return fmt.Sprintf("%d days ago", days)
}
