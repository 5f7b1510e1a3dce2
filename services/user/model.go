package user

import "time"

type User struct {
	UserID    int64     `gorm:"column:user_id;primaryKey" json:"userId"`
	Name      string    `gorm:"column:name;type:varchar(100);not null" json:"name"`
	Email     string    `gorm:"column:email;uniqueIndex;type:varchar(255);not null" json:"email"`
	Password  string    `gorm:"column:password;type:varchar(255);not null" json:"-"`
	IsAdmin   bool      `gorm:"column:is_admin;default:false" json:"isAdmin"`
	IsActive  bool      `gorm:"column:is_active;default:false" json:"isActive"`
	Blocked   bool      `gorm:"column:blocked;default:false" json:"blocked"`
	// At most one account carries this flag; it marks whose Field Nation
	// service-company credentials represent the company.
	IsFnServiceCompanyAdmin bool `gorm:"column:is_fn_service_company_admin;default:false" json:"isFnServiceCompanyAdmin"`
	Deleted   bool      `gorm:"column:deleted;default:false;index" json:"deleted"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (User) TableName() string { return "users" }

// Patch carries an admin partial update. Only non-nil fields are applied.
type Patch struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	IsActive *bool   `json:"isActive"`
	Blocked  *bool   `json:"blocked"`
}
