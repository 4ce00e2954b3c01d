package domain

import "time"

// CarbonCopy is an extra address subscribed to a report's notifications (carboncopy table)
type CarbonCopy struct {
	ID         int       `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	StrID      int       `gorm:"column:str_id;uniqueIndex:idx_cc_str_email" json:"str_id"`
	Email      string    `gorm:"column:email;size:255;uniqueIndex:idx_cc_str_email" json:"email"`
	CreateDate time.Time `gorm:"column:create_date" json:"create_date"`
	CreateUser string    `gorm:"column:create_user;size:255" json:"create_user"`
}

func (CarbonCopy) TableName() string {
	return "carboncopy"
}

// CarbonCopyRequest subscribes or unsubscribes an address; empty Email means the actor's own
type CarbonCopyRequest struct {
	Email string `json:"email" form:"email" binding:"omitempty,email"`
}
