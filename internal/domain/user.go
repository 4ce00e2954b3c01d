package domain

import "time"

// Privilege levels. Only the Developer and Admin thresholds carry meaning for the tracker.
const (
	LevelAnonymous = 0
	LevelReporter  = 1
	LevelDeveloper = 5
	LevelAdmin     = 10
)

// User is a site account (users table)
type User struct {
	ID          int       `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"column:name;size:255;uniqueIndex" json:"name"`
	Email       string    `gorm:"column:email;size:255" json:"email"`
	Level       int       `gorm:"column:level" json:"level"`
	Hash        string    `gorm:"column:hash;size:255" json:"-"`
	IsPublished bool      `gorm:"column:is_published" json:"is_published"`
	CreateDate  time.Time `gorm:"column:create_date" json:"create_date"`
	CreateUser  string    `gorm:"column:create_user;size:255" json:"create_user"`
	ModifyDate  time.Time `gorm:"column:modify_date" json:"modify_date"`
	ModifyUser  string    `gorm:"column:modify_user;size:255" json:"modify_user"`
}

func (User) TableName() string {
	return "users"
}

// Actor is the identity performing a tracker operation
type Actor struct {
	Username string
	Email    string
	Level    int
}

// Anonymous is the actor for requests without a session
var Anonymous = Actor{}

// IsLoggedIn reports whether the actor has a session
func (a Actor) IsLoggedIn() bool { return a.Username != "" && a.Level >= LevelReporter }

// IsDeveloper reports whether the actor passes the developer threshold
func (a Actor) IsDeveloper() bool { return a.Level >= LevelDeveloper }

// IsAdmin reports whether the actor passes the admin threshold
func (a Actor) IsAdmin() bool { return a.Level >= LevelAdmin }

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the issued token
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	Username    string `json:"username"`
	Level       int    `json:"level"`
}
