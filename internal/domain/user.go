package domain

import "time"

// User represents a registered chat user.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Avatar       string
	IsOnline     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicUser is the view of a User that may leave the server.
type PublicUser struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Avatar    string    `json:"avatar"`
	IsOnline  bool      `json:"isOnline"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Avatar:    u.Avatar,
		IsOnline:  u.IsOnline,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// ProfileUpdate carries the optional fields of a profile change. Nil fields
// are left untouched.
type ProfileUpdate struct {
	Username *string
	Email    *string
	Avatar   *string
}

func (p ProfileUpdate) Empty() bool {
	return p.Username == nil && p.Email == nil && p.Avatar == nil
}
