package domain

import "time"

// User is the domain model for a registered user.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserCreateData carries the fields required to create a user.
type UserCreateData struct {
	Email string
	Name  string
}

// UserUpdateData is a partial update; nil fields are left untouched.
type UserUpdateData struct {
	Email *string
	Name  *string
}

// Empty reports whether no fields were supplied.
func (d UserUpdateData) Empty() bool {
	return d.Email == nil && d.Name == nil
}
