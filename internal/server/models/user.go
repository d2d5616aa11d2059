package models

import "time"

// User is a stored account. RefreshTokens is the set of refresh tokens
// issued to this user that have not been rotated out or revoked; its order
// carries no meaning.
type User struct {
	ID            string
	Username      string
	Email         string
	PasswordHash  []byte
	RefreshTokens []string
	DisplayName   string
	Bio           string
	Location      string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Profile is what other users are allowed to see.
type Profile struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName,omitempty"`
	Bio         string    `json:"bio,omitempty"`
	Location    string    `json:"location,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (u *User) Profile() Profile {
	return Profile{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Bio:         u.Bio,
		Location:    u.Location,
		CreatedAt:   u.CreatedAt,
	}
}

// HasRefreshToken reports exact membership of token in the set.
func (u *User) HasRefreshToken(token string) bool {
	for _, t := range u.RefreshTokens {
		if t == token {
			return true
		}
	}
	return false
}
