package domain

import "time"

type User struct {
	ID           string
	Name         string
	Email        string // stored lowercased, unique
	PasswordHash string // argon2id encoded
	AvatarURL    string
	Bio          string
	Batch        string
	Department   string

	// Password reset state; both empty unless a reset is pending.
	ResetTokenHash string
	ResetExpiresAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
