package model

import (
	"time"
)

type User struct {
	ID           string `db:"id" json:"id"`
	Username     string `db:"username" json:"username"`
	Email        string `db:"email" json:"email"`
	PasswordHash string `db:"password_hash" json:"-"`
	Country      string `db:"country" json:"country"`
	IsVerified   bool   `db:"is_verified" json:"isVerified"`

	// Cooldown stamps for the resend endpoints. Nil until the first send.
	LastVerificationEmailSent *time.Time `db:"last_verification_email_sent" json:"-"`
	LastResetEmailSent        *time.Time `db:"last_reset_email_sent" json:"-"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"-"`
}
