// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a dashboard user linked to a GitHub identity.
//
// We use GitHub OAuth as the identity provider, so the natural key is the
// GitHub user ID. We still generate our own internal string ID (xid) to avoid
// tying our primary keys to a third-party's numbering scheme.
//
// WHY GitHubID string?
// The store treats the provider ID as an opaque external key. GitHub hands us
// an integer; we render it in decimal once, at the exchange boundary, so every
// backend compares the same text value under its UNIQUE constraint.
//
// WHY Email *string?
// GitHub returns null for users who hide their email. A nil pointer keeps
// "hidden" distinguishable from "empty" and maps directly to a NULL column.
//
// AccessToken is a bearer credential. It is tagged json:"-" so a User can
// never leak it through an API response by accident.
type User struct {
	ID          string    `json:"id"        db:"id"`
	GitHubID    string    `json:"githubId"  db:"github_id"`
	Username    string    `json:"username"  db:"username"`
	Email       *string   `json:"email"     db:"email"`
	AvatarURL   string    `json:"avatarUrl" db:"avatar_url"`
	AccessToken string    `json:"-"         db:"access_token"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}
