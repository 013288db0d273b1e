// Package model defines the data structures used throughout the application.
package model

import "time"

// User is the local directory row for an identity issued by the external
// identity provider.
//
// ExternalID is the provider's stable user id (e.g. "user_2abc..."). It is
// UNIQUE in the store: exactly one row per identity. Username and Email are
// UNIQUE as well.
//
// LastProblemNumber is the per-owner counter that problem numbers are drawn
// from. It only ever moves forward, in the same transaction as the Solution
// insert that consumes it.
type User struct {
	ID                int64     `json:"id"`
	ExternalID        string    `json:"externalId"`
	FirstName         string    `json:"firstName"`
	LastName          string    `json:"lastName"`
	Username          string    `json:"username"`
	Email             string    `json:"email"`
	ProfileImage      *string   `json:"profileImage"`
	LastProblemNumber int       `json:"-"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}
