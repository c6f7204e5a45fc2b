// Package user provides the user domain model: people findings can be
// assigned to and who receive ingestion notifications.
package user

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/openctemio/scanledger/pkg/domain/shared"
)

// Status represents the user account status.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// IsValid checks if the status is valid.
func (s Status) IsValid() bool {
	return s == StatusActive || s == StatusInactive
}

// User is a person that can own findings and receive notifications.
type User struct {
	id             shared.ID
	email          string
	name           string
	status         Status
	notifyOnIngest bool
	createdAt      time.Time
	updatedAt      time.Time
}

// New creates an active user.
func New(email, name string, notifyOnIngest bool) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidEmail, email)
	}

	now := time.Now().UTC()
	return &User{
		id:             shared.NewID(),
		email:          email,
		name:           strings.TrimSpace(name),
		status:         StatusActive,
		notifyOnIngest: notifyOnIngest,
		createdAt:      now,
		updatedAt:      now,
	}, nil
}

// Reconstitute recreates a User from persistence.
func Reconstitute(id shared.ID, email, name string, status Status, notifyOnIngest bool, createdAt, updatedAt time.Time) *User {
	return &User{
		id:             id,
		email:          email,
		name:           name,
		status:         status,
		notifyOnIngest: notifyOnIngest,
		createdAt:      createdAt,
		updatedAt:      updatedAt,
	}
}

func (u *User) ID() shared.ID        { return u.id }
func (u *User) Email() string        { return u.email }
func (u *User) Name() string         { return u.name }
func (u *User) Status() Status       { return u.status }
func (u *User) NotifyOnIngest() bool { return u.notifyOnIngest }
func (u *User) CreatedAt() time.Time { return u.createdAt }
func (u *User) UpdatedAt() time.Time { return u.updatedAt }

// DisplayName returns the name shown in assignee summaries, falling back to the email.
func (u *User) DisplayName() string {
	if u.name != "" {
		return u.name
	}
	return u.email
}

// IsIngestRecipient reports whether the user should be told about new batches.
func (u *User) IsIngestRecipient() bool {
	return u.status == StatusActive && u.notifyOnIngest
}
