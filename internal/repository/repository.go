// Package repository persists user documents.  The UserStore interface
// is what the service layer depends on; the Mongo-backed implementation
// lives in user_repository.go.  Sentinel errors let handlers map
// failures to HTTP statuses without inspecting driver errors.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ShoaibFarooka/MERN-Boilerplate/internal/model"
)

var (
	// ErrNotFound is returned when no user matches the query.
	ErrNotFound = errors.New("user not found")
	// ErrEmailExists signals a unique-index violation on email.
	ErrEmailExists = errors.New("email already registered")
	// ErrNumberExists signals a unique-index violation on number.
	ErrNumberExists = errors.New("number already registered")
	// ErrTokenMismatch is returned by RotateRefreshToken when the stored
	// refresh token no longer equals the presented one.  This is how a
	// replayed (already rotated) token is detected.
	ErrTokenMismatch = errors.New("refresh token mismatch")
)

// ProfileUpdate carries the optional profile fields of a partial
// update.  Nil pointers leave the stored value untouched.
type ProfileUpdate struct {
	Name        *string
	Email       *string
	Number      *string
	DateOfBirth *string
	Address     *string
	City        *string
	Zip         *string
}

// SearchParams narrows and pages an administrative user listing.
type SearchParams struct {
	Page  int64
	Limit int64
	Query string // case-insensitive match against name, email or number
	Role  string // optional exact role filter
}

// UserStore describes the persistence operations the service needs.
// Ids are document ids in hex form; an unparseable id behaves like a
// missing document.
type UserStore interface {
	// Create inserts a new user and returns its id.  Possible errors:
	// ErrEmailExists, ErrNumberExists.
	Create(ctx context.Context, u *model.User) (string, error)

	// ByID, ByEmail and ByNumber return ErrNotFound when absent.
	ByID(ctx context.Context, id string) (*model.User, error)
	ByEmail(ctx context.Context, email string) (*model.User, error)
	ByNumber(ctx context.Context, number string) (*model.User, error)

	// RotateRefreshToken atomically replaces the stored refresh token
	// with newToken, but only when the stored value still byte-equals
	// oldToken.  Exactly one of two concurrent rotations with the same
	// old token can succeed; the loser gets ErrTokenMismatch.
	RotateRefreshToken(ctx context.Context, id, oldToken, newToken string) error

	// SetRefreshToken overwrites the stored refresh token (login).
	SetRefreshToken(ctx context.Context, id, tok string) error

	// ClearRefreshToken nulls the stored refresh token (logout /
	// revocation).  Idempotent: clearing an already-null token is fine.
	ClearRefreshToken(ctx context.Context, id string) error

	// SetResetToken stores the reset token pair on the user.
	SetResetToken(ctx context.Context, id, tok string, expiry time.Time) error

	// ByValidResetToken finds the user holding tok with an expiry after
	// now, or ErrNotFound.
	ByValidResetToken(ctx context.Context, tok string, now time.Time) (*model.User, error)

	// UpdatePassword stores a new password digest; when clearReset is
	// set, the reset token pair is nulled in the same write.
	UpdatePassword(ctx context.Context, id, digest string, clearReset bool) error

	// UpdateProfile applies a partial profile update.
	UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) error

	// Search pages users matching p and returns the total match count.
	Search(ctx context.Context, p SearchParams) ([]model.User, int64, error)

	// Delete removes the user document.  ErrNotFound when absent.
	Delete(ctx context.Context, id string) error
}
