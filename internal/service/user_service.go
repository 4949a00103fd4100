// Package service implements the user and authentication business
// logic.  Handlers translate HTTP to these calls; failures are
// status-coded apperr values that a single boundary handler turns into
// JSON responses.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ShoaibFarooka/MERN-Boilerplate/internal/apperr"
	"github.com/ShoaibFarooka/MERN-Boilerplate/internal/email"
	"github.com/ShoaibFarooka/MERN-Boilerplate/internal/model"
	"github.com/ShoaibFarooka/MERN-Boilerplate/internal/queue"
	"github.com/ShoaibFarooka/MERN-Boilerplate/internal/repository"
	"github.com/ShoaibFarooka/MERN-Boilerplate/internal/token"
	"github.com/ShoaibFarooka/MERN-Boilerplate/internal/utils"
)

const resetTokenTTL = time.Hour

// Publisher pushes a registration event to the broker.  Injected so
// tests can observe or drop events.
type Publisher func(ctx context.Context, ev queue.UserRegisteredEvent) error

// UserService owns registration, login, the refresh-token lifecycle,
// password reset and profile CRUD.
type UserService struct {
	store      repository.UserStore
	tokens     *token.Manager
	mail       email.Sender
	publish    Publisher
	bcryptCost int
	clientURL  string
}

// NewUserService wires the service.  publish may be nil when no broker
// is configured; registration then skips the event.
func NewUserService(store repository.UserStore, tokens *token.Manager, mail email.Sender, publish Publisher, bcryptCost int, clientURL string) *UserService {
	return &UserService{
		store:      store,
		tokens:     tokens,
		mail:       mail,
		publish:    publish,
		bcryptCost: bcryptCost,
		clientURL:  clientURL,
	}
}

// RegisterInput carries the validated registration payload.
type RegisterInput struct {
	Name        string
	Email       string
	Number      string
	DateOfBirth string
	Address     string
	City        string
	Zip         string
	Password    string
}

// Register creates a user with the given role (user or company; admin
// accounts cannot be self-registered).  Email and number must both be
// unused.  Date of birth is only kept for ordinary users.
func (s *UserService) Register(ctx context.Context, in RegisterInput, role string) error {
	if role != model.RoleUser && role != model.RoleCompany {
		return apperr.BadRequest("Invalid user type")
	}

	if _, err := s.store.ByEmail(ctx, in.Email); err == nil {
		return apperr.Conflict("A user with that email has already been registered!")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	if _, err := s.store.ByNumber(ctx, in.Number); err == nil {
		return apperr.Conflict("A user with that number has already been registered!")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	digest, err := utils.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return err
	}

	u := &model.User{
		Name:     in.Name,
		Email:    in.Email,
		Number:   in.Number,
		Address:  in.Address,
		City:     in.City,
		Zip:      in.Zip,
		Password: digest,
		Role:     role,
	}
	if role == model.RoleUser && in.DateOfBirth != "" {
		dob := in.DateOfBirth
		u.DateOfBirth = &dob
	}

	id, err := s.store.Create(ctx, u)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			return apperr.Conflict("A user with that email has already been registered!")
		case errors.Is(err, repository.ErrNumberExists):
			return apperr.Conflict("A user with that number has already been registered!")
		}
		return err
	}

	if s.publish != nil {
		ev := queue.UserRegisteredEvent{
			UserID:       id,
			Name:         u.Name,
			Email:        u.Email,
			Role:         u.Role,
			RegisteredAt: time.Now().UTC().Format(time.RFC3339),
		}
		// Best effort: a broker outage must not fail registration.
		if err := s.publish(ctx, ev); err != nil {
			slog.Warn("user.registered publish failed", "user_id", id, "err", err)
		}
	}
	return nil
}

// Login verifies credentials and issues a fresh access/refresh pair.
// The refresh token is persisted verbatim on the user record,
// invalidating whatever token was stored before.
func (s *UserService) Login(ctx context.Context, emailAddr, password string) (access, refresh string, err error) {
	u, err := s.store.ByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", "", apperr.NotFound("User not found!")
		}
		return "", "", err
	}
	if !utils.VerifyPassword(u.Password, password) {
		return "", "", apperr.BadRequest("Invalid credentials!")
	}

	id := u.ID.Hex()
	if access, err = s.tokens.IssueAccess(id, u.Email, u.Role); err != nil {
		return "", "", err
	}
	if refresh, err = s.tokens.IssueRefresh(id, u.Email, u.Role); err != nil {
		return "", "", err
	}
	if err = s.store.SetRefreshToken(ctx, id, refresh); err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// Rotate exchanges a refresh token for a new access/refresh pair.  The
// old token must verify cryptographically AND byte-equal the value
// stored on the user record; the swap itself is a compare-and-swap, so
// of two concurrent rotations with the same old token at most one
// succeeds and the loser fails with Unauthorized.
func (s *UserService) Rotate(ctx context.Context, oldToken string) (access, refresh string, err error) {
	if oldToken == "" {
		return "", "", apperr.Unauthorized("Refresh token not found!")
	}
	claims, err := s.tokens.VerifyRefresh(oldToken)
	if err != nil {
		return "", "", apperr.Unauthorized("Invalid refresh token!")
	}

	if access, err = s.tokens.IssueAccess(claims.UserID, claims.Email, claims.Role); err != nil {
		return "", "", err
	}
	if refresh, err = s.tokens.IssueRefresh(claims.UserID, claims.Email, claims.Role); err != nil {
		return "", "", err
	}

	if err = s.store.RotateRefreshToken(ctx, claims.UserID, oldToken, refresh); err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrTokenMismatch) {
			return "", "", apperr.Unauthorized("Invalid refresh token!")
		}
		return "", "", err
	}
	return access, refresh, nil
}

// Revoke nulls the stored refresh token for the token's owner.  It is
// deliberately forgiving: an invalid or already-revoked token is not
// an error, so logout never fails the client.
func (s *UserService) Revoke(ctx context.Context, refreshToken string) {
	if refreshToken == "" {
		return
	}
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return
	}
	if err := s.store.ClearRefreshToken(ctx, claims.UserID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		slog.Warn("clear refresh token failed", "user_id", claims.UserID, "err", err)
	}
}

// ForgotPassword mints a single-use reset token with a one-hour
// expiry, stores it on the user and emails the reset link.  origin is
// the front-end base URL taken from the request; when empty the
// configured client URL is used.
func (s *UserService) ForgotPassword(ctx context.Context, emailAddr, origin string) error {
	u, err := s.store.ByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("User not found!")
		}
		return err
	}

	resetToken, err := utils.RandomHex(32)
	if err != nil {
		return err
	}
	if err := s.store.SetResetToken(ctx, u.ID.Hex(), resetToken, time.Now().UTC().Add(resetTokenTTL)); err != nil {
		return err
	}

	if origin == "" {
		origin = s.clientURL
	}
	link := origin + "/reset-password?token=" + resetToken
	html, err := email.ResetPasswordHTML(u.Name, link)
	if err != nil {
		return err
	}
	if err := s.mail.Send(ctx, u.Email, "Password Reset Request", html); err != nil {
		slog.Error("reset mail delivery failed", "email", u.Email, "err", err)
		return apperr.Internal("Unable to send email!")
	}
	return nil
}

// ResetPassword consumes a reset token: the token must be stored on a
// user and not yet expired.  On success the password is replaced and
// the token pair cleared, so reuse fails.
func (s *UserService) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	u, err := s.store.ByValidResetToken(ctx, resetToken, time.Now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.BadRequest("Invalid or expired token!")
		}
		return err
	}
	digest, err := utils.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	return s.store.UpdatePassword(ctx, u.ID.Hex(), digest, true)
}

// FetchUser returns the sanitized profile for id.
func (s *UserService) FetchUser(ctx context.Context, id string) (model.Profile, error) {
	u, err := s.store.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Profile{}, apperr.NotFound("User not found!")
		}
		return model.Profile{}, err
	}
	return model.PublicProfile(u), nil
}

// UpdateUser applies a partial profile update, re-checking email and
// number uniqueness when they change.
func (s *UserService) UpdateUser(ctx context.Context, id string, upd repository.ProfileUpdate) error {
	u, err := s.store.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("User not found!")
		}
		return err
	}

	if upd.Email != nil && *upd.Email != u.Email {
		if _, err := s.store.ByEmail(ctx, *upd.Email); err == nil {
			return apperr.Conflict("A user with that email has already been registered!")
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
	}
	if upd.Number != nil && *upd.Number != u.Number {
		if _, err := s.store.ByNumber(ctx, *upd.Number); err == nil {
			return apperr.Conflict("A user with that number has already been registered!")
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
	}

	if err := s.store.UpdateProfile(ctx, id, upd); err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			return apperr.Conflict("A user with that email has already been registered!")
		case errors.Is(err, repository.ErrNumberExists):
			return apperr.Conflict("A user with that number has already been registered!")
		case errors.Is(err, repository.ErrNotFound):
			return apperr.NotFound("User not found!")
		}
		return err
	}
	return nil
}

// ChangeUserPassword replaces the password after verifying the old one.
func (s *UserService) ChangeUserPassword(ctx context.Context, id, oldPassword, newPassword string) error {
	u, err := s.store.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("User not found!")
		}
		return err
	}
	if !utils.VerifyPassword(u.Password, oldPassword) {
		return apperr.BadRequest("Invalid old password!")
	}
	digest, err := utils.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	return s.store.UpdatePassword(ctx, id, digest, false)
}

// SearchResult pages an administrative user listing.
type SearchResult struct {
	Users      []model.Profile `json:"users"`
	TotalPages int64           `json:"totalPages"`
	TotalCount int64           `json:"totalCount"`
}

// SearchUsers lists users matching the query for administrators.  An
// empty page is reported as NotFound, matching the API contract.
func (s *UserService) SearchUsers(ctx context.Context, p repository.SearchParams) (SearchResult, error) {
	users, total, err := s.store.Search(ctx, p)
	if err != nil {
		return SearchResult{}, err
	}
	if len(users) == 0 {
		return SearchResult{}, apperr.NotFound("Users not found!")
	}
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}
	res := SearchResult{
		TotalPages: (total + limit - 1) / limit,
		TotalCount: total,
	}
	for i := range users {
		res.Users = append(res.Users, model.PublicProfile(&users[i]))
	}
	return res, nil
}

// DeleteUser removes a user.  When expectRole is non-empty the target
// must hold that role; this keeps the per-type admin endpoints from
// deleting accounts of another type.
func (s *UserService) DeleteUser(ctx context.Context, id, expectRole string) error {
	u, err := s.store.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("User not found!")
		}
		return err
	}
	if expectRole != "" && u.Role != expectRole {
		return apperr.Forbidden("Cannot delete other type of user via this endpoint!")
	}
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("User not found!")
		}
		return err
	}
	return nil
}
