package service

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ShoaibFarooka/MERN-Boilerplate/internal/apperr"
	"github.com/ShoaibFarooka/MERN-Boilerplate/internal/email"
	"github.com/ShoaibFarooka/MERN-Boilerplate/internal/model"
	"github.com/ShoaibFarooka/MERN-Boilerplate/internal/queue"
	"github.com/ShoaibFarooka/MERN-Boilerplate/internal/repository"
	"github.com/ShoaibFarooka/MERN-Boilerplate/internal/token"
)

type fixture struct {
	svc    *UserService
	store  *repository.MemoryStore
	mail   *email.Mock
	tokens *token.Manager
	events []queue.UserRegisteredEvent
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:  repository.NewMemoryStore(),
		mail:   &email.Mock{},
		tokens: token.NewManager("access-secret", "refresh-secret", 15*time.Minute, 7*24*time.Hour),
	}
	publish := func(_ context.Context, ev queue.UserRegisteredEvent) error {
		f.events = append(f.events, ev)
		return nil
	}
	f.svc = NewUserService(f.store, f.tokens, f.mail, publish, bcrypt.MinCost, "https://app.example.com")
	return f
}

func registerInput(email, number string) RegisterInput {
	return RegisterInput{
		Name:        "Jane Doe",
		Email:       email,
		Number:      number,
		DateOfBirth: "1990-04-12",
		Address:     "1 Main St",
		City:        "Springfield",
		Zip:         "12345",
		Password:    "supersecret",
	}
}

func assertStatus(t *testing.T, err error, status int, message string) {
	t.Helper()
	e := apperr.From(err)
	require.NotNil(t, e, "expected a coded error, got %v", err)
	assert.Equal(t, status, e.Status)
	assert.Equal(t, message, e.Message)
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.svc.Register(ctx, registerInput("jane@example.com", "111"), model.RoleUser)
	require.NoError(t, err)

	u, err := f.store.ByEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, u.Role)
	require.NotNil(t, u.DateOfBirth)
	assert.Equal(t, "1990-04-12", *u.DateOfBirth)
	assert.NotEqual(t, "supersecret", u.Password, "password must be stored hashed")

	require.Len(t, f.events, 1)
	assert.Equal(t, "jane@example.com", f.events[0].Email)
}

func TestRegisterCompanyDropsDateOfBirth(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Register(ctx, registerInput("acme@example.com", "222"), model.RoleCompany))

	u, err := f.store.ByEmail(ctx, "acme@example.com")
	require.NoError(t, err)
	assert.Nil(t, u.DateOfBirth)
}

func TestRegisterRejectsAdminRole(t *testing.T) {
	f := newFixture(t)

	err := f.svc.Register(context.Background(), registerInput("root@example.com", "333"), model.RoleAdmin)
	assertStatus(t, err, http.StatusBadRequest, "Invalid user type")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Register(ctx, registerInput("jane@example.com", "111"), model.RoleUser))

	err := f.svc.Register(ctx, registerInput("jane@example.com", "999"), model.RoleUser)
	assertStatus(t, err, http.StatusConflict, "A user with that email has already been registered!")
}

func TestRegisterDuplicateNumber(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Register(ctx, registerInput("jane@example.com", "111"), model.RoleUser))

	err := f.svc.Register(ctx, registerInput("other@example.com", "111"), model.RoleUser)
	assertStatus(t, err, http.StatusConflict, "A user with that number has already been registered!")
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Register(ctx, registerInput("jane@example.com", "111"), model.RoleUser))

	access, refresh, err := f.svc.Login(ctx, "jane@example.com", "supersecret")
	require.NoError(t, err)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)

	claims, err := f.tokens.VerifyAccess(access)
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", claims.Email)

	// The refresh token is stored verbatim on the user record.
	u, err := f.store.ByEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	require.NotNil(t, u.RefreshToken)
	assert.Equal(t, refresh, *u.RefreshToken)
}

func TestLoginUnknownEmail(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.svc.Login(context.Background(), "nobody@example.com", "whatever")
	assertStatus(t, err, http.StatusNotFound, "User not found!")
}

func TestLoginWrongPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Register(ctx, registerInput("jane@example.com", "111"), model.RoleUser))

	_, _, err := f.svc.Login(ctx, "jane@example.com", "wrong-password")
	assertStatus(t, err, http.StatusBadRequest, "Invalid credentials!")
}

func TestLoginInvalidatesPreviousRefreshToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Register(ctx, registerInput("jane@example.com", "111"), model.RoleUser))

	_, first, err := f.svc.Login(ctx, "jane@example.com", "supersecret")
	require.NoError(t, err)
	_, second, err := f.svc.Login(ctx, "jane@example.com", "supersecret")
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	_, _, err = f.svc.Rotate(ctx, first)
	assertStatus(t, err, http.StatusUnauthorized, "Invalid refresh token!")

	_, _, err = f.svc.Rotate(ctx, second)
	assert.NoError(t, err)
}

func TestRotate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Register(ctx, registerInput("jane@example.com", "111"), model.RoleUser))
	_, refresh, err := f.svc.Login(ctx, "jane@example.com", "supersecret")
	require.NoError(t, err)

	access2, refresh2, err := f.svc.Rotate(ctx, refresh)
	require.NoError(t, err)
	require.NotEmpty(t, access2)
	require.NotEmpty(t, refresh2)

	u, err := f.store.ByEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	require.NotNil(t, u.RefreshToken)
	assert.Equal(t, refresh2, *u.RefreshToken)

	// The replaced token is dead even though its signature still verifies.
	_, _, err = f.svc.Rotate(ctx, refresh)
	assertStatus(t, err, http.StatusUnauthorized, "Invalid refresh token!")
}

func TestRotateEmptyToken(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.svc.Rotate(context.Background(), "")
	assertStatus(t, err, http.StatusUnauthorized, "Refresh token not found!")
}

func TestRotateUnsignedToken(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.svc.Rotate(context.Background(), "not-a-jwt")
	assertStatus(t, err, http.StatusUnauthorized, "Invalid refresh token!")
}

func TestRotateConcurrentSingleWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Register(ctx, registerInput("jane@example.com", "111"), model.RoleUser))
	_, refresh, err := f.svc.Login(ctx, "jane@example.com", "supersecret")
	require.NoError(t, err)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = f.svc.Rotate(ctx, refresh)
		}(i)
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		if err == nil {
			won++
			continue
		}
		assertStatus(t, err, http.StatusUnauthorized, "Invalid refresh token!")
	}
	assert.Equal(t, 1, won, "exactly one concurrent rotation may succeed")
}

func TestRevoke(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Register(ctx, registerInput("jane@example.com", "111"), model.RoleUser))
	_, refresh, err := f.svc.Login(ctx, "jane@example.com", "supersecret")
	require.NoError(t, err)

	f.svc.Revoke(ctx, refresh)

	u, err := f.store.ByEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Nil(t, u.RefreshToken)

	_, _, err = f.svc.Rotate(ctx, refresh)
	assertStatus(t, err, http.StatusUnauthorized, "Invalid refresh token!")

	// Revoking again, or with garbage, is a no-op.
	f.svc.Revoke(ctx, refresh)
	f.svc.Revoke(ctx, "garbage")
	f.svc.Revoke(ctx, "")
}

func TestForgotPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Register(ctx, registerInput("jane@example.com", "111"), model.RoleUser))

	require.NoError(t, f.svc.ForgotPassword(ctx, "jane@example.com", "https://front.example.com"))

	u, err := f.store.ByEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	require.NotNil(t, u.ResetToken)
	require.NotNil(t, u.ResetTokenExpiry)
	assert.WithinDuration(t, time.Now().UTC().Add(time.Hour), *u.ResetTokenExpiry, time.Minute)

	require.Equal(t, 1, f.mail.Count())
	msg := f.mail.Sent[0]
	assert.Equal(t, "jane@example.com", msg.To)
	assert.Contains(t, msg.HTML, "https://front.example.com/reset-password?token="+*u.ResetToken)
}

func TestForgotPasswordFallsBackToClientURL(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Register(ctx, registerInput("jane@example.com", "111"), model.RoleUser))

	require.NoError(t, f.svc.ForgotPassword(ctx, "jane@example.com", ""))

	require.Equal(t, 1, f.mail.Count())
	assert.Contains(t, f.mail.Sent[0].HTML, "https://app.example.com/reset-password?token=")
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	f := newFixture(t)

	err := f.svc.ForgotPassword(context.Background(), "nobody@example.com", "")
	assertStatus(t, err, http.StatusNotFound, "User not found!")
	assert.Equal(t, 0, f.mail.Count())
}

func TestForgotPasswordMailFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Register(ctx, registerInput("jane@example.com", "111"), model.RoleUser))
	f.mail.Err = assert.AnError

	err := f.svc.ForgotPassword(ctx, "jane@example.com", "")
	assertStatus(t, err, http.StatusInternalServerError, "Unable to send email!")
}

func TestResetPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Register(ctx, registerInput("jane@example.com", "111"), model.RoleUser))
	require.NoError(t, f.svc.ForgotPassword(ctx, "jane@example.com", ""))

	u, err := f.store.ByEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	tok := *u.ResetToken

	require.NoError(t, f.svc.ResetPassword(ctx, tok, "brand-new-pass"))

	_, _, err = f.svc.Login(ctx, "jane@example.com", "brand-new-pass")
	assert.NoError(t, err)
	_, _, err = f.svc.Login(ctx, "jane@example.com", "supersecret")
	assertStatus(t, err, http.StatusBadRequest, "Invalid credentials!")

	// Single use: the consumed token is gone.
	err = f.svc.ResetPassword(ctx, tok, "another-pass")
	assertStatus(t, err, http.StatusBadRequest, "Invalid or expired token!")
}

func TestResetPasswordExpiredToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Register(ctx, registerInput("jane@example.com", "111"), model.RoleUser))

	u, err := f.store.ByEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	require.NoError(t, f.store.SetResetToken(ctx, u.ID.Hex(), "stale-token", time.Now().UTC().Add(-time.Minute)))

	err = f.svc.ResetPassword(ctx, "stale-token", "new-pass")
	assertStatus(t, err, http.StatusBadRequest, "Invalid or expired token!")
}

func TestFetchUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Register(ctx, registerInput("jane@example.com", "111"), model.RoleUser))
	u, err := f.store.ByEmail(ctx, "jane@example.com")
	require.NoError(t, err)

	p, err := f.svc.FetchUser(ctx, u.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", p.Name)
	assert.Equal(t, "jane@example.com", p.Email)
	assert.Equal(t, model.RoleUser, p.Role)

	_, err = f.svc.FetchUser(ctx, "missing-id")
	assertStatus(t, err, http.StatusNotFound, "User not found!")
}

func TestUpdateUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Register(ctx, registerInput("jane@example.com", "111"), model.RoleUser))
	u, err := f.store.ByEmail(ctx, "jane@example.com")
	require.NoError(t, err)

	city := "Shelbyville"
	require.NoError(t, f.svc.UpdateUser(ctx, u.ID.Hex(), repository.ProfileUpdate{City: &city}))

	p, err := f.svc.FetchUser(ctx, u.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "Shelbyville", p.City)
	assert.Equal(t, "Jane Doe", p.Name, "untouched fields keep their value")
}

func TestUpdateUserEmailConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Register(ctx, registerInput("jane@example.com", "111"), model.RoleUser))
	require.NoError(t, f.svc.Register(ctx, registerInput("bob@example.com", "222"), model.RoleUser))
	u, err := f.store.ByEmail(ctx, "jane@example.com")
	require.NoError(t, err)

	taken := "bob@example.com"
	err = f.svc.UpdateUser(ctx, u.ID.Hex(), repository.ProfileUpdate{Email: &taken})
	assertStatus(t, err, http.StatusConflict, "A user with that email has already been registered!")

	// Re-submitting your own email is not a conflict.
	own := "jane@example.com"
	assert.NoError(t, f.svc.UpdateUser(ctx, u.ID.Hex(), repository.ProfileUpdate{Email: &own}))
}

func TestChangeUserPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Register(ctx, registerInput("jane@example.com", "111"), model.RoleUser))
	u, err := f.store.ByEmail(ctx, "jane@example.com")
	require.NoError(t, err)

	err = f.svc.ChangeUserPassword(ctx, u.ID.Hex(), "wrong-old", "new-password")
	assertStatus(t, err, http.StatusBadRequest, "Invalid old password!")

	require.NoError(t, f.svc.ChangeUserPassword(ctx, u.ID.Hex(), "supersecret", "new-password"))
	_, _, err = f.svc.Login(ctx, "jane@example.com", "new-password")
	assert.NoError(t, err)
}

func TestSearchUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Register(ctx, registerInput("jane@example.com", "111"), model.RoleUser))
	require.NoError(t, f.svc.Register(ctx, registerInput("acme@example.com", "222"), model.RoleCompany))

	res, err := f.svc.SearchUsers(ctx, repository.SearchParams{Page: 1, Limit: 10, Role: model.RoleCompany})
	require.NoError(t, err)
	require.Len(t, res.Users, 1)
	assert.Equal(t, "acme@example.com", res.Users[0].Email)
	assert.Equal(t, int64(1), res.TotalCount)
	assert.Equal(t, int64(1), res.TotalPages)

	_, err = f.svc.SearchUsers(ctx, repository.SearchParams{Page: 1, Limit: 10, Query: "zebra"})
	assertStatus(t, err, http.StatusNotFound, "Users not found!")
}

func TestDeleteUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Register(ctx, registerInput("jane@example.com", "111"), model.RoleUser))
	u, err := f.store.ByEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	id := u.ID.Hex()

	err = f.svc.DeleteUser(ctx, id, model.RoleCompany)
	assertStatus(t, err, http.StatusForbidden, "Cannot delete other type of user via this endpoint!")

	require.NoError(t, f.svc.DeleteUser(ctx, id, model.RoleUser))
	err = f.svc.DeleteUser(ctx, id, "")
	assertStatus(t, err, http.StatusNotFound, "User not found!")
}

func TestEmailStoredLowercased(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := registerInput("Jane@Example.COM", "111")
	require.NoError(t, f.svc.Register(ctx, in, model.RoleUser))

	u, err := f.store.ByEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, strings.ToLower("Jane@Example.COM"), u.Email)
}
