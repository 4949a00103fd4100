package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ShoaibFarooka/MERN-Boilerplate/internal/model"
)

// MemoryStore is an in-memory UserStore with the same semantics as the
// Mongo implementation, including the compare-and-swap rotation.  Used
// by tests and local development without a database.
type MemoryStore struct {
	mu    sync.Mutex
	users map[string]*model.User
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]*model.User)}
}

var _ UserStore = (*MemoryStore)(nil)

func (s *MemoryStore) Create(_ context.Context, u *model.User) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(strings.TrimSpace(u.Email))
	for _, ex := range s.users {
		if ex.Email == email {
			return "", ErrEmailExists
		}
		if ex.Number == u.Number {
			return "", ErrNumberExists
		}
	}
	cp := *u
	cp.ID = primitive.NewObjectID()
	cp.Email = email
	now := time.Now().UTC()
	cp.CreatedAt = now
	cp.UpdatedAt = now
	s.users[cp.ID.Hex()] = &cp
	*u = cp
	return cp.ID.Hex(), nil
}

func (s *MemoryStore) ByID(_ context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) ByEmail(_ context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ByNumber(_ context.Context, number string) (*model.User, error) {
	number = strings.TrimSpace(number)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Number == number {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) RotateRefreshToken(_ context.Context, id, oldToken, newToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	if u.RefreshToken == nil || *u.RefreshToken != oldToken {
		return ErrTokenMismatch
	}
	tok := newToken
	u.RefreshToken = &tok
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) SetRefreshToken(_ context.Context, id, tok string) error {
	return s.update(id, func(u *model.User) {
		t := tok
		u.RefreshToken = &t
	})
}

func (s *MemoryStore) ClearRefreshToken(_ context.Context, id string) error {
	return s.update(id, func(u *model.User) { u.RefreshToken = nil })
}

func (s *MemoryStore) SetResetToken(_ context.Context, id, tok string, expiry time.Time) error {
	return s.update(id, func(u *model.User) {
		t := tok
		e := expiry.UTC()
		u.ResetToken = &t
		u.ResetTokenExpiry = &e
	})
}

func (s *MemoryStore) ByValidResetToken(_ context.Context, tok string, now time.Time) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ResetToken != nil && *u.ResetToken == tok &&
			u.ResetTokenExpiry != nil && u.ResetTokenExpiry.After(now) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) UpdatePassword(_ context.Context, id, digest string, clearReset bool) error {
	return s.update(id, func(u *model.User) {
		u.Password = digest
		if clearReset {
			u.ResetToken = nil
			u.ResetTokenExpiry = nil
		}
	})
}

func (s *MemoryStore) UpdateProfile(_ context.Context, id string, upd ProfileUpdate) error {
	return s.update(id, func(u *model.User) {
		if upd.Name != nil {
			u.Name = *upd.Name
		}
		if upd.Email != nil {
			u.Email = strings.ToLower(strings.TrimSpace(*upd.Email))
		}
		if upd.Number != nil {
			u.Number = strings.TrimSpace(*upd.Number)
		}
		if upd.DateOfBirth != nil {
			dob := *upd.DateOfBirth
			u.DateOfBirth = &dob
		}
		if upd.Address != nil {
			u.Address = *upd.Address
		}
		if upd.City != nil {
			u.City = *upd.City
		}
		if upd.Zip != nil {
			u.Zip = *upd.Zip
		}
	})
}

func (s *MemoryStore) Search(_ context.Context, p SearchParams) ([]model.User, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := strings.ToLower(strings.TrimSpace(p.Query))
	var matched []model.User
	for _, u := range s.users {
		if p.Role != "" && u.Role != p.Role {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(u.Name), q) &&
			!strings.Contains(strings.ToLower(u.Email), q) &&
			!strings.Contains(u.Number, q) {
			continue
		}
		matched = append(matched, *u)
	}
	total := int64(len(matched))

	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}
	page := p.Page
	if page <= 0 {
		page = 1
	}
	start := (page - 1) * limit
	if start >= total {
		return nil, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *MemoryStore) update(id string, fn func(*model.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	fn(u)
	u.UpdatedAt = time.Now().UTC()
	return nil
}
