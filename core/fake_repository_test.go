package core

import (
	"context"
	"sync"
	"time"
)

// fakeUserRepo is an in-memory UserRepository with the same semantics as
// the Postgres implementation, including the local-username uniqueness
// policy and the atomic federated upsert.
type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*UserRecord
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{rows: map[int64]*UserRecord{}}
}

func (f *fakeUserRepo) FindByUsername(_ context.Context, username string) (*UserRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.rows {
		if u.Username == username && u.PasswordHash != "" {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrRecordNotFound
}

func (f *fakeUserRepo) FindByID(_ context.Context, id int64) (*UserRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.rows[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) Create(_ context.Context, username, passwordHash string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.rows {
		if u.Username == username && u.PasswordHash != "" {
			return 0, ErrDuplicateUsername
		}
	}
	f.nextID++
	f.rows[f.nextID] = &UserRecord{
		ID:           f.nextID,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
	return f.nextID, nil
}

func (f *fakeUserRepo) UpsertByGoogleID(_ context.Context, googleID, displayName string) (*UserRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.rows {
		if u.GoogleID == googleID {
			cp := *u
			return &cp, nil
		}
	}
	f.nextID++
	u := &UserRecord{
		ID:        f.nextID,
		Username:  displayName,
		GoogleID:  googleID,
		CreatedAt: time.Now(),
	}
	f.rows[u.ID] = u
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) UpdateSecret(_ context.Context, id int64, secret string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.rows[id]
	if !ok {
		return ErrRecordNotFound
	}
	u.Secret = secret
	return nil
}

func (f *fakeUserRepo) ListSecrets(_ context.Context) ([]PublicSecret, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var items []PublicSecret
	for _, u := range f.rows {
		if u.Secret != "" {
			items = append(items, PublicSecret{Username: u.Username, Secret: u.Secret})
		}
	}
	return items, nil
}

func (f *fakeUserRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}
