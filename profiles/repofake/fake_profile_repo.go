package repofake

import (
	"context"
	"sort"
	"sync"
	"time"

	apperrors "github.com/webcraft/account-gateway/internal/errors"
	"github.com/webcraft/account-gateway/profiles"
)

var _ profiles.Repo = (*FakeProfileRepo)(nil)

// FakeProfileRepo is an in-memory profile document store. GetDelay, when set,
// is waited on before each Get so tests can hold a reconciliation open.
type FakeProfileRepo struct {
	lock     sync.RWMutex
	profiles map[string]*profiles.Profile

	GetDelay chan struct{}
	FailSet  error
}

func NewFakeProfileRepo() *FakeProfileRepo {
	return &FakeProfileRepo{
		profiles: make(map[string]*profiles.Profile),
	}
}

func (r *FakeProfileRepo) Get(_ context.Context, uid string) (*profiles.Profile, error) {
	if r.GetDelay != nil {
		<-r.GetDelay
	}

	r.lock.RLock()
	defer r.lock.RUnlock()

	profile, ok := r.profiles[uid]
	if !ok {
		return nil, apperrors.ErrProfileNotFound
	}
	cp := *profile
	return &cp, nil
}

func (r *FakeProfileRepo) Set(_ context.Context, profile *profiles.Profile) error {
	if r.FailSet != nil {
		return r.FailSet
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	profile.UpdatedAt = time.Now()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = profile.UpdatedAt
	}
	cp := *profile
	r.profiles[profile.UID] = &cp
	return nil
}

func (r *FakeProfileRepo) Update(_ context.Context, uid string, update profiles.ProfileUpdate) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	profile, ok := r.profiles[uid]
	if !ok {
		return apperrors.ErrProfileNotFound
	}
	if update.Username != nil {
		profile.Username = *update.Username
	}
	if update.Disabled != nil {
		profile.Disabled = *update.Disabled
	}
	if update.EmailVerified != nil {
		profile.EmailVerified = *update.EmailVerified
	}
	if update.PhotoURL != nil {
		profile.PhotoURL = *update.PhotoURL
	}
	profile.UpdatedAt = time.Now()
	return nil
}

func (r *FakeProfileRepo) Delete(_ context.Context, uid string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.profiles[uid]; !ok {
		return apperrors.ErrProfileNotFound
	}
	delete(r.profiles, uid)
	return nil
}

func (r *FakeProfileRepo) List(_ context.Context) ([]*profiles.Profile, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	list := make([]*profiles.Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		cp := *p
		list = append(list, &cp)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].UID < list[j].UID })
	return list, nil
}
