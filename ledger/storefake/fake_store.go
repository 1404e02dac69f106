package storefake

import (
	"encoding/json"
	"sync"

	"github.com/webcraft/account-gateway/ledger"
)

var _ ledger.Store = (*FakeStore)(nil)

// FakeStore is an in-memory ledger.Store. It round-trips the ledger through
// JSON so it shares the persistence semantics of the real store.
type FakeStore struct {
	lock   sync.Mutex
	data   []byte
	flags  map[string]bool
	Writes int

	FailRead  error
	FailWrite error
}

func NewFakeStore() *FakeStore {
	return &FakeStore{flags: make(map[string]bool)}
}

func (s *FakeStore) Read() (*ledger.StoredLedger, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.FailRead != nil {
		return nil, s.FailRead
	}
	if s.data == nil {
		return nil, nil
	}
	decoded := &ledger.StoredLedger{}
	if err := json.Unmarshal(s.data, decoded); err != nil {
		return nil, nil
	}
	return decoded, nil
}

func (s *FakeStore) Write(l *ledger.StoredLedger) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.FailWrite != nil {
		return s.FailWrite
	}
	data, err := json.Marshal(l)
	if err != nil {
		return err
	}
	s.data = data
	s.Writes++
	return nil
}

func (s *FakeStore) Clear() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.data = nil
	return nil
}

func (s *FakeStore) SetFlag(name string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.flags[name] = true
	return nil
}

func (s *FakeStore) TakeFlag(name string) (bool, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	set := s.flags[name]
	delete(s.flags, name)
	return set, nil
}

// Corrupt replaces the persisted bytes with garbage, for read-tolerance
// tests.
func (s *FakeStore) Corrupt() {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.data = []byte("{not json")
}
