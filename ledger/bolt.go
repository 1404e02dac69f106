package ledger

import (
	"encoding/json"
	"fmt"
	"strconv"

	"go.etcd.io/bbolt"
)

const (
	tokensBucket = "tokens"
	flagsBucket  = "flags"

	ledgerKey = "ledger"
	// expirationKey holds a redundant copy of the identity record's expiry
	// (unix seconds) for quick inspection without decoding the ledger.
	expirationKey = "token_expiration"
)

// BoltStore is a Store backed by a bbolt database file.
type BoltStore struct {
	db *bbolt.DB
}

var _ Store = (*BoltStore)(nil)

// NewBoltStore returns a Store backed by the given bbolt database.
func NewBoltStore(db *bbolt.DB) *BoltStore {
	return &BoltStore{db: db}
}

// NewBoltStoreFromFile opens a bbolt database at the given path and returns a
// new Store.
func NewBoltStoreFromFile(path string, options *bbolt.Options) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, options)
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	return NewBoltStore(db), nil
}

// Close closes the underlying bbolt database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Read returns the persisted ledger, or nil if none was ever written or the
// stored bytes no longer decode.
func (s *BoltStore) Read() (*StoredLedger, error) {
	var ledger *StoredLedger
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(tokensBucket))
		if b == nil {
			return nil
		}
		data := b.Get([]byte(ledgerKey))
		if data == nil {
			return nil
		}
		decoded := &StoredLedger{}
		if err := json.Unmarshal(data, decoded); err != nil {
			// Corrupted persisted state reads as absent.
			return nil
		}
		ledger = decoded
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading ledger: %w", err)
	}
	return ledger, nil
}

func (s *BoltStore) Write(ledger *StoredLedger) error {
	data, err := json.Marshal(ledger)
	if err != nil {
		return fmt.Errorf("encoding ledger: %w", err)
	}

	marker := "0"
	if ledger.Identity != nil {
		marker = strconv.FormatInt(ledger.Identity.ExpiresAt.Unix(), 10)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(tokensBucket))
		if err != nil {
			return err
		}
		if err := b.Put([]byte(ledgerKey), data); err != nil {
			return err
		}
		return b.Put([]byte(expirationKey), []byte(marker))
	})
}

func (s *BoltStore) Clear() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(tokensBucket))
		if b == nil {
			return nil
		}
		if err := b.Delete([]byte(ledgerKey)); err != nil {
			return err
		}
		return b.Delete([]byte(expirationKey))
	})
}

func (s *BoltStore) SetFlag(name string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(flagsBucket))
		if err != nil {
			return err
		}
		return b.Put([]byte(name), []byte("true"))
	})
}

func (s *BoltStore) TakeFlag(name string) (bool, error) {
	var set bool
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(flagsBucket))
		if b == nil {
			return nil
		}
		if b.Get([]byte(name)) == nil {
			return nil
		}
		set = true
		return b.Delete([]byte(name))
	})
	if err != nil {
		return false, fmt.Errorf("taking flag %s: %w", name, err)
	}
	return set, nil
}
