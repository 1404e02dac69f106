package ledger_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"github.com/webcraft/account-gateway/ledger"
)

func TestBoltStore_CorruptedLedgerReadsAsAbsent(t *testing.T) {
	db, err := bbolt.Open(filepath.Join(t.TempDir(), "session.db"), 0600, nil)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, db.Close()) })

	store := ledger.NewBoltStore(db)

	now := time.Now()
	led := &ledger.StoredLedger{}
	led.SetRecord(ledger.NewRecord("id-token", ledger.ProviderIdentity, now), now)
	require.NoError(t, store.Write(led))

	// Scribble over the stored ledger bytes.
	err = db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte("tokens")).Put([]byte("ledger"), []byte("{not json"))
	})
	require.NoError(t, err)

	got, err := store.Read()
	require.NoError(t, err)
	require.Nil(t, got)
}
