package kv

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenCreatesAllTables(t *testing.T) {
	s := openTestStore(t)
	err := s.View(func(tx *Tx) error {
		for _, name := range AllTables {
			tbl := tx.Table(name)
			require.True(t, tbl.Empty())
		}
		return nil
	})
	require.NoError(t, err)
}

func TestPutGetDelete(t *testing.T) {
	s := openTestStore(t)

	err := s.Update(func(tx *Tx) error {
		return tx.Table(TableNodes).Put("user:me", []byte(""))
	})
	require.NoError(t, err)

	err = s.View(func(tx *Tx) error {
		v, ok := tx.Table(TableNodes).Get("user:me")
		require.True(t, ok)
		require.Equal(t, []byte(""), v)
		return nil
	})
	require.NoError(t, err)

	err = s.Update(func(tx *Tx) error {
		return tx.Table(TableNodes).Delete("user:me")
	})
	require.NoError(t, err)

	err = s.View(func(tx *Tx) error {
		_, ok := tx.Table(TableNodes).Get("user:me")
		require.False(t, ok)
		return nil
	})
	require.NoError(t, err)
}

func TestScanPrefix(t *testing.T) {
	s := openTestStore(t)
	err := s.Update(func(tx *Tx) error {
		tbl := tx.Table(TableNodeIndex)
		for _, k := range []string{"status\x1factive\x1fa", "status\x1factive\x1fb", "status\x1fdeleted\x1fc", "type\x1fUser\x1fd"} {
			if err := tbl.Put(k, nil); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	var got []string
	err = s.View(func(tx *Tx) error {
		tx.Table(TableNodeIndex).ScanPrefix("status\x1factive\x1f", func(key string, _ []byte) bool {
			got = append(got, key)
			return true
		})
		return nil
	})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"status\x1factive\x1fa", "status\x1factive\x1fb"}, got)
}

func TestWriteVisibleWithinItsOwnTransaction(t *testing.T) {
	s := openTestStore(t)

	err := s.Update(func(tx *Tx) error {
		if err := tx.Table(TableNodes).Put("x", []byte("")); err != nil {
			return err
		}
		// Within the same transaction the write is visible.
		_, ok := tx.Table(TableNodes).Get("x")
		require.True(t, ok)
		return nil
	})
	require.NoError(t, err)
}

func TestReadOnlyTxRejectsWrites(t *testing.T) {
	s := openTestStore(t)
	err := s.View(func(tx *Tx) error {
		return tx.Table(TableNodes).Put("x", []byte(""))
	})
	require.Error(t, err)
}
