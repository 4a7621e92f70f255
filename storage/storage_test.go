package storage

import (
	"testing"

	"github.com/sgawallet/sga-wallet/common/utils"
	"github.com/sgawallet/sga-wallet/config"
	prt "github.com/sgawallet/sga-wallet/protocol"
	"github.com/stretchr/testify/require"
	"github.com/syndtr/goleveldb/leveldb"
)

func memDB(t *testing.T) *leveldb.DB {
	db, err := OpenMemDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestConnectionStore(t *testing.T) {
	store := NewConnectionStore(memDB(t))

	evm := prt.ChainConnection{Family: prt.FamilyEVM, Address: "0x9858EfFD232B4033E47d90003D41EC34EcaEda94", Provider: prt.ProviderInjected, ConnectedAt: 1}
	sol := prt.ChainConnection{Family: prt.FamilySolana, Address: "FVen3X669xLzsi6N2V91DoiyzHzg1uAgqiT8jZ9nS96Z", Provider: prt.ProviderWalletAdapter, Label: "hot"}
	require.NoError(t, store.Put(evm))
	require.NoError(t, store.Put(sol))
	require.NoError(t, store.Put(sol)) // overwrite, still one entry

	all, errs := store.List("")
	require.Empty(t, errs)
	require.Len(t, all, 2)

	only, errs := store.List(prt.FamilySolana)
	require.Empty(t, errs)
	require.Equal(t, []prt.ChainConnection{sol}, only)

	got, ok, err := store.Get(prt.FamilyEVM, evm.Address)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, evm, got)

	require.NoError(t, store.Delete(prt.FamilyEVM, evm.Address))
	require.NoError(t, store.Delete(prt.FamilyEVM, evm.Address))
	_, ok, err = store.Get(prt.FamilyEVM, evm.Address)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestConnectionStoreSkipsCorruptEntries(t *testing.T) {
	db := memDB(t)
	store := NewConnectionStore(db)
	require.NoError(t, db.Put(utils.GetConnectionKey(prt.FamilyXRPL, "rBad"), []byte("{not json"), nil))
	require.NoError(t, store.Put(prt.ChainConnection{Family: prt.FamilyXRPL, Address: "rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh", Provider: prt.ProviderRelay}))

	list, errs := store.List(prt.FamilyXRPL)
	require.Len(t, list, 1)
	require.Len(t, errs, 1)
}

func TestBasisBook(t *testing.T) {
	book := NewBasisBook(memDB(t))
	const owner = "1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMH"

	require.NoError(t, book.Set(prt.FamilyBitcoin, owner, "btc", 30000))
	require.NoError(t, book.Set(prt.FamilyBitcoin, owner+"x", "BTC", 1))
	require.Error(t, book.Set(prt.FamilyBitcoin, owner, "BTC", -1))

	m, err := book.ForOwner(prt.FamilyBitcoin, owner)
	require.NoError(t, err)
	require.Equal(t, map[string]float64{"BTC": 30000}, m)

	require.NoError(t, book.DeleteOwner(prt.FamilyBitcoin, owner))
	m, err = book.ForOwner(prt.FamilyBitcoin, owner)
	require.NoError(t, err)
	require.Empty(t, m)

	other, err := book.ForOwner(prt.FamilyBitcoin, owner+"x")
	require.NoError(t, err)
	require.Len(t, other, 1)
}

func TestSchemaStamp(t *testing.T) {
	db := memDB(t)
	v, err := db.Get(utils.GetSchemaKey(), nil)
	require.NoError(t, err)
	require.Equal(t, prt.SchemaVersion, string(v))

	require.NoError(t, db.Put(utils.GetSchemaKey(), []byte("999"), nil))
	require.Error(t, checkSchema(db))
}

func TestInitDBOnDisk(t *testing.T) {
	cfg := &config.Config{DB: config.DB{Path: t.TempDir()}}
	db, err := InitDB(cfg)
	require.NoError(t, err)
	require.NoError(t, NewConnectionStore(db).Put(prt.ChainConnection{Family: prt.FamilyEVM, Address: "0xabc"}))
	require.NoError(t, db.Close())

	db, err = InitDB(cfg)
	require.NoError(t, err)
	defer db.Close()
	list, errs := NewConnectionStore(db).List("")
	require.Empty(t, errs)
	require.Len(t, list, 1)
}

func TestBrowse(t *testing.T) {
	db := memDB(t)
	require.NoError(t, NewConnectionStore(db).Put(prt.ChainConnection{Family: prt.FamilyEVM, Address: "0xabc"}))
	require.NoError(t, db.Put([]byte("blob"), make([]byte, 200), nil))

	entries, err := Browse(db, "conn:", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Contains(t, entries[0].Value, "0xabc")

	entries, err = Browse(db, "", 0)
	require.NoError(t, err)
	require.Len(t, entries, 3) // blob, conn, meta:schema
	require.Equal(t, "blob", entries[0].Key)
	require.Equal(t, 200, entries[0].Size)

	entries, err = Browse(db, "", 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
