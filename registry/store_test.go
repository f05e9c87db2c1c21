package registry

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
)

var (
	testAccount  = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	testOwner    = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	testGuardian = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	testKey      = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	testStranger = common.HexToAddress("0x00000000000000000000000000000000000000ff")
)

type storeFactory func(t *testing.T) (Store, func())

func newMemoryStoreTest(t *testing.T) (Store, func()) {
	t.Helper()
	return NewMemoryStore(), func() {}
}

func newRedisStoreTest(t *testing.T) (Store, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisStore(rdb, "aa"), func() {
		rdb.Close()
		mr.Close()
	}
}

func newSQLStoreTest(t *testing.T) (Store, func()) {
	t.Helper()
	db, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	store, err := NewSQLStore(context.Background(), db)
	if err != nil {
		db.Close()
		t.Fatalf("new sql store: %v", err)
	}
	return store, func() { store.Close() }
}

func forEachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	backends := []struct {
		name string
		new  storeFactory
	}{
		{"memory", newMemoryStoreTest},
		{"redis", newRedisStoreTest},
		{"sql", newSQLStoreTest},
	}
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			s, done := b.new(t)
			defer done()
			fn(t, s)
		})
	}
}

func initAccount(t *testing.T, s Store) {
	t.Helper()
	got, err := s.InitOwner(context.Background(), testAccount, testOwner)
	if err != nil {
		t.Fatalf("init owner: %v", err)
	}
	if got != testOwner {
		t.Fatalf("expected owner %s, got %s", testOwner.Hex(), got.Hex())
	}
}

func TestInitOwnerKeepsExistingRecord(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		initAccount(t, s)

		got, err := s.InitOwner(ctx, testAccount, testStranger)
		if err != nil {
			t.Fatalf("second init: %v", err)
		}
		if got != testOwner {
			t.Fatalf("existing owner must win, got %s", got.Hex())
		}
		if owner, _ := s.Owner(ctx, testAccount); owner != testOwner {
			t.Fatalf("owner overwritten: %s", owner.Hex())
		}
	})
}

func TestOwnerMissingAccount(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		if _, err := s.Owner(context.Background(), testAccount); !errors.Is(err, ErrAccountNotFound) {
			t.Fatalf("expected ErrAccountNotFound, got %v", err)
		}
	})
}

func TestSessionKeyLifecycle(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		initAccount(t, s)

		if exp, err := s.SessionKeyExpiry(ctx, testAccount, testKey); err != nil || exp != 0 {
			t.Fatalf("absent key must read 0, got %d %v", exp, err)
		}
		if err := s.PutSessionKey(ctx, testAccount, testOwner, testKey, 3600); err != nil {
			t.Fatalf("put: %v", err)
		}
		if err := s.PutSessionKey(ctx, testAccount, testOwner, testKey, 7200); err != nil {
			t.Fatalf("overwrite: %v", err)
		}
		if exp, _ := s.SessionKeyExpiry(ctx, testAccount, testKey); exp != 7200 {
			t.Fatalf("expected overwrite to 7200, got %d", exp)
		}

		keys, err := s.SessionKeys(ctx, testAccount)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(keys) != 1 || keys[0].Key != testKey || keys[0].Expiry != 7200 {
			t.Fatalf("unexpected listing: %+v", keys)
		}

		if err := s.DeleteSessionKey(ctx, testAccount, testOwner, testKey); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if err := s.DeleteSessionKey(ctx, testAccount, testOwner, testKey); !errors.Is(err, ErrEntryNotFound) {
			t.Fatalf("expected ErrEntryNotFound, got %v", err)
		}
		if exp, _ := s.SessionKeyExpiry(ctx, testAccount, testKey); exp != 0 {
			t.Fatalf("deleted key must read 0, got %d", exp)
		}
	})
}

func TestGuardedMutationsRejectStaleOwner(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		initAccount(t, s)

		if err := s.PutSessionKey(ctx, testAccount, testStranger, testKey, 10); !errors.Is(err, ErrOwnerMismatch) {
			t.Fatalf("put: expected ErrOwnerMismatch, got %v", err)
		}
		if err := s.AddGuardian(ctx, testAccount, testStranger, testGuardian); !errors.Is(err, ErrOwnerMismatch) {
			t.Fatalf("add guardian: expected ErrOwnerMismatch, got %v", err)
		}
		if err := s.DeleteSessionKey(ctx, testAccount, testStranger, testKey); !errors.Is(err, ErrOwnerMismatch) {
			t.Fatalf("delete: expected ErrOwnerMismatch, got %v", err)
		}
		if err := s.RemoveGuardian(ctx, testAccount, testStranger, testGuardian); !errors.Is(err, ErrOwnerMismatch) {
			t.Fatalf("remove guardian: expected ErrOwnerMismatch, got %v", err)
		}
		if err := s.PutSessionKey(ctx, testStranger, testOwner, testKey, 10); !errors.Is(err, ErrAccountNotFound) {
			t.Fatalf("unknown account: expected ErrAccountNotFound, got %v", err)
		}

		if keys, _ := s.SessionKeys(ctx, testAccount); len(keys) != 0 {
			t.Fatalf("rejected mutation left state: %+v", keys)
		}
		if n, _ := s.GuardianCount(ctx, testAccount); n != 0 {
			t.Fatalf("rejected mutation changed count: %d", n)
		}
	})
}

func TestGuardianSetAndCounter(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		initAccount(t, s)

		if err := s.AddGuardian(ctx, testAccount, testOwner, testGuardian); err != nil {
			t.Fatalf("add: %v", err)
		}
		if err := s.AddGuardian(ctx, testAccount, testOwner, testGuardian); !errors.Is(err, ErrEntryExists) {
			t.Fatalf("expected ErrEntryExists, got %v", err)
		}
		if ok, _ := s.IsGuardian(ctx, testAccount, testGuardian); !ok {
			t.Fatalf("expected guardian membership")
		}
		if n, _ := s.GuardianCount(ctx, testAccount); n != 1 {
			t.Fatalf("expected count 1, got %d", n)
		}

		if err := s.RemoveGuardian(ctx, testAccount, testOwner, testGuardian); err != nil {
			t.Fatalf("remove: %v", err)
		}
		if err := s.RemoveGuardian(ctx, testAccount, testOwner, testGuardian); !errors.Is(err, ErrEntryNotFound) {
			t.Fatalf("expected ErrEntryNotFound, got %v", err)
		}
		if n, _ := s.GuardianCount(ctx, testAccount); n != 0 {
			t.Fatalf("expected count 0, got %d", n)
		}
		if gs, _ := s.Guardians(ctx, testAccount); len(gs) != 0 {
			t.Fatalf("expected empty set, got %v", gs)
		}
	})
}

func TestTransferOwnerRequiresGuardian(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		initAccount(t, s)

		if _, err := s.TransferOwner(ctx, testAccount, testGuardian, testStranger); !errors.Is(err, ErrNotGuardian) {
			t.Fatalf("expected ErrNotGuardian, got %v", err)
		}
		if err := s.AddGuardian(ctx, testAccount, testOwner, testGuardian); err != nil {
			t.Fatalf("add guardian: %v", err)
		}

		prev, err := s.TransferOwner(ctx, testAccount, testGuardian, testStranger)
		if err != nil {
			t.Fatalf("transfer: %v", err)
		}
		if prev != testOwner {
			t.Fatalf("expected previous owner %s, got %s", testOwner.Hex(), prev.Hex())
		}
		if owner, _ := s.Owner(ctx, testAccount); owner != testStranger {
			t.Fatalf("owner not replaced: %s", owner.Hex())
		}

		// the previous owner lost its authority inside the store as well
		if err := s.PutSessionKey(ctx, testAccount, testOwner, testKey, 10); !errors.Is(err, ErrOwnerMismatch) {
			t.Fatalf("expected ErrOwnerMismatch for previous owner, got %v", err)
		}
	})
}

func TestAccountsAreIsolated(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		initAccount(t, s)
		other := common.HexToAddress("0x00000000000000000000000000000000000000bb")
		if _, err := s.InitOwner(ctx, other, testOwner); err != nil {
			t.Fatalf("init other: %v", err)
		}

		if err := s.PutSessionKey(ctx, testAccount, testOwner, testKey, 99); err != nil {
			t.Fatalf("put: %v", err)
		}
		if err := s.AddGuardian(ctx, testAccount, testOwner, testGuardian); err != nil {
			t.Fatalf("add guardian: %v", err)
		}

		if exp, _ := s.SessionKeyExpiry(ctx, other, testKey); exp != 0 {
			t.Fatalf("session key leaked across accounts")
		}
		if ok, _ := s.IsGuardian(ctx, other, testGuardian); ok {
			t.Fatalf("guardian leaked across accounts")
		}
	})
}

func TestGuardianCounterMatchesMembersUnderConcurrentOps(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		initAccount(t, s)

		const (
			guardians = 8
			workers   = 8
			rounds    = 20
		)
		addrs := make([]common.Address, guardians)
		for i := range addrs {
			addrs[i] = common.BigToAddress(big.NewInt(int64(i + 1)))
		}

		var wg sync.WaitGroup
		wg.Add(workers)
		for w := 0; w < workers; w++ {
			go func(w int) {
				defer wg.Done()
				for r := 0; r < rounds; r++ {
					g := addrs[(w+r)%guardians]
					if (w+r)%2 == 0 {
						_ = s.AddGuardian(ctx, testAccount, testOwner, g)
					} else {
						_ = s.RemoveGuardian(ctx, testAccount, testOwner, g)
					}
				}
			}(w)
		}
		wg.Wait()

		members, err := s.Guardians(ctx, testAccount)
		if err != nil {
			t.Fatalf("guardians: %v", err)
		}
		count, err := s.GuardianCount(ctx, testAccount)
		if err != nil {
			t.Fatalf("count: %v", err)
		}
		if count != len(members) {
			t.Fatalf("counter drift: count=%d members=%d", count, len(members))
		}
	})
}

func TestRedisStoreUnavailable(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	store := NewRedisStore(rdb, "")
	mr.Close()

	if err := store.Ping(context.Background()); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if _, err := store.Owner(context.Background(), testAccount); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestRedisStoreKeyLayout(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	store := NewRedisStore(rdb, "acct")
	initAccount(t, store)
	if err := store.AddGuardian(context.Background(), testAccount, testOwner, testGuardian); err != nil {
		t.Fatalf("add guardian: %v", err)
	}

	prefix := fmt.Sprintf("acct:%s:", testAccount.Hex())
	if got, _ := mr.Get(prefix + "owner"); got != testOwner.Hex() {
		t.Fatalf("unexpected owner value %q", got)
	}
	if got, _ := mr.Get(prefix + "gcount"); got != "1" {
		t.Fatalf("unexpected guardian counter %q", got)
	}
}
