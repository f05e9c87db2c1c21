package goAccount

import (
	"context"
	"errors"
	"testing"

	"github.com/MrEthical07/goAccount/registry"
	"github.com/ethereum/go-ethereum/common"
)

func TestBuildRequiresAddresses(t *testing.T) {
	ctx := context.Background()
	owner := testAddr(1)

	cases := []struct {
		name string
		b    *Builder
	}{
		{"no address", New().WithEntryPoint(testEntryPoint).WithOwner(owner)},
		{"no entry point", New().WithAddress(testAccountAddr).WithOwner(owner)},
		{"no owner", New().WithAddress(testAccountAddr).WithEntryPoint(testEntryPoint)},
	}
	for _, tc := range cases {
		if _, err := tc.b.Build(ctx); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("%s: expected ErrInvalidArgument, got %v", tc.name, err)
		}
	}
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Store.KeyPrefix = ""
	_, err := New().WithConfig(cfg).WithAddress(testAccountAddr).WithEntryPoint(testEntryPoint).WithOwner(testAddr(1)).Build(context.Background())
	if err == nil {
		t.Fatal("expected config error")
	}
}

func TestBuildRejectsMultipleStores(t *testing.T) {
	_, err := New().
		WithAddress(testAccountAddr).
		WithEntryPoint(testEntryPoint).
		WithOwner(testAddr(1)).
		WithStore(registry.NewMemoryStore()).
		WithSQLite(":memory:").
		Build(context.Background())
	if err == nil {
		t.Fatal("expected error for two stores")
	}
}

func TestBuilderSingleUse(t *testing.T) {
	b := New().WithAddress(testAccountAddr).WithEntryPoint(testEntryPoint).WithOwner(testAddr(1))
	a, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer a.Close()

	if _, err := b.Build(context.Background()); err == nil {
		t.Fatal("expected second Build to fail")
	}
	if a.Address() != testAccountAddr || a.EntryPoint() != testEntryPoint {
		t.Fatalf("unexpected addresses %s %s", a.Address().Hex(), a.EntryPoint().Hex())
	}
}

func TestBuildWithSharedStore(t *testing.T) {
	store := registry.NewMemoryStore()
	ctx := context.Background()
	owner := testAddr(1)

	a, err := New().WithAddress(testAccountAddr).WithEntryPoint(testEntryPoint).WithOwner(owner).WithStore(store).Build(ctx)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, err := a.AddSessionKey(ctx, owner, testAddr(2), 60); err != nil {
		t.Fatalf("add: %v", err)
	}
	_ = a.Close()

	expiry, err := store.SessionKeyExpiry(ctx, testAccountAddr, testAddr(2))
	if err != nil || expiry == 0 {
		t.Fatalf("registry must outlive the account, expiry=%d err=%v", expiry, err)
	}
	if _, err := store.Owner(ctx, common.Address{}); !errors.Is(err, registry.ErrAccountNotFound) {
		t.Fatalf("store must stay usable after Close, got %v", err)
	}
}
