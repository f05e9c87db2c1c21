package registry

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

type memAccount struct {
	owner       common.Address
	sessionKeys map[common.Address]int64
	guardians   map[common.Address]struct{}
}

// MemoryStore keeps registries in process memory. Safe for concurrent use.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[common.Address]*memAccount
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[common.Address]*memAccount)}
}

func (s *MemoryStore) InitOwner(_ context.Context, account, owner common.Address) (common.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if acc, ok := s.accounts[account]; ok {
		return acc.owner, nil
	}
	s.accounts[account] = &memAccount{
		owner:       owner,
		sessionKeys: make(map[common.Address]int64),
		guardians:   make(map[common.Address]struct{}),
	}
	return owner, nil
}

func (s *MemoryStore) Owner(_ context.Context, account common.Address) (common.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acc, ok := s.accounts[account]
	if !ok {
		return common.Address{}, ErrAccountNotFound
	}
	return acc.owner, nil
}

func (s *MemoryStore) TransferOwner(_ context.Context, account, guardian, newOwner common.Address) (common.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[account]
	if !ok {
		return common.Address{}, ErrAccountNotFound
	}
	if _, member := acc.guardians[guardian]; !member {
		return common.Address{}, ErrNotGuardian
	}
	prev := acc.owner
	acc.owner = newOwner
	return prev, nil
}

func (s *MemoryStore) SessionKeyExpiry(_ context.Context, account, key common.Address) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acc, ok := s.accounts[account]
	if !ok {
		return 0, nil
	}
	return acc.sessionKeys[key], nil
}

func (s *MemoryStore) SessionKeys(_ context.Context, account common.Address) ([]SessionKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acc, ok := s.accounts[account]
	if !ok {
		return []SessionKey{}, nil
	}
	out := make([]SessionKey, 0, len(acc.sessionKeys))
	for k, exp := range acc.sessionKeys {
		out = append(out, SessionKey{Key: k, Expiry: exp})
	}
	sortSessionKeys(out)
	return out, nil
}

func (s *MemoryStore) PutSessionKey(_ context.Context, account, actingOwner, key common.Address, expiry int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, err := s.ownedLocked(account, actingOwner)
	if err != nil {
		return err
	}
	acc.sessionKeys[key] = expiry
	return nil
}

func (s *MemoryStore) DeleteSessionKey(_ context.Context, account, actingOwner, key common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, err := s.ownedLocked(account, actingOwner)
	if err != nil {
		return err
	}
	if _, ok := acc.sessionKeys[key]; !ok {
		return ErrEntryNotFound
	}
	delete(acc.sessionKeys, key)
	return nil
}

func (s *MemoryStore) IsGuardian(_ context.Context, account, guardian common.Address) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acc, ok := s.accounts[account]
	if !ok {
		return false, nil
	}
	_, member := acc.guardians[guardian]
	return member, nil
}

func (s *MemoryStore) GuardianCount(_ context.Context, account common.Address) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acc, ok := s.accounts[account]
	if !ok {
		return 0, nil
	}
	return len(acc.guardians), nil
}

func (s *MemoryStore) Guardians(_ context.Context, account common.Address) ([]common.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acc, ok := s.accounts[account]
	if !ok {
		return []common.Address{}, nil
	}
	out := make([]common.Address, 0, len(acc.guardians))
	for g := range acc.guardians {
		out = append(out, g)
	}
	sortAddresses(out)
	return out, nil
}

func (s *MemoryStore) AddGuardian(_ context.Context, account, actingOwner, guardian common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, err := s.ownedLocked(account, actingOwner)
	if err != nil {
		return err
	}
	if _, ok := acc.guardians[guardian]; ok {
		return ErrEntryExists
	}
	acc.guardians[guardian] = struct{}{}
	return nil
}

func (s *MemoryStore) RemoveGuardian(_ context.Context, account, actingOwner, guardian common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, err := s.ownedLocked(account, actingOwner)
	if err != nil {
		return err
	}
	if _, ok := acc.guardians[guardian]; !ok {
		return ErrEntryNotFound
	}
	delete(acc.guardians, guardian)
	return nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) ownedLocked(account, actingOwner common.Address) (*memAccount, error) {
	acc, ok := s.accounts[account]
	if !ok {
		return nil, ErrAccountNotFound
	}
	if acc.owner != actingOwner {
		return nil, ErrOwnerMismatch
	}
	return acc, nil
}

func sortSessionKeys(keys []SessionKey) {
	sort.Slice(keys, func(i, j int) bool {
		return bytes.Compare(keys[i].Key.Bytes(), keys[j].Key.Bytes()) < 0
	})
}

func sortAddresses(addrs []common.Address) {
	sort.Slice(addrs, func(i, j int) bool {
		return bytes.Compare(addrs[i].Bytes(), addrs[j].Bytes()) < 0
	})
}
