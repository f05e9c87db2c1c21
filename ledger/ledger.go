package ledger

import (
	"context"
	"math/big"
	"sync"

	"github.com/MrEthical07/goAccount/aa"
	"github.com/ethereum/go-ethereum/common"
)

// Call is one recorded invocation.
type Call struct {
	From  common.Address
	To    common.Address
	Value *big.Int
	Data  []byte
}

// Handler runs when an address with registered code is called. Returning an
// error reverts the call.
type Handler func(ctx context.Context, l *Ledger, call Call) ([]byte, error)

type balanceChange struct {
	addr common.Address
	prev *big.Int // nil = no entry before the change
}

// Ledger is safe for concurrent use. Top-level calls run one at a time, so a
// reverting handler only undoes its own call tree. Handlers may call back
// into the ledger with the context they were given.
//
// Snapshot and RevertToSnapshot are not scoped: reverting undoes every change
// after the snapshot, including those of other callers. Callers sharing a
// Ledger across snapshot scopes must serialize them.
type Ledger struct {
	exec     sync.Mutex
	mu       sync.Mutex
	balances map[common.Address]*big.Int
	handlers map[common.Address]Handler
	journal  []balanceChange
	calls    []Call
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{
		balances: make(map[common.Address]*big.Int),
		handlers: make(map[common.Address]Handler),
	}
}

// SetBalance is a journaled balance write.
func (l *Ledger) SetBalance(addr common.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.setLocked(addr, new(big.Int).Set(amount))
}

// Balance returns a copy of addr's balance.
func (l *Ledger) Balance(addr common.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok := l.balances[addr]; ok {
		return new(big.Int).Set(b)
	}
	return big.NewInt(0)
}

// Register installs h as the code at addr.
func (l *Ledger) Register(addr common.Address, h Handler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers[addr] = h
}

// Calls returns every attempted call in order, including reverted ones.
func (l *Ledger) Calls() []Call {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Call, len(l.calls))
	copy(out, l.calls)
	return out
}

// Call transfers value from -> to and then runs the handler at to, if any.
// Insufficient balance and handler failures surface as *aa.RevertError
// unless the handler returned a different error, which is passed through.
func (l *Ledger) Call(ctx context.Context, from, to common.Address, value *big.Int, data []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if value == nil {
		value = new(big.Int)
	}
	call := Call{From: from, To: to, Value: new(big.Int).Set(value), Data: append([]byte(nil), data...)}

	if ctx.Value(callTreeKey{}) != l {
		l.exec.Lock()
		defer l.exec.Unlock()
		ctx = context.WithValue(ctx, callTreeKey{}, l)
	}

	l.mu.Lock()
	l.calls = append(l.calls, call)
	snap := len(l.journal)
	if value.Sign() < 0 {
		l.mu.Unlock()
		return nil, &aa.RevertError{Data: aa.EncodeRevertReason("negative value")}
	}
	if value.Sign() > 0 {
		if l.balanceLocked(from).Cmp(value) < 0 {
			l.mu.Unlock()
			return nil, &aa.RevertError{Data: aa.EncodeRevertReason("insufficient balance")}
		}
		l.setLocked(from, new(big.Int).Sub(l.balanceLocked(from), value))
		l.setLocked(to, new(big.Int).Add(l.balanceLocked(to), value))
	}
	handler := l.handlers[to]
	l.mu.Unlock()

	if handler == nil {
		return nil, nil
	}
	ret, err := handler(ctx, l, call)
	if err != nil {
		l.RevertToSnapshot(snap)
		return nil, err
	}
	return ret, nil
}

// callTreeKey marks a context as running inside a call of the ledger stored
// under it.
type callTreeKey struct{}

// Snapshot returns an id for the current journal position.
func (l *Ledger) Snapshot() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.journal)
}

// RevertToSnapshot undoes every balance change made after id was taken.
func (l *Ledger) RevertToSnapshot(id int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if id < 0 {
		id = 0
	}
	for i := len(l.journal) - 1; i >= id; i-- {
		change := l.journal[i]
		if change.prev == nil {
			delete(l.balances, change.addr)
		} else {
			l.balances[change.addr] = change.prev
		}
	}
	if id < len(l.journal) {
		l.journal = l.journal[:id]
	}
}

func (l *Ledger) balanceLocked(addr common.Address) *big.Int {
	if b, ok := l.balances[addr]; ok {
		return b
	}
	return new(big.Int)
}

func (l *Ledger) setLocked(addr common.Address, amount *big.Int) {
	prev, ok := l.balances[addr]
	change := balanceChange{addr: addr}
	if ok {
		change.prev = prev
	}
	l.journal = append(l.journal, change)
	l.balances[addr] = amount
}

// Revert returns a handler result that reverts with an Error(string) reason.
func Revert(reason string) error {
	return &aa.RevertError{Data: aa.EncodeRevertReason(reason)}
}

// RevertWith returns a revert carrying an arbitrary payload.
func RevertWith(data []byte) error {
	return &aa.RevertError{Data: append([]byte(nil), data...)}
}
