package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite" // pure Go SQLite driver
)

type ownerModel struct {
	bun.BaseModel `bun:"table:account_owners"`
	Account       string `bun:"account,pk"`
	Owner         string `bun:"owner,notnull"`
	GuardianCount int    `bun:"guardian_count,notnull"`
}

type sessionKeyModel struct {
	bun.BaseModel `bun:"table:session_keys"`
	Account       string `bun:"account,pk"`
	SessionKey    string `bun:"session_key,pk"`
	Expiry        int64  `bun:"expiry,notnull"`
}

type guardianModel struct {
	bun.BaseModel `bun:"table:guardians"`
	Account       string `bun:"account,pk"`
	Guardian      string `bun:"guardian,pk"`
}

// SQLStore keeps registries in a SQL database through bun. Every guarded
// mutation runs in a single transaction that re-reads the owner row.
// SQLite, PostgreSQL and MySQL handles are supported.
type SQLStore struct {
	db      *bun.DB
	dialect dialect.Name
}

// OpenSQLite opens a bun handle over the modernc SQLite driver. The pool is
// limited to one connection so that ":memory:" databases are shared and
// writers serialize.
func OpenSQLite(dsn string) (*bun.DB, error) {
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	sqlDB.SetMaxOpenConns(1)
	return bun.NewDB(sqlDB, sqlitedialect.New()), nil
}

// NewSQLStore creates the registry tables if needed and returns the store.
// Handles opened with any dialect other than SQLite, PostgreSQL or MySQL are
// rejected.
func NewSQLStore(ctx context.Context, db *bun.DB) (*SQLStore, error) {
	name := db.Dialect().Name()
	switch name {
	case dialect.SQLite, dialect.PG, dialect.MySQL:
	default:
		return nil, fmt.Errorf("%w: unsupported sql dialect %s", ErrStoreUnavailable, name)
	}
	models := []interface{}{
		(*ownerModel)(nil),
		(*sessionKeyModel)(nil),
		(*guardianModel)(nil),
	}
	for _, m := range models {
		if _, err := db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return nil, fmt.Errorf("%w: create table: %v", ErrStoreUnavailable, err)
		}
	}
	return &SQLStore{db: db, dialect: name}, nil
}

// Close releases the underlying database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) InitOwner(ctx context.Context, account, owner common.Address) (common.Address, error) {
	var effective common.Address
	err := s.runInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		row := &ownerModel{Account: account.Hex(), Owner: owner.Hex()}
		if _, err := s.insertIgnore(tx.NewInsert().Model(row)).Exec(ctx); err != nil {
			return err
		}
		current, err := loadOwner(ctx, tx, account)
		if err != nil {
			return err
		}
		effective = common.HexToAddress(current.Owner)
		return nil
	})
	return effective, err
}

func (s *SQLStore) Owner(ctx context.Context, account common.Address) (common.Address, error) {
	row, err := loadOwner(ctx, s.db, account)
	if err != nil {
		return common.Address{}, wrapSQL(err)
	}
	return common.HexToAddress(row.Owner), nil
}

func (s *SQLStore) TransferOwner(ctx context.Context, account, guardian, newOwner common.Address) (common.Address, error) {
	var prev common.Address
	err := s.runInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		row, err := loadOwner(ctx, tx, account)
		if err != nil {
			return err
		}
		member, err := tx.NewSelect().Model((*guardianModel)(nil)).
			Where("account = ?", account.Hex()).
			Where("guardian = ?", guardian.Hex()).
			Exists(ctx)
		if err != nil {
			return err
		}
		if !member {
			return ErrNotGuardian
		}

		prev = common.HexToAddress(row.Owner)
		_, err = tx.NewUpdate().Model((*ownerModel)(nil)).
			Set("owner = ?", newOwner.Hex()).
			Where("account = ?", account.Hex()).
			Exec(ctx)
		return err
	})
	return prev, err
}

func (s *SQLStore) SessionKeyExpiry(ctx context.Context, account, key common.Address) (int64, error) {
	var row sessionKeyModel
	err := s.db.NewSelect().Model(&row).
		Where("account = ?", account.Hex()).
		Where("session_key = ?", key.Hex()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, wrapSQL(err)
	}
	return row.Expiry, nil
}

func (s *SQLStore) SessionKeys(ctx context.Context, account common.Address) ([]SessionKey, error) {
	var rows []sessionKeyModel
	if err := s.db.NewSelect().Model(&rows).Where("account = ?", account.Hex()).Scan(ctx); err != nil {
		return nil, wrapSQL(err)
	}
	out := make([]SessionKey, 0, len(rows))
	for _, r := range rows {
		out = append(out, SessionKey{Key: common.HexToAddress(r.SessionKey), Expiry: r.Expiry})
	}
	sortSessionKeys(out)
	return out, nil
}

func (s *SQLStore) PutSessionKey(ctx context.Context, account, actingOwner, key common.Address, expiry int64) error {
	return s.runInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if err := requireOwner(ctx, tx, account, actingOwner); err != nil {
			return err
		}
		row := &sessionKeyModel{Account: account.Hex(), SessionKey: key.Hex(), Expiry: expiry}
		_, err := s.upsertExpiry(tx.NewInsert().Model(row)).Exec(ctx)
		return err
	})
}

func (s *SQLStore) DeleteSessionKey(ctx context.Context, account, actingOwner, key common.Address) error {
	return s.runInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if err := requireOwner(ctx, tx, account, actingOwner); err != nil {
			return err
		}
		res, err := tx.NewDelete().Model((*sessionKeyModel)(nil)).
			Where("account = ?", account.Hex()).
			Where("session_key = ?", key.Hex()).
			Exec(ctx)
		if err != nil {
			return err
		}
		return requireAffected(res, ErrEntryNotFound)
	})
}

func (s *SQLStore) IsGuardian(ctx context.Context, account, guardian common.Address) (bool, error) {
	ok, err := s.db.NewSelect().Model((*guardianModel)(nil)).
		Where("account = ?", account.Hex()).
		Where("guardian = ?", guardian.Hex()).
		Exists(ctx)
	if err != nil {
		return false, wrapSQL(err)
	}
	return ok, nil
}

func (s *SQLStore) GuardianCount(ctx context.Context, account common.Address) (int, error) {
	row, err := loadOwner(ctx, s.db, account)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return 0, nil
		}
		return 0, wrapSQL(err)
	}
	return row.GuardianCount, nil
}

func (s *SQLStore) Guardians(ctx context.Context, account common.Address) ([]common.Address, error) {
	var rows []guardianModel
	if err := s.db.NewSelect().Model(&rows).Where("account = ?", account.Hex()).Scan(ctx); err != nil {
		return nil, wrapSQL(err)
	}
	out := make([]common.Address, 0, len(rows))
	for _, r := range rows {
		out = append(out, common.HexToAddress(r.Guardian))
	}
	sortAddresses(out)
	return out, nil
}

func (s *SQLStore) AddGuardian(ctx context.Context, account, actingOwner, guardian common.Address) error {
	return s.runInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if err := requireOwner(ctx, tx, account, actingOwner); err != nil {
			return err
		}
		row := &guardianModel{Account: account.Hex(), Guardian: guardian.Hex()}
		res, err := s.insertIgnore(tx.NewInsert().Model(row)).Exec(ctx)
		if err != nil {
			return err
		}
		if err := requireAffected(res, ErrEntryExists); err != nil {
			return err
		}
		_, err = adjustGuardianCount(tx, account, 1).Exec(ctx)
		return err
	})
}

func (s *SQLStore) RemoveGuardian(ctx context.Context, account, actingOwner, guardian common.Address) error {
	return s.runInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if err := requireOwner(ctx, tx, account, actingOwner); err != nil {
			return err
		}
		res, err := tx.NewDelete().Model((*guardianModel)(nil)).
			Where("account = ?", account.Hex()).
			Where("guardian = ?", guardian.Hex()).
			Exec(ctx)
		if err != nil {
			return err
		}
		if err := requireAffected(res, ErrEntryNotFound); err != nil {
			return err
		}
		_, err = adjustGuardianCount(tx, account, -1).Exec(ctx)
		return err
	})
}

func (s *SQLStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *SQLStore) runInTx(ctx context.Context, fn func(ctx context.Context, tx bun.Tx) error) error {
	return wrapSQL(s.db.RunInTx(ctx, nil, fn))
}

func loadOwner(ctx context.Context, db bun.IDB, account common.Address) (*ownerModel, error) {
	row := new(ownerModel)
	err := db.NewSelect().Model(row).Where("account = ?", account.Hex()).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return row, nil
}

func requireOwner(ctx context.Context, tx bun.Tx, account, actingOwner common.Address) error {
	row, err := loadOwner(ctx, tx, account)
	if err != nil {
		return err
	}
	if common.HexToAddress(row.Owner) != actingOwner {
		return ErrOwnerMismatch
	}
	return nil
}

// adjustGuardianCount is only issued after the guardian insert or delete in
// the same transaction affected exactly one row, so the delta is exact.
func adjustGuardianCount(db bun.IDB, account common.Address, delta int) *bun.UpdateQuery {
	return db.NewUpdate().Model((*ownerModel)(nil)).
		Set("guardian_count = guardian_count + ?", delta).
		Where("account = ?", account.Hex())
}

// insertIgnore turns q into an insert that skips rows whose key exists.
func (s *SQLStore) insertIgnore(q *bun.InsertQuery) *bun.InsertQuery {
	if s.dialect == dialect.MySQL {
		return q.Ignore()
	}
	return q.On("CONFLICT DO NOTHING")
}

// upsertExpiry turns a session key insert into an upsert of its expiry.
func (s *SQLStore) upsertExpiry(q *bun.InsertQuery) *bun.InsertQuery {
	if s.dialect == dialect.MySQL {
		return q.On("DUPLICATE KEY UPDATE").Set("expiry = VALUES(expiry)")
	}
	return q.On("CONFLICT (account, session_key) DO UPDATE").Set("expiry = EXCLUDED.expiry")
}

func requireAffected(res sql.Result, notAffected error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notAffected
	}
	return nil
}

// wrapSQL passes registry sentinels through and wraps everything else.
func wrapSQL(err error) error {
	if err == nil {
		return nil
	}
	for _, sentinel := range []error{
		ErrStoreUnavailable,
		ErrAccountNotFound,
		ErrOwnerMismatch,
		ErrNotGuardian,
		ErrEntryExists,
		ErrEntryNotFound,
	} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
