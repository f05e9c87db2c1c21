package goAccount

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/MrEthical07/goAccount/grant"
	"github.com/MrEthical07/goAccount/internal/audit"
	"github.com/MrEthical07/goAccount/permission"
	"github.com/MrEthical07/goAccount/registry"
	"github.com/MrEthical07/goAccount/signer"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
)

// Builder assembles an Account. A Builder is single use.
type Builder struct {
	config Config

	address    common.Address
	entryPoint common.Address
	owner      common.Address

	store     registry.Store
	redis     redis.UniversalClient
	sqlDB     *bun.DB
	sqliteDSN string

	recoverer signer.Recoverer
	clock     Clock
	invoker   Invoker
	auditSink AuditSink
	logger    log.Logger

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the configuration. cfg is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithAddress sets the account address that namespaces its registries.
func (b *Builder) WithAddress(addr common.Address) *Builder {
	b.address = addr
	return b
}

// WithEntryPoint sets the execution gateway address.
func (b *Builder) WithEntryPoint(addr common.Address) *Builder {
	b.entryPoint = addr
	return b
}

// WithOwner sets the initial owner. An owner already persisted for the
// account takes precedence.
func (b *Builder) WithOwner(addr common.Address) *Builder {
	b.owner = addr
	return b
}

// WithStore uses store for the registries. The Account does not close it.
func (b *Builder) WithStore(store registry.Store) *Builder {
	b.store = store
	return b
}

// WithRedis stores the registries in Redis under Config.Store.KeyPrefix.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithSQL stores the registries in db, creating tables if needed. db must
// use the SQLite, PostgreSQL or MySQL dialect; Build fails for any other.
func (b *Builder) WithSQL(db *bun.DB) *Builder {
	b.sqlDB = db
	return b
}

// WithSQLite opens an SQLite database at dsn. The Account closes it.
func (b *Builder) WithSQLite(dsn string) *Builder {
	b.sqliteDSN = dsn
	return b
}

// WithRecoverer overrides the secp256k1 EIP-191 signature recoverer.
func (b *Builder) WithRecoverer(r signer.Recoverer) *Builder {
	b.recoverer = r
	return b
}

// WithClock overrides the wall clock used for expiry checks.
func (b *Builder) WithClock(c Clock) *Builder {
	b.clock = c
	return b
}

// WithInvoker sets the call executor used by Execute and the prefund transfer.
func (b *Builder) WithInvoker(inv Invoker) *Builder {
	b.invoker = inv
	return b
}

// WithAuditSink sets the audit sink and enables auditing. A later WithConfig
// replaces Audit.Enabled, so call it after WithConfig.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = sink != nil
	return b
}

// WithLogger sets the structured logger. Defaults to log.Root().
func (b *Builder) WithLogger(l log.Logger) *Builder {
	b.logger = l
	return b
}

// WithMetricsEnabled turns the in-process counters on or off.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms turns the ValidateUserOp latency histogram on or off.
// It has no effect unless metrics are enabled.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, opens the store and records the owner
// if the account has none yet.
func (b *Builder) Build(ctx context.Context) (*Account, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.address == (common.Address{}) {
		return nil, invalidArgument("account address required")
	}
	if b.entryPoint == (common.Address{}) {
		return nil, invalidArgument("entry point address required")
	}
	if b.owner == (common.Address{}) {
		return nil, invalidArgument("owner address required")
	}

	backends := 0
	for _, set := range []bool{b.store != nil, b.redis != nil, b.sqlDB != nil, b.sqliteDSN != ""} {
		if set {
			backends++
		}
	}
	if backends > 1 {
		return nil, errors.New("at most one registry store may be configured")
	}

	roles, err := permission.NewAccountRoles()
	if err != nil {
		return nil, err
	}

	store, closer, err := b.openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = log.Root()
	}

	owner, err := store.InitOwner(ctx, b.address, b.owner)
	if err != nil {
		closeQuietly(closer)
		return nil, mapStoreError(err)
	}
	if owner != b.owner {
		logger.Info("Using persisted account owner", "account", b.address, "owner", owner, "requested", b.owner)
	}

	account := &Account{
		config:     cfg,
		address:    b.address,
		entryPoint: b.entryPoint,
		store:      store,
		closer:     closer,
		recoverer:  b.recoverer,
		clock:      b.clock,
		invoker:    b.invoker,
		roles:      roles,
		logger:     logger,
	}
	if account.recoverer == nil {
		account.recoverer = signer.NewECDSA()
	}
	if account.clock == nil {
		account.clock = systemClock{}
	}

	if cfg.Grant.Enabled {
		gm, err := grant.NewManager(grant.Config{
			SigningMethod: grant.SigningMethod(cfg.Grant.SigningMethod),
			PrivateKey:    cloneBytes(cfg.Grant.PrivateKey),
			PublicKey:     cloneBytes(cfg.Grant.PublicKey),
			Issuer:        cfg.Grant.Issuer,
			Audience:      cfg.Grant.Audience,
			Leeway:        cfg.Grant.Leeway,
			MaxTTL:        cfg.Grant.MaxTTL,
			TimeFunc:      account.clock.Now,
		})
		if err != nil {
			closeQuietly(closer)
			return nil, fmt.Errorf("grant manager: %w", err)
		}
		account.grants = gm
	}

	if b.auditSink != nil && !cfg.Audit.Enabled {
		logger.Warn("Audit sink set but auditing disabled", "account", b.address)
	}
	account.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
		Logger:     logger,
	}, b.auditSink)
	account.metrics = NewMetrics(cfg.Metrics)

	b.built = true

	return account, nil
}

func (b *Builder) openStore(ctx context.Context, cfg Config) (registry.Store, io.Closer, error) {
	switch {
	case b.store != nil:
		return b.store, nil, nil
	case b.redis != nil:
		return registry.NewRedisStore(b.redis, cfg.Store.KeyPrefix), nil, nil
	case b.sqlDB != nil:
		s, err := registry.NewSQLStore(ctx, b.sqlDB)
		if err != nil {
			return nil, nil, mapStoreError(err)
		}
		return s, nil, nil
	case b.sqliteDSN != "":
		db, err := registry.OpenSQLite(b.sqliteDSN)
		if err != nil {
			return nil, nil, mapStoreError(err)
		}
		s, err := registry.NewSQLStore(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, nil, mapStoreError(err)
		}
		return s, s, nil
	default:
		return registry.NewMemoryStore(), nil, nil
	}
}

func closeQuietly(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}
