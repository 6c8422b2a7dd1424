package main

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/samber/oops"

	accountrepo "github.com/jesseKyomuhendo/auth-user-api/internal/account/repository"
	"github.com/jesseKyomuhendo/auth-user-api/internal/config"
	"github.com/jesseKyomuhendo/auth-user-api/internal/db"
	"github.com/jesseKyomuhendo/auth-user-api/internal/db/memory"
	"github.com/jesseKyomuhendo/auth-user-api/internal/db/migrate"
	"github.com/jesseKyomuhendo/auth-user-api/internal/identity/service"
	"github.com/jesseKyomuhendo/auth-user-api/internal/security"
	sessionrepo "github.com/jesseKyomuhendo/auth-user-api/internal/session/repository"
)

// store bundles the repositories and transaction runner the auth service is built on.
type store struct {
	accounts service.AccountRepo
	sessions service.SessionRepo
	tx       service.TxRunner
	pinger   interface{ Ping(context.Context) error }
	close    func()
}

// openStore returns the in-memory store or a pgx pool backed one, depending on STORE_DRIVER.
func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*store, error) {
	if cfg.UseMemoryStore() {
		log.Warn().Msg("using in-memory store, accounts and sessions are lost on exit")
		s := memory.NewStore()
		return &store{
			accounts: s.Accounts(),
			sessions: s.Sessions(),
			tx:       s,
			pinger:   s,
			close:    func() {},
		}, nil
	}

	if cfg.DatabaseURL == "" {
		return nil, oops.Code("CONFIG_INVALID").Errorf("DATABASE_URL is required when STORE_DRIVER is postgres")
	}
	if cfg.AutoMigrate {
		if err := migrate.Run(cfg.DatabaseURL, migrate.Up); err != nil {
			return nil, oops.Code("MIGRATION_FAILED").With("operation", "auto migrate").Wrap(err)
		}
		log.Info().Msg("migrations applied")
	}

	pool, err := db.NewPool(ctx, db.PoolConfig{ConnString: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns})
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	return &store{
		accounts: accountrepo.NewPostgresRepository(pool),
		sessions: sessionrepo.NewPostgresRepository(pool),
		tx:       db.NewTxManager(pool),
		pinger:   pool,
		close:    pool.Close,
	}, nil
}

// newTokenCodec builds the token codec from the JWT_* settings.
func newTokenCodec(cfg *config.Config) (*security.TokenCodec, error) {
	cc := security.CodecConfig{
		Algorithm:  cfg.JWTAlgorithm,
		Issuer:     cfg.JWTIssuer,
		Audience:   cfg.JWTAudience,
		AccessTTL:  cfg.AccessTTL(),
		RefreshTTL: cfg.RefreshTTL(),
	}
	if cfg.JWTAlgorithm == security.AlgHS256 {
		cc.Secret = []byte(cfg.JWTSecretKey)
	} else {
		priv, pub, err := security.LoadKeyPair(cfg.JWTPrivateKey, cfg.JWTPublicKey)
		if err != nil {
			return nil, oops.Code("CONFIG_INVALID").With("algorithm", cfg.JWTAlgorithm).Wrapf(err, "load signing keys")
		}
		cc.PrivateKey = priv
		cc.PublicKey = pub
	}
	codec, err := security.NewTokenCodec(cc)
	if err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("algorithm", cfg.JWTAlgorithm).Wrap(err)
	}
	return codec, nil
}

// newAuthService wires the session manager over st.
func newAuthService(cfg *config.Config, st *store, opts ...service.Option) (*service.AuthService, error) {
	codec, err := newTokenCodec(cfg)
	if err != nil {
		return nil, err
	}
	return service.NewAuthService(st.accounts, st.sessions, st.tx, security.NewHasher(cfg.BcryptCost), codec, opts...), nil
}
