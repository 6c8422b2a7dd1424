package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jesseKyomuhendo/auth-user-api/internal/config"
	"github.com/jesseKyomuhendo/auth-user-api/internal/security"
	sessiondomain "github.com/jesseKyomuhendo/auth-user-api/internal/session/domain"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{
		GRPCAddr:      "127.0.0.1:0",
		StoreDriver:   config.StoreDriverMemory,
		JWTAlgorithm:  security.AlgHS256,
		JWTSecretKey:  testSecret,
		JWTIssuer:     "auth-user-api",
		JWTAudience:   "auth-user-api",
		JWTAccessTTL:  "5m",
		JWTRefreshTTL: "1h",
		BcryptCost:    4,
		ServiceName:   "auth-user-api-test",
	}
	require.NoError(t, cfg.Validate())
	return cfg
}

func ecdsaPEM(t *testing.T) string {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	return string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}))
}

func TestNewTokenCodec(t *testing.T) {
	t.Run("hs256", func(t *testing.T) {
		codec, err := newTokenCodec(testConfig(t))
		require.NoError(t, err)
		assert.Equal(t, security.AlgHS256, codec.Algorithm())
		assert.Equal(t, 5*time.Minute, codec.AccessTTL())
		assert.Equal(t, time.Hour, codec.RefreshTTL())
	})

	t.Run("short secret", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.JWTSecretKey = "short"
		_, err := newTokenCodec(cfg)
		requireCode(t, err, "CONFIG_INVALID")
	})

	t.Run("es256 derives public key", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.JWTAlgorithm = security.AlgES256
		cfg.JWTPrivateKey = ecdsaPEM(t)
		codec, err := newTokenCodec(cfg)
		require.NoError(t, err)
		assert.Equal(t, security.AlgES256, codec.Algorithm())
	})

	t.Run("key does not match algorithm", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.JWTAlgorithm = security.AlgRS256
		cfg.JWTPrivateKey = ecdsaPEM(t)
		_, err := newTokenCodec(cfg)
		requireCode(t, err, "CONFIG_INVALID")
	})

	t.Run("missing private key", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.JWTAlgorithm = security.AlgRS256
		_, err := newTokenCodec(cfg)
		requireCode(t, err, "CONFIG_INVALID")
	})
}

func TestOpenStore_PostgresRequiresDatabaseURL(t *testing.T) {
	cfg := testConfig(t)
	cfg.StoreDriver = config.StoreDriverPostgres
	_, err := openStore(context.Background(), cfg, zerolog.Nop())
	requireCode(t, err, "CONFIG_INVALID")
}

func TestNewAuthService_MemoryStore(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	st, err := openStore(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	defer st.close()
	require.NoError(t, st.pinger.Ping(ctx))

	auth, err := newAuthService(cfg, st)
	require.NoError(t, err)

	acc, err := auth.CreateAccount(ctx, "Root@Example.com", "Secr3tPass!", "Root", true)
	require.NoError(t, err)
	assert.True(t, acc.Admin)
	assert.Equal(t, "root@example.com", acc.Email)

	pair, err := auth.Login(ctx, "root@example.com", "Secr3tPass!", sessiondomain.Audit{})
	require.NoError(t, err)
	got, err := auth.Authenticate(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, acc.ID, got.ID)
}

func TestRunServe_StopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- runServe(ctx, cfg, zerolog.New(io.Discard))
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("runServe did not return after cancel")
	}
}
