package auth_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"golang.org/x/crypto/bcrypt"

	auth "github.com/goliatone/go-org-auth"
)

const testSigningKey = "test-signing-key-0123456789"

func testConfig() auth.BaseConfig {
	cfg := auth.DefaultConfig(testSigningKey)
	cfg.PasswordCost = bcrypt.MinCost
	return cfg
}

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	// every connection to :memory: is a separate database
	sqldb.SetMaxOpenConns(1)
	sqldb.SetMaxIdleConns(1)
	sqldb.SetConnMaxLifetime(0)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() {
		_ = db.Close()
	})

	require.NoError(t, auth.Migrate(context.Background(), db, auth.NoopLogger{}))

	return db
}

// fakeClock is a settable time source
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	db       *bun.DB
	repo     auth.RepositoryManager
	service  *auth.AuthService
	clock    *fakeClock
	registry *prometheus.Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newTestDB(t)
	repo := auth.NewRepositoryManager(db)

	service, err := auth.NewAuthService(testConfig(), repo)
	require.NoError(t, err)

	clock := newFakeClock()
	registry := prometheus.NewRegistry()

	service.
		WithLogger(auth.NoopLogger{}).
		WithMetrics(auth.NewMetrics(registry)).
		WithClock(clock.Now)

	return &testEnv{
		db:       db,
		repo:     repo,
		service:  service,
		clock:    clock,
		registry: registry,
	}
}

func (e *testEnv) register(t *testing.T, email, password, firstName string) *auth.UserIdentity {
	t.Helper()

	identity, err := e.service.Register(context.Background(), auth.RegisterUserMessage{
		Email:     email,
		FirstName: firstName,
		LastName:  "Tester",
		Password:  password,
	})
	require.NoError(t, err)
	return identity
}

func bearer(token string) string {
	return "Bearer " + token
}
