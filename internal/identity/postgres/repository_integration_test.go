//go:build integration

package postgres

import (
	"context"
	"log"
	"os"
	"testing"

	"github.com/bissquit/storefront/internal/domain"
	"github.com/bissquit/storefront/internal/identity"
	"github.com/bissquit/storefront/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	ctx := context.Background()

	pgContainer, err := testutil.NewPostgresContainer(ctx, "../../../migrations")
	if err != nil {
		log.Fatalf("start postgres: %v", err)
	}

	testPool, err = pgxpool.New(ctx, pgContainer.ConnectionString)
	if err != nil {
		log.Fatalf("create pool: %v", err)
	}

	code := m.Run()

	testPool.Close()
	if err := pgContainer.Terminate(ctx); err != nil {
		log.Printf("terminate postgres: %v", err)
	}

	os.Exit(code)
}

func newUser(email string) *domain.User {
	return &domain.User{
		Email:     email,
		Password:  "$2a$04$digestdigestdigestdigestdigestdigestdigestdigestdigest",
		FirstName: "Ada",
		Role:      domain.RoleOrdinary,
	}
}

func TestRepository_CreateAndGet(t *testing.T) {
	repo := NewRepository(testPool)
	ctx := context.Background()
	email := testutil.RandomEmail()

	user := newUser(email)
	require.NoError(t, repo.CreateUser(ctx, user))
	assert.NotZero(t, user.ID)
	assert.False(t, user.JoinedAt.IsZero())

	byEmail, err := repo.GetUserByEmail(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)
	assert.Equal(t, user.Password, byEmail.Password)
	assert.Equal(t, "Ada", byEmail.FirstName)
	assert.Empty(t, byEmail.LastName)

	byID, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, email, byID.Email)
	assert.Equal(t, domain.RoleOrdinary, byID.Role)
}

func TestRepository_DuplicateEmail(t *testing.T) {
	repo := NewRepository(testPool)
	ctx := context.Background()
	email := testutil.RandomEmail()

	require.NoError(t, repo.CreateUser(ctx, newUser(email)))

	err := repo.CreateUser(ctx, newUser(email))
	assert.ErrorIs(t, err, identity.ErrEmailExists)

	var rows int
	require.NoError(t, testPool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE email = $1`, email).Scan(&rows))
	assert.Equal(t, 1, rows)
}

func TestRepository_NotFound(t *testing.T) {
	repo := NewRepository(testPool)
	ctx := context.Background()

	_, err := repo.GetUserByEmail(ctx, testutil.RandomEmail())
	assert.ErrorIs(t, err, identity.ErrUserNotFound)

	_, err = repo.GetUserByID(ctx, -1)
	assert.ErrorIs(t, err, identity.ErrUserNotFound)
}

func TestRepository_ExistsByEmail(t *testing.T) {
	repo := NewRepository(testPool)
	ctx := context.Background()
	email := testutil.RandomEmail()

	exists, err := repo.ExistsByEmail(ctx, email)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, repo.CreateUser(ctx, newUser(email)))

	exists, err = repo.ExistsByEmail(ctx, email)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRepository_InvalidRole(t *testing.T) {
	repo := NewRepository(testPool)
	user := newUser(testutil.RandomEmail())
	user.Role = domain.Role("root")

	err := repo.CreateUser(context.Background(), user)
	assert.ErrorIs(t, err, identity.ErrStorage)
	assert.NotErrorIs(t, err, identity.ErrEmailExists)
}

func TestRepository_ClosedPool(t *testing.T) {
	pool, err := pgxpool.New(context.Background(), testPool.Config().ConnString())
	require.NoError(t, err)
	pool.Close()

	repo := NewRepository(pool)

	err = repo.CreateUser(context.Background(), newUser(testutil.RandomEmail()))
	assert.ErrorIs(t, err, identity.ErrStorage)

	_, err = repo.GetUserByEmail(context.Background(), "a@x.com")
	assert.ErrorIs(t, err, identity.ErrStorage)
}
