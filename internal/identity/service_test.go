package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bissquit/storefront/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// mockRepository implements Repository in memory with a unique email index.
type mockRepository struct {
	mu             sync.Mutex
	users          map[string]*domain.User
	nextID         int64
	createUserErr  error
	getByEmailErr  error
	existsErr      error
	getByEmailCall int
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		users: make(map[string]*domain.User),
	}
}

func (m *mockRepository) CreateUser(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createUserErr != nil {
		return m.createUserErr
	}
	if _, ok := m.users[user.Email]; ok {
		return ErrEmailExists
	}
	m.nextID++
	user.ID = m.nextID
	user.JoinedAt = time.Now().UTC()

	stored := *user
	m.users[user.Email] = &stored
	return nil
}

func (m *mockRepository) GetUserByID(_ context.Context, id int64) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.ID == id {
			found := *u
			return &found, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *mockRepository) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.getByEmailCall++
	if m.getByEmailErr != nil {
		return nil, m.getByEmailErr
	}
	if u, ok := m.users[email]; ok {
		found := *u
		return &found, nil
	}
	return nil, ErrUserNotFound
}

func (m *mockRepository) ExistsByEmail(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.existsErr != nil {
		return false, m.existsErr
	}
	_, ok := m.users[email]
	return ok, nil
}

func (m *mockRepository) count(email string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, u := range m.users {
		if u.Email == email {
			n++
		}
	}
	return n
}

// mockAuthenticator implements Authenticator for testing.
type mockAuthenticator struct {
	err    error
	issued int
}

func (m *mockAuthenticator) GenerateToken(_ context.Context, user *domain.User) (*Token, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.issued++
	return &Token{
		AccessToken: fmt.Sprintf("token-%d-%d", user.ID, m.issued),
		TokenType:   "Bearer",
		ExpiresAt:   time.Now().Add(time.Hour),
	}, nil
}

func (m *mockAuthenticator) ValidateToken(_ context.Context, _ string) (string, domain.Role, error) {
	return "1", domain.RoleOrdinary, nil
}

func (m *mockAuthenticator) Type() string {
	return "mock"
}

func newTestService(t *testing.T) (*Service, *mockRepository, *mockAuthenticator) {
	t.Helper()

	hasher, err := NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)

	repo := newMockRepository()
	auth := &mockAuthenticator{}

	return NewService(repo, hasher, auth), repo, auth
}

func TestRegister_StoresDigestNotPlaintext(t *testing.T) {
	service, repo, _ := newTestService(t)

	user, err := service.Register(context.Background(), RegisterInput{
		Email:     "a@x.com",
		Password:  "secret123",
		FirstName: "Ada",
		LastName:  "Lovelace",
		Role:      domain.RoleSeller,
	})

	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.False(t, user.JoinedAt.IsZero())
	assert.Equal(t, domain.RoleSeller, user.Role)
	assert.Equal(t, "Ada", user.FirstName)

	stored, err := repo.GetUserByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", stored.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("secret123")))
}

func TestRegister_DefaultsRoleToOrdinary(t *testing.T) {
	service, _, _ := newTestService(t)

	user, err := service.Register(context.Background(), RegisterInput{
		Email:    "b@x.com",
		Password: "secret123",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.RoleOrdinary, user.Role)
}

func TestRegister_RejectsUnknownRole(t *testing.T) {
	service, repo, _ := newTestService(t)

	_, err := service.Register(context.Background(), RegisterInput{
		Email:    "root@x.com",
		Password: "secret123",
		Role:     domain.Role("root"),
	})

	assert.ErrorIs(t, err, ErrInvalidRole)
	assert.Equal(t, 0, repo.count("root@x.com"))
}

func TestRegister_NormalizesEmail(t *testing.T) {
	service, repo, _ := newTestService(t)

	user, err := service.Register(context.Background(), RegisterInput{
		Email:    "  Mixed.Case@Example.COM ",
		Password: "secret123",
	})

	require.NoError(t, err)
	assert.Equal(t, "mixed.case@example.com", user.Email)
	assert.Equal(t, 1, repo.count("mixed.case@example.com"))
}

func TestRegister_DuplicateEmail(t *testing.T) {
	service, repo, _ := newTestService(t)
	ctx := context.Background()

	_, err := service.Register(ctx, RegisterInput{Email: "dup@x.com", Password: "first-pass"})
	require.NoError(t, err)

	user, err := service.Register(ctx, RegisterInput{Email: "DUP@x.com", Password: "second-pass"})

	assert.Nil(t, user)
	assert.ErrorIs(t, err, ErrEmailExists)
	assert.Equal(t, 1, repo.count("dup@x.com"))
}

func TestRegister_ConcurrentSameEmail(t *testing.T) {
	service, repo, _ := newTestService(t)

	const attempts = 8
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.Register(context.Background(), RegisterInput{
				Email:    "race@x.com",
				Password: "secret123",
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, conflicts int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrEmailExists):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, attempts-1, conflicts)
	assert.Equal(t, 1, repo.count("race@x.com"))
}

func TestRegister_StorageErrorPropagates(t *testing.T) {
	service, repo, _ := newTestService(t)
	storageErr := fmt.Errorf("%w: connection refused", ErrStorage)
	repo.createUserErr = storageErr

	user, err := service.Register(context.Background(), RegisterInput{
		Email:    "c@x.com",
		Password: "secret123",
	})

	assert.Nil(t, user)
	assert.Same(t, storageErr, err)
	assert.ErrorIs(t, err, ErrStorage)
}

func TestRegister_PasswordTooLong(t *testing.T) {
	service, repo, _ := newTestService(t)

	long := make([]byte, 73)
	for i := range long {
		long[i] = 'a'
	}

	_, err := service.Register(context.Background(), RegisterInput{
		Email:    "long@x.com",
		Password: string(long),
	})

	assert.ErrorIs(t, err, ErrPasswordTooLong)
	assert.Equal(t, 0, repo.count("long@x.com"))
}

func TestLogin_Success(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	registered, err := service.Register(ctx, RegisterInput{Email: "d@x.com", Password: "secret123"})
	require.NoError(t, err)

	user, token, err := service.Login(ctx, LoginInput{Email: "D@X.com", Password: "secret123"})

	require.NoError(t, err)
	require.NotNil(t, token)
	assert.NotEmpty(t, token.AccessToken)
	assert.Equal(t, registered.ID, user.ID)
}

func TestLogin_IssuesDistinctTokens(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := service.Register(ctx, RegisterInput{Email: "e@x.com", Password: "secret123"})
	require.NoError(t, err)

	_, first, err := service.Login(ctx, LoginInput{Email: "e@x.com", Password: "secret123"})
	require.NoError(t, err)
	_, second, err := service.Login(ctx, LoginInput{Email: "e@x.com", Password: "secret123"})
	require.NoError(t, err)

	assert.NotEqual(t, first.AccessToken, second.AccessToken)
}

func TestLogin_InvalidCredentialsIndistinguishable(t *testing.T) {
	service, _, auth := newTestService(t)
	ctx := context.Background()

	_, err := service.Register(ctx, RegisterInput{Email: "f@x.com", Password: "secret123"})
	require.NoError(t, err)

	_, wrongPasswordToken, wrongPasswordErr := service.Login(ctx, LoginInput{Email: "f@x.com", Password: "wrong"})
	_, unknownToken, unknownErr := service.Login(ctx, LoginInput{Email: "nobody@x.com", Password: "secret123"})

	assert.Nil(t, wrongPasswordToken)
	assert.Nil(t, unknownToken)
	assert.Same(t, ErrInvalidCredentials, wrongPasswordErr)
	assert.Same(t, ErrInvalidCredentials, unknownErr)
	assert.Equal(t, wrongPasswordErr.Error(), unknownErr.Error())
	assert.Zero(t, auth.issued)
}

func TestLogin_StorageErrorIsNotInvalidCredentials(t *testing.T) {
	service, repo, _ := newTestService(t)
	repo.getByEmailErr = fmt.Errorf("%w: timeout", ErrStorage)

	_, _, err := service.Login(context.Background(), LoginInput{Email: "g@x.com", Password: "secret123"})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStorage)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_TokenGenerationFails(t *testing.T) {
	service, _, auth := newTestService(t)
	ctx := context.Background()

	_, err := service.Register(ctx, RegisterInput{Email: "h@x.com", Password: "secret123"})
	require.NoError(t, err)

	auth.err = errors.New("signing failed")

	_, token, err := service.Login(ctx, LoginInput{Email: "h@x.com", Password: "secret123"})

	assert.Nil(t, token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generate token")
}

func TestGetUserByID(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	registered, err := service.Register(ctx, RegisterInput{Email: "i@x.com", Password: "secret123"})
	require.NoError(t, err)

	user, err := service.GetUserByID(ctx, fmt.Sprint(registered.ID))
	require.NoError(t, err)
	assert.Equal(t, "i@x.com", user.Email)

	_, err = service.GetUserByID(ctx, "not-a-number")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = service.GetUserByID(ctx, "999")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestEmailTaken(t *testing.T) {
	service, repo, _ := newTestService(t)
	ctx := context.Background()

	taken, err := service.EmailTaken(ctx, "j@x.com")
	require.NoError(t, err)
	assert.False(t, taken)

	_, err = service.Register(ctx, RegisterInput{Email: "j@x.com", Password: "secret123"})
	require.NoError(t, err)

	taken, err = service.EmailTaken(ctx, " J@x.com")
	require.NoError(t, err)
	assert.True(t, taken)

	repo.existsErr = ErrStorage
	_, err = service.EmailTaken(ctx, "j@x.com")
	assert.ErrorIs(t, err, ErrStorage)
}
