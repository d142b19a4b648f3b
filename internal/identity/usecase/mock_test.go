package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/shandysiswandi/authgate/internal/identity/entity"
	"github.com/shandysiswandi/authgate/internal/pkg/clock"
	"github.com/shandysiswandi/authgate/internal/pkg/goroutine"
	"github.com/shandysiswandi/authgate/internal/pkg/hash"
	"github.com/shandysiswandi/authgate/internal/pkg/instrument"
	"github.com/shandysiswandi/authgate/internal/pkg/validator"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type mockRepoDB struct{ mock.Mock }

func (m *mockRepoDB) GetUserByEmail(ctx context.Context, email string) (*entity.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*entity.User)
	return user, args.Error(1)
}

func (m *mockRepoDB) CreateUser(ctx context.Context, user entity.NewUser) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockRepoDB) DeleteUser(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockRepoDB) MarkUserVerified(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

type mockRepoOTP struct{ mock.Mock }

func (m *mockRepoOTP) IssueOTP(ctx context.Context, rec entity.OTPRecord) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *mockRepoOTP) ConsumeOTP(ctx context.Context, email, codeHash string, at time.Time) (bool, error) {
	args := m.Called(ctx, email, codeHash, at)
	return args.Bool(0), args.Error(1)
}

type mockRepoIDP struct{ mock.Mock }

func (m *mockRepoIDP) PasswordGrant(ctx context.Context, username, password string) (*entity.TokenSet, error) {
	args := m.Called(ctx, username, password)
	ts, _ := args.Get(0).(*entity.TokenSet)
	return ts, args.Error(1)
}

func (m *mockRepoIDP) CreateUser(ctx context.Context, in entity.NewProviderUser) error {
	return m.Called(ctx, in).Error(0)
}

func (m *mockRepoIDP) ListUsers(ctx context.Context, filter entity.ProviderUserFilter) ([]entity.ProviderUser, error) {
	args := m.Called(ctx, filter)
	users, _ := args.Get(0).([]entity.ProviderUser)
	return users, args.Error(1)
}

type mockRepoEmail struct{ mock.Mock }

func (m *mockRepoEmail) SendOTP(ctx context.Context, email, code string) error {
	return m.Called(ctx, email, code).Error(0)
}

type mockRepoMessaging struct{ mock.Mock }

func (m *mockRepoMessaging) PublishUserRegistered(ctx context.Context, msg UserRegisteredEvent) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *mockRepoMessaging) PublishUserVerified(ctx context.Context, msg UserVerifiedEvent) error {
	return m.Called(ctx, msg).Error(0)
}

type mockCooldown struct{ mock.Mock }

func (m *mockCooldown) Acquire(ctx context.Context, key string, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, window)
	return args.Bool(0), args.Error(1)
}

func (m *mockCooldown) Release(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

type fixedCode string

func (f fixedCode) Generate() (string, error) { return string(f), nil }

type mocks struct {
	db        *mockRepoDB
	otp       *mockRepoOTP
	idp       *mockRepoIDP
	email     *mockRepoEmail
	messaging *mockRepoMessaging
	cooldown  *mockCooldown
	hmac      *hash.HMACSHA256
	routine   *goroutine.Manager
	clock     *clock.Fixed
}

func newTestUsecase(t *testing.T, code string) (*Usecase, *mocks) {
	t.Helper()

	v, err := validator.NewV10Validator()
	require.NoError(t, err)
	hmac, err := hash.NewHMACSHA256("test-secret")
	require.NoError(t, err)

	m := &mocks{
		db:        new(mockRepoDB),
		otp:       new(mockRepoOTP),
		idp:       new(mockRepoIDP),
		email:     new(mockRepoEmail),
		messaging: new(mockRepoMessaging),
		cooldown:  new(mockCooldown),
		hmac:      hmac,
		routine:   goroutine.NewManager(4),
		clock:     clock.NewFixed(testNow),
	}

	uc := New(Dependency{
		RepoDB:        m.db,
		RepoOTP:       m.otp,
		RepoIDP:       m.idp,
		RepoEmail:     m.email,
		RepoMessaging: m.messaging,
		Cooldown:      m.cooldown,
		CodeGenerator: fixedCode(code),
		Validator:     v,
		HMAC:          m.hmac,
		Bcrypt:        hash.NewBcrypt(4, "pepper"),
		UID:           sequence(1000),
		Clock:         m.clock,
		Instrument:    instrument.NewNoop(),
		Goroutine:     m.routine,
		Config:        Config{OTPWindow: 5 * time.Minute, OTPCooldown: time.Minute},
	})

	return uc, m
}

// assertAll drains background work and checks every mock's expectations.
func (m *mocks) assertAll(t *testing.T) {
	t.Helper()

	_ = m.routine.Wait()
	m.db.AssertExpectations(t)
	m.otp.AssertExpectations(t)
	m.idp.AssertExpectations(t)
	m.email.AssertExpectations(t)
	m.messaging.AssertExpectations(t)
	m.cooldown.AssertExpectations(t)
}

func (m *mocks) codeHash(t *testing.T, code string) string {
	t.Helper()

	h, err := m.hmac.Hash(code)
	require.NoError(t, err)
	return string(h)
}

type sequence int64

func (s sequence) Generate() int64 { return int64(s) }
