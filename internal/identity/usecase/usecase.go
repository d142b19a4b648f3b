package usecase

import (
	"context"
	"time"

	"github.com/shandysiswandi/authgate/internal/identity/entity"
	"github.com/shandysiswandi/authgate/internal/pkg/clock"
	"github.com/shandysiswandi/authgate/internal/pkg/cooldown"
	"github.com/shandysiswandi/authgate/internal/pkg/goroutine"
	"github.com/shandysiswandi/authgate/internal/pkg/hash"
	"github.com/shandysiswandi/authgate/internal/pkg/instrument"
	"github.com/shandysiswandi/authgate/internal/pkg/otp"
	"github.com/shandysiswandi/authgate/internal/pkg/uid"
	"github.com/shandysiswandi/authgate/internal/pkg/validator"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultOTPWindow = 5 * time.Minute
	defaultListMax   = 100
)

type UserRegisteredEvent struct {
	UserID   int64
	Username string
	Email    string
}

type UserVerifiedEvent struct {
	Email      string
	VerifiedAt time.Time
}

type repoDB interface {
	GetUserByEmail(ctx context.Context, email string) (*entity.User, error)
	CreateUser(ctx context.Context, user entity.NewUser) error
	DeleteUser(ctx context.Context, id int64) error
	MarkUserVerified(ctx context.Context, email string) error
}

// repoOTP is the authoritative OTP record store. ConsumeOTP must flip the
// record to used in a single atomic step so that concurrent callers with the
// same code see at most one true.
type repoOTP interface {
	IssueOTP(ctx context.Context, rec entity.OTPRecord) error
	ConsumeOTP(ctx context.Context, email, codeHash string, at time.Time) (bool, error)
}

type repoIdentityProvider interface {
	PasswordGrant(ctx context.Context, username, password string) (*entity.TokenSet, error)
	CreateUser(ctx context.Context, in entity.NewProviderUser) error
	ListUsers(ctx context.Context, filter entity.ProviderUserFilter) ([]entity.ProviderUser, error)
}

type repoEmail interface {
	SendOTP(ctx context.Context, email, code string) error
}

type repoMessaging interface {
	PublishUserRegistered(ctx context.Context, msg UserRegisteredEvent) error
	PublishUserVerified(ctx context.Context, msg UserVerifiedEvent) error
}

// Config holds the tunables of the identity flows.
type Config struct {
	// OTPWindow is how long an issued code stays acceptable.
	OTPWindow time.Duration
	// OTPCooldown is the minimum gap between two codes for the same email.
	// Zero disables it.
	OTPCooldown time.Duration
	// OTPMaxAttempts caps verify attempts per email within one OTPWindow.
	// Zero disables it.
	OTPMaxAttempts int
}

type Usecase struct {
	repoDB        repoDB
	repoOTP       repoOTP
	repoIDP       repoIdentityProvider
	repoEmail     repoEmail
	repoMessaging repoMessaging
	cooldown      cooldown.Cooldown
	attempts      cooldown.Counter
	codeGen       otp.Generator
	validator     validator.Validator
	hmac          hash.Hash
	bcrypt        hash.Hash
	uid           uid.NumberID
	clock         clock.Clocker
	ins           instrument.Instrumentation
	goroutine     *goroutine.Manager
	cfg           Config
}

type Dependency struct {
	RepoDB        repoDB
	RepoOTP       repoOTP
	RepoIDP       repoIdentityProvider
	RepoEmail     repoEmail
	RepoMessaging repoMessaging
	Cooldown      cooldown.Cooldown
	Attempts      cooldown.Counter
	CodeGenerator otp.Generator
	Validator     validator.Validator
	HMAC          hash.Hash
	Bcrypt        hash.Hash
	UID           uid.NumberID
	Clock         clock.Clocker
	Instrument    instrument.Instrumentation
	Goroutine     *goroutine.Manager
	Config        Config
}

func New(dep Dependency) *Usecase {
	cfg := dep.Config
	if cfg.OTPWindow <= 0 {
		cfg.OTPWindow = defaultOTPWindow
	}

	cd := dep.Cooldown
	if cd == nil {
		cd = cooldown.Noop{}
	}

	attempts := dep.Attempts
	if attempts == nil {
		attempts = cooldown.NewMemoryCounter()
	}

	return &Usecase{
		repoDB:        dep.RepoDB,
		repoOTP:       dep.RepoOTP,
		repoIDP:       dep.RepoIDP,
		repoEmail:     dep.RepoEmail,
		repoMessaging: dep.RepoMessaging,
		cooldown:      cd,
		attempts:      attempts,
		codeGen:       dep.CodeGenerator,
		validator:     dep.Validator,
		hmac:          dep.HMAC,
		bcrypt:        dep.Bcrypt,
		uid:           dep.UID,
		clock:         dep.Clock,
		ins:           dep.Instrument,
		goroutine:     dep.Goroutine,
		cfg:           cfg,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("identity.usecase").Start(ctx, name)
}

// background runs f detached from the request lifetime. Failures are only logged.
func (s *Usecase) background(ctx context.Context, name string, f func(ctx context.Context) error) {
	_ = s.goroutine.Go(context.WithoutCancel(ctx), name, f)
}

func (s *Usecase) hashOTP(code string) (string, error) {
	h, err := s.hmac.Hash(code)
	if err != nil {
		return "", err
	}
	return string(h), nil
}
