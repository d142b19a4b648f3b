package identity

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shandysiswandi/authgate/internal/identity/entity"
	"github.com/shandysiswandi/authgate/internal/identity/inbound"
	"github.com/shandysiswandi/authgate/internal/identity/outbound/cache"
	"github.com/shandysiswandi/authgate/internal/identity/outbound/db"
	"github.com/shandysiswandi/authgate/internal/identity/outbound/email"
	"github.com/shandysiswandi/authgate/internal/identity/outbound/idp"
	"github.com/shandysiswandi/authgate/internal/identity/outbound/mq"
	"github.com/shandysiswandi/authgate/internal/identity/usecase"
	"github.com/shandysiswandi/authgate/internal/pkg/clock"
	"github.com/shandysiswandi/authgate/internal/pkg/config"
	"github.com/shandysiswandi/authgate/internal/pkg/cooldown"
	"github.com/shandysiswandi/authgate/internal/pkg/goroutine"
	"github.com/shandysiswandi/authgate/internal/pkg/hash"
	"github.com/shandysiswandi/authgate/internal/pkg/instrument"
	"github.com/shandysiswandi/authgate/internal/pkg/mail"
	"github.com/shandysiswandi/authgate/internal/pkg/messaging"
	"github.com/shandysiswandi/authgate/internal/pkg/otp"
	"github.com/shandysiswandi/authgate/internal/pkg/router"
	"github.com/shandysiswandi/authgate/internal/pkg/uid"
	"github.com/shandysiswandi/authgate/internal/pkg/validator"
)

// OTP store drivers selectable with modules.identity.otp.store.
const (
	OTPStoreDatabase = "database"
	OTPStoreRedis    = "redis"
	OTPStoreMemory   = "memory"
)

type Dependency struct {
	DBConn       *pgxpool.Pool              `validate:"required"`
	Router       *router.Router             `validate:"required"`
	Goroutine    *goroutine.Manager         `validate:"required"`
	Messaging    messaging.Messaging        `validate:"required"`
	Mail         mail.Mail                  `validate:"required"`
	IDP          *idp.Keycloak              `validate:"required"`
	Cooldown     cooldown.Cooldown          `validate:"required"`
	Attempts     cooldown.Counter           `validate:"required"`
	Config       config.Config              `validate:"required"`
	Instrument   instrument.Instrumentation `validate:"required"`
	UID          uid.NumberID               `validate:"required"`
	HMAC         hash.Hash                  `validate:"required"`
	Bcrypt       hash.Hash                  `validate:"required"`
	Clock        clock.Clocker              `validate:"required"`
	Validator    validator.Validator        `validate:"required"`
	CodeGen      otp.Generator              `validate:"required"`
	OTPCache     otp.Store
	OTPRateLimit router.Middleware
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	dbIdentity := db.NewDB(dep.DBConn, dep.Instrument)

	uc := usecase.New(usecase.Dependency{
		RepoDB:        dbIdentity,
		RepoOTP:       selectOTPStore(dep, dbIdentity),
		RepoIDP:       dep.IDP,
		RepoEmail:     email.New(dep.Mail, dep.Config.GetString("mail.from"), dep.Instrument),
		RepoMessaging: mq.NewMessaging(dep.Messaging, dep.Instrument),
		Cooldown:      dep.Cooldown,
		Attempts:      dep.Attempts,
		CodeGenerator: dep.CodeGen,
		Validator:     dep.Validator,
		HMAC:          dep.HMAC,
		Bcrypt:        dep.Bcrypt,
		UID:           dep.UID,
		Clock:         dep.Clock,
		Instrument:    dep.Instrument,
		Goroutine:     dep.Goroutine,
		Config: usecase.Config{
			OTPWindow:      dep.Config.GetSecond("modules.identity.otp.window_seconds"),
			OTPCooldown:    dep.Config.GetSecond("modules.identity.otp.cooldown_seconds"),
			OTPMaxAttempts: dep.Config.GetInt("modules.identity.otp.max_attempts"),
		},
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc, dep.OTPRateLimit)

	return nil
}

type otpRepository interface {
	IssueOTP(ctx context.Context, rec entity.OTPRecord) error
	ConsumeOTP(ctx context.Context, email, codeHash string, at time.Time) (bool, error)
}

// selectOTPStore picks where OTP records live. The database is the default;
// memory is only correct for a single instance.
func selectOTPStore(dep Dependency, dbIdentity *db.DB) otpRepository {
	switch strings.ToLower(strings.TrimSpace(dep.Config.GetString("modules.identity.otp.store"))) {
	case OTPStoreRedis, OTPStoreMemory:
		if dep.OTPCache != nil {
			return cache.NewOTP(dep.OTPCache, dep.Instrument)
		}
	}
	return dbIdentity
}
