package app

import (
	"log/slog"
	"os"

	"github.com/shandysiswandi/authgate/internal/identity"
	"github.com/shandysiswandi/authgate/internal/pkg/router"
)

func (a *App) initModules() {
	if !a.config.GetBool("modules.identity.enabled") {
		return
	}

	var otpLimit router.Middleware
	if a.otpLimiter != nil {
		otpLimit = a.otpLimiter.Middleware()
	}

	if err := identity.New(identity.Dependency{
		DBConn:       a.dbConn,
		Router:       a.router,
		Goroutine:    a.goroutine,
		Messaging:    a.messaging,
		Mail:         a.mail,
		IDP:          a.idp,
		Cooldown:     a.cooldown,
		Attempts:     a.attempts,
		Config:       a.config,
		Instrument:   a.ins,
		UID:          a.uid,
		HMAC:         a.hmac,
		Bcrypt:       a.bcrypt,
		Clock:        a.clock,
		Validator:    a.validator,
		CodeGen:      a.codeGen,
		OTPCache:     a.otpCache,
		OTPRateLimit: otpLimit,
	}); err != nil {
		slog.Error("failed to init module identity", "error", err)
		os.Exit(1)
	}
}
