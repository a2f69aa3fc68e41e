package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/trendjack/core/internal/config"
	jwtpkg "github.com/trendjack/core/internal/pkg/jwt"
	"go.uber.org/zap"
)

// offsetLayouts are accepted for timezones given as a bare UTC offset.
var offsetLayouts = []string{"-07:00", "-0700"}

// applyRuntimeSettings installs the JWT secret and the process timezone and
// returns the location cron specs are evaluated in.
func applyRuntimeSettings(cfg *config.AppConfig, logger *zap.Logger) (*time.Location, error) {
	switch secret := strings.TrimSpace(cfg.Auth.JWTSecret); {
	case secret != "":
		jwtpkg.SetSecret(secret)
	case cfg.Auth.Enable:
		logger.Warn("auth.jwt_secret is empty, using built-in default secret")
	}

	tz := strings.TrimSpace(cfg.Timezone)
	if tz == "" {
		return time.Local, nil
	}
	loc, err := parseTimezoneLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}
	time.Local = loc
	_ = os.Setenv("TZ", tz)
	logger.Info("timezone set", zap.String("tz", loc.String()))
	return loc, nil
}

// parseTimezoneLocation accepts an IANA name or a fixed offset like -05:00.
func parseTimezoneLocation(raw string) (*time.Location, error) {
	tz := strings.TrimSpace(raw)
	if tz == "" {
		return time.Local, nil
	}
	if loc, err := time.LoadLocation(tz); err == nil {
		return loc, nil
	}
	if tz[0] == '+' || tz[0] == '-' {
		for _, layout := range offsetLayouts {
			if t, err := time.Parse(layout, tz); err == nil {
				_, offset := t.Zone()
				return time.FixedZone(tz, offset), nil
			}
		}
	}
	return nil, fmt.Errorf("expect IANA zone (e.g. America/New_York) or UTC offset (e.g. -05:00)")
}
