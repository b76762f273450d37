package app

import (
	"time"

	"github.com/stitchfolk/patternhub-backend/internal/platform/envutil"
)

type Config struct {
	JWTSecretKey   string
	AccessTokenTTL time.Duration
	PatternFileExt string
	Port           string
}

func LoadConfig() Config {
	return Config{
		JWTSecretKey:   envutil.Str("JWT_SECRET_KEY", "defaultsecret"),
		AccessTokenTTL: time.Duration(envutil.Int("ACCESS_TOKEN_TTL", 3600)) * time.Second,
		PatternFileExt: envutil.Str("PATTERN_FILE_EXTENSION", ".oxs"),
		Port:           envutil.Str("PORT", "8080"),
	}
}
