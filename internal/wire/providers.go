package wire

import (
	"time"

	"gosocialmsg/internal/common"
	"gosocialmsg/internal/config"
	"gosocialmsg/internal/message/handler"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type Application struct {
	Config  *config.Config
	DB      *gorm.DB
	Tokens  *common.TokenManager
	Handler *handler.MessageHandler
}

func ProvideTokenManager(cfg *config.Config) *common.TokenManager {
	if cfg.Auth.JWTSecret == "" {
		log.Warn().Msg("JWT_SECRET is empty, every bearer token will be rejected")
	}
	return common.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)
}

// Close releases the database pool
func (a *Application) Close() error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
