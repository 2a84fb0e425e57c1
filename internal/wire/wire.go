//go:build wireinject
// +build wireinject

package wire

import (
	"gosocialmsg/internal/config"
	"gosocialmsg/internal/dbmysql"
	"gosocialmsg/internal/member"
	"gosocialmsg/internal/message/handler"
	"gosocialmsg/internal/message/repository"
	"gosocialmsg/internal/message/service"

	"github.com/google/wire"
)

func InitializeApplication(cfg *config.Config) (*Application, error) {
	wire.Build(
		dbmysql.NewMySQL,
		ProvideTokenManager,
		member.NewMemberRepository,
		repository.NewMessageTypeRepository,
		repository.NewMessageRepository,
		service.NewMessageService,
		handler.NewMessageHandler,
		wire.Struct(new(Application), "*"),
	)
	return &Application{}, nil
}
