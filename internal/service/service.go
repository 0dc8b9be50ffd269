package service

import (
	"github.com/redis/go-redis/v9"

	"github.com/derisk-ai/appserve/internal/config"
	"github.com/derisk-ai/appserve/internal/repository"
	"github.com/derisk-ai/appserve/internal/service/app"
	"github.com/derisk-ai/appserve/internal/service/hotness"
)

// Services 服务集合
type Services struct {
	App     *app.Service
	Hotness *hotness.Service

	Config *config.Config
}

// NewServices 创建所有服务，redisClient 为 nil 时热度统计走进程内计数
func NewServices(repos *repository.Repositories, cfg *config.Config, redisClient *redis.Client) *Services {
	hotnessService := hotness.New(redisClient)
	appService := app.NewService(repos, hotnessService, cfg.App.Language)

	return &Services{
		App:     appService,
		Hotness: hotnessService,
		Config:  cfg,
	}
}
