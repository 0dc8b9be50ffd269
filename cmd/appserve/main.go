package main

import (
	"log"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/derisk-ai/appserve/internal/config"
	"github.com/derisk-ai/appserve/internal/database"
	"github.com/derisk-ai/appserve/internal/logger"
	"github.com/derisk-ai/appserve/internal/repository"
	"github.com/derisk-ai/appserve/internal/service"
)

func main() {
	// 加载配置
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	logger.Init(cfg.Log.Level, cfg.App.Debug)

	// 初始化数据库
	db, err := database.New(cfg)
	if err != nil {
		log.Fatalf("Failed to init database: %v", err)
	}
	defer db.Close()

	log.Printf("Database connected: %s", cfg.Database.DBName)

	// 初始化 Redis，未启用时热度统计退化为进程内计数
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.GetAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	// 初始化各层
	repos := repository.NewRepositories(db.DB)
	services := service.NewServices(repos, cfg, redisClient)

	// 内置应用按场景目录删旧重建
	services.App.InitNativeApps("")

	log.Println("Native apps initialized")
}
