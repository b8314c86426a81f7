package main

import (
	"context"
	"time"

	"github.com/cppla/yapper/avatar"
	"github.com/cppla/yapper/cache"
	"github.com/cppla/yapper/config"
	"github.com/cppla/yapper/identity"
	"github.com/cppla/yapper/models"
	"github.com/cppla/yapper/routes"
	"github.com/cppla/yapper/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(cfg, &models.User{}, &models.Post{}, &models.Reply{})

	var store cache.Cache = cache.NewMemory()
	var closeRedis func() error
	if cfg.RedisEnabled {
		rc, err := cache.NewRedisClient(cfg)
		if err != nil {
			utils.Sugar.Warnf("redis unavailable, using in-process cache: %v", err)
		} else {
			store = cache.NewRedis(rc)
			closeRedis = rc.Close
		}
	}

	avatarStore, err := buildAvatarStore(cfg)
	if err != nil {
		utils.Sugar.Fatalf("avatar storage: %v", err)
	}

	providers := identity.NewProviders(cfg)
	if len(providers) == 0 {
		utils.Sugar.Warn("no identity provider configured; set CLIENT_ID and CLIENT_SECRET")
	}

	accessLog, err := utils.NewAccessLogger(cfg)
	if err != nil {
		utils.Sugar.Warnf("gin access log disabled: %v", err)
		accessLog = nil
	}

	r, err := routes.SetupRouter(routes.Dependencies{
		Config:    cfg,
		DB:        db,
		Cache:     store,
		Providers: providers,
		Avatars:   avatar.NewGenerator(avatarStore, cfg.AvatarSize),
		AccessLog: accessLog,
	})
	if err != nil {
		utils.Sugar.Fatalf("router setup failed: %v", err)
	}

	srv := utils.NewGraceServer(":"+cfg.AppPort, r)
	srv.OnShutdown(func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})
	if closeRedis != nil {
		srv.OnShutdown(closeRedis)
	}

	utils.Sugar.Infof("Starting %s on port %s (graceful)", cfg.AppName, cfg.AppPort)
	if err := srv.ListenAndServe(); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}

func buildAvatarStore(cfg config.AppConfig) (avatar.Store, error) {
	if cfg.AvatarS3Bucket == "" {
		return avatar.NewLocalStore(cfg.AvatarDir, cfg.AvatarURLPrefix), nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := avatar.NewS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}
	utils.Sugar.Infof("storing avatars in s3 bucket %s (region %s)", cfg.AvatarS3Bucket, cfg.AvatarS3Region)
	return avatar.NewS3Store(client, cfg.AvatarS3Bucket, cfg.AvatarS3Prefix, cfg.AvatarURLPrefix), nil
}
