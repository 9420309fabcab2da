package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cppla/threads/config"
	"github.com/cppla/threads/controllers"
	"github.com/cppla/threads/repository"
	"github.com/cppla/threads/repository/memory"
	"github.com/cppla/threads/routes"
	"github.com/cppla/threads/services"
	"github.com/cppla/threads/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer utils.Logger.Sync() //nolint:errcheck

	// Redis is optional; reads go uncached without it
	utils.InitRedis(cfg)

	deps, cleanup, err := openStore(cfg)
	if err != nil {
		utils.Sugar.Fatalf("open store: %v", err)
	}

	svc := services.New(deps,
		services.WithLogger(utils.Logger.Named("services")),
		services.WithMaxPageSize(cfg.MaxPageSize),
		services.WithAdmins(cfg.AdminUsernames...),
		services.WithMutationHook(controllers.CacheInvalidationHook(utils.Logger.Named("cache"))),
	)

	r := routes.SetupRouter(cfg, svc, utils.Logger)

	utils.Sugar.Infof("Starting server on port %s (graceful, store=%s)", cfg.AppPort, cfg.StoreDriver)
	if err := utils.GraceServer(":"+cfg.AppPort, r, cleanup); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}

// openStore builds the repositories selected by cfg.StoreDriver. The returned
// cleanup releases the connection once the server has drained.
func openStore(cfg config.AppConfig) (services.Deps, func(ctx context.Context), error) {
	switch cfg.StoreDriver {
	case "memory":
		st := memory.New()
		utils.Logger.Warn("using in-memory store; data is lost on restart")
		return services.Deps{Posts: st.Posts, Users: st.Users, Communities: st.Communities, Tx: st},
			func(context.Context) {}, nil
	case "mongo":
	default:
		return services.Deps{}, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, db, err := config.ConnectMongo(ctx, cfg)
	if err != nil {
		return services.Deps{}, nil, err
	}
	if err := repository.EnsureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return services.Deps{}, nil, fmt.Errorf("ensure indexes: %w", err)
	}

	var tx bool
	switch cfg.MongoTransactions {
	case "on":
		tx = true
	case "off":
		tx = false
	default:
		tx, err = repository.SupportsTransactions(ctx, client)
		if err != nil {
			utils.Logger.Warn("transaction probe failed; running without transactions", zap.Error(err))
			tx = false
		}
	}
	if !tx {
		utils.Logger.Warn("mongo transactions disabled; multi-document writes fall back to compensation")
	}

	st := repository.NewMongoStore(client, db, tx)
	cleanup := func(ctx context.Context) {
		if err := client.Disconnect(ctx); err != nil {
			utils.Logger.Error("mongo disconnect", zap.Error(err))
		}
	}
	return services.Deps{Posts: st.Posts, Users: st.Users, Communities: st.Communities, Tx: st}, cleanup, nil
}
