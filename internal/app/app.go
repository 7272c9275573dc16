package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/contentforge/studio/internal/adminops"
	"github.com/contentforge/studio/internal/config"
	"github.com/contentforge/studio/internal/credits"
	"github.com/contentforge/studio/internal/db"
	studiohttp "github.com/contentforge/studio/internal/http"
	"github.com/contentforge/studio/internal/http/api/admin"
	"github.com/contentforge/studio/internal/http/api/front"
	"github.com/contentforge/studio/internal/logging"
	"github.com/contentforge/studio/internal/mail"
	"github.com/contentforge/studio/internal/reset"
	internalsettings "github.com/contentforge/studio/internal/settings"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const settingsWatchInterval = 30 * time.Second

// services holds the wired ledger components for one process.
type services struct {
	cfg      config.Config
	conn     *gorm.DB
	redis    *redis.Client
	registry *prometheus.Registry
	store    *credits.GormStore
	recorder *credits.Recorder
	accessor *credits.BalanceAccessor
	engine   *reset.Engine
	gateway  *adminops.Gateway
}

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close(conn) }()
	if errMigrate := db.Migrate(conn.WithContext(ctx)); errMigrate != nil {
		return errMigrate
	}
	log.Info("database migrated")
	return nil
}

// RunServer serves the front and admin APIs and runs the background jobs until ctx is done.
func RunServer(ctx context.Context, cfg config.AppConfig) error {
	conf, err := config.Load(config.ResolveConfigPath(cfg.ConfigPath))
	if err != nil {
		return err
	}
	if strings.TrimSpace(conf.JWT.Secret) == "" {
		return errors.New("config: jwt.secret is required to serve")
	}
	logCloser, err := logging.Setup(conf.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = logCloser.Close() }()

	svc, err := newServices(ctx, conf)
	if err != nil {
		return err
	}
	defer svc.close()

	engine := newRouter(svc)
	server := &http.Server{
		Addr:         conf.Server.Addr,
		Handler:      engine,
		ReadTimeout:  conf.Server.ReadTimeout,
		WriteTimeout: conf.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Infof("listening on %s", conf.Server.Addr)
		if errServe := server.ListenAndServe(); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", errServe)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down http server")
		return server.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		reset.NewSweeper(svc.engine, conf.Reset.SweepInterval).Run(gctx)
		return nil
	})
	g.Go(func() error {
		internalsettings.Watch(gctx, svc.conn, settingsWatchInterval)
		return nil
	})
	mail.NewCodeCleaner(svc.conn).Start(gctx)

	return g.Wait()
}

// RunResetSweep runs one reset sweep and returns its summary.
func RunResetSweep(ctx context.Context, cfg config.AppConfig) (reset.Summary, error) {
	conf, err := config.Load(config.ResolveConfigPath(cfg.ConfigPath))
	if err != nil {
		return reset.Summary{}, err
	}
	svc, err := newServices(ctx, conf)
	if err != nil {
		return reset.Summary{}, err
	}
	defer svc.close()
	return svc.engine.Sweep(ctx)
}

func newServices(ctx context.Context, conf config.Config) (*services, error) {
	conn, err := db.Open(conf.Database.DSN)
	if err != nil {
		return nil, err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		_ = db.Close(conn)
		return nil, errMigrate
	}
	if errRefresh := internalsettings.RefreshDBConfigSnapshot(ctx, conn); errRefresh != nil {
		_ = db.Close(conn)
		return nil, fmt.Errorf("load settings: %w", errRefresh)
	}

	svc := &services{cfg: conf, conn: conn, registry: prometheus.NewRegistry()}
	svc.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var cache credits.BalanceCache
	if addr := strings.TrimSpace(conf.Redis.Addr); addr != "" {
		svc.redis = redis.NewClient(&redis.Options{
			Addr:     addr,
			Username: conf.Redis.Username,
			Password: conf.Redis.Password,
			DB:       conf.Redis.DB,
		})
		if errPing := svc.redis.Ping(ctx).Err(); errPing != nil {
			log.WithError(errPing).Warn("redis unreachable, balance reads fall back to the database")
		}
		cache = credits.NewRedisBalanceCache(svc.redis, conf.Redis.BalanceTTL)
	}

	signupBonus := conf.Credits.SignupBonus
	svc.store = credits.NewGormStore(conn)
	opts := []credits.RecorderOption{
		credits.WithMetrics(credits.NewMetrics(svc.registry)),
		credits.WithStoreTimeout(conf.Credits.StoreTimeout),
		credits.WithSignupBonus(func() int64 {
			return internalsettings.IntValue(internalsettings.SignupBonusCreditsKey, signupBonus)
		}),
	}
	if cache != nil {
		opts = append(opts, credits.WithCache(cache))
	}
	svc.recorder = credits.NewRecorder(svc.store, opts...)
	svc.accessor = credits.NewBalanceAccessor(svc.store, cache, conf.Credits.StoreTimeout)
	svc.engine = reset.NewEngine(svc.store, svc.recorder, conf.Credits.Tiers, conf.Reset.BatchSize)
	svc.gateway = adminops.NewGateway(svc.recorder, svc.engine, adminops.NewGormAuditSink(conn))
	return svc, nil
}

func (s *services) close() {
	if s.redis != nil {
		if errClose := s.redis.Close(); errClose != nil {
			log.WithError(errClose).Warn("close redis failed")
		}
	}
	if errClose := db.Close(s.conn); errClose != nil {
		log.WithError(errClose).Warn("close database failed")
	}
}

func newRouter(svc *services) *gin.Engine {
	if !log.IsLevelEnabled(log.DebugLevel) {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		studiohttp.RequestIDMiddleware(),
		studiohttp.NewHTTPMetrics(svc.registry).Middleware(),
		studiohttp.RequestLogMiddleware(),
	)
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(svc.registry, promhttp.HandlerOpts{})))

	admin.RegisterAdminRoutes(engine, admin.Deps{
		DB:       svc.conn,
		Redis:    svc.redis,
		JWT:      svc.cfg.JWT,
		Store:    svc.store,
		Accessor: svc.accessor,
		Engine:   svc.engine,
		Gateway:  svc.gateway,
	})
	front.RegisterFrontRoutes(engine, front.Deps{
		DB:       svc.conn,
		JWT:      svc.cfg.JWT,
		Mail:     svc.cfg.Mail,
		Credits:  svc.cfg.Credits,
		Store:    svc.store,
		Recorder: svc.recorder,
		Accessor: svc.accessor,
		Engine:   svc.engine,
		Mailer: mail.LogSender{
			From:     svc.cfg.Mail.From,
			ShowCode: log.IsLevelEnabled(log.DebugLevel),
		},
	})
	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
	return engine
}
