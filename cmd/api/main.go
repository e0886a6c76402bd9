package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"foodorder/internal/config"
	"foodorder/internal/handler"
	"foodorder/internal/infra/db"
	"foodorder/internal/infra/logger"
	infraRepo "foodorder/internal/infra/repository"
	"foodorder/internal/notifier"
	"foodorder/internal/server"
	"foodorder/internal/usecase"
	auth "foodorder/internal/usecase/auth_usecase"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	//.envは任意（本番は環境変数を直接設定）
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.WithError(err).Fatal("load .env")
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}

	log := logger.New(cfg.LogLevel, cfg.IsDev())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//DB接続
	gormDB, err := db.Connect(cfg.DSN(), log)
	if err != nil {
		log.WithError(err).Fatal("connect database")
	}
	if err := db.Migrate(gormDB); err != nil {
		log.WithError(err).Fatal("migrate")
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		log.WithError(err).Fatal("database handle")
	}
	defer sqlDB.Close()

	hub := notifier.NewHub(0, log)
	defer hub.Close()

	publisher, closeNotifier := buildPublisher(ctx, cfg, hub, log)
	defer closeNotifier()

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	orderRepo := infraRepo.NewOrderGormRepository(gormDB)
	historyRepo := infraRepo.NewOrderStatusHistoryGormRepository(gormDB)
	restaurantRepo := infraRepo.NewRestaurantGormRepository(gormDB)
	txm := infraRepo.NewTxManagerGorm(gormDB)

	//Usecase生成
	lifecycleUC := usecase.NewLifecycleUsecase(txm, orderRepo, publisher, log)
	queryUC := usecase.NewOrderQueryUsecase(orderRepo, historyRepo, restaurantRepo)
	registerUC := auth.NewRegisterUserUsecase(userRepo, auth.NewBcryptPasswordHasher(bcrypt.DefaultCost))
	loginUC := auth.NewLoginUsecase(
		userRepo,
		auth.NewBcryptPasswordVerifier(),
		auth.NewJWTIssuer(cfg.JWTSecret, cfg.AccessTokenTTL),
		auth.RealClock{},
	)

	//Handler生成 / Server起動
	e := server.New(cfg, log)
	server.RegisterRoutes(e, cfg.JWTSecret, userRepo, server.Handlers{
		Health: handler.NewHealthHandler(sqlDB),
		Auth:   handler.NewAuthHandler(registerUC, loginUC),
		WS:     handler.NewWSHandler(hub, cfg.WSAllowedOrigin, log),
		Orders: handler.NewOrderHandler(lifecycleUC, queryUC),
		Staff:  handler.NewStaffHandler(lifecycleUC, queryUC),
	})

	log.WithFields(logrus.Fields{"addr": cfg.Addr(), "notifier": cfg.Notifier}).Info("server starting")
	if err := server.Start(ctx, e, cfg.Addr(), cfg.ShutdownTimeout); err != nil {
		log.WithError(err).Error("server stopped")
		return
	}
	log.Info("server stopped")
}

// buildPublisher picks the broadcast backend. Remote backends relay back into
// hub so this instance's websocket viewers see every instance's events.
func buildPublisher(ctx context.Context, cfg config.Config, hub *notifier.Hub, log *logrus.Logger) (notifier.Publisher, func()) {
	switch cfg.Notifier {
	case config.NotifierRedis:
		rdb := notifier.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.WithError(err).Fatal("connect redis")
		}
		bridge := notifier.NewRedisBridge(rdb, cfg.RedisChannel, hub, log)
		go runBridge(ctx, "redis", bridge.Run, log)
		return bridge, func() { _ = rdb.Close() }

	case config.NotifierAMQP:
		dial := func() (*amqp.Connection, error) { return amqp.Dial(cfg.AMQPURL) }
		bridge := notifier.NewAMQPBridge(dial, cfg.AMQPExchange, hub, log)
		if err := bridge.Connect(); err != nil {
			log.WithError(err).Fatal("connect amqp")
		}
		go runBridge(ctx, "amqp", bridge.Run, log)
		return bridge, func() { _ = bridge.Close() }

	default:
		return hub, func() {}
	}
}

func runBridge(ctx context.Context, name string, run func(context.Context) error, log logrus.FieldLogger) {
	if err := run(ctx); err != nil {
		log.WithError(err).WithField("bridge", name).Error("event relay stopped")
	}
}
