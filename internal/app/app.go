package app

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/axonake/RANGERSTORE/internal/config"
	"github.com/axonake/RANGERSTORE/internal/device"
	"github.com/axonake/RANGERSTORE/internal/postgres"
	"github.com/axonake/RANGERSTORE/internal/queue"
	"github.com/axonake/RANGERSTORE/internal/service"
	"github.com/axonake/RANGERSTORE/internal/voucher"
	"github.com/axonake/RANGERSTORE/pkg/logger"
	_ "github.com/jackc/pgx/v5/stdlib"
)

type App struct {
	Config *config.Config
	DB     *sql.DB
	Queue  *queue.Queue
	Bridge *device.Bridge

	users    *service.UserService
	catalog  *service.CatalogService
	orders   *service.OrderService
	balances *service.BalanceService
}

func New(cfg *config.Config) (*App, error) {
	db, err := initDB(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	repo := postgres.New(db)

	runner := device.ExecRunner{Timeout: cfg.Device.CommandTimeout}
	bridge := device.NewBridge(runner, cfg.Device.ADBPath, cfg.Device.Host, cfg.Device.EmulatorPorts)
	ocr := device.NewTesseract(runner, cfg.Device.TesseractPath, cfg.Device.ScreenshotDir)
	linker := device.NewLinker(bridge, ocr, device.Options{
		Package:       cfg.Device.GamePackage,
		PrefFilename:  cfg.Device.PrefFilename,
		TargetPath:    cfg.Device.TargetPath(),
		ScreenshotDir: cfg.Device.ScreenshotDir,
	})

	q := queue.New(cfg.Queue.Capacity, cfg.Queue.SubscriberBuffer)
	service.NewLinkService(repo, linker).Register(q)

	vouchers := voucher.New(cfg.Voucher.ProxyURL, cfg.Voucher.MerchantPhone, cfg.Voucher.Timeout)

	return &App{
		Config:   cfg,
		DB:       db,
		Queue:    q,
		Bridge:   bridge,
		users:    service.NewUserService(repo, cfg),
		catalog:  service.NewCatalogService(repo, cfg.ProductsDir, cfg.UploadDir),
		orders:   service.NewOrderService(repo),
		balances: service.NewBalanceService(repo, vouchers),
	}, nil
}

func initDB(url string) (*sql.DB, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err = db.Ping(); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("error pinging database: %w (close: %v)", err, cerr)
		}
		return nil, fmt.Errorf("error pinging database: %w", err)
	}

	return db, nil
}

// Prepare migrates the schema, creates the working directories and the
// admin account. The device bridge is started on a best-effort basis: an
// emulator that is not up yet only fails the jobs that need it.
func (app *App) Prepare(ctx context.Context) error {
	if err := postgres.Migrate(app.DB); err != nil {
		return err
	}

	for _, dir := range []string{app.Config.ProductsDir, app.Config.UploadDir, app.Config.Device.ScreenshotDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("error creating %s: %w", dir, err)
		}
	}

	if err := app.users.EnsureAdmin(ctx); err != nil {
		return err
	}

	if err := app.Bridge.StartServer(ctx); err != nil {
		logger.Log.Warn("adb server is not available", logger.Error(err))
	}

	return nil
}

// StartWorker runs the device job worker until ctx is done. The returned
// channel is closed once the worker has stopped.
func (app *App) StartWorker(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		app.Queue.Run(ctx)
	}()
	return done
}
