// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	_ "printer-service/docs"
	"printer-service/internal/config"
	"printer-service/internal/driver"
	"printer-service/internal/driver/iotproxy"
	"printer-service/internal/handler"
	"printer-service/internal/routes"
	"printer-service/internal/service"
	"printer-service/internal/utils"
)

// Application represents the main application
type Application struct {
	config *config.Config
	logger *zap.Logger
	server *http.Server

	// Printer access
	driverRegistry *driver.Registry
	directory      *service.ConfigDirectory
	dispatcher     *service.Dispatcher

	// Background services
	eventBus         *handler.EventBus
	wsHandler        *handler.WebSocketHandler
	monitor          *service.Monitor
	discoveryService *service.DiscoveryService

	cancel context.CancelFunc
}

// @title Printer Service API
// @version 1.0.0
// @description Fiscal and kitchen receipt printer gateway for POS terminals

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8069
// @BasePath /api/v1
func main() {
	app, err := NewApplication()
	if err != nil {
		fmt.Printf("Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	if err := app.Start(); err != nil {
		app.logger.Fatal("Failed to start application", zap.Error(err))
	}
}

// NewApplication creates a new application instance. PRINTER_SERVICE_CONFIG_FILE
// overrides the config search path.
func NewApplication() (*Application, error) {
	cfg, err := config.LoadFrom(os.Getenv("PRINTER_SERVICE_CONFIG_FILE"))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := utils.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	serviceLogger := utils.NewServiceLogger(logger, "printer-service")
	serviceLogger.LogServiceStart(cfg.App.Version, cfg)

	app := &Application{
		config: cfg,
		logger: logger,
	}

	app.initializeDriverRegistry()

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initializeServer()

	return app, nil
}

func (app *Application) initializeDriverRegistry() {
	app.driverRegistry = driver.NewRegistry(app.logger)
	driver.RegisterDefaultDrivers(app.driverRegistry, app.logger)

	app.logger.Info("Driver registry initialized successfully",
		zap.Int("registered_kinds", len(app.driverRegistry.ListKinds())),
	)
}

func (app *Application) initializeServices() error {
	app.directory = service.NewConfigDirectory(app.config.Printers)
	app.eventBus = handler.NewEventBus(app.logger)

	opts := []service.DispatcherOption{service.WithPublisher(app.eventBus)}
	if app.config.Proxy.URL != "" {
		proxy, err := iotproxy.NewClient(app.config.Proxy.URL, app.config.Proxy.Timeout, app.logger)
		if err != nil {
			return fmt.Errorf("failed to create IoT proxy client: %w", err)
		}
		opts = append(opts, service.WithForwarder(proxy))
	}

	app.dispatcher = service.NewDispatcher(app.directory, app.driverRegistry, app.logger, opts...)
	app.monitor = service.NewMonitor(app.dispatcher, app.directory, app.eventBus, app.config.Monitor.StatusInterval, app.logger)
	app.discoveryService = service.NewDiscoveryService(app.directory, app.config.Discovery, app.logger)
	app.wsHandler = handler.NewWebSocketHandler(app.eventBus, app.dispatcher, app.logger)

	app.logger.Info("Services initialized successfully",
		zap.Int("printers", len(app.directory.Entries())),
		zap.Bool("iot_proxy", app.config.Proxy.URL != ""),
	)
	return nil
}

func (app *Application) initializeServer() {
	routerManager := routes.NewRouter(
		app.config,
		app.logger,
		app.driverRegistry,
		app.directory,
		app.dispatcher,
		app.discoveryService,
		app.wsHandler,
	)

	app.server = &http.Server{
		Addr:         app.config.GetServerAddr(),
		Handler:      routerManager.SetupRouter(),
		ReadTimeout:  app.config.Server.ReadTimeout,
		WriteTimeout: app.config.Server.WriteTimeout,
		IdleTimeout:  app.config.Server.IdleTimeout,
	}

	app.logger.Info("HTTP server initialized",
		zap.String("address", app.config.GetServerAddr()),
		zap.Bool("tls_enabled", app.config.Server.TLS.Enabled),
	)
}

// startBackgroundServices starts the event bus, the WebSocket broadcaster and the status monitor
func (app *Application) startBackgroundServices() {
	ctx, cancel := context.WithCancel(context.Background())
	app.cancel = cancel

	go app.eventBus.Start(ctx)
	go app.wsHandler.Run(ctx)
	go func() {
		defer utils.LogPanic(app.logger)
		app.monitor.Start(ctx)
	}()

	app.logger.Info("Background services started")
}

func (app *Application) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	app.logger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	app.shutdown()
}

func (app *Application) shutdown() {
	serviceLogger := utils.NewServiceLogger(app.logger, "printer-service")
	serviceLogger.LogServiceStop("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		utils.LogError(app.logger, "HTTP server shutdown error", err)
	} else {
		app.logger.Info("HTTP server stopped")
	}

	if app.cancel != nil {
		app.cancel()
	}

	// Close open printer sockets
	app.driverRegistry.DisconnectAll(ctx)

	app.logger.Info("Application shutdown completed")

	if err := utils.CloseLogger(app.logger); err != nil {
		fmt.Printf("Logger close error: %v\n", err)
	}
}

// Start serves HTTP until a shutdown signal arrives
func (app *Application) Start() error {
	go func() {
		app.logger.Info("Starting HTTP server",
			zap.String("address", app.server.Addr),
		)

		var err error
		if app.config.Server.TLS.Enabled {
			err = app.server.ListenAndServeTLS(
				app.config.Server.TLS.CertFile,
				app.config.Server.TLS.KeyFile,
			)
		} else {
			err = app.server.ListenAndServe()
		}

		if err != nil && err != http.ErrServerClosed {
			app.logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	app.startBackgroundServices()

	app.waitForShutdown()

	return nil
}
