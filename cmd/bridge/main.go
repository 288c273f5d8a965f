package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/scanner-bridge/internal/application/bridge"
	"github.com/jhoicas/scanner-bridge/internal/application/ports"
	"github.com/jhoicas/scanner-bridge/internal/application/resolver"
	"github.com/jhoicas/scanner-bridge/internal/infrastructure/grocy"
	"github.com/jhoicas/scanner-bridge/internal/infrastructure/homeassistant"
	"github.com/jhoicas/scanner-bridge/internal/infrastructure/openfoodfacts"
	"github.com/jhoicas/scanner-bridge/internal/infrastructure/scanner"
	httpRouter "github.com/jhoicas/scanner-bridge/internal/interfaces/http"
	"github.com/jhoicas/scanner-bridge/pkg/config"
	"github.com/jhoicas/scanner-bridge/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	if err := config.Validate(cfg); err != nil {
		log.Fatal().Err(err).Msg("configuración inválida")
	}
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando puente de escáner")

	inventory := grocy.NewClient(grocy.Config{
		BaseURL:            cfg.Grocy.BaseURL,
		APIKey:             cfg.Grocy.APIKey,
		APIKeyHeader:       cfg.Grocy.APIKeyHeader,
		ShoppingLocationID: cfg.Grocy.ShoppingLocationID,
		Timeout:            cfg.ClientTimeout,
	}, log.Zerolog())

	catalog := openfoodfacts.NewClient(openfoodfacts.Config{
		BaseURL:   cfg.Catalog.BaseURL,
		UserAgent: cfg.Catalog.UserAgent,
		Timeout:   cfg.ClientTimeout,
	}, log.Zerolog())

	// Sin token de Home Assistant los avisos solo se registran.
	var sink ports.Notifier = homeassistant.NewLogNotifier(log.Zerolog())
	if cfg.HomeAssistant.Enabled() {
		sink = homeassistant.NewNotifier(homeassistant.Config{
			ServiceURL: cfg.HomeAssistant.ServiceURL,
			Token:      cfg.HomeAssistant.Token,
			EntityID:   cfg.HomeAssistant.MediaPlayer,
			Timeout:    cfg.ClientTimeout,
		}, log.Zerolog())
	}
	notifier := homeassistant.NewAsyncNotifier(sink, cfg.HomeAssistant.QueueSize, log.Zerolog())

	res := resolver.New(inventory, catalog, notifier, resolver.Options{
		Defaults: resolver.RegistrationDefaults{
			LocationID:             cfg.Grocy.LocationID,
			QuantityUnitPurchaseID: cfg.Grocy.QuantityUnitPurchaseID,
			QuantityUnitStockID:    cfg.Grocy.QuantityUnitStockID,
		},
		ExtraPlaceholders: cfg.Catalog.PlaceholderNames,
	}, log.Zerolog())

	policy, err := bridge.ParseUnknownOnConsume(cfg.Scanner.UnknownOnConsume)
	if err != nil {
		log.Fatal().Err(err).Msg("política de consumo")
	}
	controller := bridge.NewController(bridge.Config{
		AddToggle:        cfg.Scanner.AddBarcode,
		InfoTrigger:      cfg.Scanner.InfoBarcode,
		IdleTimeout:      cfg.Scanner.IdleTimeout,
		TickInterval:     cfg.Scanner.TickInterval,
		UnknownOnConsume: policy,
	}, res, inventory, notifier, log.Zerolog())

	hub := scanner.NewHub(scanner.DefaultBuffer, log.Zerolog())
	if cfg.Scanner.Device != "" {
		src, err := scanner.OpenDevice(cfg.Scanner.Device, cfg.Scanner.GUID, log.Zerolog())
		if err != nil {
			log.Fatal().Err(err).Str("device", cfg.Scanner.Device).Msg("abrir lector")
		}
		hub.Attach(src)
	}
	var mqttSource *scanner.MQTTSource
	if cfg.MQTT.Enabled() {
		mqttSource = scanner.NewMQTTSource(scanner.MQTTConfig{
			Broker:   cfg.MQTT.Broker,
			Topic:    cfg.MQTT.Topic,
			ClientID: cfg.MQTT.ClientID,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
			QoS:      1,
		}, log.Zerolog())
		hub.Attach(mqttSource)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error { return controller.Run(gctx, hub.Events()) })

	if cfg.HTTP.Enabled {
		app := newHTTPApp(cfg, controller, hub, mqttSource, log)
		g.Go(func() error {
			log.Info().Str("addr", cfg.HTTP.Addr()).Msg("API de control escuchando")
			return app.Listen(cfg.HTTP.Addr())
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return app.ShutdownWithContext(shutdownCtx)
		})
	}

	err = g.Wait()
	if ctx.Err() != nil {
		log.Info().Msg("señal de apagado recibida, cerrando...")
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if cerr := notifier.Close(drainCtx); cerr != nil {
		log.Warn().Err(cerr).Msg("avisos pendientes descartados")
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("puente detenido con error")
		os.Exit(1)
	}
	log.Info().Msg("puente detenido")
}

func newHTTPApp(cfg *config.Config, controller *bridge.Controller, hub *scanner.Hub, mqttSource *scanner.MQTTSource, log *logger.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		ReadTimeout:           time.Second * 10,
		WriteTimeout:          time.Second * 10,
		IdleTimeout:           time.Second * 60,
		DisableStartupMessage: true,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Scanner Bridge API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": cfg.App.Name,
			"mode":    controller.Mode().String(),
		})
	})

	// Un *MQTTSource nil no debe llegar como interfaz no nil.
	var broker httpRouter.BrokerStatus
	if mqttSource != nil {
		broker = mqttSource
	}
	httpRouter.Router(app, httpRouter.RouterDeps{
		Status:    controller,
		Scans:     hub,
		Broker:    broker,
		JWTSecret: cfg.JWT.Secret,
		JWTIssuer: cfg.JWT.Issuer,
		Log:       log.Zerolog(),
	})
	return app
}
