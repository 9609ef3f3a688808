package main

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "controlling_pump/docs"
	"controlling_pump/internal/actuator"
	"controlling_pump/internal/config"
	"controlling_pump/internal/console"
	"controlling_pump/internal/engine"
	"controlling_pump/internal/handlers"
	"controlling_pump/internal/logger"
	"controlling_pump/internal/metrics"
	"controlling_pump/internal/publisher"
	"controlling_pump/internal/repository"
	"controlling_pump/internal/repository/db"
	"controlling_pump/internal/schedule"
	"controlling_pump/internal/sensor"
	"controlling_pump/internal/server"
	"controlling_pump/internal/service"
	"controlling_pump/internal/tracing"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const shutdownTimeout = 10 * time.Second

// @title        Pump control API
// @version      1.0
// @description  Control and monitor the water pump.
// @BasePath     /
func main() {
	// load config: flags, configs/config.yml, PUMP_* env
	cfg, err := loadConfig()
	if err != nil {
		logger.Get(logger.InfoLevel).Fatalw("invalid configuration", "err", err)
	}

	// init logger
	log := logger.Get(cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracer, err := tracing.InitTracer(ctx, cfg.Tracing)
	if err != nil {
		log.Warnw("tracing disabled", "err", err)
		shutdownTracer = func(context.Context) error { return nil }
	}

	// open DB
	conn, err := openDB(cfg, log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	// acquire sensors and relay; both are released after the engine is shut down
	sensors, relay := openDevices(&cfg, log)
	defer closeDevices(sensors, relay, log)

	// wire dependencies
	repos := repository.NewRepository(conn)
	eng := engine.New(cfg.Engine, cfg.Sensors, sensors, relay,
		engine.WithLogger(log.Named("engine")),
		engine.WithEventSink(repos.EventRepo, metrics.EventCounter{}),
	)
	eng.Subscribe(metrics.ObserveStatus)
	metrics.ObserveStatus(eng.Status())

	retention := time.Duration(cfg.EventRetentionDays) * 24 * time.Hour
	services := service.NewService(eng, repos, retention, log.Named("service"))
	apiHandler := handlers.NewHandler(services, log.Named("http"))

	var wg sync.WaitGroup
	runBackground(&wg, func() { services.Controller.Run(ctx) })

	if pub := connectPublisher(cfg, log); pub != nil {
		services.Monitoring.Subscribe(pub.Publish)
		defer pub.Close()
	}

	if len(cfg.Schedule) > 0 {
		sched, err := schedule.New(cfg.Schedule, services.Pump, log.Named("schedule"))
		if err != nil {
			log.Fatalw("invalid schedule", "err", err)
		}
		log.Infow("schedule loaded", "jobs", sched.Len(), "next", sched.Next())
		runBackground(&wg, func() { sched.Run(ctx) })
	}

	// start HTTP server
	srv := server.New()
	runHTTPServer(srv, cfg.Port, apiHandler, log)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	if cfg.Console {
		c := console.New(services.Pump, services.Monitoring, os.Stdin, os.Stdout, log.Named("console"))
		go func() {
			if err := c.Run(ctx); err != nil {
				log.Errorw("console stopped", "err", err)
			}
			quit <- syscall.SIGTERM
		}()
	}

	notifySystemd(daemon.SdNotifyReady, log)

	// graceful shutdown
	<-quit
	log.Infow("shutting down...")
	notifySystemd(daemon.SdNotifyStopping, log)

	// stop background goroutines
	cancel()
	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	// stop taking web commands first so none lands after the pump is off
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}

	// pump off before the relay line is released
	services.Controller.Shutdown(shutdownCtx)
	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Warnw("tracer shutdown", "err", err)
	}
}

func loadConfig() (config.Config, error) {
	v := viper.New()
	fs := pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	if err := config.BindFlags(v, fs); err != nil {
		return config.Config{}, err
	}
	_ = fs.Parse(os.Args[1:])
	return config.Load(v)
}

// openDB initializes the SQLite event log using configuration.
func openDB(cfg config.Config, log *logger.Logger) (*sql.DB, error) {
	dbPath := cfg.DBPath
	if dbPath == "" {
		log.Infow("db_path not set in config; using default file", "default", config.DefaultDBPath)
		dbPath = config.DefaultDBPath
	}
	return db.InitDB(dbPath)
}

// openDevices selects hardware or simulation. A hardware failure falls back
// to simulation with a warning and flips cfg.Engine.SimulationMode.
func openDevices(cfg *config.Config, log *logger.Logger) (sensor.Adapter, actuator.Actuator) {
	if !cfg.Engine.SimulationMode {
		s, a, err := openHardware(*cfg, log)
		if err == nil {
			log.Infow("hardware opened", "chip", cfg.Hardware.GPIOChip, "relay_pin", cfg.Hardware.RelayPin)
			return s, a
		}
		log.Warnw("hardware unavailable, falling back to simulation", "err", err)
		cfg.Engine.SimulationMode = true
	}

	sim := sensor.NewSimulated(cfg.Simulation, cfg.Sensors)
	log.Infow("simulation mode", "pattern", cfg.Simulation.Pattern, "faulty", cfg.Simulation.Faulty)
	return sim, actuator.NewSimulated()
}

func openHardware(cfg config.Config, log *logger.Logger) (sensor.Adapter, actuator.Actuator, error) {
	s, err := sensor.OpenHardware(cfg.Hardware, cfg.Sensors, cfg.Engine.BusTimeout(), log.Named("sensor"))
	if err != nil {
		return nil, nil, err
	}
	a, err := actuator.OpenHardware(cfg.Hardware)
	if err != nil {
		return nil, nil, errors.Join(err, s.Close())
	}
	return s, a, nil
}

func closeDevices(s sensor.Adapter, a actuator.Actuator, log *logger.Logger) {
	if err := a.Close(); err != nil {
		log.Errorw("failed to release relay", "err", err)
	}
	if err := s.Close(); err != nil {
		log.Errorw("failed to release sensors", "err", err)
	}
}

func connectPublisher(cfg config.Config, log *logger.Logger) *publisher.Publisher {
	if cfg.MQTT.Broker == "" {
		return nil
	}
	pub, err := publisher.Connect(cfg.MQTT, log.Named("mqtt"))
	if err != nil {
		log.Warnw("mqtt publisher disabled", "err", err)
		return nil
	}
	return pub
}

func runBackground(wg *sync.WaitGroup, fn func()) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		fn()
	}()
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = config.DefaultPort
		}
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
	go func() {
		if addr, ok := <-srv.Ready(); ok {
			log.Infow("http listening", "addr", addr)
		}
	}()
}

func notifySystemd(state string, log *logger.Logger) {
	if sent, err := daemon.SdNotify(false, state); err != nil {
		log.Warnw("sd_notify failed", "state", state, "err", err)
	} else if sent {
		log.Debugw("sd_notify", "state", state)
	}
}
