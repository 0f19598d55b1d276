package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"bridgewalk/internal/bridge"
	"bridgewalk/internal/config"
	"bridgewalk/internal/game"
	"bridgewalk/internal/physics"
	"bridgewalk/internal/results"
	"bridgewalk/internal/sequence"
	"bridgewalk/internal/session"
	"bridgewalk/internal/telemetry"
	"bridgewalk/internal/tracking"
	"bridgewalk/internal/transport/ws"
)

// stateBroadcastSystem pushes the periodic state update to clients every
// few ticks instead of every tick.
type stateBroadcastSystem struct {
	adapter *ws.Adapter
	every   uint64
	ticks   uint64
}

func (s *stateBroadcastSystem) Update(deltaTime time.Duration) error {
	s.ticks++
	if s.ticks%s.every == 0 {
		s.adapter.BroadcastState()
	}
	return nil
}

func (s *stateBroadcastSystem) GetName() string  { return "state_broadcast" }
func (s *stateBroadcastSystem) GetPriority() int { return 40 }

// bridgeFromConfig applies the optional file overrides to the default
// bridge geometry.
func bridgeFromConfig(bc config.BridgeConfig) bridge.Config {
	cfg := bridge.DefaultConfig()
	if bc.PlankCount > 0 {
		cfg.PlankCount = bc.PlankCount
	}
	if bc.BridgeLength > 0 {
		cfg.BridgeLength = bc.BridgeLength
	}
	if bc.PlankWidth > 0 {
		cfg.PlankWidth = bc.PlankWidth
	}
	if bc.PlankGap > 0 {
		cfg.PlankGap = bc.PlankGap
	}
	if bc.PlatformsEnabled != nil {
		cfg.PlatformsEnabled = *bc.PlatformsEnabled
	}
	return cfg
}

func main() {
	configPath := flag.String("config", "", "path to TOML config file")
	flag.Parse()

	logger := log.New(os.Stdout, "", log.LstdFlags|log.Lmicroseconds)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("[Server] loading config: %v", err)
	}

	trackCfg := tracking.Config{
		MaxOffsetX:             cfg.Tracker.MaxOffsetX,
		MaxOffsetZ:             cfg.Tracker.MaxOffsetZ,
		FailureDelay:           cfg.Tracker.FailureDelay(),
		TeleportGrace:          cfg.Tracker.TeleportGrace(),
		FailOnlyAfterStart:     cfg.Tracker.FailOnlyAfterStart,
		SampleInterval:         cfg.Tracker.SampleInterval(),
		CrossingStartThreshold: 0.05,
		CompletionThreshold:    0.95,
		Milestones:             cfg.Tracker.Milestones,
	}

	world := physics.NewLocalWorld(logger)
	factory := bridge.NewFactory(world, logger)
	builder := bridge.NewBuilder(world, factory, logger)

	sess := session.New(builder, trackCfg, nil, logger)
	adapter := ws.NewAdapter(sess, nil, logger)
	sess.SetPositionProvider(adapter)
	sess.SetTeleporter(adapter)

	tel := telemetry.NewManager(logger)
	sess.SetTelemetry(tel)

	if cfg.Redis.Enabled {
		sink := results.NewRedisSink(cfg.Redis.Addr)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := sink.Ping(ctx); err != nil {
			logger.Printf("[Server] redis unavailable (%v), falling back to log sink", err)
			sess.SetResultSink(results.LogSink{Logger: logger})
		} else {
			logger.Printf("[Server] results stored in redis at %s", cfg.Redis.Addr)
			sess.SetResultSink(sink)
			defer sink.Close()
		}
		cancel()
	} else {
		sess.SetResultSink(results.LogSink{Logger: logger})
	}

	var configs []bridge.Config
	if cfg.Sequence.Bridges > 0 {
		generator := bridge.NewGenerator(nil)
		configs = generator.GenerateProgressiveConfigs(cfg.Sequence.Bridges)
	} else {
		// Sequence disabled: one fixed bridge from the config file.
		configs = []bridge.Config{bridgeFromConfig(cfg.Bridge)}
	}

	manager := sequence.NewManager(
		configs,
		cfg.Sequence.AdvanceThreshold,
		cfg.Sequence.Loop,
		sess,
		sequence.CombineEvents(sess, adapter),
		logger,
	)
	adapter.SetManager(manager)

	if err := manager.LoadBridgeAtIndex(0); err != nil {
		logger.Fatalf("[Server] loading first bridge: %v", err)
	}
	// The tracker survives rebuilds, so one subscription is enough.
	sess.Tracker().AddListener(adapter)

	ticker := game.NewTicker(cfg.TickRate, logger)
	ticker.RegisterSystem(game.NewPhysicsSystem(world))
	ticker.RegisterSystem(game.NewSessionSystem(sess))
	ticker.RegisterSystem(game.NewSequenceSystem(manager))
	ticker.RegisterSystem(&stateBroadcastSystem{adapter: adapter, every: 5})
	if err := ticker.Start(); err != nil {
		logger.Fatalf("[Server] starting ticker: %v", err)
	}
	defer ticker.Stop()

	router := chi.NewRouter()
	router.Get("/ws", adapter.HandleWS)
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(ticker.GetStats())
	})
	router.Get("/telemetry", func(w http.ResponseWriter, r *http.Request) {
		data, err := tel.JSON()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(data)
	})

	server := &http.Server{Addr: cfg.ListenAddr, Handler: router}
	go func() {
		logger.Printf("[Server] listening on %s", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("[Server] http server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Printf("[Server] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
}
