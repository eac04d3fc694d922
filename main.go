package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/surface.report/internal/api"
	"github.com/banshee-data/surface.report/internal/archive"
	"github.com/banshee-data/surface.report/internal/camera"
	"github.com/banshee-data/surface.report/internal/collector"
	"github.com/banshee-data/surface.report/internal/config"
	"github.com/banshee-data/surface.report/internal/motion"
	"github.com/banshee-data/surface.report/internal/sensor"
	"github.com/banshee-data/surface.report/internal/serialmux"
	"github.com/banshee-data/surface.report/internal/timeutil"
)

var (
	devMode    = flag.Bool("dev", false, "Run in dev mode (synthetic sensor and cameras, no hardware)")
	listen     = flag.String("listen", ":8080", "Listen address")
	configPath = flag.String("config", "", "Path to station config JSON (defaults apply if empty)")
)

const migrationsDir = "migrations"

func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	cfg := config.EmptyStationConfig()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadStationConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	clock := timeutil.NewRealClock()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// velocity source: real serial encoder, or a synthetic stream in dev mode
	var mux serialmux.Interface
	var source motion.VelocitySource
	if *devMode {
		if data, err := os.ReadFile("fixtures.txt"); err == nil {
			lines := strings.Split(strings.TrimSpace(string(data)), "\n")
			mux = serialmux.NewMockSerialMux(lines, cfg.GetSampleInterval())
			log.Printf("dev mode: replaying %d fixture lines", len(lines))
		} else {
			source = sensor.NewSimSource(clock, time.Now().UnixNano())
			log.Print("dev mode: using simulated velocity source")
		}
	} else {
		var err error
		mux, err = serialmux.NewRealSerialMux(cfg.GetSerialPort(), serialmux.PortOptions{
			BaudRate: cfg.GetSerialBaud(),
		})
		if err != nil {
			log.Fatalf("failed to open serial port %s: %v", cfg.GetSerialPort(), err)
		}
	}

	db, err := archive.NewDB(cfg.GetDBPath())
	if err != nil {
		log.Fatalf("failed to open archive database: %v", err)
	}
	defer db.Close()
	if err := db.MigrateUp(migrationsDir); err != nil {
		log.Printf("archive migrations not applied: %v", err)
	}

	// collector transport, with every record archived locally on the way out
	var transport motion.Transport
	switch cfg.GetTransport() {
	case "mqtt":
		publisher, err := collector.NewPublisher(collector.PublisherConfig{
			Broker:        cfg.GetMQTTBroker(),
			ClientID:      cfg.GetMQTTClientID(),
			MovementTopic: cfg.GetMQTTMovementTopic(),
			CaptureTopic:  cfg.GetMQTTCaptureTopic(),
		})
		if err != nil {
			log.Fatalf("failed to connect to MQTT broker: %v", err)
		}
		defer publisher.Close()
		transport = publisher
	default:
		client := collector.NewClient(cfg.GetCollectorURL(), cfg.GetSendTimeout())
		if err := client.WaitUntilReady(ctx, 5*time.Second); err != nil {
			log.Fatalf("collector not reachable: %v", err)
		}
		transport = client
	}
	transport = archive.NewTransport(db, transport)

	rig := camera.NewSimRig(clock, time.Now().UnixNano())
	rig.WithPayloads = true

	var wg sync.WaitGroup

	if mux != nil {
		defer mux.Close()
		if err := mux.Initialize(); err != nil {
			log.Printf("failed to initialize encoder: %v", err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := mux.Monitor(ctx); err != nil && err != context.Canceled {
				log.Printf("failed to monitor serial port: %v", err)
			}
			log.Print("monitor routine terminated")
		}()

		src := sensor.NewSource(mux, clock, cfg.GetSensorReadTimeout())
		defer src.Close()
		source = src
	}

	coordinator := motion.NewCoordinator(motion.CoordinatorConfig{
		SampleInterval: cfg.GetSampleInterval(),
		ReportInterval: cfg.GetReportInterval(),
		WindowSize:     cfg.GetWindowSize(),
		Scheduler: motion.CaptureSchedulerConfig{
			MaxDisplacementPerFrame: cfg.GetMaxDisplacementPerFrame(),
			MinInterval:             cfg.GetMinCaptureInterval(),
			MaxInterval:             cfg.GetMaxCaptureInterval(),
		},
		QueueDepth: cfg.GetQueueDepth(),
		Sender: motion.SenderConfig{
			MaxRetries:     cfg.GetSendMaxRetries(),
			AttemptTimeout: cfg.GetSendTimeout(),
			Backoff:        cfg.GetSendBackoff(),
			DrainGrace:     cfg.GetDrainGrace(),
		},
		SensorMaxRetries: cfg.GetSensorMaxRetries(),
		SensorBackoff:    cfg.GetSensorBackoff(),
	}, clock, source, rig, transport)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := coordinator.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("measurement pipeline stopped: %v", err)
			stop()
		}
		log.Print("measurement pipeline terminated")
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		httpMux := http.NewServeMux()

		// admin debugging routes under /debug/
		db.AttachAdminRoutes(httpMux)
		if mux != nil {
			mux.AttachAdminRoutes(httpMux)
		}

		apiServer := api.NewServer(db, coordinator.Stats, cfg.GetUnits())
		httpMux.Handle("/", apiServer.ServeMux())

		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(httpMux),
		}

		go func() {
			log.Printf("listening on %s", *listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
	}()

	wg.Wait()
	log.Print("station stopped")
}
