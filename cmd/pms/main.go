package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/airquality.report/internal/api"
	"github.com/banshee-data/airquality.report/internal/config"
	"github.com/banshee-data/airquality.report/internal/monitoring"
	"github.com/banshee-data/airquality.report/internal/pms"
	"github.com/banshee-data/airquality.report/internal/serialport"
	"github.com/banshee-data/airquality.report/internal/timeutil"
	"github.com/banshee-data/airquality.report/internal/version"
)

var (
	devMode     = flag.Bool("dev", false, "Replay synthetic sensor traffic instead of opening a serial port")
	listen      = flag.String("listen", "", "Listen address (overrides config, default :8080)")
	port        = flag.String("port", "", "Serial port to use (overrides config, ignored in dev mode)")
	configPath  = flag.String("config", "", "Path to a JSON sensor config file")
	listPorts   = flag.Bool("list-ports", false, "List available serial ports and exit")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

// loadConfig reads path, if set, and applies the command-line overrides.
func loadConfig(path, portOverride, listenOverride string) (*config.SensorConfig, error) {
	cfg := config.EmptySensorConfig()
	if path != "" {
		var err error
		cfg, err = config.LoadSensorConfig(path)
		if err != nil {
			return nil, err
		}
	}
	return cfg.WithOverrides(portOverride, listenOverride), nil
}

// openPort opens the configured serial port, or a looping replay of
// synthetic traffic in dev mode.
func openPort(cfg *config.SensorConfig, dev bool, open serialport.Opener) (serialport.SerialPorter, error) {
	if dev {
		mock := serialport.NewMockSerialPort(devFixture(cfg.GetVariant()))
		mock.Loop = true
		mock.ChunkSize = pms.FrameLength
		mock.ReadDelay = time.Second
		return mock, nil
	}
	p, err := open(cfg.GetPort(), cfg.GetSerial())
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", cfg.GetPort(), err)
	}
	return p, nil
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("pms %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}
	if *listPorts {
		ports, err := serialport.ListPorts()
		if err != nil {
			log.Fatalf("failed to list serial ports: %v", err)
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return
	}

	cfg, err := loadConfig(*configPath, *port, *listen)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	log.Printf("pms %s starting: %s on %s (%s)", version.Version, cfg.GetVariant(), cfg.GetPort(), cfg.GetSerial())

	rawPort, err := openPort(cfg, *devMode, serialport.OpenReal)
	if err != nil {
		log.Fatalf("failed to create sensor port: %v", err)
	}
	stream := serialport.NewBufferedPort(rawPort, cfg.GetBufferLimit())
	defer stream.Close()

	registry := monitoring.NewRegistry()
	metrics := monitoring.NewSensorMetrics(registry)

	clock := timeutil.RealClock{}
	sensor := pms.NewSensor(cfg.GetVariant(),
		pms.WithClock(clock),
		pms.WithObserver(metrics),
		pms.WithFailCountMax(cfg.GetFailCountMax()),
	)
	store := api.NewReadingStore(sensor.Reading())

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := stream.Monitor(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("failed to monitor serial port: %v", err)
		}
		log.Print("monitor routine terminated")
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		a := &acquirer{
			sensor:  sensor,
			stream:  stream,
			store:   store,
			metrics: metrics,
			clock:   clock,
			tick:    cfg.GetTickInterval(),
		}
		if err := a.run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("acquisition stopped: %v", err)
		}
		log.Print("acquisition routine terminated")
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()

		srv := api.NewServer(store, cfg.GetTempUnits(), registry)
		mux := srv.ServeMux()
		srv.AttachAdminRoutes(mux)

		server := &http.Server{
			Addr:    cfg.GetListen(),
			Handler: api.LoggingMiddleware(mux),
		}

		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}

		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("serial: %d byte(s) received, %d dropped", stream.Received(), stream.Dropped())
	log.Printf("Graceful shutdown complete")
}
