// Command netcore-server runs the authoritative tick loop as a
// standalone process.
//
// Grounded on core/main.go: load config, wire dependencies, start
// the long-running service in a goroutine, then block on a signal
// channel for graceful shutdown.
package main

import (
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/duskrun-game/netcore/internal/config"
	"github.com/duskrun-game/netcore/internal/gameserver"
	netlog "github.com/duskrun-game/netcore/internal/log"
	"github.com/duskrun-game/netcore/internal/metrics"
)

func main() {
	configPath := flag.String("config", "", "path to a server TOML config file (defaults to built-in values)")
	flag.Parse()

	logger := netlog.New("main")

	var cfg config.ServerConfig
	if *configPath != "" {
		loaded, err := config.LoadServerConfig(*configPath)
		if err != nil {
			logger.Fatalf("load config: %v", err)
		}
		cfg = loaded
	} else {
		cfg = config.DefaultServerConfig()
	}

	addr, err := net.ResolveUDPAddr("udp", cfg.ListenAddr)
	if err != nil {
		logger.Fatalf("resolve listen address %q: %v", cfg.ListenAddr, err)
	}

	reg := prometheus.NewRegistry()
	serverMetrics := metrics.NewServer(reg, nil)

	srv, closeSocket, err := gameserver.Bind(addr, serverMetrics)
	if err != nil {
		logger.Fatalf("bind: %v", err)
	}
	defer closeSocket()

	logger.Infof("listening on %s", cfg.ListenAddr)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warnf("metrics server: %v", err)
		}
	}()
	logger.Infof("metrics on http://%s/metrics", cfg.MetricsAddr)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go srv.Run()

	sig := <-sigChan
	logger.Warnf("received signal %v, shutting down", sig)
	srv.Stop()
	_ = metricsServer.Close()
	time.Sleep(100 * time.Millisecond)
	logger.Infof("server stopped at tick %d", srv.Tick())
}
