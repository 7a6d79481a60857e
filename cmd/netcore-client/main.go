// Command netcore-client drives a clientsm.Client against a server,
// sending empty input each local tick and logging connection phase
// transitions. It has no renderer or input device of its own: wiring
// a real game loop's captured input into DoTick is left to an
// embedding application.
//
// Grounded on core/main.go's signal/select shutdown shape, adapted
// to a client-side tick loop instead of a long-running listener.
package main

import (
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/duskrun-game/netcore/internal/clientsm"
	"github.com/duskrun-game/netcore/internal/config"
	netlog "github.com/duskrun-game/netcore/internal/log"
	"github.com/duskrun-game/netcore/internal/metrics"
	"github.com/duskrun-game/netcore/internal/model"
	"github.com/duskrun-game/netcore/internal/protoconst"
	"github.com/duskrun-game/netcore/internal/transport"
)

func main() {
	configPath := flag.String("config", "", "path to a client TOML config file")
	flag.Parse()

	logger := netlog.New("main")

	cfg, err := config.LoadClientConfig(*configPath)
	if err != nil {
		logger.Warnf("using default config: %v", err)
		cfg = config.DefaultClientConfig()
	}

	serverAddr, err := net.ResolveUDPAddr("udp", cfg.ServerAddr)
	if err != nil {
		logger.Fatalf("resolve server address %q: %v", cfg.ServerAddr, err)
	}

	t, err := transport.NewClientUDPTransport(serverAddr)
	if err != nil {
		logger.Fatalf("connect: %v", err)
	}

	reg := prometheus.NewRegistry()
	clientMetrics := metrics.NewClient(reg, prometheus.Labels{"player": cfg.PlayerName})

	client := clientsm.New(t, serverAddr, clientMetrics)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	tickInterval := time.Second / time.Duration(protoconst.BaseSpeed.PerSecond)
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	lastPhase := clientsm.PhaseConnecting
	logger.Infof("connecting to %s", cfg.ServerAddr)

	for {
		select {
		case sig := <-sigChan:
			logger.Warnf("received signal %v, disconnecting", sig)
			client.Disconnect()
			drainUntilDisconnected(client, logger)
			return

		case <-ticker.C:
			client.DoTick(model.CharacterInput{})
			until := time.Now().Add(tickInterval)
			for client.HandleTraffic(until) == clientsm.TrafficInterrupt {
			}

			state := client.ConnectionState()
			if state.Phase != lastPhase {
				logger.Infof("phase: %v -> %v", lastPhase, state.Phase)
				lastPhase = state.Phase
			}
			if state.Phase == clientsm.PhaseDisconnected {
				logger.Warnf("disconnected: %+v", state.DisconnectedReason)
				return
			}
		}
	}
}

func drainUntilDisconnected(client *clientsm.Client, logger interface{ Infof(string, ...any) }) {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if client.ConnectionState().Phase == clientsm.PhaseDisconnected {
			logger.Infof("disconnected cleanly")
			return
		}
		client.HandleTraffic(time.Now().Add(50 * time.Millisecond))
	}
}
