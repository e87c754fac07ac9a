// Command uavreasm-node is a demo/integration node: it reads a YAML
// configuration, starts the configured link sources, routes their frames
// through a session table into transfer reassembly, and logs every
// completed transfer. Per-error-kind counters are kept by the session
// table but are not printed.
package main

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/skywave-avionics/uavreasm/internal/config"
	"github.com/skywave-avionics/uavreasm/internal/linksrc"
	"github.com/skywave-avionics/uavreasm/internal/session"
	"github.com/skywave-avionics/uavreasm/pkg/transfer"
)

func main() {
	var configPath = pflag.StringP("config", "c", "", "Path to node YAML configuration.")
	var nodeName = pflag.String("node-name", "", "Override node_name from the config file.")
	var verbose = pflag.BoolP("verbose", "v", false, "Enable debug logging.")
	var help = pflag.Bool("help", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: uavreasm-node [options]\n\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *help {
		pflag.Usage()
		return
	}

	var logger = log.New(os.Stderr)
	if *verbose {
		logger.SetLevel(log.DebugLevel)
	}

	var cfg = config.Default()
	if *configPath != "" {
		var loaded, err = config.Load(*configPath)
		if err != nil {
			logger.Fatal("loading config", "err", err)
		}
		cfg = loaded
	}
	if *nodeName != "" {
		cfg.NodeName = *nodeName
	}

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid config", "err", err)
	}

	var table = session.NewTable(cfg.MaxPayloadSizeBytes, time.Duration(cfg.TransferIDTimeout), logger)

	sources, err := startLinkSources(cfg.Links)
	if err != nil {
		logger.Fatal("starting link sources", "err", err)
	}
	defer closeAll(sources)

	if cfg.AnnounceDNSSD {
		announceDNSSD(logger, cfg.NodeName, firstUDPPort(cfg.Links))
	}

	logger.Info("uavreasm-node started", "node_name", cfg.NodeName, "links", len(sources))

	runEventLoop(logger, table, sources)
}

func startLinkSources(links []config.LinkSource) ([]linksrc.Source, error) {
	var sources []linksrc.Source
	for _, l := range links {
		switch l.Kind {
		case "udp":
			s, err := linksrc.NewUDPSource(l.ListenAddr)
			if err != nil {
				closeAll(sources)
				return nil, fmt.Errorf("udp source %s: %w", l.ListenAddr, err)
			}
			sources = append(sources, s)
		case "serial":
			s, err := linksrc.NewSerialSource(l.Device, l.BaudRate, transfer.NodeIDUnset)
			if err != nil {
				closeAll(sources)
				return nil, fmt.Errorf("serial source %s: %w", l.Device, err)
			}
			sources = append(sources, s)
		case "pty":
			s, err := linksrc.NewPTYSource(transfer.NodeIDUnset)
			if err != nil {
				closeAll(sources)
				return nil, fmt.Errorf("pty source: %w", err)
			}
			sources = append(sources, s)
		}
	}
	return sources, nil
}

// firstUDPPort extracts the port number of the first configured UDP
// link, for DNS-SD announcement. Returns 0 if no UDP link is configured.
func firstUDPPort(links []config.LinkSource) int {
	for _, l := range links {
		if l.Kind != "udp" {
			continue
		}
		_, portStr, err := net.SplitHostPort(l.ListenAddr)
		if err != nil {
			continue
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			continue
		}
		return port
	}
	return 0
}

func closeAll(sources []linksrc.Source) {
	for _, s := range sources {
		_ = s.Close()
	}
}

// runEventLoop fans every source's Frames channel into the session
// table and prints each transfer it completes. It returns only when
// every source's channel has closed.
func runEventLoop(logger *log.Logger, table *session.Table, sources []linksrc.Source) {
	var merged = mergeReceived(sources)

	for r := range merged {
		result, ok := table.Accept(r.Subject, r.Frame, r.Source)
		if !ok {
			continue
		}
		logger.Info("transfer complete",
			"subject", r.Subject,
			"source", result.SourceNodeID,
			"transfer_id", result.TransferID,
			"size", result.Size(),
		)
	}
}

func mergeReceived(sources []linksrc.Source) <-chan linksrc.Received {
	var out = make(chan linksrc.Received)
	var wg sync.WaitGroup

	wg.Add(len(sources))
	for _, s := range sources {
		go func(s linksrc.Source) {
			defer wg.Done()
			for r := range s.Frames() {
				out <- r
			}
		}(s)
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}
