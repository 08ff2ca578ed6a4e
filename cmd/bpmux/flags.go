package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"

	"github.com/armon/go-metrics"
	gmprom "github.com/armon/go-metrics/prometheus"
	"github.com/hashicorp/cli"
	"github.com/hashicorp/go-hclog"
	"github.com/progrium/clon-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/progrium/bpmux-go/codec"
	"github.com/progrium/bpmux-go/mux"
)

// baseCommand holds the flags every command shares.
type baseCommand struct {
	UI    cli.Ui
	flags *flag.FlagSet

	configPath  string
	logLevel    string
	metricsAddr string
	codecName   string
}

func (c *baseCommand) init(name string) {
	c.flags = flag.NewFlagSet(name, flag.ContinueOnError)
	c.flags.StringVar(&c.configPath, "config", "",
		"Path to a JSON file with mux settings such as max_open or keep_alive_interval.")
	c.flags.StringVar(&c.logLevel, "log-level", "info",
		"Log level: trace, debug, info, warn or error.")
	c.flags.StringVar(&c.metricsAddr, "metrics-addr", "",
		"Address to serve Prometheus metrics on at /metrics. Disabled if empty.")
	c.flags.StringVar(&c.codecName, "codec", "json",
		"Codec of handshake payloads: json or cbor.")
}

func (c *baseCommand) usage(help string) string {
	var buf bytes.Buffer
	c.flags.SetOutput(&buf)
	c.flags.PrintDefaults()
	c.flags.SetOutput(nil)
	return strings.TrimSpace(help) + "\n\nOptions:\n\n" + buf.String()
}

// setup builds the mux config, logger and metrics sink from the flags.
// The returned func stops the metrics server.
func (c *baseCommand) setup() (*mux.Config, hclog.Logger, codec.Codec, func(), error) {
	level := hclog.LevelFromString(c.logLevel)
	if level == hclog.NoLevel {
		return nil, nil, nil, nil, fmt.Errorf("invalid log level: %s", c.logLevel)
	}
	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "bpmux",
		Level:  level,
		Output: os.Stderr,
	})

	cd, ok := codec.Named(c.codecName)
	if !ok {
		return nil, nil, nil, nil, fmt.Errorf("unknown codec: %s", c.codecName)
	}

	cfg, err := loadConfig(c.configPath)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	cfg.Logger = logger
	cfg.ParseHandshakeData = codec.HandshakeParser(cd)

	stop := func() {}
	if c.metricsAddr != "" {
		stop, err = serveMetrics(c.metricsAddr, logger)
		if err != nil {
			return nil, nil, nil, nil, err
		}
	}
	return cfg, logger, cd, stop, nil
}

func loadConfig(path string) (*mux.Config, error) {
	if path == "" {
		return mux.DefaultConfig(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return mux.DecodeConfig(raw)
}

func serveMetrics(addr string, logger hclog.Logger) (func(), error) {
	sink, err := gmprom.NewPrometheusSink()
	if err != nil {
		return nil, err
	}
	conf := metrics.DefaultConfig("")
	conf.EnableHostname = false
	conf.EnableRuntimeMetrics = false
	if _, err := metrics.NewGlobal(conf, sink); err != nil {
		return nil, err
	}

	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	handler := http.NewServeMux()
	handler.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Handler: handler}
	go func() {
		if err := srv.Serve(l); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", l.Addr().String())
	return func() { srv.Close() }, nil
}

// handshakePayload turns k=v arguments into a handshake payload encoded
// with c. No arguments give an empty payload.
func handshakePayload(c codec.Codec, args []string) ([]byte, error) {
	if len(args) == 0 {
		return nil, nil
	}
	v, err := clon.Parse(args)
	if err != nil {
		return nil, fmt.Errorf("parsing handshake: %w", err)
	}
	return codec.Marshal(c, v)
}

// appendSliceValue implements flag.Value for a flag that may be repeated.
type appendSliceValue []string

func (s *appendSliceValue) String() string {
	return strings.Join(*s, ",")
}

func (s *appendSliceValue) Set(value string) error {
	*s = append(*s, value)
	return nil
}
