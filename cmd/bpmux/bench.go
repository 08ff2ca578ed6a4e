package main

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/hashicorp/cli"
	"golang.org/x/sync/errgroup"

	"github.com/progrium/bpmux-go/mux"
)

const benchChunk = 4 * 1024

func newBenchCommand(ui cli.Ui) *benchCommand {
	c := &benchCommand{}
	c.UI = ui
	c.init("bench")
	c.flags.IntVar(&c.channels, "channels", 4, "Number of channels to open.")
	c.flags.IntVar(&c.size, "size", 8<<20, "Bytes to send on every channel.")
	c.flags.IntVar(&c.paused, "paused", 1,
		"Number of channels whose receiver never reads.")
	c.help = c.usage(benchHelp)
	return c
}

type benchCommand struct {
	baseCommand
	channels int
	size     int
	paused   int
	help     string
}

type benchResult struct {
	id      uint32
	paused  bool
	written atomic.Int64
	elapsed time.Duration
}

func (c *benchCommand) Run(args []string) int {
	if err := c.flags.Parse(args); err != nil {
		return 1
	}
	if c.channels < 1 || c.size < 1 || c.paused < 0 || c.paused >= c.channels {
		c.UI.Error("bench needs at least one channel that is not paused and a positive size")
		return 1
	}

	cfg, logger, _, stop, err := c.setup()
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}
	defer stop()
	cfg.ParseHandshakeData = nil
	cfg.KeepAliveInterval = 0

	ar, bw := io.Pipe()
	br, aw := io.Pipe()
	a, err := mux.DialIO(aw, ar, cfg)
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}
	defer a.Close()
	cfgB := *cfg
	cfgB.HighChannels = true
	b, err := mux.DialIO(bw, br, &cfgB)
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}
	defer b.Close()

	b.OnHandshake(func(ch *mux.Channel, hs *mux.Handshake) {
		if string(hs.Raw) == "paused" {
			return
		}
		go io.Copy(io.Discard, ch)
	})
	a.Start()
	b.Start()

	results := make([]*benchResult, c.channels)
	var g errgroup.Group
	start := time.Now()
	for i := range results {
		r := &benchResult{paused: i < c.paused}
		results[i] = r
		hs := "read"
		if r.paused {
			hs = "paused"
		}
		ch, err := a.Multiplex(&mux.ChannelOptions{HandshakeData: []byte(hs)})
		if err != nil {
			c.UI.Error(fmt.Sprintf("Error opening channel: %s", err))
			return 1
		}
		r.id = ch.ID()

		send := func() error {
			buf := make([]byte, benchChunk)
			for sent := 0; sent < c.size; sent += len(buf) {
				if c.size-sent < len(buf) {
					buf = buf[:c.size-sent]
				}
				n, err := ch.Write(buf)
				r.written.Add(int64(n))
				if err != nil {
					return err
				}
			}
			r.elapsed = time.Since(start)
			return ch.CloseWrite()
		}
		if r.paused {
			// blocks once the receive window is full
			go send()
			continue
		}
		g.Go(send)
	}

	if err := g.Wait(); err != nil {
		c.UI.Error(fmt.Sprintf("Error writing: %s", err))
		return 1
	}
	logger.Debug("bench done", "elapsed", time.Since(start))

	for _, r := range results {
		if r.paused {
			c.UI.Output(fmt.Sprintf("channel %d: paused after %d bytes", r.id, r.written.Load()))
			continue
		}
		mibs := float64(c.size) / r.elapsed.Seconds() / (1 << 20)
		c.UI.Output(fmt.Sprintf("channel %d: %d bytes in %s (%.1f MiB/s)", r.id, c.size, r.elapsed, mibs))
	}
	return 0
}

func (c *benchCommand) Synopsis() string {
	return "Measure channel throughput with some receivers paused"
}

func (c *benchCommand) Help() string {
	return c.help
}

const benchHelp = `
Usage: bpmux bench [options]

  Runs two muxes connected in memory and writes to several channels at
  once. The receivers of the first -paused channels never read, which
  must not hold up the others.
`
