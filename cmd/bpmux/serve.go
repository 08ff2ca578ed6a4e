package main

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/hashicorp/cli"
	"github.com/hashicorp/go-hclog"
	"github.com/quic-go/quic-go"

	"github.com/progrium/bpmux-go/mux"
)

func newServeCommand(ui cli.Ui, out io.Writer) *serveCommand {
	c := &serveCommand{out: out}
	c.UI = ui
	c.init("serve")
	c.flags.BoolVar(&c.echo, "echo", false,
		"Echo channel data back to the peer instead of printing it.")
	c.help = c.usage(serveHelp)
	return c
}

type serveCommand struct {
	baseCommand
	echo bool
	help string

	out   io.Writer
	outMu sync.Mutex

	// ready, if set, receives the listener once it is accepting.
	ready chan<- mux.Listener
}

func (c *serveCommand) Run(args []string) int {
	if err := c.flags.Parse(args); err != nil {
		return 1
	}
	if c.flags.NArg() != 1 {
		c.UI.Error("serve requires exactly one transport address")
		return 1
	}
	t, err := parseTarget(c.flags.Arg(0))
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}
	if t.scheme == "stdio" && !c.echo {
		c.UI.Error("serve over stdio requires -echo")
		return 1
	}

	cfg, logger, _, stop, err := c.setup()
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}
	defer stop()

	l, err := listen(t, cfg)
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}
	logger.Info("listening", "target", t.String())
	if c.ready != nil {
		c.ready <- l
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var (
		mu     sync.Mutex
		active = make(map[*mux.Mux]struct{})
		wg     sync.WaitGroup
	)
	go func() {
		<-ctx.Done()
		l.Close()
		mu.Lock()
		for m := range active {
			m.Close()
		}
		mu.Unlock()
	}()

	code := 0
	for {
		m, err := l.Accept()
		if err != nil {
			if ctx.Err() == nil && !listenerClosed(err) {
				logger.Error("accept failed", "error", err)
				code = 1
			}
			break
		}
		mu.Lock()
		active[m] = struct{}{}
		mu.Unlock()

		wg.Add(1)
		go func() {
			defer wg.Done()
			c.serve(m, logger.With("mux", m.ID()))
			mu.Lock()
			delete(active, m)
			mu.Unlock()
		}()
	}
	wg.Wait()
	return code
}

// serve handles the channels of one connected peer until it goes away.
func (c *serveCommand) serve(m *mux.Mux, logger hclog.Logger) {
	m.OnHandshake(func(ch *mux.Channel, hs *mux.Handshake) {
		logger.Info("handshake received", "channel", ch.ID(), "data", hs.Data)
	})
	m.OnPeerChannel(func(ch *mux.Channel) {
		go c.handle(ch, logger)
	})
	m.OnError(func(err error) {
		logger.Warn("mux error", "error", err)
	})
	m.OnEnd(func() {
		// the peer is gone, flush and close our side too
		go m.End()
	})
	m.Start()
	if err := m.Wait(); err != nil {
		logger.Warn("peer disconnected", "error", err)
		return
	}
	logger.Info("peer disconnected")
}

func (c *serveCommand) handle(ch *mux.Channel, logger hclog.Logger) {
	var err error
	if c.echo {
		_, err = io.Copy(ch, ch)
	} else {
		_, err = io.Copy(&lockedWriter{w: c.out, mu: &c.outMu}, ch)
	}
	if err != nil && !mux.IsCarrierDone(err) {
		logger.Warn("channel failed", "channel", ch.ID(), "error", err)
	}
	ch.CloseWrite()
}

func listenerClosed(err error) bool {
	return err == io.EOF ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, quic.ErrServerClosed)
}

// lockedWriter serializes writes of concurrent channels to one writer.
type lockedWriter struct {
	w  io.Writer
	mu *sync.Mutex
}

func (w *lockedWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.w.Write(p)
}

func (c *serveCommand) Synopsis() string {
	return "Accept peers and echo or print their channels"
}

func (c *serveCommand) Help() string {
	return c.help
}

const serveHelp = `
Usage: bpmux serve [options] <transport>://<address>

  Listens for bpmux peers. Handshakes are logged and the data of every
  channel a peer opens is printed to stdout, or sent back with -echo.
  Transports are tcp, unix, ws, quic and stdio.

      $ bpmux serve -echo tcp://127.0.0.1:9000
`
