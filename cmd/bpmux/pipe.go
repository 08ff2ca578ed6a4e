package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/hashicorp/cli"

	"github.com/progrium/bpmux-go/mux"
)

func newPipeCommand(ui cli.Ui, in io.Reader, out io.Writer) *pipeCommand {
	c := &pipeCommand{in: in, out: out}
	c.UI = ui
	c.init("pipe")
	c.flags.Var(&c.handshake, "handshake",
		"Handshake field as key=value. May be given more than once.")
	c.help = c.usage(pipeHelp)
	return c
}

type pipeCommand struct {
	baseCommand
	handshake appendSliceValue
	help      string

	in  io.Reader
	out io.Writer
}

func (c *pipeCommand) Run(args []string) int {
	if err := c.flags.Parse(args); err != nil {
		return 1
	}
	if c.flags.NArg() != 1 {
		c.UI.Error("pipe requires exactly one transport address")
		return 1
	}
	t, err := parseTarget(c.flags.Arg(0))
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}
	if t.scheme == "stdio" {
		c.UI.Error("pipe copies stdio through the channel and cannot use it as the carrier")
		return 1
	}

	cfg, logger, cd, stop, err := c.setup()
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}
	defer stop()

	payload, err := handshakePayload(cd, c.handshake)
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	m, err := dial(ctx, t, cfg)
	cancel()
	if err != nil {
		c.UI.Error(fmt.Sprintf("Error connecting to %s: %s", t, err))
		return 1
	}
	defer m.Close()

	m.OnHandshake(func(ch *mux.Channel, hs *mux.Handshake) {
		logger.Info("handshake received", "channel", ch.ID(), "data", hs.Data)
	})
	m.OnError(func(err error) {
		logger.Warn("mux error", "error", err)
	})
	m.Start()

	ch, err := m.Multiplex(&mux.ChannelOptions{HandshakeData: payload})
	if err != nil {
		c.UI.Error(fmt.Sprintf("Error opening channel: %s", err))
		return 1
	}
	logger.Debug("channel opened", "channel", ch.ID(), "target", t.String())

	go func() {
		if _, err := io.Copy(ch, c.in); err != nil {
			logger.Warn("copy to channel failed", "error", err)
		}
		ch.CloseWrite()
	}()

	if _, err := io.Copy(c.out, ch); err != nil {
		c.UI.Error(fmt.Sprintf("Error reading channel: %s", err))
		return 1
	}
	return 0
}

func (c *pipeCommand) Synopsis() string {
	return "Pipe stdio through a single channel"
}

func (c *pipeCommand) Help() string {
	return c.help
}

const pipeHelp = `
Usage: bpmux pipe [options] <transport>://<address>

  Connects to a bpmux peer, opens one channel and copies stdin into it
  while writing what the peer sends to stdout. Transports are tcp, unix,
  ws and quic.

      $ bpmux pipe -handshake service=echo tcp://127.0.0.1:9000
`
