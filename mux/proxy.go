package mux

import (
	"io"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
)

// Proxy opens a channel on dst for every channel the peer of src opens,
// forwarding the handshake payload in both directions, and copies data
// between the two until both sides are done. Proxy starts both muxes and
// returns when src closes, with its carrier error if any. If the carrier
// of dst ends, both muxes are closed.
func Proxy(dst, src *Mux) error {
	src.OnHandshake(func(a *Channel, hs *Handshake) {
		reply, ok := hs.Delay()
		if !ok {
			return
		}
		b, err := dst.Multiplex(&ChannelOptions{DelayHandshake: true})
		if err != nil {
			a.Destroy(err)
			return
		}
		b.OnHandshake(func(bhs *Handshake) {
			if err := reply.Send(bhs.Raw); err != nil {
				a.Destroy(err)
				b.Destroy(err)
				return
			}
			go proxy(a, b)
		})
		if err := b.SendHandshake(hs.Raw); err != nil {
			a.Destroy(err)
			b.Destroy(err)
		}
	})
	dst.OnEnd(func() {
		go func() {
			dst.Close()
			src.Close()
		}()
	})
	dst.Start()
	src.Start()
	err := src.Wait()
	dst.Close()
	return err
}

func proxy(a, b *Channel) error {
	var g errgroup.Group
	g.Go(func() error {
		_, err := io.Copy(a, b)
		a.CloseWrite()
		return err
	})
	g.Go(func() error {
		_, err := io.Copy(b, a)
		b.CloseWrite()
		return err
	})
	err := g.Wait()
	var merr error
	if err != nil {
		merr = multierror.Append(merr, err)
	}
	if cerr := a.Close(); cerr != nil {
		merr = multierror.Append(merr, cerr)
	}
	if cerr := b.Close(); cerr != nil {
		merr = multierror.Append(merr, cerr)
	}
	return merr
}
