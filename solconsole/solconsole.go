// Package solconsole drives an interactive terminal over an already-active
// SOL session: stdin is put into raw mode and forwarded character by
// character, while inbound SOL data is written straight to stdout, the same
// MakeRaw/Restore pairing used for other interactive terminal sessions in
// this codebase's surrounding tooling.
package solconsole

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/ipmitool/go-ipmi-lanplus"
)

// escapeChar ends the console session when read as the first byte of an
// input chunk, mirroring ipmitool's "~." SOL escape (here reduced to a
// single Ctrl-] byte, 0x1d, since raw mode delivers one rune at a time).
const escapeChar = 0x1d

// defaultKeepaliveInterval is a fixed 10s, the floor go-sol's keepaliveLoop
// applies to its interval (a third of the session inactivity timeout); it is
// not derived from the session here. SOL traffic alone can go quiet for long
// stretches at an idle shell prompt.
const defaultKeepaliveInterval = 10 * time.Second

type solSession interface {
	SendSOL([]byte) error
	RecvSOL() ([]byte, error)
}

// keepaliveSession is implemented by session types that can refresh an idle
// session (ipmigo.Client only); fakes used in tests simply don't satisfy it,
// which disables the keepalive goroutine rather than requiring every test
// double to implement it.
type keepaliveSession interface {
	Keepalive() error
}

// Console pumps data between the terminal and an active SOL session until
// ctx is cancelled, stdin signals EOF, or the escape character is read.
type Console struct {
	session solSession
	out     io.Writer

	// KeepaliveInterval, if non-zero, overrides defaultKeepaliveInterval.
	KeepaliveInterval time.Duration
}

// New wraps an already-opened, already-SOL-activated client.
func New(c *ipmigo.Client, out io.Writer) *Console {
	if out == nil {
		out = os.Stdout
	}
	return &Console{session: c, out: out}
}

// Run takes over the terminal in raw mode and pumps keystrokes to SendSOL
// while a background goroutine drains RecvSOL to out, and (when the session
// supports it) another ticks Keepalive so the BMC doesn't time out the RMCP+
// session during quiet stretches of terminal output. It restores the
// terminal before returning.
func (c *Console) Run(ctx context.Context, in *os.File) error {
	fd := int(in.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("solconsole: entering raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			data, err := c.session.RecvSOL()
			if err != nil {
				return
			}
			if len(data) > 0 {
				c.out.Write(data)
			}
		}
	}()

	if ka, ok := c.session.(keepaliveSession); ok {
		go c.runKeepalive(ctx, ka, done)
	}

	reader := bufio.NewReaderSize(in, 1)
	buf := make([]byte, 1)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-done:
			return nil
		default:
		}

		n, err := reader.Read(buf)
		if err != nil {
			return err
		}
		if n == 0 {
			continue
		}
		if buf[0] == escapeChar {
			return nil
		}
		if err := c.session.SendSOL(buf[:n]); err != nil {
			return err
		}
	}
}

// runKeepalive issues Keepalive on a ticker until ctx is cancelled or done
// fires (the RecvSOL goroutine exited, meaning the session is already gone).
func (c *Console) runKeepalive(ctx context.Context, ka keepaliveSession, done <-chan struct{}) {
	interval := c.KeepaliveInterval
	if interval == 0 {
		interval = defaultKeepaliveInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			ka.Keepalive()
		}
	}
}
