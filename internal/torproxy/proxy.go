package torproxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"golang.org/x/net/proxy"
)

// DefaultCheckTimeout bounds CheckConnection.
const DefaultCheckTimeout = 2 * time.Second

// SOCKS5 greeting constants
const (
	socks5Version  = 0x05
	socks5AuthNone = 0x00
)

// Proxy dials through a SOCKS5 proxy. It implements the ContextDialer
// interface expected by fetcher.WithDialer.
type Proxy struct {
	// address is the proxy in "host:port" form.
	address string

	// dialer is the SOCKS5 dialer from x/net/proxy.
	dialer proxy.ContextDialer

	// checkTimeout bounds CheckConnection.
	checkTimeout time.Duration
}

// Option configures a Proxy.
type Option func(*Proxy)

// WithCheckTimeout sets how long CheckConnection waits for the proxy.
func WithCheckTimeout(d time.Duration) Option {
	return func(p *Proxy) {
		if d > 0 {
			p.checkTimeout = d
		}
	}
}

// New creates a Proxy for the SOCKS5 server at address. It validates the
// address but does not connect; use CheckConnection for that.
func New(address string, opts ...Option) (*Proxy, error) {
	if err := ValidateAddress(address); err != nil {
		return nil, err
	}

	// Tor's SOCKS port needs no authentication.
	d, err := proxy.SOCKS5("tcp", address, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}
	cd, ok := d.(proxy.ContextDialer)
	if !ok {
		return nil, errors.New("SOCKS5 dialer does not support contexts")
	}

	p := &Proxy{
		address:      address,
		dialer:       cd,
		checkTimeout: DefaultCheckTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// ValidateAddress checks that address is "host:port" with a non-empty host
// and a port between 1 and 65535. IPv6 hosts must be bracketed.
func ValidateAddress(address string) error {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return ErrInvalidProxyAddress
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 1 || n > 65535 {
		return ErrInvalidProxyAddress
	}
	return nil
}

// Address returns the proxy address.
func (p *Proxy) Address() string {
	return p.address
}

// DialContext connects to address through the proxy.
func (p *Proxy) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	return p.dialer.DialContext(ctx, network, address)
}

// CheckConnection verifies that a SOCKS5 proxy is listening at the
// configured address by performing the method negotiation. No connection
// to any destination is requested.
func (p *Proxy) CheckConnection(ctx context.Context) ProxyStatus {
	ctx, cancel := context.WithTimeout(ctx, p.checkTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", p.address)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ProxyStatusTimeout
		}
		return ProxyStatusCannotConnect
	}
	defer conn.Close()

	deadline, _ := ctx.Deadline()
	if err := conn.SetDeadline(deadline); err != nil {
		return ProxyStatusCannotConnect
	}

	// Client sends: version, one method, "no authentication".
	if _, err := conn.Write([]byte{socks5Version, 0x01, socks5AuthNone}); err != nil {
		return ProxyStatusCannotConnect
	}

	// Server responds: version, selected method.
	resp := make([]byte, 2)
	if _, err := io.ReadFull(conn, resp); err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return ProxyStatusTimeout
		}
		return ProxyStatusWrongType
	}

	if resp[0] != socks5Version {
		return ProxyStatusWrongType
	}
	// 0xFF means the proxy wants credentials.
	if resp[1] != socks5AuthNone {
		return ProxyStatusWrongType
	}

	return ProxyStatusOK
}
