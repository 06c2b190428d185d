// Package torproxy routes crawler traffic through a SOCKS5 proxy.
//
// A Proxy wraps the SOCKS5 dialer from golang.org/x/net/proxy and plugs
// into fetcher.WithDialer. The proxy can be any SOCKS5 server given with
// --proxy, or a Tor daemon started in-process with EmbeddedTor (--tor),
// which uses tornago and needs no separate Tor installation.
//
//	embedded := torproxy.NewEmbeddedTor(torproxy.WithStartupTimeout(3 * time.Minute))
//	if err := embedded.Start(ctx); err != nil {
//		return err
//	}
//	defer embedded.Stop()
//
//	p, err := embedded.Proxy()
//	...
//	f := fetcher.New(fetcher.WithDialer(p))
package torproxy
