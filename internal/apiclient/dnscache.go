package apiclient

import (
	"context"
	"net"
	"time"

	"github.com/rs/dnscache"
	"github.com/rs/zerolog"
)

// cachingDialer resolves hosts through an in-process DNS cache so a dashboard
// polling a dozen endpoints does not hit the resolver on every request.
type cachingDialer struct {
	resolver *dnscache.Resolver
	dialer   *net.Dialer
	stop     chan struct{}
}

func newCachingDialer(ttl time.Duration, logger zerolog.Logger) *cachingDialer {
	d := &cachingDialer{
		resolver: &dnscache.Resolver{},
		dialer: &net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		},
		stop: make(chan struct{}),
	}

	logger.Debug().Dur("ttl", ttl).Msg("Initializing DNS resolver cache")

	go func() {
		ticker := time.NewTicker(ttl)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				d.resolver.Refresh(true)
				logger.Debug().Dur("ttl", ttl).Msg("DNS cache refreshed")
			case <-d.stop:
				return
			}
		}
	}()

	return d
}

// DialContext dials the first address the cached resolver returns for host.
func (d *cachingDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return nil, err
	}

	ips, err := d.resolver.LookupHost(ctx, host)
	if err != nil {
		return nil, err
	}
	if len(ips) == 0 {
		return nil, &net.DNSError{
			Err:  "no IP addresses found",
			Name: host,
		}
	}

	return d.dialer.DialContext(ctx, network, net.JoinHostPort(ips[0], port))
}

func (d *cachingDialer) Close() {
	select {
	case <-d.stop:
	default:
		close(d.stop)
	}
}
