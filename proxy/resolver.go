package proxy

import (
	"context"
	"fmt"
	"net"
	"strings"

	"golang.org/x/net/idna"
)

// ResolveError marks a hostname that did not resolve to any address.
type ResolveError struct {
	Host string
	Err  error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("resolve error: %s: %v", e.Host, e.Err)
}
func (e *ResolveError) Unwrap() error { return e.Err }

// defaultPort splits hostport into host and port, defaulting the port to
// "80" when hostport carries none. Split out so it can be tested without
// touching the network.
func defaultPort(hostport string) (host, port string) {
	host, port, ok := strings.Cut(hostport, ":")
	if !ok {
		return hostport, "80"
	}
	return host, port
}

// Resolve appends ":80" when hostport carries no port, normalizes the
// hostname through IDNA (so a non-ASCII label looked up by a client still
// hits the resolver the way an ASCII peer would), resolves the first
// address, and returns "ip:port" ready to dial.
func Resolve(ctx context.Context, hostport string) (string, error) {
	host, port := defaultPort(hostport)

	asciiHost, err := idna.Lookup.ToASCII(host)
	if err == nil {
		host = asciiHost
	}

	ips, err := net.DefaultResolver.LookupHost(ctx, host)
	if err != nil || len(ips) == 0 {
		if err == nil {
			err = fmt.Errorf("no addresses returned")
		}
		return "", &ResolveError{Host: host, Err: err}
	}

	return net.JoinHostPort(ips[0], port), nil
}
