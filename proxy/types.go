package proxy

import (
	"crypto/tls"

	"go.uber.org/zap"
)

// Header is one (name, value) pair. A Request or Response carries these in
// an ordered slice rather than a map so duplicate headers and original
// order survive a parse/serialize round trip.
type Header struct {
	Name  string
	Value string
}

// Request is a parsed HTTP/1.1 request: method, request-target, protocol,
// an ordered header list, and an opaque body.
type Request struct {
	Method   string
	Target   string
	Protocol string
	Headers  []Header
	Body     []byte
}

// Response is a parsed HTTP/1.1 response: status code, ordered headers,
// and an opaque body.
type Response struct {
	StatusCode int
	Headers    []Header
	Body       []byte
}

// Identity is the single TLS identity loaded from the PKCS#12 bundle at
// startup. It is read-only and shared across every connection's MITM
// handshake; it is never reloaded.
type Identity struct {
	Certificate tls.Certificate
}

// Proxy is the shared, read-only state handed to every accepted
// connection: the logger and the TLS identity used to terminate the
// client side of a CONNECT tunnel.
type Proxy struct {
	Logger   *zap.Logger
	Identity *Identity
}

// New builds a Proxy. identity may be nil if the binary is only ever used
// for plain HTTP forwarding, but any CONNECT request is then dropped
// without a response: the 200 OK is never written and no handshake is
// attempted.
func New(logger *zap.Logger, identity *Identity) *Proxy {
	return &Proxy{Logger: logger, Identity: identity}
}

// HeaderValue returns the value of the first header matching name. The
// match is case-sensitive; this core does not fold header-name case.
func HeaderValue(headers []Header, name string) (string, bool) {
	for _, h := range headers {
		if h.Name == name {
			return h.Value, true
		}
	}
	return "", false
}
