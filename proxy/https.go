package proxy

import (
	"context"
	"crypto/tls"
	"net"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/mohamedbeat/relayproxy/logger"
)

// connectMITM replies 200 OK in plain TCP, terminates TLS toward the
// client with the loaded identity, reads the client's inner request, dials
// and re-originates TLS toward the real origin (SNI/Host from the inner
// request, not the outer CONNECT target, since the two can legitimately
// disagree and the inner one is what the client actually meant to reach),
// relays the rewritten inner request and its response, then closes both
// TLS sessions.
//
// The two TLS sessions are modeled as two independent objects with their
// own lifetimes; neither buffer nor error channel is shared between them,
// but their teardown errors are combined with multierr rather than
// dropping one silently.
func (p *Proxy) connectMITM(client net.Conn, req *Request) {
	outerHost, _ := HeaderValue(req.Headers, "Host")

	if p.Identity == nil {
		p.Logger.Error("CONNECT received but no TLS identity is loaded")
		return
	}

	if err := NewStream(client).WriteAll([]byte(connectEstablished)); err != nil {
		p.Logger.Debug("writing 200 OK failed", zap.Error(err))
		return
	}

	clientTLS := tls.Server(client, p.Identity.serverTLSConfig())
	if err := clientTLS.Handshake(); err != nil {
		p.Logger.Debug("client-side TLS handshake failed", zap.Error(err))
		return
	}

	var originTLS *tls.Conn
	defer func() {
		if err := closeSessions(clientTLS, originTLS); err != nil {
			p.Logger.Debug("closing MITM sessions", zap.Error(err))
		}
	}()

	clientStream := NewStream(clientTLS)
	innerReq, err := ReadFramedRequest(clientStream)
	if err != nil || innerReq == nil {
		p.Logger.Debug("reading inner request failed", zap.Error(err))
		return
	}

	innerHost, _ := HeaderValue(innerReq.Headers, "Host")
	sni := innerHost
	if sni == "" {
		sni = outerHost
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectionDeadline)
	defer cancel()

	resolved, err := Resolve(ctx, outerHost)
	if err != nil {
		p.Logger.Debug("resolve failed", zap.String("host", outerHost), zap.Error(err))
		return
	}

	originTCP, err := net.DialTimeout("tcp", resolved, connectionDeadline)
	if err != nil {
		p.Logger.Debug("dial origin failed", zap.String("target", resolved), zap.Error(err))
		return
	}
	originTCP.SetDeadline(time.Now().Add(connectionDeadline))

	originTLS = tls.Client(originTCP, &tls.Config{
		ServerName: serverNameOf(sni),
	})
	if err := originTLS.Handshake(); err != nil {
		p.Logger.Debug("origin-side TLS handshake failed", zap.Error(err))
		return
	}

	originStream := NewStream(originTLS)
	upstreamReq := RewriteForUpstream(innerReq)
	if err := originStream.WriteAll(upstreamReq.Serialize()); err != nil {
		p.Logger.Debug("forwarding inner request failed", zap.Error(err))
		return
	}

	resp, err := ReadFramedResponse(originStream)
	if err != nil || resp == nil {
		p.Logger.Debug("reading origin response failed", zap.Error(err))
		return
	}

	clientResp := RewriteForClient(resp)
	if err := clientStream.WriteAll(clientResp.Serialize()); err != nil {
		p.Logger.Debug("writing response to client failed", zap.Error(err))
		return
	}

	p.Logger.Info("forwarded (tls)",
		zap.String("method", innerReq.Method),
		zap.String("url", "https://"+innerHost+innerReq.Target),
		zap.Int("status", resp.StatusCode),
		zap.String("size", logger.HumanizeBytes(len(resp.Body))))
}

// serverNameOf strips a trailing :port from a Host header value, since
// tls.Config.ServerName wants a bare hostname.
func serverNameOf(hostport string) string {
	host, _, err := net.SplitHostPort(hostport)
	if err != nil {
		return hostport
	}
	return host
}

// closeSessions tears down both TLS sessions of a CONNECT tunnel,
// combining their close errors instead of dropping one silently. origin
// may be nil if the pipeline failed before it was ever dialed.
func closeSessions(client, origin *tls.Conn) error {
	if origin == nil {
		return client.Close()
	}
	return multierr.Combine(client.Close(), origin.Close())
}
