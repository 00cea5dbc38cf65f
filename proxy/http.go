package proxy

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/mohamedbeat/relayproxy/logger"
)

// forwardHTTP handles an absolute-form request: rewrite it for the origin,
// resolve and dial, write the rewritten request, frame the response,
// rewrite it for the client, and write it back. Any failure on the
// upstream leg drops the connection silently — the client just sees a
// close.
func (p *Proxy) forwardHTTP(client net.Conn, req *Request) {
	host, port, _, ok := splitTarget(req.Target)
	if !ok {
		p.reject501(client)
		return
	}
	hostport := host
	if port != "" {
		hostport = net.JoinHostPort(host, port)
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectionDeadline)
	defer cancel()

	resolved, err := Resolve(ctx, hostport)
	if err != nil {
		p.Logger.Debug("resolve failed", zap.String("host", host), zap.Error(err))
		return
	}

	upstream, err := net.DialTimeout("tcp", resolved, connectionDeadline)
	if err != nil {
		p.Logger.Debug("dial failed", zap.String("target", resolved), zap.Error(err))
		return
	}
	defer upstream.Close()
	upstream.SetDeadline(time.Now().Add(connectionDeadline))

	upstreamReq := RewriteForUpstream(req)
	upstreamStream := NewStream(upstream)
	if err := upstreamStream.WriteAll(upstreamReq.Serialize()); err != nil {
		p.Logger.Debug("forwarding request failed", zap.Error(err))
		return
	}

	resp, err := ReadFramedResponse(upstreamStream)
	if err != nil || resp == nil {
		p.Logger.Debug("reading upstream response failed", zap.Error(err))
		return
	}

	clientResp := RewriteForClient(resp)
	if err := NewStream(client).WriteAll(clientResp.Serialize()); err != nil {
		p.Logger.Debug("writing response to client failed", zap.Error(err))
		return
	}

	p.Logger.Info("forwarded",
		zap.String("method", req.Method),
		zap.String("url", req.Target),
		zap.Int("status", resp.StatusCode),
		zap.String("size", logger.HumanizeBytes(len(resp.Body))))
}
