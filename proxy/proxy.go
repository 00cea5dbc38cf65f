package proxy

import (
	"net"
	"strings"
	"time"

	"go.uber.org/zap"
)

// connectionDeadline bounds how long a single accepted connection can run
// end to end: a stuck peer drops rather than stalling its handler goroutine
// forever.
const connectionDeadline = 30 * time.Second

// Start binds a loopback listener and spawns one independent handler
// goroutine per accepted connection. Accept errors are fatal; handler
// errors are isolated to their own goroutine.
func (p *Proxy) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	defer listener.Close()

	p.Logger.Info("proxy listening", zap.String("addr", addr))

	for {
		conn, err := listener.Accept()
		if err != nil {
			return &TransportError{Op: "accept", Err: err}
		}
		go p.handleConnection(conn)
	}
}

// classification is the outcome of classifying a parsed request into one of
// the handler's dispatch branches.
type classification int

const (
	classifyForwardHTTP classification = iota
	classifyConnectMITM
	classifyReject
)

// classify maps a parsed request to the branch handleConnection dispatches
// to: an absolute-form target goes to plain HTTP forwarding, a CONNECT with
// a Host header goes to the MITM pipeline, anything else is rejected.
func classify(req *Request) classification {
	switch {
	case strings.HasPrefix(req.Target, "http://"):
		return classifyForwardHTTP
	case req.Method == "CONNECT":
		if _, hasHost := HeaderValue(req.Headers, "Host"); hasHost {
			return classifyConnectMITM
		}
		return classifyReject
	default:
		return classifyReject
	}
}

// handleConnection is the per-connection state machine: read a request,
// classify it, then dispatch to plain HTTP forwarding, CONNECT/MITM setup,
// or a 501 rejection. Every terminal path closes the client connection;
// none of them emit a response the client didn't ask for.
//
// forwardHTTP and connectMITM both re-serialize a response the upstream
// sent, and Response.Serialize panics (CodecAssertion, §7) on any status
// code outside reasonPhrases — an upstream returning an ordinary code like
// 302 or 204 would otherwise panic unrecovered and take the whole process
// down. The
// deferred recover here is what actually makes §7's "aborts the task, not
// the process" true: it isolates that panic to this one connection.
func (p *Proxy) handleConnection(client net.Conn) {
	defer client.Close()
	defer p.recoverCodecAssertion()
	client.SetDeadline(time.Now().Add(connectionDeadline))

	stream := NewStream(client)
	req, err := ReadFramedRequest(stream)
	if err != nil {
		p.Logger.Debug("closing connection after read error", zap.Error(err))
		return
	}
	if req == nil {
		return
	}

	switch classify(req) {
	case classifyForwardHTTP:
		p.forwardHTTP(client, req)
	case classifyConnectMITM:
		p.connectMITM(client, req)
	default:
		p.reject501(client)
	}
}

// recoverCodecAssertion catches a CodecAssertion panic from Serialize and
// turns it into a dropped connection instead of a crashed process.
func (p *Proxy) recoverCodecAssertion() {
	if r := recover(); r != nil {
		p.Logger.Error("recovered codec assertion", zap.Any("panic", r))
	}
}

// reject501 writes the fixed 501 response used for any request this proxy
// doesn't know how to forward.
func (p *Proxy) reject501(client net.Conn) {
	resp := buildNotImplemented()
	if err := NewStream(client).WriteAll(resp.Serialize()); err != nil {
		p.Logger.Debug("failed to write 501 response", zap.Error(err))
	}
}
