package proxy

import (
	"fmt"
	"net"
)

// TransportError wraps a dial/read/write/handshake failure from any of the
// transports this core uses: plain TCP, TLS-as-server, or TLS-as-client.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("transport: %s: %v", e.Op, e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// Stream is a uniform byte-stream contract: read-some and write-all
// semantics over whatever net.Conn sits underneath, whether that is a raw
// TCP socket or a TLS session in either role. Both *net.TCPConn and
// *tls.Conn already satisfy net.Conn, so a single adapter covers plain TCP,
// TLS-as-server, and TLS-as-client alike.
type Stream interface {
	// ReadSome returns 0..len(buf) bytes read and any error. A return of
	// (0, nil) or (0, io.EOF) both signal orderly close to callers, which
	// treat those two the same way; (0, any other error) is a transport
	// failure.
	ReadSome(buf []byte) (int, error)
	// WriteAll writes every byte of buf or returns an error; short writes
	// are retried internally rather than surfaced to the caller.
	WriteAll(buf []byte) error
	net.Conn
}

type connStream struct {
	net.Conn
}

// NewStream wraps any net.Conn — TCP, TLS-server, or TLS-client — as a
// Stream.
func NewStream(c net.Conn) Stream {
	return &connStream{Conn: c}
}

func (s *connStream) ReadSome(buf []byte) (int, error) {
	return s.Conn.Read(buf)
}

func (s *connStream) WriteAll(buf []byte) error {
	written := 0
	for written < len(buf) {
		n, err := s.Conn.Write(buf[written:])
		written += n
		if err != nil {
			return &TransportError{Op: "write", Err: err}
		}
	}
	return nil
}
