package proxy

import "io"

const readChunk = 4096

// eof reports whether a read outcome should be treated as orderly close:
// either the stream signaled io.EOF, or it returned zero bytes with no
// error at all — both mean the peer is done sending.
func eof(n int, err error) bool {
	return err == io.EOF || (n == 0 && err == nil)
}

// ReadFramedRequest grows a buffer by up to 4096 bytes at a time, re-parsing
// after each chunk, until Content-Length is satisfied or (absent
// Content-Length) a request parses at all — proxied requests typically
// carry no body, so that case returns immediately rather than waiting for
// more bytes. If the peer closes with a Content-Length the delivered bytes
// never satisfy, that's treated as no message, not a truncated one.
func ReadFramedRequest(s Stream) (*Request, error) {
	var buf []byte
	chunk := make([]byte, readChunk)

	for {
		n, readErr := s.ReadSome(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
		}

		if req, ok := ParseRequest(buf); ok {
			if want, hasLen := contentLength(req.Headers); hasLen {
				if len(req.Body) == want {
					return req, nil
				}
			} else {
				return req, nil
			}
		}

		if eof(n, readErr) {
			return finalizeRequest(buf), nil
		}
		if readErr != nil {
			return nil, &TransportError{Op: "read", Err: readErr}
		}
	}
}

// finalizeRequest parses buf one last time after the peer has closed. A
// request whose Content-Length the delivered bytes never satisfied is
// incomplete, not a message with a short body, so that case returns nil.
func finalizeRequest(buf []byte) *Request {
	req, ok := ParseRequest(buf)
	if !ok {
		return nil
	}
	if want, hasLen := contentLength(req.Headers); hasLen && len(req.Body) != want {
		return nil
	}
	return req
}

// ReadFramedResponse grows a buffer the same way, but a response with no
// Content-Length is close-delimited — keep reading until the peer closes
// the stream, then return the parsed message whose body is everything
// after the headers.
func ReadFramedResponse(s Stream) (*Response, error) {
	var buf []byte
	chunk := make([]byte, readChunk)

	for {
		n, readErr := s.ReadSome(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
		}

		if resp, ok := ParseResponse(buf); ok {
			if want, hasLen := contentLength(resp.Headers); hasLen {
				if len(resp.Body) == want {
					return resp, nil
				}
			}
			// No Content-Length: fall through and keep reading until EOF.
		}

		if eof(n, readErr) {
			resp, _ := ParseResponse(buf)
			return resp, nil
		}
		if readErr != nil {
			return nil, &TransportError{Op: "read", Err: readErr}
		}
	}
}
