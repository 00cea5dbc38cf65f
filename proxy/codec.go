package proxy

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// ParseError describes a malformed start line or header line in bytes
// coming from the client. ParseRequest does not return it: it reports such
// input as (nil, false), and the handler then drops the connection without
// a response.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string { return "parse error: " + e.Reason }

const crlf = "\r\n"

// headerBlockEnd finds the offset of the empty line (bare CRLF) that ends
// the header block, or -1 if the buffer doesn't contain one yet. The
// headers, including the start line, are the CRLF-delimited lines before
// it; everything after it is the body.
func headerBlockEnd(buf []byte) int {
	return bytes.Index(buf, []byte(crlf+crlf))
}

// splitLines splits the header block (start line + header lines, no
// trailing empty line) on CRLF boundaries.
func splitLines(block []byte) []string {
	if len(block) == 0 {
		return nil
	}
	return strings.Split(string(block), crlf)
}

// ParseRequest returns (nil, false) whenever buf does not yet hold a
// complete, well-formed request — the caller (the framed I/O loop) is
// expected to read more bytes and try again.
func ParseRequest(buf []byte) (*Request, bool) {
	end := headerBlockEnd(buf)
	if end < 0 {
		return nil, false
	}
	lines := splitLines(buf[:end])
	if len(lines) == 0 || lines[0] == "" {
		return nil, false
	}

	startParts := strings.SplitN(lines[0], " ", 3)
	if len(startParts) != 3 {
		return nil, false
	}
	if startParts[2] != "HTTP/1.1" {
		return nil, false
	}

	headers := make([]Header, 0, len(lines)-1)
	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		idx := strings.Index(line, ": ")
		if idx < 0 {
			return nil, false
		}
		headers = append(headers, Header{Name: line[:idx], Value: line[idx+2:]})
	}

	body := buf[end+len(crlf+crlf):]

	return &Request{
		Method:   startParts[0],
		Target:   startParts[1],
		Protocol: startParts[2],
		Headers:  headers,
		Body:     body,
	}, true
}

// ParseResponse parses bytes coming from the upstream origin. The origin is
// an internal peer, so a malformed header line is tolerated by skipping it
// rather than failing the whole parse.
func ParseResponse(buf []byte) (*Response, bool) {
	end := headerBlockEnd(buf)
	if end < 0 {
		return nil, false
	}
	lines := splitLines(buf[:end])
	if len(lines) == 0 || lines[0] == "" {
		return nil, false
	}

	if !strings.HasPrefix(lines[0], "HTTP/1.1 ") {
		return nil, false
	}
	statusParts := strings.SplitN(lines[0], " ", 3)
	if len(statusParts) < 2 {
		return nil, false
	}
	code, err := strconv.ParseUint(statusParts[1], 10, 32)
	if err != nil {
		return nil, false
	}

	headers := make([]Header, 0, len(lines)-1)
	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		idx := strings.Index(line, ": ")
		if idx < 0 {
			continue
		}
		headers = append(headers, Header{Name: line[:idx], Value: line[idx+2:]})
	}

	body := buf[end+len(crlf+crlf):]

	return &Response{
		StatusCode: int(code),
		Headers:    headers,
		Body:       body,
	}, true
}

// Serialize renders a request back to wire bytes exactly as parsed: start
// line, each header line, empty line, body verbatim. It performs no header
// rewriting — the caller rewrites headers before calling Serialize.
func (r *Request) Serialize() []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s %s %s%s", r.Method, r.Target, r.Protocol, crlf)
	for _, h := range r.Headers {
		fmt.Fprintf(&buf, "%s: %s%s", h.Name, h.Value, crlf)
	}
	buf.WriteString(crlf)
	buf.Write(r.Body)
	return buf.Bytes()
}

// Serialize renders a response back to wire bytes exactly as parsed.
// Serializing a status code outside reasonPhrases is a CodecAssertion and
// panics — it is a programming error, not something this function recovers
// from itself. handleConnection's deferred recover is what keeps it scoped
// to the one connection instead of the whole process.
func (r *Response) Serialize() []byte {
	reason, ok := reasonPhrases[r.StatusCode]
	if !ok {
		panic(fmt.Sprintf("proxy: codec assertion: unmapped status code %d", r.StatusCode))
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "HTTP/1.1 %d %s%s", r.StatusCode, reason, crlf)
	for _, h := range r.Headers {
		fmt.Fprintf(&buf, "%s: %s%s", h.Name, h.Value, crlf)
	}
	buf.WriteString(crlf)
	buf.Write(r.Body)
	return buf.Bytes()
}

// contentLength reports the message's Content-Length header value, if any
// and if it parses as a non-negative integer.
func contentLength(headers []Header) (int, bool) {
	v, ok := HeaderValue(headers, "Content-Length")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// buildNotImplemented constructs the fixed 501 response sent for any
// request this proxy doesn't know how to forward.
func buildNotImplemented() *Response {
	return &Response{
		StatusCode: 501,
		Headers:    []Header{{Name: "Connection", Value: "close"}},
		Body:       []byte(notImplementedBody),
	}
}
