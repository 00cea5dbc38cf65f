package proxy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestRoundTrip(t *testing.T) {
	req := &Request{
		Method:   "POST",
		Target:   "/search?q=1&r=2",
		Protocol: "HTTP/1.1",
		Headers: []Header{
			{Name: "Host", Value: "example.com"},
			{Name: "X-Dup", Value: "a"},
			{Name: "X-Dup", Value: "b"},
		},
		Body: []byte("payload"),
	}

	parsed, ok := ParseRequest(req.Serialize())
	require.True(t, ok)
	assert.Equal(t, req.Method, parsed.Method)
	assert.Equal(t, req.Target, parsed.Target)
	assert.Equal(t, req.Protocol, parsed.Protocol)
	assert.Equal(t, req.Headers, parsed.Headers)
	assert.Equal(t, req.Body, parsed.Body)
}

func TestResponseRoundTrip(t *testing.T) {
	resp := &Response{
		StatusCode: 404,
		Headers: []Header{
			{Name: "Content-Type", Value: "text/plain"},
		},
		Body: []byte("not found"),
	}

	parsed, ok := ParseResponse(resp.Serialize())
	require.True(t, ok)
	assert.Equal(t, resp.StatusCode, parsed.StatusCode)
	assert.Equal(t, resp.Headers, parsed.Headers)
	assert.Equal(t, resp.Body, parsed.Body)
}

func TestParseRequest_RequiresHTTP11(t *testing.T) {
	_, ok := ParseRequest([]byte("GET /x HTTP/1.0\r\nHost: h\r\n\r\n"))
	assert.False(t, ok)
}

func TestParseRequest_MalformedHeaderLineFails(t *testing.T) {
	// A header line without ": " fails request parsing.
	_, ok := ParseRequest([]byte("GET /x HTTP/1.1\r\nHost example.com\r\n\r\n"))
	assert.False(t, ok)
}

func TestParseRequest_IncompleteHeaderBlockYieldsNoMessage(t *testing.T) {
	_, ok := ParseRequest([]byte("GET /x HTTP/1.1\r\nHost: h\r\n"))
	assert.False(t, ok)
}

func TestParseResponse_ToleratesMalformedHeaderLine(t *testing.T) {
	// Response parsing may assume well-formed peers — a bad line is
	// skipped rather than failing the whole parse.
	resp, ok := ParseResponse([]byte("HTTP/1.1 200 OK\r\nbroken header\r\nContent-Length: 2\r\n\r\nok"))
	require.True(t, ok)
	assert.Equal(t, 200, resp.StatusCode)
	v, found := HeaderValue(resp.Headers, "Content-Length")
	assert.True(t, found)
	assert.Equal(t, "2", v)
}

func TestResponseSerialize_PanicsOnUnmappedStatusCode(t *testing.T) {
	resp := &Response{StatusCode: 299}
	assert.Panics(t, func() { resp.Serialize() })
}

func TestParseRequest_UnsupportedMethodStillParses(t *testing.T) {
	// An unsupported method still parses fine; it's the connection
	// handler's job (not the codec's) to reject it with a 501.
	req, ok := ParseRequest([]byte("FOO /bar HTTP/1.1\r\nHost: x\r\n\r\n"))
	require.True(t, ok)
	assert.Equal(t, "FOO", req.Method)
}
