package proxy

import (
	"net/url"
	"strings"
)

// splitTarget splits an absolute-form request target into host, optional
// port, and the path-plus-query that gets sent upstream. An empty path
// renders as "/"; the fragment is discarded.
func splitTarget(target string) (host, port, pathAndQuery string, ok bool) {
	if !strings.HasPrefix(target, "http://") {
		return "", "", "", false
	}
	u, err := url.Parse(target)
	if err != nil {
		return "", "", "", false
	}

	path := u.Path
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path = path + "?" + u.RawQuery
	}

	return u.Hostname(), u.Port(), path, true
}

// RewriteForUpstream turns a client-facing absolute-form request into the
// relative-form request sent to the origin. Applying it twice is
// idempotent: the second pass sees target already in relative form and
// Host/Connection/Proxy-Connection already in their final shape, so it
// only needs to re-run the same filter-and-append rule, which is already a
// fixed point.
func RewriteForUpstream(req *Request) *Request {
	host, port, pathAndQuery, ok := splitTarget(req.Target)
	target := req.Target
	if ok {
		target = pathAndQuery
	}

	hostHeader, hasHost := HeaderValue(req.Headers, "Host")
	if !hasHost {
		hostHeader = host
		if port != "" {
			hostHeader = host + ":" + port
		}
	}

	headers := make([]Header, 0, len(req.Headers)+2)
	headers = append(headers, Header{Name: "Host", Value: hostHeader})
	for _, h := range req.Headers {
		switch h.Name {
		case "Host", "Connection", "Proxy-Connection":
			continue
		default:
			headers = append(headers, h)
		}
	}
	headers = append(headers, Header{Name: "Connection", Value: "close"})
	headers = append(headers, Header{Name: "Proxy-Connection", Value: "close"})

	return &Request{
		Method:   req.Method,
		Target:   target,
		Protocol: "HTTP/1.1",
		Headers:  headers,
		Body:     req.Body,
	}
}

// RewriteForClient forces a single Connection: close header before the
// response goes back to the client. It leaves everything else untouched,
// including duplicate headers the origin may have sent.
func RewriteForClient(resp *Response) *Response {
	headers := make([]Header, 0, len(resp.Headers)+1)
	replaced := false
	for _, h := range resp.Headers {
		if h.Name == "Connection" {
			if !replaced {
				headers = append(headers, Header{Name: "Connection", Value: "close"})
				replaced = true
			}
			continue
		}
		headers = append(headers, h)
	}
	if !replaced {
		headers = append(headers, Header{Name: "Connection", Value: "close"})
	}
	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    headers,
		Body:       resp.Body,
	}
}
