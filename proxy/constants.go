package proxy

// reasonPhrases is the fixed status-code-to-reason-phrase mapping.
// Serializing a response with a code outside this table is a programming
// error and panics — it aborts the connection's goroutine, not the
// process.
var reasonPhrases = map[int]string{
	100: "Continue",
	200: "OK",
	301: "Moved Permanently",
	304: "Not Modified",
	400: "Bad Request",
	401: "Unauthorized",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	418: "I'm a teapot",
	500: "Internal Server Error",
	501: "Not Implemented",
	502: "Bad Gateway",
}

// notImplementedBody is the bit-exact 501 response body.
const notImplementedBody = "<html><body><h1>501 Not Implemented</h1>\n" +
	"<p>This proxy doesn't support this protocol.</p></body></html>\n"

// connectEstablished is written verbatim to the client before the
// TLS-as-server handshake of the CONNECT/MITM pipeline.
const connectEstablished = "HTTP/1.1 200 OK\r\n\r\n"
