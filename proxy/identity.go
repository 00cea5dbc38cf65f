package proxy

import (
	"crypto/tls"
	"fmt"
	"os"

	"software.sslmate.com/src/go-pkcs12"
)

// LoadIdentity parses the PKCS#12 bundle at path with the given passphrase
// into the single TLS identity this proxy uses for every CONNECT/MITM
// handshake. It is loaded once, at startup, and shared read-only across
// every connection's goroutine — never reloaded.
func LoadIdentity(path, passphrase string) (*Identity, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pkcs12 bundle %q: %w", path, err)
	}

	key, cert, caCerts, err := pkcs12.DecodeChain(raw, passphrase)
	if err != nil {
		return nil, fmt.Errorf("decoding pkcs12 bundle %q: %w", path, err)
	}

	chain := [][]byte{cert.Raw}
	for _, ca := range caCerts {
		chain = append(chain, ca.Raw)
	}

	return &Identity{
		Certificate: tls.Certificate{
			Certificate: chain,
			PrivateKey:  key,
			Leaf:        cert,
		},
	}, nil
}

// serverTLSConfig builds the tls.Config used to terminate the client side
// of a CONNECT tunnel with the loaded identity.
func (id *Identity) serverTLSConfig() *tls.Config {
	return &tls.Config{
		Certificates: []tls.Certificate{id.Certificate},
		MinVersion:   tls.VersionTLS12,
	}
}
