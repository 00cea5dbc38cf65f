package proxy

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"io"
	"math/big"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// testIdentity builds a self-signed identity good enough to drive the
// client-facing handshake far enough to prove the 200 OK line was already
// on the wire. No test ever completes this handshake against it.
func testIdentity(t *testing.T) *Identity {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "proxy-test"},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)

	return &Identity{
		Certificate: tls.Certificate{
			Certificate: [][]byte{der},
			PrivateKey:  key,
		},
	}
}

func TestConnectMITM_Writes200OKBeforeAttemptingHandshake(t *testing.T) {
	testerSide, proxySide := net.Pipe()

	p := New(zap.NewNop(), testIdentity(t))
	req := &Request{
		Method:   "CONNECT",
		Target:   "example.com:443",
		Protocol: "HTTP/1.1",
		Headers:  []Header{{Name: "Host", Value: "example.com:443"}},
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		p.connectMITM(proxySide, req)
	}()

	buf := make([]byte, len(connectEstablished))
	testerSide.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := io.ReadFull(testerSide, buf)
	require.NoError(t, err)
	require.Equal(t, connectEstablished, string(buf[:n]))

	// Closing without ever sending a ClientHello unblocks the handshake
	// attempt with an error rather than letting connectMITM hang.
	testerSide.Close()
	proxySide.Close()
	<-done
}

func TestConnectMITM_NoIdentityNeverWrites200OK(t *testing.T) {
	testerSide, proxySide := net.Pipe()
	defer testerSide.Close()
	defer proxySide.Close()

	p := New(zap.NewNop(), nil)
	req := &Request{
		Method:   "CONNECT",
		Target:   "example.com:443",
		Protocol: "HTTP/1.1",
		Headers:  []Header{{Name: "Host", Value: "example.com:443"}},
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		p.connectMITM(proxySide, req)
	}()
	<-done

	testerSide.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
	n, err := testerSide.Read(make([]byte, 1))
	require.Zero(t, n)
	require.Error(t, err)
}
