package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mohamedbeat/relayproxy/logger"
	"github.com/mohamedbeat/relayproxy/proxy"
)

const defaultPort = 8080

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// NewRootCmd builds the `proxy [port]` command: a single optional
// positional port argument, defaulting to 8080.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "proxy [port]",
		Short: "Forward HTTP/HTTPS proxy with CONNECT-based TLS interception",
		Args:  cobra.MaximumNArgs(1),
		RunE:  run,
	}
	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	port := defaultPort
	if len(args) == 1 {
		p, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid port %q: %w", args[0], err)
		}
		port = p
	}

	logg, err := logger.InitLogger()
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer logg.Sync()

	identity, err := loadIdentityFromEnv(logg)
	if err != nil {
		logg.Warn("no TLS identity loaded; CONNECT requests will be dropped", zap.Error(err))
	}

	p := proxy.New(logg, identity)
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	logg.Sugar().Infof("starting proxy on %s", addr)

	if err := p.Start(addr); err != nil {
		logg.Error("proxy stopped", zap.Error(err))
		return err
	}
	return nil
}

// loadIdentityFromEnv reads the PKCS#12 bundle path and passphrase from the
// environment — external inputs supplied at startup rather than baked into
// the binary.
func loadIdentityFromEnv(logg *zap.Logger) (*proxy.Identity, error) {
	path := os.Getenv("RELAYPROXY_PKCS12_PATH")
	if path == "" {
		return nil, fmt.Errorf("RELAYPROXY_PKCS12_PATH not set")
	}
	passphrase := os.Getenv("RELAYPROXY_PKCS12_PASSWORD")

	identity, err := proxy.LoadIdentity(path, passphrase)
	if err != nil {
		return nil, err
	}
	logg.Info("loaded TLS identity", zap.String("path", path))
	return identity, nil
}
