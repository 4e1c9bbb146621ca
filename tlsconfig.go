package evloop

import (
	"crypto/tls"
	"crypto/x509"
	"os"
)

// envDisableTLS is the environment toggle from spec.md §6: when set, TLS
// support is forced off regardless of what a caller's ListenOptions/
// ConnectOptions ask for, rather than attempting (and likely failing) a
// handshake on a host that deliberately doesn't want TLS in play.
const envDisableTLS = "EVLOOP_DISABLE_TLS"

func tlsDisabledByEnv() bool {
	return os.Getenv(envDisableTLS) != ""
}

// buildTLSConfig assembles a *tls.Config from the simple toggle spec.md §1
// scopes TLS down to: a cert/key pair, an optional CA file for verifying the
// peer, and an optional verify callback. It is intentionally not a port of
// nabbar-golib/certificates's full cipher/curve/version knob set — that
// package's scope is certificate *management*, out of bounds here.
func buildTLSConfig(certFile, keyFile, caFile string, verify func(*x509.Certificate) error) (*tls.Config, error) {
	cfg := &tls.Config{}

	if certFile != "" || keyFile != "" {
		cert, err := tls.LoadX509KeyPair(certFile, keyFile)
		if err != nil {
			return nil, err
		}
		cfg.Certificates = []tls.Certificate{cert}
	}

	if caFile != "" {
		pem, err := os.ReadFile(caFile)
		if err != nil {
			return nil, err
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, errBadCAFile
		}
		cfg.RootCAs = pool
		cfg.ClientCAs = pool
	}

	if verify != nil {
		cfg.InsecureSkipVerify = true // we do our own verification below
		cfg.VerifyPeerCertificate = func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
			for _, raw := range rawCerts {
				cert, err := x509.ParseCertificate(raw)
				if err != nil {
					return err
				}
				if err := verify(cert); err != nil {
					return err
				}
			}
			return nil
		}
	}

	return cfg, nil
}

var errBadCAFile = &tlsConfigError{"evloop: could not parse CA file as PEM"}

type tlsConfigError struct{ msg string }

func (e *tlsConfigError) Error() string { return e.msg }
