package apihelpers

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"os"
)

type CertificatePaths struct {
	ServerCertPath string `yaml:"server_cert"`
	ServerKeyPath  string `yaml:"server_key"`
	CACertPath     string `yaml:"ca_cert"`
}

// LoadTLSConfig builds a server config that requires client certificates
// signed by the configured CA.
func LoadTLSConfig(paths CertificatePaths) (*tls.Config, error) {
	serverCert, err := tls.LoadX509KeyPair(paths.ServerCertPath, paths.ServerKeyPath)
	if err != nil {
		return nil, err
	}

	caPEM, err := os.ReadFile(paths.CACertPath)
	if err != nil {
		return nil, err
	}
	clientCAs := x509.NewCertPool()
	if !clientCAs.AppendCertsFromPEM(caPEM) {
		return nil, errors.New("no CA certificate found in " + paths.CACertPath)
	}

	return &tls.Config{
		MinVersion:   tls.VersionTLS12,
		Certificates: []tls.Certificate{serverCert},
		ClientAuth:   tls.RequireAndVerifyClientCert,
		ClientCAs:    clientCAs,
	}, nil
}
