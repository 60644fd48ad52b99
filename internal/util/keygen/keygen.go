package keygen

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"math/big"
	"time"

	"golang.org/x/crypto/ssh"
)

// DefaultValidity is the lifetime of an issued device certificate.
const DefaultValidity = 365 * 24 * time.Hour

// DeviceCredentials holds a device key pair in ready-to-use formats.
type DeviceCredentials struct {
	// CertificatePEM is the self-signed X.509 certificate.
	CertificatePEM []byte
	// PrivateKeyPEM is the ECDSA private key in PKCS#8 form.
	PrivateKeyPEM []byte
	// Fingerprint is the OpenSSH SHA256 fingerprint of the public key.
	Fingerprint string
	NotBefore   time.Time
	NotAfter    time.Time
}

// GenerateDeviceCredentials issues credentials for deviceID valid from now.
func GenerateDeviceCredentials(deviceID string, now time.Time) (*DeviceCredentials, error) {
	return generate(rand.Reader, deviceID, now, DefaultValidity)
}

func generate(random io.Reader, deviceID string, now time.Time, validity time.Duration) (*DeviceCredentials, error) {
	if deviceID == "" {
		return nil, errors.New("device id is required")
	}
	if validity <= 0 {
		return nil, fmt.Errorf("invalid certificate validity %v", validity)
	}

	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), random)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ECDSA private key: %w", err)
	}

	serial, err := rand.Int(random, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("failed to generate serial number: %w", err)
	}

	notBefore := now.UTC().Truncate(time.Second)
	notAfter := notBefore.Add(validity)
	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: deviceID},
		NotBefore:             notBefore,
		NotAfter:              notAfter,
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
	}

	certDER, err := x509.CreateCertificate(random, template, template, &privateKey.PublicKey, privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate: %w", err)
	}

	privDER, err := x509.MarshalPKCS8PrivateKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal private key: %w", err)
	}

	sshKey, err := ssh.NewPublicKey(&privateKey.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create SSH public key: %w", err)
	}

	return &DeviceCredentials{
		CertificatePEM: pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER}),
		PrivateKeyPEM:  pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER}),
		Fingerprint:    ssh.FingerprintSHA256(sshKey),
		NotBefore:      notBefore,
		NotAfter:       notAfter,
	}, nil
}
