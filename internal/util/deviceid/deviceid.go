package deviceid

import (
	"crypto/rand"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// SimulatedPrefix marks a device id as simulated.
const SimulatedPrefix = "ZZ:ZZ:ZZ"

var simulatedPattern = regexp.MustCompile(`^ZZ:ZZ:ZZ(:[0-9A-F]{2}){3}$`)

// Generate returns a new simulated device id such as ZZ:ZZ:ZZ:3F:A0:1C.
func Generate() (string, error) {
	return generateFrom(rand.Reader)
}

func generateFrom(r io.Reader) (string, error) {
	var octets [3]byte
	if _, err := io.ReadFull(r, octets[:]); err != nil {
		return "", fmt.Errorf("failed to read random octets: %w", err)
	}
	return fmt.Sprintf("%s:%02X:%02X:%02X", SimulatedPrefix, octets[0], octets[1], octets[2]), nil
}

// IsSimulated reports whether id is a well-formed simulated device id.
func IsSimulated(id string) bool {
	return simulatedPattern.MatchString(id)
}

// Normalize trims id and upper-cases simulated ids.
func Normalize(id string) string {
	id = strings.TrimSpace(id)
	if upper := strings.ToUpper(id); IsSimulated(upper) {
		return upper
	}
	return id
}

// ArchivePrefix is the object key prefix of a device's archived credentials.
func ArchivePrefix(env, id string) string {
	return fmt.Sprintf("%s/%s/", env, id)
}

// CertificateKey is the object key of a device's archived certificate.
func CertificateKey(env, id string) string {
	return ArchivePrefix(env, id) + "device.crt"
}

// PrivateKeyKey is the object key of a device's archived private key.
func PrivateKeyKey(env, id string) string {
	return ArchivePrefix(env, id) + "device.key"
}
