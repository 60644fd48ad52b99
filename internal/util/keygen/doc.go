// Package keygen generates device credentials.
//
// A device gets an ECDSA P-256 key and a self-signed X.509 certificate
// whose common name is the device id. Both are PEM encoded. The public key
// is also fingerprinted in OpenSSH SHA256 form so operators can match a
// device to its archived key material at a glance.
package keygen
