// Package async runs independent operations concurrently and collects
// every error.
//
// [Run] is used by the credential archive to upload the certificate and
// private key of a device at the same time.
package async
