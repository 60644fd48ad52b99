// Package demo implements provisioning.Backend for demonstrations and local use.
//
// Every call waits a fixed latency on the injected clock and then does real
// local work: it issues device credentials, records enrollments and devices
// in the registry, and optionally archives the credentials in S3. Named
// steps can be made to fail with a fixed message to demonstrate the halted
// state.
package demo
