// Package s3 archives issued device credentials in S3-compatible object storage.
//
// [Client] is a thin wrapper over the AWS SDK for bucket and object calls.
// [Archive] lays device certificates and keys out as
// <environment>/<device-id>/device.crt and device.key in one bucket.
package s3
