package s3

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/imamik/devsim/internal/util/async"
	"github.com/imamik/devsim/internal/util/deviceid"
)

// ErrNotArchived is returned by Fetch when a device has no archived credentials.
var ErrNotArchived = errors.New("credentials not archived")

type objectStore interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	CreateBucket(ctx context.Context, bucketName string) error
	ListObjects(ctx context.Context, bucketName, prefix string) ([]string, error)
	PutObject(ctx context.Context, bucketName, key string, data []byte) error
	GetObject(ctx context.Context, bucketName, key string) ([]byte, error)
}

// Archive stores device credentials in a single bucket.
type Archive struct {
	store  objectStore
	bucket string

	mu       sync.Mutex
	bucketOK bool
}

// NewArchive returns an archive writing to bucket through client.
func NewArchive(client *Client, bucket string) *Archive {
	return &Archive{store: client, bucket: bucket}
}

// Bucket returns the archive bucket name.
func (a *Archive) Bucket() string {
	return a.bucket
}

// ensureBucket creates the bucket on first use.
func (a *Archive) ensureBucket(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.bucketOK {
		return nil
	}

	exists, err := a.store.BucketExists(ctx, a.bucket)
	if err != nil {
		return err
	}
	if !exists {
		if err := a.store.CreateBucket(ctx, a.bucket); err != nil {
			return err
		}
	}
	a.bucketOK = true
	return nil
}

// Store uploads the certificate and private key of a device.
func (a *Archive) Store(ctx context.Context, env, deviceID string, certPEM, keyPEM []byte) error {
	if err := a.ensureBucket(ctx); err != nil {
		return fmt.Errorf("archive credentials for %s: %w", deviceID, err)
	}
	err := async.Run(ctx,
		a.upload("certificate", deviceid.CertificateKey(env, deviceID), certPEM),
		a.upload("private key", deviceid.PrivateKeyKey(env, deviceID), keyPEM),
	)
	if err != nil {
		return fmt.Errorf("archive credentials for %s: %w", deviceID, err)
	}
	return nil
}

func (a *Archive) upload(name, key string, data []byte) async.Task {
	return async.Task{
		Name: name,
		Func: func(ctx context.Context) error {
			return a.store.PutObject(ctx, a.bucket, key, data)
		},
	}
}

// Fetch downloads the certificate and private key of a device.
func (a *Archive) Fetch(ctx context.Context, env, deviceID string) (certPEM, keyPEM []byte, err error) {
	certPEM, err = a.store.GetObject(ctx, a.bucket, deviceid.CertificateKey(env, deviceID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil, fmt.Errorf("%s in %s: %w", deviceID, env, ErrNotArchived)
		}
		return nil, nil, err
	}
	keyPEM, err = a.store.GetObject(ctx, a.bucket, deviceid.PrivateKeyKey(env, deviceID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil, fmt.Errorf("%s in %s: %w", deviceID, env, ErrNotArchived)
		}
		return nil, nil, err
	}
	return certPEM, keyPEM, nil
}

// Keys lists the archived object keys of a device.
func (a *Archive) Keys(ctx context.Context, env, deviceID string) ([]string, error) {
	return a.store.ListObjects(ctx, a.bucket, deviceid.ArchivePrefix(env, deviceID))
}
