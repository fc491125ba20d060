// Package blob provides the content-addressed blob store consumed by the
// ledger. Producers store photos and lab documents here; the ledger only
// ever sees the returned content refs (sha256 hex of the content), never
// raw bytes.
package blob

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"
)

// Driver identifies a concrete blob storage backend implementation.
type Driver string

const (
	DriverFilesystem Driver = "fs"     // local filesystem (default, dev)
	DriverS3         Driver = "s3"     // S3 / MinIO compatible
	DriverMemory     Driver = "memory" // in-memory (tests)
)

// PutOptions specifies optional parameters for Store.
type PutOptions struct {
	ContentType string            // MIME type, optional
	Metadata    map[string]string // user metadata (small, flat key-value)
}

// Info describes a stored blob. Ref doubles as the content digest.
type Info struct {
	Ref          string            `json:"ref"`
	Size         int64             `json:"size_bytes"`
	ContentType  string            `json:"content_type,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"last_modified"`
}

// Store is a minimal content-addressed abstraction. Storing identical bytes
// twice yields the same ref and is not an error.
type Store interface {
	// Store writes the content and returns its info; Info.Ref is the
	// sha256 hex digest of the bytes.
	Store(ctx context.Context, r io.Reader, opts PutOptions) (Info, error)
	// Fetch retrieves the blob contents and metadata for a ref.
	Fetch(ctx context.Context, ref string) (Info, io.ReadCloser, error)
	// Stat returns metadata only.
	Stat(ctx context.Context, ref string) (Info, error)
	// List returns all stored blobs ordered by ref ascending.
	List(ctx context.Context) ([]Info, error)
	// Driver returns the configured backend driver string.
	Driver() Driver
}

// ErrUnsupported is returned when an optional capability is not available.
var ErrUnsupported = errors.New("blobstore: unsupported operation")

// NotFoundError reports a fetch for an unknown content ref.
type NotFoundError struct {
	Ref string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("blob %s not found", e.Ref)
}

// IsNotFound reports whether err is (or wraps) a blob NotFoundError.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}

// digest consumes r fully and returns the content bytes with their ref.
func digest(r io.Reader) ([]byte, string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, "", err
	}
	sum := sha256.Sum256(b)
	return b, hex.EncodeToString(sum[:]), nil
}

func cloneMetadata(metadata map[string]string) map[string]string {
	if metadata == nil {
		return nil
	}
	cp := make(map[string]string, len(metadata))
	for k, v := range metadata {
		cp[k] = v
	}
	return cp
}
