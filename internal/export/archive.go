package export

import (
	"bytes"
	"context"
	"time"

	"github.com/koustreak/restadmin/internal/filestore"
)

// Archiver pushes generated export payloads to object storage and hands
// back a time-limited download URL.
type Archiver struct {
	store  filestore.Store
	bucket string
}

// NewArchiver wraps a storage provider and target bucket.
func NewArchiver(store filestore.Store, bucket string) *Archiver {
	return &Archiver{store: store, bucket: bucket}
}

// presignTTL is how long archived export links stay downloadable.
const presignTTL = 24 * time.Hour

// Archive uploads data under a timestamped key and returns a presigned
// download URL for it.
func (a *Archiver) Archive(ctx context.Context, table, format string, data []byte) (string, error) {
	key := "exports/" + table + "/" + time.Now().UTC().Format("20060102T150405Z") + "." + format

	contentType := "application/json"
	if format == "csv" {
		contentType = "text/csv"
	}
	if err := a.store.PutObject(ctx, a.bucket, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return "", err
	}
	return a.store.PresignGetURL(ctx, a.bucket, key, presignTTL)
}
