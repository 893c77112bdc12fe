package object

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"readability-backend/internal/shared/util"
)

// ErrNotFound is returned by Get when no object exists for a key.
var ErrNotFound = errors.New("object not found")

// SnapshotPrefix namespaces raw HTML snapshots of completed analyses.
const SnapshotPrefix = "readability-snapshots"

// SnapshotContentType is stored with every snapshot.
const SnapshotContentType = "text/html; charset=utf-8"

// ObjectStore keeps analysis snapshots. Delete of a missing key succeeds.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, r io.Reader) (int64, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// SnapshotKey returns the storage key for an analysis snapshot. Owner ids are
// hashed so keys never carry raw identities.
func SnapshotKey(ownerID, analysisID string) string {
	return path.Join(SnapshotPrefix, util.OwnerKey(ownerID), analysisID+".html")
}

// JoinKey places key under a bucket prefix. Leading and trailing slashes on
// either side are dropped.
func JoinKey(prefix, key string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	key = strings.TrimLeft(key, "/")
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	default:
		return prefix + "/" + key
	}
}
