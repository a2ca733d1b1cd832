package storage

import (
	"context"

	"github.com/google/uuid"
)

// Workspace hands out per-attempt working directories for downloads.
// Directories are never shared between attempts.
type Workspace interface {
	// Create makes a fresh directory for the given attempt and returns its path.
	Create(attemptID string) (string, error)

	// Remove deletes the directory and everything in it. Removing a
	// directory that no longer exists is not an error.
	Remove(dir string) error
}

// Archiver keeps a copy of a delivered file somewhere durable.
type Archiver interface {
	Archive(ctx context.Context, localPath, objectName string) (string, error)
}

// ArchiveIndex is implemented by archivers that can report what they hold.
type ArchiveIndex interface {
	Exists(ctx context.Context, objectName string) (bool, error)
	List(ctx context.Context) ([]string, error)
}

// ObjectName derives a stable archive name for a source, so the same track
// maps to the same object across attempts.
func ObjectName(sourceURL, ext string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(sourceURL)).String() + ext
}
