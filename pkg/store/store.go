// Package store keeps versioned diagram documents per project.
//
// Every [Store.Put] appends a new version and makes it current; older
// versions stay readable through [Store.Get] and [Store.List]. Version
// numbers start at 1 and increase by one per save.
//
// Four backends share the same semantics:
//
//   - [MemoryStore]: in-process, for tests and the default server
//   - [FileStore]: one JSON file per version under a directory (CLI use)
//   - [RedisStore]: versions in a Redis hash, current pointer in a key
//   - [MongoStore]: one document per version with an is_current flag
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"slices"
	"time"

	pkgio "github.com/checklistapp/diagram/pkg/io"
)

// ErrNotFound is returned when a project or version does not exist.
var ErrNotFound = errors.New("not found")

// Version describes one saved revision of a project's diagram.
type Version struct {
	Number   int       `json:"version" bson:"version"`
	SavedAt  time.Time `json:"saved_at" bson:"saved_at"`
	Checksum string    `json:"checksum" bson:"checksum"`
	Boxes    int       `json:"boxes" bson:"boxes"`
	Arrows   int       `json:"arrows" bson:"arrows"`
}

// Record is a stored document with its version metadata.
type Record struct {
	ProjectID string              `json:"project_id" bson:"project_id"`
	Version   Version             `json:"meta" bson:"meta"`
	Document  pkgio.GraphDocument `json:"document" bson:"document"`
}

// Store persists versioned documents keyed by project ID.
type Store interface {
	// Put saves doc as the next version of the project and marks it current.
	Put(ctx context.Context, projectID string, doc pkgio.GraphDocument) (Version, error)
	// Current returns the latest version, or ErrNotFound.
	Current(ctx context.Context, projectID string) (Record, error)
	// Get returns a specific version, or ErrNotFound.
	Get(ctx context.Context, projectID string, version int) (Record, error)
	// List returns every version of the project, oldest first.
	List(ctx context.Context, projectID string) ([]Version, error)
	// Close releases backend resources.
	Close() error
}

// Checksum returns the SHA-256 of the document's canonical JSON encoding.
func Checksum(doc pkgio.GraphDocument) string {
	data, _ := json.Marshal(doc)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

func newRecord(projectID string, number int, doc pkgio.GraphDocument, now time.Time) Record {
	return Record{
		ProjectID: projectID,
		Version: Version{
			Number:   number,
			SavedAt:  now.UTC(),
			Checksum: Checksum(doc),
			Boxes:    len(doc.Boxes),
			Arrows:   len(doc.Arrows),
		},
		Document: pkgio.GraphDocument{Boxes: slices.Clone(doc.Boxes), Arrows: slices.Clone(doc.Arrows)},
	}
}
