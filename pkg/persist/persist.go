// Package persist transports diagram documents to storage.
//
// [Client] is the document-in, result-out contract used by the editor
// front ends. Two implementations are provided:
//
//   - [HTTPClient] posts the document to the project's save endpoint, with
//     the CSRF header the host expects.
//   - [StoreClient] writes straight into a [store.Store].
//
// Saves are never retried automatically. [SaveAsync] runs one save in the
// background on a snapshot of the document, so the editor stays usable
// while the request is in flight; a second call issues an independent
// request.
package persist

import (
	"context"
	"slices"
	"time"

	pkgio "github.com/checklistapp/diagram/pkg/io"
)

// Result describes a completed save or load.
type Result struct {
	ProjectID string    `json:"project_id"`
	Version   int       `json:"version,omitempty"`
	SavedAt   time.Time `json:"saved_at,omitzero"`
	Message   string    `json:"message,omitempty"`
}

// Client saves and loads project diagrams.
type Client interface {
	Save(ctx context.Context, projectID string, doc pkgio.GraphDocument) (Result, error)
	Load(ctx context.Context, projectID string) (pkgio.GraphDocument, Result, error)
}

// Outcome is delivered by [SaveAsync] when the save finishes.
type Outcome struct {
	Result Result
	Err    error
}

// SaveAsync starts a save in a new goroutine and returns a channel that
// receives exactly one Outcome. The document is copied before SaveAsync
// returns, so the caller may keep editing.
func SaveAsync(ctx context.Context, c Client, projectID string, doc pkgio.GraphDocument) <-chan Outcome {
	snapshot := pkgio.GraphDocument{Boxes: slices.Clone(doc.Boxes), Arrows: slices.Clone(doc.Arrows)}
	ch := make(chan Outcome, 1)
	go func() {
		defer close(ch)
		res, err := c.Save(ctx, projectID, snapshot)
		ch <- Outcome{Result: res, Err: err}
	}()
	return ch
}
