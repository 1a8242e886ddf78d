package persist

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"

	derrors "github.com/checklistapp/diagram/pkg/errors"
	pkgio "github.com/checklistapp/diagram/pkg/io"
	"github.com/checklistapp/diagram/pkg/observability"
	"github.com/checklistapp/diagram/pkg/store"
)

// StoreClient saves directly into a [store.Store]. It is used by the CLI
// when no host URL is configured and by the HTTP host itself.
type StoreClient struct {
	store  store.Store
	logger *log.Logger
}

// NewStoreClient wraps s. A nil logger uses the default logger.
func NewStoreClient(s store.Store, logger *log.Logger) *StoreClient {
	if logger == nil {
		logger = log.Default()
	}
	return &StoreClient{store: s, logger: logger}
}

// Save appends a new version of the project's document.
func (c *StoreClient) Save(ctx context.Context, projectID string, doc pkgio.GraphDocument) (Result, error) {
	if err := derrors.ValidateProjectID(projectID); err != nil {
		return Result{}, err
	}
	start := time.Now()
	observability.Persist().OnSaveStart(ctx, projectID)
	v, err := c.store.Put(ctx, projectID, doc)
	if err != nil {
		err = derrors.Wrap(derrors.ErrCodePersistence, err, "save %s", projectID)
	}
	observability.Persist().OnSaveComplete(ctx, projectID, v.Number, time.Since(start), err)
	if err != nil {
		c.logger.Error("save failed", "project", projectID, "err", err)
		return Result{}, err
	}
	c.logger.Debug("saved", "project", projectID, "version", v.Number)
	return Result{ProjectID: projectID, Version: v.Number, SavedAt: v.SavedAt}, nil
}

// Load returns the current version of the project's document.
func (c *StoreClient) Load(ctx context.Context, projectID string) (pkgio.GraphDocument, Result, error) {
	if err := derrors.ValidateProjectID(projectID); err != nil {
		return pkgio.GraphDocument{}, Result{}, err
	}
	rec, err := c.store.Current(ctx, projectID)
	observability.Persist().OnLoad(ctx, projectID, err == nil)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return pkgio.GraphDocument{}, Result{}, derrors.Wrap(derrors.ErrCodeNotFound, err, "no diagram saved for project %s", projectID)
	case err != nil:
		return pkgio.GraphDocument{}, Result{}, derrors.Wrap(derrors.ErrCodePersistence, err, "load %s", projectID)
	}
	return rec.Document, Result{ProjectID: projectID, Version: rec.Version.Number, SavedAt: rec.Version.SavedAt}, nil
}

// Versions lists the saved versions of a project.
func (c *StoreClient) Versions(ctx context.Context, projectID string) ([]store.Version, error) {
	if err := derrors.ValidateProjectID(projectID); err != nil {
		return nil, err
	}
	vs, err := c.store.List(ctx, projectID)
	if err != nil {
		return nil, derrors.Wrap(derrors.ErrCodePersistence, err, "list %s", projectID)
	}
	return vs, nil
}

var _ Client = (*StoreClient)(nil)
