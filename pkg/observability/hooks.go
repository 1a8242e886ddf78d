// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers register hooks at startup to
// receive events about editor mutations, document persistence, and HTTP calls.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// The diagram core calls these hooks but never imports a metrics library;
// the [prom] subpackage provides a Prometheus-backed implementation that the
// serve command registers.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    m := prom.New(prometheus.NewRegistry())
//	    observability.SetEditorHooks(m)
//	    observability.SetPersistHooks(m)
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Persist().OnSaveStart(ctx, projectID)
//	// ... save ...
//	observability.Persist().OnSaveComplete(ctx, projectID, version, duration, err)
//
// [prom]: github.com/checklistapp/diagram/pkg/observability/prom
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Editor Hooks
// =============================================================================

// EditorHooks receives events from the diagram editor. The editor is
// synchronous and context-free, so these hooks take no context.
type EditorHooks interface {
	// OnConnect records a successful connection between two anchors.
	OnConnect(source, target string)

	// OnDetach records a removed connection.
	OnDetach(source, target string)

	// OnReject records an operation refused by a constraint (self loop,
	// locked source anchor, duplicate, protected detach).
	OnReject(op string, err error)

	// OnImport records the outcome of a document import.
	OnImport(boxes, arrows, dropped int)
}

// =============================================================================
// Persist Hooks
// =============================================================================

// PersistHooks receives events from document persistence.
type PersistHooks interface {
	OnSaveStart(ctx context.Context, projectID string)
	OnSaveComplete(ctx context.Context, projectID string, version int, duration time.Duration, err error)
	OnLoad(ctx context.Context, projectID string, found bool)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from HTTP client operations.
type HTTPHooks interface {
	// OnRequest records an outgoing HTTP request.
	OnRequest(ctx context.Context, method, host, path string)

	// OnResponse records an HTTP response.
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)

	// OnError records an HTTP error (network failure, timeout).
	OnError(ctx context.Context, method, host, path string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopEditorHooks is a no-op implementation of EditorHooks.
type NoopEditorHooks struct{}

func (NoopEditorHooks) OnConnect(string, string) {}
func (NoopEditorHooks) OnDetach(string, string)  {}
func (NoopEditorHooks) OnReject(string, error)   {}
func (NoopEditorHooks) OnImport(int, int, int)   {}

// NoopPersistHooks is a no-op implementation of PersistHooks.
type NoopPersistHooks struct{}

func (NoopPersistHooks) OnSaveStart(context.Context, string) {}
func (NoopPersistHooks) OnSaveComplete(context.Context, string, int, time.Duration, error) {
}
func (NoopPersistHooks) OnLoad(context.Context, string, bool) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	editorHooks  EditorHooks  = NoopEditorHooks{}
	persistHooks PersistHooks = NoopPersistHooks{}
	httpHooks    HTTPHooks    = NoopHTTPHooks{}
	hooksMu      sync.RWMutex
)

// SetEditorHooks registers custom editor hooks.
// This should be called once at application startup before any editor is created.
func SetEditorHooks(h EditorHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		editorHooks = h
	}
}

// SetPersistHooks registers custom persistence hooks.
func SetPersistHooks(h PersistHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		persistHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks.
// This should be called once at application startup before any HTTP operations.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Editor returns the registered editor hooks.
func Editor() EditorHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return editorHooks
}

// Persist returns the registered persistence hooks.
func Persist() PersistHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return persistHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	editorHooks = NoopEditorHooks{}
	persistHooks = NoopPersistHooks{}
	httpHooks = NoopHTTPHooks{}
}
