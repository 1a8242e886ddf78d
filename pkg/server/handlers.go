package server

import (
	"context"
	"encoding/json"
	"html/template"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/checklistapp/diagram/pkg/cache"
	derrors "github.com/checklistapp/diagram/pkg/errors"
	pkgio "github.com/checklistapp/diagram/pkg/io"
	"github.com/checklistapp/diagram/pkg/persist"
	"github.com/checklistapp/diagram/pkg/render/nodelink"
	"github.com/checklistapp/diagram/pkg/store"
)

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Diagram {{.ProjectID}}</title></head>
<body>
<h1>Diagram {{.ProjectID}}</h1>
{{if .Version}}<p>Version {{.Version}}</p>{{else}}<p>Not saved yet.</p>{{end}}
<p>{{.Boxes}} boxes, {{.Arrows}} arrows</p>
{{if .SVG}}<div class="preview">{{.SVG}}</div>{{end}}
<p><a href="data/">JSON</a> · <a href="versions/">versions</a></p>
</body>
</html>
`))

type pageData struct {
	ProjectID string
	Version   int
	Boxes     int
	Arrows    int
	SVG       template.HTML
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "projectID")
	doc, res, err := s.current(r, id)
	if err != nil && !derrors.Is(err, derrors.ErrCodeNotFound) {
		writeError(w, err)
		return
	}

	data := pageData{ProjectID: id, Version: res.Version, Boxes: len(doc.Boxes), Arrows: len(doc.Arrows)}
	if len(doc.Boxes) > 0 {
		svg, err := s.preview(r.Context(), doc)
		if err != nil {
			s.logger.Warn("preview failed", "project", id, "err", err)
		} else {
			data.SVG = template.HTML(svg)
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTmpl.Execute(w, data); err != nil {
		s.logger.Error("render page", "err", err)
	}
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "projectID")
	doc, res, err := s.current(r, id)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if res.Version > 0 {
		w.Header().Set("X-Diagram-Version", strconv.Itoa(res.Version))
	}
	if err := pkgio.WriteJSON(doc, w); err != nil {
		s.logger.Error("encode document", "err", err)
	}
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "projectID")
	doc, _, err := s.current(r, id)
	if err != nil {
		writeError(w, err)
		return
	}
	svg, err := s.preview(r.Context(), doc)
	if err != nil {
		writeError(w, derrors.Wrap(derrors.ErrCodeInternal, err, "render preview"))
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write(svg)
}

func (s *Server) handleVersions(w http.ResponseWriter, r *http.Request) {
	vs, err := s.client.Versions(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		writeError(w, err)
		return
	}
	if vs == nil {
		vs = []store.Version{}
	}
	writeJSON(w, http.StatusOK, vs)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "projectID")
	r.Body = http.MaxBytesReader(w, r.Body, maxDocumentBytes)
	doc, err := pkgio.ReadJSON(r.Body)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := doc.Validate(); err != nil {
		writeError(w, err)
		return
	}
	res, err := s.client.Save(r.Context(), id, doc)
	if err != nil {
		writeError(w, err)
		return
	}
	res.Message = "saved"
	writeJSON(w, http.StatusOK, res)
}

const maxDocumentBytes = 4 << 20

// preview renders the positioned SVG of doc, going through the preview
// cache. Cache failures only cost a re-render.
func (s *Server) preview(ctx context.Context, doc pkgio.GraphDocument) ([]byte, error) {
	opts := nodelink.Options{Positioned: true}
	key := s.keyer.PreviewKey(store.Checksum(doc), cache.PreviewKeyOpts{Format: "svg", Positioned: opts.Positioned, Detailed: opts.Detailed})
	if svg, hit, err := s.previews.Get(ctx, key); err != nil {
		s.logger.Warn("preview cache read", "err", err)
	} else if hit {
		return svg, nil
	}

	svg, err := nodelink.RenderSVG(ctx, nodelink.ToDOT(doc, opts))
	if err != nil {
		return nil, err
	}
	if err := s.previews.Set(ctx, key, svg, s.previewTTL); err != nil {
		s.logger.Warn("preview cache write", "err", err)
	}
	return svg, nil
}

// current loads the saved document, falling back to the demo when enabled.
func (s *Server) current(r *http.Request, id string) (pkgio.GraphDocument, persist.Result, error) {
	doc, res, err := s.client.Load(r.Context(), id)
	if err != nil && s.demo && derrors.Is(err, derrors.ErrCodeNotFound) {
		return pkgio.Demo(), persist.Result{ProjectID: id}, nil
	}
	return doc, res, err
}

type errorBody struct {
	Code    derrors.Code `json:"code"`
	Message string       `json:"message"`
}

func writeError(w http.ResponseWriter, err error) {
	code := derrors.GetCode(err)
	if code == "" {
		code = derrors.ErrCodeInternal
	}
	writeJSON(w, statusFor(code), errorBody{Code: code, Message: derrors.UserMessage(err)})
}

func statusFor(code derrors.Code) int {
	switch code {
	case derrors.ErrCodeNotFound:
		return http.StatusNotFound
	case derrors.ErrCodeForbidden:
		return http.StatusForbidden
	case derrors.ErrCodeMalformedDocument, derrors.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case derrors.ErrCodeDuplicateID, derrors.ErrCodeDuplicate, derrors.ErrCodeSourceDisabled, derrors.ErrCodeSelfLoop:
		return http.StatusConflict
	case derrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case derrors.ErrCodePersistence:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
