package persist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	derrors "github.com/checklistapp/diagram/pkg/errors"
	"github.com/checklistapp/diagram/pkg/httputil"
	pkgio "github.com/checklistapp/diagram/pkg/io"
	"github.com/checklistapp/diagram/pkg/observability"
)

// Default endpoint layout and CSRF names. {id} is replaced by the escaped
// project ID.
const (
	DefaultPagePath   = "/projects/{id}/diagram/"
	DefaultSavePath   = "/projects/{id}/diagram/save/"
	DefaultLoadPath   = "/projects/{id}/diagram/data/"
	DefaultCSRFCookie = "csrftoken"
	DefaultCSRFHeader = "X-CSRFToken"

	httpTimeout = 10 * time.Second
)

// HTTPClient talks to a diagram host over HTTP. Cookies set by the host,
// including the CSRF token, are kept in the client's cookie jar.
type HTTPClient struct {
	base       *url.URL
	http       *http.Client
	headers    map[string]string
	pagePath   string
	savePath   string
	loadPath   string
	csrfCookie string
	csrfHeader string
	logger     *log.Logger
}

// HTTPOption configures an [HTTPClient].
type HTTPOption func(*HTTPClient)

// WithTimeout sets the per-request timeout. Non-positive values keep the
// default.
func WithTimeout(d time.Duration) HTTPOption {
	return func(c *HTTPClient) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHeaders adds headers sent on every request.
func WithHeaders(h map[string]string) HTTPOption {
	return func(c *HTTPClient) { c.headers = h }
}

// WithCSRF overrides the CSRF cookie and header names. Empty names keep
// the defaults.
func WithCSRF(cookie, header string) HTTPOption {
	return func(c *HTTPClient) {
		if cookie != "" {
			c.csrfCookie = cookie
		}
		if header != "" {
			c.csrfHeader = header
		}
	}
}

// WithPaths overrides the page, save and load endpoint templates.
// Empty values keep the defaults.
func WithPaths(page, save, load string) HTTPOption {
	return func(c *HTTPClient) {
		if page != "" {
			c.pagePath = page
		}
		if save != "" {
			c.savePath = save
		}
		if load != "" {
			c.loadPath = load
		}
	}
}

// WithLogger sets the logger for request tracing.
func WithLogger(l *log.Logger) HTTPOption {
	return func(c *HTTPClient) { c.logger = l }
}

// NewHTTPClient creates a client for the host at baseURL.
func NewHTTPClient(baseURL string, opts ...HTTPOption) (*HTTPClient, error) {
	if err := derrors.ValidateURL(baseURL); err != nil {
		return nil, err
	}
	base, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, derrors.Wrap(derrors.ErrCodeInvalidInput, err, "parse base URL")
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	c := &HTTPClient{
		base:       base,
		http:       &http.Client{Timeout: httpTimeout, Jar: jar},
		pagePath:   DefaultPagePath,
		savePath:   DefaultSavePath,
		loadPath:   DefaultLoadPath,
		csrfCookie: DefaultCSRFCookie,
		csrfHeader: DefaultCSRFHeader,
		logger:     log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SetCSRFToken stores a CSRF token in the cookie jar, as if the host had
// set it.
func (c *HTTPClient) SetCSRFToken(token string) {
	c.http.Jar.SetCookies(c.base, []*http.Cookie{{Name: c.csrfCookie, Value: token, Path: "/"}})
}

// CSRFToken returns the CSRF token currently held in the cookie jar.
func (c *HTTPClient) CSRFToken() string {
	for _, ck := range c.http.Jar.Cookies(c.base) {
		if ck.Name == c.csrfCookie {
			return ck.Value
		}
	}
	return ""
}

// Save posts the document to the save endpoint. When the jar holds no CSRF
// token yet, the project page is fetched first so the host can set one.
// Any non-2xx response is a PERSISTENCE_FAILED error; nothing is retried.
func (c *HTTPClient) Save(ctx context.Context, projectID string, doc pkgio.GraphDocument) (Result, error) {
	if err := derrors.ValidateProjectID(projectID); err != nil {
		return Result{}, err
	}
	start := time.Now()
	observability.Persist().OnSaveStart(ctx, projectID)
	res, err := c.save(ctx, projectID, doc)
	observability.Persist().OnSaveComplete(ctx, projectID, res.Version, time.Since(start), err)
	if err != nil {
		c.logger.Error("save failed", "project", projectID, "err", err)
		return Result{}, err
	}
	c.logger.Info("saved", "project", projectID, "version", res.Version, "boxes", len(doc.Boxes), "arrows", len(doc.Arrows))
	return res, nil
}

func (c *HTTPClient) save(ctx context.Context, projectID string, doc pkgio.GraphDocument) (Result, error) {
	if c.CSRFToken() == "" {
		c.prime(ctx, projectID)
	}

	var body bytes.Buffer
	if err := pkgio.WriteJSON(doc, &body); err != nil {
		return Result{}, derrors.Wrap(derrors.ErrCodeInternal, err, "encode document")
	}
	req, err := c.newRequest(ctx, http.MethodPost, c.endpoint(c.savePath, projectID), &body)
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.CSRFToken(); token != "" {
		req.Header.Set(c.csrfHeader, token)
	}

	resp, err := c.do(req)
	if err != nil {
		return Result{}, derrors.Wrap(derrors.ErrCodePersistence, err, "save %s", projectID)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return Result{}, derrors.Wrap(derrors.ErrCodePersistence, err, "save %s", projectID)
	}

	res := Result{ProjectID: projectID}
	data, _ := io.ReadAll(resp.Body)
	if len(bytes.TrimSpace(data)) > 0 {
		// Hosts that answer with a bare acknowledgement are accepted.
		_ = json.Unmarshal(data, &res)
		res.ProjectID = projectID
	}
	return res, nil
}

// Load fetches the project's current document. Transient failures (network
// errors, 429 and 5xx) are retried with backoff; a 404 is a NOT_FOUND error.
func (c *HTTPClient) Load(ctx context.Context, projectID string) (pkgio.GraphDocument, Result, error) {
	if err := derrors.ValidateProjectID(projectID); err != nil {
		return pkgio.GraphDocument{}, Result{}, err
	}

	var (
		doc pkgio.GraphDocument
		res = Result{ProjectID: projectID}
	)
	err := httputil.RetryWithBackoff(ctx, func() error {
		req, err := c.newRequest(ctx, http.MethodGet, c.endpoint(c.loadPath, projectID), nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		resp, err := c.do(req)
		if err != nil {
			return httputil.Transient(err)
		}
		defer resp.Body.Close()
		if err := checkStatus(resp); err != nil {
			return err
		}
		res.Version, _ = strconv.Atoi(resp.Header.Get("X-Diagram-Version"))
		doc, err = pkgio.ReadJSON(resp.Body)
		return err
	})

	observability.Persist().OnLoad(ctx, projectID, err == nil)
	switch {
	case err == nil:
		return doc, res, nil
	case derrors.GetCode(err) != "":
		return pkgio.GraphDocument{}, Result{}, err
	default:
		return pkgio.GraphDocument{}, Result{}, derrors.Wrap(derrors.ErrCodePersistence, err, "load %s", projectID)
	}
}

// prime fetches the project page so the host can set its CSRF cookie.
// Failures are ignored; the save request reports the real problem.
func (c *HTTPClient) prime(ctx context.Context, projectID string) {
	req, err := c.newRequest(ctx, http.MethodGet, c.endpoint(c.pagePath, projectID), nil)
	if err != nil {
		return
	}
	resp, err := c.do(req)
	if err != nil {
		c.logger.Debug("csrf prime failed", "err", err)
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

func (c *HTTPClient) endpoint(tmpl, projectID string) string {
	return c.base.String() + strings.ReplaceAll(tmpl, "{id}", url.PathEscape(projectID))
}

func (c *HTTPClient) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, derrors.Wrap(derrors.ErrCodeInternal, err, "build request")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

func (c *HTTPClient) do(req *http.Request) (*http.Response, error) {
	ctx, host, path := req.Context(), req.URL.Host, req.URL.Path
	hooks := observability.HTTP()
	hooks.OnRequest(ctx, req.Method, host, path)
	c.logger.Debug("http request", "method", req.Method, "url", req.URL)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, host, path, err)
		return nil, err
	}
	hooks.OnResponse(ctx, req.Method, host, path, resp.StatusCode, time.Since(start))
	return resp, nil
}

func checkStatus(resp *http.Response) error {
	code := resp.StatusCode
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return derrors.New(derrors.ErrCodeNotFound, "%s: status %d", resp.Request.URL.Path, code)
	case code == http.StatusForbidden:
		return derrors.New(derrors.ErrCodeForbidden, "%s: status %d", resp.Request.URL.Path, code)
	case code >= 500, code == http.StatusTooManyRequests:
		return httputil.FromResponse(resp, fmt.Errorf("%s: status %d", resp.Request.URL.Path, code))
	default:
		return fmt.Errorf("%s: status %d", resp.Request.URL.Path, code)
	}
}

var _ Client = (*HTTPClient)(nil)
