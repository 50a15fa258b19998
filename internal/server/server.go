// Package server serves GraphQL over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hanpama/inkgraph/internal/apperr"
	"github.com/hanpama/inkgraph/internal/auth"
	"github.com/hanpama/inkgraph/internal/eventbus"
	"github.com/hanpama/inkgraph/internal/events"
	"github.com/hanpama/inkgraph/internal/executor"
	language "github.com/hanpama/inkgraph/internal/language"
	"github.com/hanpama/inkgraph/internal/reqid"
	schema "github.com/hanpama/inkgraph/internal/schema"
)

// Handler is an http.Handler that serves a GraphQL endpoint.
// It parses requests, runs the executor, and formats responses per GraphQL spec.
type Handler struct {
	exec   *executor.Executor
	schema *schema.Schema
	opt    Options
}

type Options struct {
	// Timeout sets a default timeout if the incoming request context has none.
	// 0 means no default timeout.
	Timeout time.Duration

	// Pretty enables indented JSON responses (useful for dev).
	Pretty bool

	// MaxBodyBytes limits the size of the request body. 0 means unlimited.
	MaxBodyBytes int64

	// CORS configuration. If AllowedOrigins is empty, CORS is disabled.
	CORS CORSOptions

	// GraphiQL enables the in-browser IDE when true.
	GraphiQL bool

	// Signer verifies bearer tokens. Without one every caller is anonymous.
	Signer auth.Signer

	// OperationContext prepares the context of each operation, e.g. with
	// fresh loaders. It runs once per operation of a batch.
	OperationContext func(context.Context) context.Context

	Logger *zap.Logger
}

type Option func(*Options)

func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }
func WithPretty() Option                 { return func(o *Options) { o.Pretty = true } }
func WithMaxBodyBytes(n int64) Option    { return func(o *Options) { o.MaxBodyBytes = n } }
func WithCORS(origins ...string) Option {
	return func(o *Options) { o.CORS.AllowedOrigins = origins }
}
func WithSigner(s auth.Signer) Option { return func(o *Options) { o.Signer = s } }
func WithLogger(l *zap.Logger) Option { return func(o *Options) { o.Logger = l } }
func WithOperationContext(fn func(context.Context) context.Context) Option {
	return func(o *Options) { o.OperationContext = fn }
}

// CORSOptions holds simple CORS settings.
type CORSOptions struct {
	AllowedOrigins []string
}

func WithGraphiQL(enable bool) Option { return func(o *Options) { o.GraphiQL = enable } }

// New creates a new GraphQL HTTP handler using the given runtime and schema.
func New(runtime executor.Runtime, s *schema.Schema, opts ...Option) (*Handler, error) {
	if s == nil {
		return nil, errors.New("server: nil schema")
	}
	op := Options{Timeout: 10 * time.Second, GraphiQL: true, Logger: zap.NewNop()}
	for _, f := range opts {
		f(&op)
	}
	h := &Handler{schema: s, opt: op}
	h.exec = executor.NewExecutor(runtime, s, executor.WithErrorPresenter(h.present))
	return h, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := ctx.Deadline(); !ok && h.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
		defer cancel()
	}

	ctx, rid := reqid.NewContext(ctx, r.Header.Get(reqid.Header))
	w.Header().Set(reqid.Header, rid)
	status, ops := http.StatusOK, 0
	start := time.Now()
	eventbus.Publish(ctx, events.HTTPStart{Request: r})
	defer func() {
		eventbus.Publish(ctx, events.HTTPFinish{Request: r, Status: status, Operations: ops, Duration: time.Since(start)})
	}()

	if r.Method == http.MethodOptions {
		if len(h.opt.CORS.AllowedOrigins) > 0 {
			setCORSHeaders(w, r, h.opt.CORS)
		}
		status = http.StatusNoContent
		w.WriteHeader(status)
		return
	}

	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		status = http.StatusMethodNotAllowed
		writeJSON(w, status, requestFailure(apperr.CodeBadRequest, "method not allowed"), h.opt.Pretty)
		return
	}

	// Serve GraphiQL IDE when enabled and the client expects HTML.
	if r.Method == http.MethodGet && h.opt.GraphiQL && acceptsHTML(r.Header.Get("Accept")) && r.URL.Query().Get("query") == "" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(graphiqlPage)
		return
	}

	ctx = auth.WithIdentity(ctx, h.identify(ctx, r))

	req, batch, berr := parseRequest(r, h.opt.MaxBodyBytes)
	if berr != nil {
		status = http.StatusBadRequest
		if berr.Error() == errBodyTooLargeMessage {
			status = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, status, requestFailure(apperr.CodeBadRequest, berr.Error()), h.opt.Pretty)
		return
	}

	if len(h.opt.CORS.AllowedOrigins) > 0 {
		setCORSHeaders(w, r, h.opt.CORS)
	}

	if batch != nil {
		ops = len(batch)
		op := make([]any, len(batch))
		for i := range batch {
			op[i] = h.executeOne(ctx, batch[i])
		}
		writeJSON(w, status, op, h.opt.Pretty)
		return
	}

	ops = 1
	writeJSON(w, status, h.executeOne(ctx, req), h.opt.Pretty)
}

// identify returns the caller of r. A missing or invalid bearer token makes
// the caller anonymous.
func (h *Handler) identify(ctx context.Context, r *http.Request) *auth.Identity {
	token := auth.BearerToken(r)
	if token == "" || h.opt.Signer == nil {
		return nil
	}
	claims, err := h.opt.Signer.Verify(token)
	if err != nil {
		h.logger(ctx).Debug("ignoring bearer token", zap.Error(err))
		return nil
	}
	return claims.Identity()
}

func (h *Handler) executeOne(ctx context.Context, req GraphQLRequest) any {
	doc, res := h.load(req.Query)
	if res != nil {
		return res
	}

	opDef := doc.Operations.ForName(req.OperationName)
	if opDef == nil && len(doc.Operations) == 1 {
		opDef = doc.Operations[0]
	}
	opType := ""
	if opDef != nil {
		opType = string(opDef.Operation)
	}

	if h.opt.OperationContext != nil {
		ctx = h.opt.OperationContext(ctx)
	}

	start := time.Now()
	eventbus.Publish(ctx, events.GraphQLStart{OperationName: req.OperationName, OperationType: opType})
	result := h.exec.ExecuteRequest(ctx, doc, req.OperationName, req.Variables, nil)
	errs := make([]error, len(result.Errors))
	for i := range result.Errors {
		errs[i] = result.Errors[i]
	}
	eventbus.Publish(ctx, events.GraphQLFinish{
		OperationName: req.OperationName,
		OperationType: opType,
		Errors:        errs,
		Duration:      time.Since(start),
	})
	return toSpecResult(result)
}

// load parses and validates query. On failure it returns the response to
// send instead.
func (h *Handler) load(query string) (*language.QueryDocument, *specResult) {
	ast := h.schema.AST()
	if ast == nil {
		doc, err := language.ParseQuery(query)
		if err != nil {
			return nil, locatedFailure(apperr.CodeParseFailed, language.AsError(err))
		}
		return doc, nil
	}
	doc, parseErr, invalid := language.LoadQuery(ast, query)
	if parseErr != nil {
		return nil, locatedFailure(apperr.CodeParseFailed, parseErr)
	}
	if len(invalid) > 0 {
		return nil, locatedFailure(apperr.CodeValidationFailed, invalid...)
	}
	return doc, nil
}

// present reports resolver errors with their category code. Internal
// errors are logged and masked.
func (h *Handler) present(ctx context.Context, err error, path executor.Path) executor.GraphQLError {
	var ge executor.GraphQLError
	if errors.As(err, &ge) {
		return executor.DefaultErrorPresenter(ctx, err, path)
	}
	msg, ext, internal := apperr.Present(err)
	if internal {
		h.logger(ctx).Error("internal error", zap.Error(err), zap.String("path", pathString(path)))
	}
	return executor.GraphQLError{Message: msg, Path: path, Extensions: ext}
}

func (h *Handler) logger(ctx context.Context) *zap.Logger {
	if rid, ok := reqid.FromContext(ctx); ok {
		return h.opt.Logger.With(zap.String("request_id", rid))
	}
	return h.opt.Logger
}

func pathString(p executor.Path) string {
	parts := make([]string, len(p))
	for i, e := range p {
		parts[i] = fmt.Sprint(e)
	}
	return strings.Join(parts, ".")
}

// ------------------ Request parsing ------------------

type GraphQLRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
	Extensions    map[string]any `json:"extensions,omitempty"`
}

func parseRequest(r *http.Request, maxBody int64) (GraphQLRequest, []GraphQLRequest, error) {
	if r.Method == http.MethodGet {
		q := r.URL.Query().Get("query")
		if q == "" {
			return GraphQLRequest{}, nil, errors.New("missing 'query'")
		}
		vars := map[string]any{}
		if v := r.URL.Query().Get("variables"); v != "" {
			if err := json.Unmarshal([]byte(v), &vars); err != nil {
				return GraphQLRequest{}, nil, errors.New("invalid 'variables' JSON")
			}
		}
		op := r.URL.Query().Get("operationName")
		return GraphQLRequest{Query: q, Variables: vars, OperationName: op}, nil, nil
	}

	// POST
	ct := r.Header.Get("Content-Type")
	if ct != "" && ct != "application/json" && !strings.HasPrefix(ct, "application/json;") {
		return GraphQLRequest{}, nil, errors.New("unsupported Content-Type")
	}
	defer r.Body.Close()
	reader := io.Reader(r.Body)
	if maxBody > 0 {
		reader = io.LimitReader(r.Body, maxBody+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return GraphQLRequest{}, nil, errors.New("failed to read body")
	}
	if maxBody > 0 && int64(len(body)) > maxBody {
		return GraphQLRequest{}, nil, errors.New(errBodyTooLargeMessage)
	}

	// Try array (batch)
	if len(body) > 0 && body[0] == '[' {
		var arr []GraphQLRequest
		if err := json.Unmarshal(body, &arr); err != nil {
			return GraphQLRequest{}, nil, errors.New("invalid JSON")
		}
		if len(arr) == 0 {
			return GraphQLRequest{}, nil, errors.New("empty batch")
		}
		return GraphQLRequest{}, arr, nil
	}
	var req GraphQLRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return GraphQLRequest{}, nil, errors.New("invalid JSON")
	}
	if req.Query == "" {
		return GraphQLRequest{}, nil, errors.New("missing 'query'")
	}
	if req.Variables == nil {
		req.Variables = map[string]any{}
	}
	return req, nil, nil
}

// ------------------ Response formatting ------------------

type specLocation struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

type specError struct {
	Message    string         `json:"message"`
	Locations  []specLocation `json:"locations,omitempty"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

type specResult struct {
	Data   any         `json:"data"`
	Errors []specError `json:"errors,omitempty"`
}

func requestFailure(code apperr.Code, msg string) *specResult {
	return &specResult{Errors: []specError{{Message: msg, Extensions: map[string]any{"code": string(code)}}}}
}

func locatedFailure(code apperr.Code, errs ...*language.Error) *specResult {
	out := &specResult{Errors: make([]specError, len(errs))}
	for i, e := range errs {
		se := specError{Message: e.Message, Extensions: map[string]any{"code": string(code)}}
		for _, l := range e.Locations {
			se.Locations = append(se.Locations, specLocation{Line: l.Line, Column: l.Column})
		}
		out.Errors[i] = se
	}
	return out
}

func toSpecResult(res *executor.ExecutionResult) specResult {
	out := specResult{Data: res.Data}
	if len(res.Errors) == 0 {
		return out
	}
	out.Errors = make([]specError, len(res.Errors))
	for i, e := range res.Errors {
		se := specError{Message: e.Message, Extensions: e.Extensions}
		if len(e.Path) > 0 {
			se.Path = make([]any, len(e.Path))
			for j, pe := range e.Path {
				switch v := pe.(type) {
				case string, int:
					se.Path[j] = v
				default:
					se.Path[j] = toString(v)
				}
			}
		}
		out.Errors[i] = se
	}
	// Data may be partially present next to errors; keep it.
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any, pretty bool) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(v)
}

func toString(v any) string { b, _ := json.Marshal(v); return string(b) }

const errBodyTooLargeMessage = "body too large"

func setCORSHeaders(w http.ResponseWriter, r *http.Request, opts CORSOptions) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}
	allowed := false
	for _, o := range opts.AllowedOrigins {
		if o == "*" || o == origin {
			allowed = true
			break
		}
	}
	if !allowed {
		return
	}
	if contains(opts.AllowedOrigins, "*") {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	} else {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Add("Vary", "Origin")
	}
	if r.Method == http.MethodOptions {
		if hdr := r.Header.Get("Access-Control-Request-Headers"); hdr != "" {
			w.Header().Set("Access-Control-Allow-Headers", hdr)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func acceptsHTML(accept string) bool {
	if accept == "" {
		return false
	}
	for _, p := range strings.Split(accept, ",") {
		p = strings.TrimSpace(p)
		if strings.HasPrefix(p, "text/html") || p == "*/*" {
			return true
		}
	}
	return false
}
