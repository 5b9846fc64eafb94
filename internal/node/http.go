package node

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"geofabric/pkg/coordinator"
	"geofabric/pkg/errs"
	"geofabric/pkg/reactor"
	"geofabric/pkg/types"
)

// awaitGrace is the slack ctx.Done carries past a coordinator's own
// deadline, so the synthetic timeout armed on Start (see ArmDeadline) is
// always the one that completes a slow fan-out, not the HTTP request
// context racing it.
const awaitGrace = 500 * time.Millisecond

// Server is the storage node's HTTP surface: a client-facing API under
// /v1 and a peer-to-peer API under /v1/internal that the ConnectionPool
// dials, plus an optional Prometheus scrape endpoint. A chi router with
// one handler per request/event/response kind, every handler just decoding
// a body and emitting onto the Node's reactor (or, for the two
// synchronous client endpoints, awaiting a coordinator too).
type Server struct {
	node              *Node
	httpServer        *http.Server
	addr              string
	readHeaderTimeout time.Duration
	awaitTimeout      time.Duration
	metricsPath       string
	metricsHandler    http.Handler
}

// ServerOptions configures a Server.
type ServerOptions struct {
	Addr              string
	ReadHeaderTimeout time.Duration
	AwaitTimeout      time.Duration
	MetricsPath       string
	MetricsHandler    http.Handler
}

// NewServer wraps a Node with its HTTP surface.
func NewServer(n *Node, opts ServerOptions) *Server {
	if opts.ReadHeaderTimeout <= 0 {
		opts.ReadHeaderTimeout = 5 * time.Second
	}
	if opts.AwaitTimeout <= 0 {
		opts.AwaitTimeout = 10 * time.Second
	}
	return &Server{
		node:              n,
		metricsPath:       opts.MetricsPath,
		metricsHandler:    opts.MetricsHandler,
		addr:              opts.Addr,
		readHeaderTimeout: opts.ReadHeaderTimeout,
		awaitTimeout:      opts.AwaitTimeout,
	}
}

// Start begins serving and returns immediately; errors surface through
// slog, matching internal/http/server.go's startHTTPServer.
func (s *Server) Start() {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.router(),
		ReadHeaderTimeout: s.readHeaderTimeout,
	}
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("node: http server error", "error", err)
		}
	}()
	slog.Info("node: http server started", "addr", s.addr)
}

// Stop gracefully shuts the HTTP server down.
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("node: shutdown http server: %w", err)
	}
	return nil
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", s.handleHealth)
	if s.metricsPath != "" && s.metricsHandler != nil {
		r.Handle(s.metricsPath, s.metricsHandler)
	}

	r.Post("/v1/blocks", s.handlePostBlock)
	r.Post("/v1/queries", s.handlePostQuery)
	r.Post("/v1/metadata", s.handlePostMetadata)
	r.Post("/v1/admin/filesystems", s.handlePostFilesystem)
	r.Get("/v1/admin/filesystems", s.handleListFilesystems)

	r.Post("/v1/internal/storage-event", s.handleInternalStorageEvent)
	r.Post("/v1/internal/query-event", s.handleInternalQueryEvent)
	r.Post("/v1/internal/query-response", s.handleInternalQueryResponse)
	r.Post("/v1/internal/filesystem-event", s.handleInternalFilesystemEvent)
	r.Post("/v1/internal/metadata-event", s.handleInternalMetadataEvent)
	r.Post("/v1/internal/metadata-response", s.handleInternalMetadataResponse)

	return r
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Warn("node: encode response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorBody{Error: err.Error()})
}

// statusForError maps a sentinel errs kind to the HTTP status a client
// should see; anything unrecognized is a 500.
func statusForError(err error) int {
	switch {
	case errors.Is(err, errs.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

func decodeBody[T any](r *http.Request) (T, error) {
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		return v, fmt.Errorf("node: decode request body: %w", errs.ErrSerialization)
	}
	return v, nil
}

func (s *Server) handlePostBlock(w http.ResponseWriter, r *http.Request) {
	req, err := decodeBody[types.StorageRequest](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Filesystem == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("node: filesystem is required: %w", errs.ErrValidation))
		return
	}
	s.node.Emit(reactor.Event{Kind: "StorageRequest", Payload: req})
	writeJSON(w, http.StatusAccepted, nil)
}

// validateQuery rejects wildcard temporal components by default: a nil
// Temporal pointer scans every bucket, which only makes sense as an
// explicit opt-in via AllowWallClockWildcards. An empty Region is a
// legitimate wildcard spatial component per §4.D's "only T"/"neither"
// cases and is left to the partitioner, not rejected here.
func validateQuery(req types.QueryRequest) error {
	if req.Filesystem == "" {
		return fmt.Errorf("node: filesystem is required: %w", errs.ErrValidation)
	}
	if req.Temporal == nil && !req.AllowWallClockWildcards {
		return fmt.Errorf("node: wildcard temporal query requires allow_wall_clock_wildcards: %w", errs.ErrValidation)
	}
	return nil
}

func (s *Server) handlePostQuery(w http.ResponseWriter, r *http.Request) {
	req, err := decodeBody[types.QueryRequest](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := validateQuery(req); err != nil {
		writeError(w, statusForError(err), err)
		return
	}

	queryID := s.node.ids.Next()
	coord := coordinator.New(coordinator.NewListMerger[types.QueryResponse](), nil)
	s.node.coords.Put(queryID, coord)
	s.node.Emit(reactor.Event{Kind: "QueryRequest", Payload: queryRequestEvent{QueryID: queryID, Req: req, Deadline: s.awaitTimeout}})

	// ctx carries a little more slack than the coordinator's own deadline so
	// the coordinator's synthetic timeout (armed with s.awaitTimeout once
	// Start registers its destinations, a moment after this call) always
	// fires and completes with a partial result/missing[] first; ctx.Done
	// is only the backstop for a coordinator that never got armed.
	ctx, cancel := context.WithTimeout(r.Context(), s.awaitTimeout+awaitGrace)
	defer cancel()
	merged, missing, err := coord.Await(ctx)
	s.node.coords.Delete(queryID)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}

	result := types.QueryResult{QueryID: queryID, Missing: missing}
	for _, reply := range asQueryResponses(merged) {
		if reply.Error != "" {
			continue
		}
		result.BlockIDs = append(result.BlockIDs, reply.BlockIDs...)
		result.Rows = append(result.Rows, reply.Rows...)
		if reply.SpoolPath != "" {
			result.Spools = append(result.Spools, types.Spool{Node: reply.Origin, Path: reply.SpoolPath, Size: reply.SpoolSize})
		}
	}
	writeJSON(w, http.StatusOK, result)
}

func asQueryResponses(merged any) []types.QueryResponse {
	replies, _ := merged.([]types.QueryResponse)
	return replies
}

func (s *Server) handlePostMetadata(w http.ResponseWriter, r *http.Request) {
	req, err := decodeBody[types.MetadataRequest](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	queryID := s.node.ids.Next()
	coord := coordinator.New(coordinator.NewKeyedMerger(), nil)
	s.node.coords.Put(queryID, coord)
	s.node.Emit(reactor.Event{Kind: "MetadataRequest", Payload: metadataRequestEvent{QueryID: queryID, Req: req, Deadline: s.awaitTimeout}})

	ctx, cancel := context.WithTimeout(r.Context(), s.awaitTimeout+awaitGrace)
	defer cancel()
	merged, missing, err := coord.Await(ctx)
	s.node.coords.Delete(queryID)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}

	byFilesystem, _ := merged.(map[string][]any)
	result := types.MetadataResult{QueryID: queryID, ByFilesystem: make(map[string][]types.MetadataSummary, len(byFilesystem)), Missing: missing}
	for fs, entries := range byFilesystem {
		for _, e := range entries {
			if summary, ok := e.(types.MetadataSummary); ok {
				result.ByFilesystem[fs] = append(result.ByFilesystem[fs], summary)
			}
		}
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handlePostFilesystem(w http.ResponseWriter, r *http.Request) {
	req, err := decodeBody[types.FilesystemRequest](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Descriptor.Name == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("node: descriptor name is required: %w", errs.ErrValidation))
		return
	}
	// The broadcast to every node happens on the reactor goroutine after
	// this call returns; a client that needs confirmation polls
	// GET /v1/admin/filesystems afterward rather than blocking here.
	s.node.Emit(reactor.Event{Kind: "FilesystemRequest", Payload: req})
	writeJSON(w, http.StatusAccepted, nil)
}

func (s *Server) handleListFilesystems(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.node.reg.List())
}

func (s *Server) handleInternalStorageEvent(w http.ResponseWriter, r *http.Request) {
	evt, err := decodeBody[types.StorageEvent](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.node.Emit(reactor.Event{Kind: "StorageEvent", Payload: evt})
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handleInternalQueryEvent(w http.ResponseWriter, r *http.Request) {
	evt, err := decodeBody[types.QueryEvent](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.node.Emit(reactor.Event{Kind: "QueryEvent", Payload: evt})
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handleInternalQueryResponse(w http.ResponseWriter, r *http.Request) {
	resp, err := decodeBody[types.QueryResponse](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.node.Emit(reactor.Event{Kind: "QueryResponse", Payload: resp})
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handleInternalFilesystemEvent(w http.ResponseWriter, r *http.Request) {
	evt, err := decodeBody[types.FilesystemEvent](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.node.Emit(reactor.Event{Kind: "FilesystemEvent", Payload: evt})
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handleInternalMetadataEvent(w http.ResponseWriter, r *http.Request) {
	evt, err := decodeBody[types.MetadataEvent](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.node.Emit(reactor.Event{Kind: "MetadataEvent", Payload: evt})
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handleInternalMetadataResponse(w http.ResponseWriter, r *http.Request) {
	resp, err := decodeBody[types.MetadataResponse](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.node.Emit(reactor.Event{Kind: "MetadataResponse", Payload: resp})
	writeJSON(w, http.StatusOK, nil)
}
