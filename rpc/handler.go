// Package rpc exposes the comment operations over a JSON-RPC style
// request/response protocol with batching.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/nasermirzaei89/talkback/comments"
)

const Version = "2.0"

type Request struct {
	ID     any            `json:"id"`
	Method string         `json:"method"`
	Params map[string]any `json:"params"`
}

// Response carries either a result or an error, never both.
type Response struct {
	JSONRPC string `json:"jsonrpc"`
	ID      any    `json:"id"`
	Result  any    `json:"result,omitempty"`
	Error   *Error `json:"error,omitempty"`
}

// errorResponse is the bare envelope returned for input that never
// made it to a request: unparseable bodies and invalid top-level
// shapes.
type errorResponse struct {
	Error *Error `json:"error"`
}

type Handler struct {
	commentsSvc *comments.Service
	methods     map[string]HandlerFunc
}

var _ http.Handler = (*Handler)(nil)

func NewHandler(commentsSvc *comments.Service) *Handler {
	h := &Handler{commentsSvc: commentsSvc}

	h.methods = map[string]HandlerFunc{
		"ping":                        h.handlePing,
		"get_claim_comments":          h.handleGetClaimComments,
		"get_comment_ids":             h.handleGetCommentIDs,
		"get_comments_by_id":          h.handleGetCommentsByID,
		"get_channel_from_comment_id": h.handleGetChannelFromCommentID,
		"create_comment":              h.handleCreateComment,
		"delete_comment":              h.handleDeleteComment,
	}

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := uuid.NewString()

	slog.InfoContext(ctx, "received rpc request", "request_id", requestID, "remote", r.RemoteAddr)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		slog.WarnContext(ctx, "failed to read request body", "request_id", requestID, "error", err)
		writeJSON(ctx, w, errorResponse{Error: ErrParseError})

		return
	}

	var payload any

	err = json.Unmarshal(body, &payload)
	if err != nil {
		slog.WarnContext(ctx, "received malformed json", "request_id", requestID, "error", err)
		writeJSON(ctx, w, errorResponse{Error: ErrParseError})

		return
	}

	switch payload.(type) {
	case []any:
		var parts []json.RawMessage

		err := json.Unmarshal(body, &parts)
		if err != nil {
			writeJSON(ctx, w, errorResponse{Error: ErrInvalidRequest})

			return
		}

		responses := make([]Response, 0, len(parts))
		for _, part := range parts {
			responses = append(responses, h.process(ctx, part))
		}

		writeJSON(ctx, w, responses)
	case map[string]any:
		writeJSON(ctx, w, h.process(ctx, body))
	default:
		slog.WarnContext(ctx, "received invalid request shape", "request_id", requestID)
		writeJSON(ctx, w, errorResponse{Error: ErrInvalidRequest})
	}
}

// process runs one request envelope through the method registry and
// always yields exactly one response.
func (h *Handler) process(ctx context.Context, raw json.RawMessage) Response {
	var req Request

	err := json.Unmarshal(raw, &req)
	if err != nil {
		return Response{JSONRPC: Version, Error: ErrInvalidRequest}
	}

	resp := Response{JSONRPC: Version, ID: req.ID}

	fn, ok := h.methods[req.Method]
	if !ok {
		resp.Error = ErrMethodNotFound

		return resp
	}

	params := req.Params
	if params == nil {
		params = map[string]any{}
	}

	Sanitize(params)

	result, err := fn(ctx, params)
	if err != nil {
		resp.Error = classifyError(ctx, req.Method, err)

		return resp
	}

	resp.Result = result

	return resp
}

// classifyError downgrades handler faults to the protocol taxonomy.
// Nothing below the dispatcher leaks a raw fault to the transport.
func classifyError(ctx context.Context, method string, err error) *Error {
	var (
		bindErr       *BindError
		validationErr *comments.ValidationError
		notFoundErr   *comments.CommentNotFoundError
		duplicateErr  *comments.DuplicateSignatureError
	)

	switch {
	case errors.As(err, &bindErr),
		errors.As(err, &validationErr),
		errors.As(err, &notFoundErr),
		errors.As(err, &duplicateErr):
		slog.WarnContext(ctx, "rejected rpc params", "method", method, "error", err)

		return ErrInvalidParams
	default:
		slog.ErrorContext(ctx, "rpc method failed", "method", method, "error", err)

		return ErrInternal
	}
}

func writeJSON(ctx context.Context, w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	err := json.NewEncoder(w).Encode(payload)
	if err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}
