package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/nasermirzaei89/talkback/comments"
)

// HandlerFunc executes one registered method against sanitized params.
type HandlerFunc func(ctx context.Context, params map[string]any) (any, error)

// bindParams maps loose params onto a method's parameter struct.
// Unknown and mistyped params are rejected.
func bindParams(params map[string]any, dst any) error {
	buf, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to marshal params: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(buf))
	dec.DisallowUnknownFields()

	err = dec.Decode(dst)
	if err != nil {
		return &BindError{Cause: err}
	}

	return nil
}

func (h *Handler) handlePing(_ context.Context, _ map[string]any) (any, error) {
	return "pong", nil
}

type getClaimCommentsParams struct {
	ClaimID     string `json:"claim_id"`
	ParentID    string `json:"parent_id"`
	TopLevel    bool   `json:"top_level"`
	ExcludeMode string `json:"exclude_mode"`
	Page        int    `json:"page"`
	PageSize    int    `json:"page_size"`
}

func (h *Handler) handleGetClaimComments(ctx context.Context, params map[string]any) (any, error) {
	var p getClaimCommentsParams

	err := bindParams(params, &p)
	if err != nil {
		return nil, err
	}

	if p.ClaimID == "" {
		return nil, &comments.ValidationError{Field: "claim_id", Reason: "must not be empty"}
	}

	page, err := h.commentsSvc.ListClaimComments(ctx, comments.ListClaimCommentsRequest{
		ClaimID:     p.ClaimID,
		ParentID:    p.ParentID,
		TopLevel:    p.TopLevel,
		ExcludeMode: p.ExcludeMode,
		Page:        p.Page,
		PageSize:    p.PageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list claim comments: %w", err)
	}

	return page, nil
}

type getCommentIDsParams struct {
	ClaimID   string `json:"claim_id"`
	ParentID  string `json:"parent_id"`
	Page      int    `json:"page"`
	PageSize  int    `json:"page_size"`
	Flattened bool   `json:"flattened"`
}

func (h *Handler) handleGetCommentIDs(ctx context.Context, params map[string]any) (any, error) {
	var p getCommentIDsParams

	err := bindParams(params, &p)
	if err != nil {
		return nil, err
	}

	result, err := h.commentsSvc.ListCommentIDs(ctx, comments.ListCommentIDsRequest{
		ClaimID:   p.ClaimID,
		ParentID:  p.ParentID,
		Page:      p.Page,
		PageSize:  p.PageSize,
		Flattened: p.Flattened,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list comment ids: %w", err)
	}

	return result, nil
}

type getCommentsByIDParams struct {
	CommentIDs []string `json:"comment_ids"`
}

func (h *Handler) handleGetCommentsByID(ctx context.Context, params map[string]any) (any, error) {
	if _, ok := params["comment_ids"]; !ok {
		return nil, &comments.ValidationError{Field: "comment_ids", Reason: "is required"}
	}

	var p getCommentsByIDParams

	err := bindParams(params, &p)
	if err != nil {
		return nil, err
	}

	page, err := h.commentsSvc.GetCommentsByID(ctx, p.CommentIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get comments by id: %w", err)
	}

	return page, nil
}

type getChannelFromCommentIDParams struct {
	CommentID string `json:"comment_id"`
}

func (h *Handler) handleGetChannelFromCommentID(ctx context.Context, params map[string]any) (any, error) {
	var p getChannelFromCommentIDParams

	err := bindParams(params, &p)
	if err != nil {
		return nil, err
	}

	if p.CommentID == "" {
		return nil, &comments.ValidationError{Field: "comment_id", Reason: "must not be empty"}
	}

	item, err := h.commentsSvc.GetChannelFromCommentID(ctx, p.CommentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get channel from comment id: %w", err)
	}

	return item, nil
}

type createCommentParams struct {
	ClaimID   string `json:"claim_id"`
	Comment   string `json:"comment"`
	ChannelID string `json:"channel_id"`
	ParentID  string `json:"parent_id"`
	Signature string `json:"signature"`
	SigningTS string `json:"signing_ts"`
}

func (h *Handler) handleCreateComment(ctx context.Context, params map[string]any) (any, error) {
	var p createCommentParams

	err := bindParams(params, &p)
	if err != nil {
		return nil, err
	}

	item, err := h.commentsSvc.CreateComment(ctx, comments.CreateCommentRequest{
		ClaimID:   p.ClaimID,
		Body:      p.Comment,
		ChannelID: p.ChannelID,
		ParentID:  p.ParentID,
		Signature: p.Signature,
		SigningTS: p.SigningTS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	return item, nil
}

type deleteCommentParams struct {
	CommentID   string `json:"comment_id"`
	ChannelName string `json:"channel_name"`
	ChannelID   string `json:"channel_id"`
	Signature   string `json:"signature"`
}

func (h *Handler) handleDeleteComment(ctx context.Context, params map[string]any) (any, error) {
	var p deleteCommentParams

	err := bindParams(params, &p)
	if err != nil {
		return nil, err
	}

	if p.CommentID == "" {
		return nil, &comments.ValidationError{Field: "comment_id", Reason: "must not be empty"}
	}

	if p.ChannelID == "" {
		return nil, &comments.ValidationError{Field: "channel_id", Reason: "must not be empty"}
	}

	result, err := h.commentsSvc.DeleteComment(ctx, comments.DeleteCommentRequest{
		CommentID:   p.CommentID,
		ChannelName: p.ChannelName,
		ChannelID:   p.ChannelID,
		Signature:   p.Signature,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to delete comment: %w", err)
	}

	return result, nil
}
