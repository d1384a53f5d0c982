package comments

import (
	"context"
	"encoding/json"
	"fmt"
)

// Comment is one row of the comments table. Channel and parent
// references are nullable: a nil ChannelID is an anonymous comment, a
// nil ParentID is a top-level comment.
type Comment struct {
	CommentID string
	ClaimID   string
	ChannelID *string
	ParentID  *string
	Body      string
	Timestamp int64
	SigningTS *string
	Signature *string
	IsHidden  bool
}

// Channel is a named publishing identity. Channels are provisioned
// out-of-band; the RPC write path never creates them.
type Channel struct {
	ClaimID string
	Name    string
}

// Logical field names served by the read engine. Every read operation
// projects through this set, never raw storage columns.
const (
	FieldComment     = "comment"
	FieldCommentID   = "comment_id"
	FieldClaimID     = "claim_id"
	FieldTimestamp   = "timestamp"
	FieldSignature   = "signature"
	FieldSigningTS   = "signing_ts"
	FieldIsHidden    = "is_hidden"
	FieldParentID    = "parent_id"
	FieldChannelID   = "channel_id"
	FieldChannelName = "channel_name"
	FieldChannelURL  = "channel_url"
)

// ExcludeModeHidden flips the visibility filter to hidden-only
// comments. Any other non-empty mode selects visible-only.
const ExcludeModeHidden = "hidden"

const DefaultPageSize = 50

// Item is a projected comment row. Null-valued fields are dropped
// rather than serialized as explicit nulls.
type Item map[string]any

// Page is the envelope returned by every paginated read.
// HasHiddenComments is kept for older clients and is deprecated.
type Page struct {
	Page              int    `json:"page"`
	PageSize          int    `json:"page_size"`
	TotalPages        int    `json:"total_pages"`
	TotalItems        int    `json:"total_items"`
	Items             []Item `json:"items"`
	HasHiddenComments bool   `json:"has_hidden_comments"`
}

// ReplyEdge is one (comment_id, parent_id) pair of the reply graph,
// serialized as a two-element array.
type ReplyEdge struct {
	CommentID string
	ParentID  *string
}

func (e ReplyEdge) MarshalJSON() ([]byte, error) {
	buf, err := json.Marshal([2]any{e.CommentID, e.ParentID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal reply edge: %w", err)
	}

	return buf, nil
}

// FlattenedIDPage is the flattened variant of the id listing: items
// collapse to bare comment ids and the reply graph of the page is
// reported separately.
type FlattenedIDPage struct {
	Page              int         `json:"page"`
	PageSize          int         `json:"page_size"`
	TotalPages        int         `json:"total_pages"`
	TotalItems        int         `json:"total_items"`
	Items             []string    `json:"items"`
	Replies           []ReplyEdge `json:"replies"`
	HasHiddenComments bool        `json:"has_hidden_comments"`
}

// Expr is an extra boolean predicate for programmatic callers. It is
// AND-composed with the named filters. Any squirrel expression
// satisfies it.
type Expr interface {
	ToSql() (sql string, args []any, err error)
}

// ListParams drive one read through the projection engine. A non-nil
// IDs slice enables the membership filter even when empty.
type ListParams struct {
	ClaimID       string
	ParentID      string
	TopLevel      bool
	ExcludeMode   string
	Page          int
	PageSize      int
	IDs           []string
	SelectFields  []string
	ExcludeFields []string
	Expr          Expr
}

type CommentRepository interface {
	List(ctx context.Context, params *ListParams) (page *Page, err error)
	Insert(ctx context.Context, comment *Comment) (err error)
	HasSignature(ctx context.Context, signature string) (exists bool, err error)
	DeleteChannelComment(ctx context.Context, commentID, channelID string) (deleted bool, err error)
}

type ChannelRepository interface {
	Insert(ctx context.Context, channel *Channel) (err error)
	Find(ctx context.Context, claimID string) (channel *Channel, err error)
}

type CommentNotFoundError struct {
	ID string
}

func (err CommentNotFoundError) Error() string {
	return fmt.Sprintf("comment with id %q not found", err.ID)
}

type ChannelNotFoundError struct {
	ClaimID string
}

func (err ChannelNotFoundError) Error() string {
	return fmt.Sprintf("channel with claim id %q not found", err.ClaimID)
}

type DuplicateSignatureError struct {
	Signature string
}

func (err DuplicateSignatureError) Error() string {
	return fmt.Sprintf("signature %q already belongs to another comment", err.Signature)
}

type ValidationError struct {
	Field  string
	Reason string
}

func (err ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", err.Field, err.Reason)
}
