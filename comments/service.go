package comments

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nasermirzaei89/talkback/random"
	"github.com/nasermirzaei89/talkback/writer"
)

const commentIDBytes = 32

type Service struct {
	commentRepo   CommentRepository
	gateway       *writer.Gateway
	authenticator Authenticator
}

func NewService(commentRepo CommentRepository, gateway *writer.Gateway, authenticator Authenticator) *Service {
	return &Service{
		commentRepo:   commentRepo,
		gateway:       gateway,
		authenticator: authenticator,
	}
}

type ListClaimCommentsRequest struct {
	ClaimID     string
	ParentID    string
	TopLevel    bool
	ExcludeMode string
	Page        int
	PageSize    int
}

func (svc *Service) ListClaimComments(ctx context.Context, req ListClaimCommentsRequest) (*Page, error) {
	params := &ListParams{
		ClaimID:     req.ClaimID,
		ParentID:    req.ParentID,
		TopLevel:    req.TopLevel,
		ExcludeMode: req.ExcludeMode,
		Page:        pageOrDefault(req.Page),
		PageSize:    pageSizeOrDefault(req.PageSize),
	}

	page, err := svc.commentRepo.List(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}

	return page, nil
}

type ListCommentIDsRequest struct {
	ClaimID   string
	ParentID  string
	Page      int
	PageSize  int
	Flattened bool
}

// ListCommentIDs lists only the identity fields of matching comments,
// enough to rebuild the reply graph of the page. The flattened variant
// returns a *FlattenedIDPage, otherwise a *Page.
func (svc *Service) ListCommentIDs(ctx context.Context, req ListCommentIDsRequest) (any, error) {
	params := &ListParams{
		ClaimID:      req.ClaimID,
		ParentID:     req.ParentID,
		Page:         pageOrDefault(req.Page),
		PageSize:     pageSizeOrDefault(req.PageSize),
		SelectFields: []string{FieldCommentID, FieldParentID},
	}

	page, err := svc.commentRepo.List(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list comment ids: %w", err)
	}

	if !req.Flattened {
		return page, nil
	}

	return flattenIDPage(page), nil
}

func flattenIDPage(page *Page) *FlattenedIDPage {
	ids := make([]string, 0, len(page.Items))
	replies := make([]ReplyEdge, 0, len(page.Items))

	for _, item := range page.Items {
		id, _ := item[FieldCommentID].(string)

		edge := ReplyEdge{CommentID: id}
		if parentID, ok := item[FieldParentID].(string); ok {
			edge.ParentID = &parentID
		}

		ids = append(ids, id)
		replies = append(replies, edge)
	}

	return &FlattenedIDPage{
		Page:              page.Page,
		PageSize:          page.PageSize,
		TotalPages:        page.TotalPages,
		TotalItems:        page.TotalItems,
		Items:             ids,
		Replies:           replies,
		HasHiddenComments: page.HasHiddenComments,
	}
}

// GetCommentsByID fetches exactly the requested set of comments as a
// single page sized to the request.
func (svc *Service) GetCommentsByID(ctx context.Context, ids []string) (*Page, error) {
	if ids == nil {
		ids = []string{}
	}

	params := &ListParams{
		IDs:      ids,
		Page:     1,
		PageSize: len(ids),
	}

	page, err := svc.commentRepo.List(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments by id: %w", err)
	}

	return page, nil
}

func (svc *Service) GetComment(ctx context.Context, commentID string) (Item, error) {
	params := &ListParams{
		IDs:      []string{commentID},
		Page:     1,
		PageSize: 1,
	}

	page, err := svc.commentRepo.List(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch comment: %w", err)
	}

	if len(page.Items) == 0 {
		return nil, &CommentNotFoundError{ID: commentID}
	}

	return page.Items[0], nil
}

// GetChannelFromCommentID resolves the channel attribution of a single
// comment, projected to the channel-derived fields only.
func (svc *Service) GetChannelFromCommentID(ctx context.Context, commentID string) (Item, error) {
	params := &ListParams{
		IDs:          []string{commentID},
		Page:         1,
		PageSize:     1,
		SelectFields: []string{FieldChannelName, FieldChannelID, FieldChannelURL},
	}

	page, err := svc.commentRepo.List(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch channel for comment: %w", err)
	}

	if len(page.Items) == 0 {
		return nil, &CommentNotFoundError{ID: commentID}
	}

	return page.Items[0], nil
}

type CreateCommentRequest struct {
	ClaimID   string
	Body      string
	ChannelID string
	ParentID  string
	Signature string
	SigningTS string
}

// CreateComment validates and inserts a new comment through the write
// gateway. The server assigns the comment id and timestamp. A
// signature already present on another comment is a conflict and
// inserts nothing.
func (svc *Service) CreateComment(ctx context.Context, req CreateCommentRequest) (Item, error) {
	if req.ClaimID == "" {
		return nil, &ValidationError{Field: "claim_id", Reason: "must not be empty"}
	}

	if strings.TrimSpace(req.Body) == "" {
		return nil, &ValidationError{Field: "comment", Reason: "must not be empty"}
	}

	if req.Signature != "" && req.SigningTS == "" {
		return nil, &ValidationError{Field: "signing_ts", Reason: "required when signature is given"}
	}

	if req.Signature != "" && req.ChannelID == "" {
		return nil, &ValidationError{Field: "channel_id", Reason: "required when signature is given"}
	}

	comment := &Comment{
		CommentID: random.String(commentIDBytes),
		ClaimID:   req.ClaimID,
		Body:      req.Body,
		Timestamp: time.Now().Unix(),
	}

	if req.ChannelID != "" {
		comment.ChannelID = &req.ChannelID
	}

	if req.ParentID != "" {
		comment.ParentID = &req.ParentID
	}

	if req.Signature != "" {
		comment.Signature = &req.Signature
		comment.SigningTS = &req.SigningTS
	}

	_, err := svc.gateway.Do(ctx, func(ctx context.Context) (any, error) {
		if comment.Signature != nil {
			exists, err := svc.commentRepo.HasSignature(ctx, *comment.Signature)
			if err != nil {
				return nil, fmt.Errorf("failed to check signature uniqueness: %w", err)
			}

			if exists {
				return nil, &DuplicateSignatureError{Signature: *comment.Signature}
			}
		}

		err := svc.commentRepo.Insert(ctx, comment)
		if err != nil {
			return nil, fmt.Errorf("failed to insert comment: %w", err)
		}

		return nil, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to write comment: %w", err)
	}

	item, err := svc.GetComment(ctx, comment.CommentID)
	if err != nil {
		return nil, fmt.Errorf("failed to read back created comment: %w", err)
	}

	return item, nil
}

type DeleteCommentRequest struct {
	CommentID   string
	ChannelName string
	ChannelID   string
	Signature   string
}

type DeleteResult struct {
	Deleted bool `json:"deleted"`
}

// DeleteComment gates the mutation behind the authenticity predicate.
// A rejected request is a normal {deleted: false} outcome, not an
// error, and leaves the store untouched.
func (svc *Service) DeleteComment(ctx context.Context, req DeleteCommentRequest) (*DeleteResult, error) {
	if req.CommentID == "" {
		return nil, &ValidationError{Field: "comment_id", Reason: "must not be empty"}
	}

	authorized, err := svc.authenticator.Authenticate(ctx, req.CommentID, req.ChannelName, req.ChannelID, req.Signature)
	if err != nil {
		return nil, fmt.Errorf("failed to check delete authenticity: %w", err)
	}

	if !authorized {
		slog.InfoContext(ctx, "rejected unauthorized comment deletion",
			"comment_id", req.CommentID, "channel_id", req.ChannelID)

		return &DeleteResult{Deleted: false}, nil
	}

	res, err := svc.gateway.Do(ctx, func(ctx context.Context) (any, error) {
		deleted, err := svc.commentRepo.DeleteChannelComment(ctx, req.CommentID, req.ChannelID)
		if err != nil {
			return nil, fmt.Errorf("failed to delete comment: %w", err)
		}

		return deleted, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to write comment deletion: %w", err)
	}

	deleted, _ := res.(bool)

	return &DeleteResult{Deleted: deleted}, nil
}

func pageOrDefault(page int) int {
	if page < 1 {
		return 1
	}

	return page
}

func pageSizeOrDefault(pageSize int) int {
	if pageSize < 1 {
		return DefaultPageSize
	}

	return pageSize
}
