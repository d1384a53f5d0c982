package sqlite3

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/nasermirzaei89/talkback/comments"
)

const (
	tableComments = "comments"
	tableChannels = "channels"
)

const (
	commentFieldCommentID = "comment_id"
	commentFieldClaimID   = "claim_id"
	commentFieldChannelID = "channel_id"
	commentFieldParentID  = "parent_id"
	commentFieldBody      = "body"
	commentFieldTimestamp = "timestamp"
	commentFieldSigningTS = "signing_ts"
	commentFieldSignature = "signature"
	commentFieldIsHidden  = "is_hidden"
)

// Qualified column handles, usable in queries that join both tables.
const (
	commentColCommentID = tableComments + "." + commentFieldCommentID
	commentColClaimID   = tableComments + "." + commentFieldClaimID
	commentColChannelID = tableComments + "." + commentFieldChannelID
	commentColParentID  = tableComments + "." + commentFieldParentID
	commentColBody      = tableComments + "." + commentFieldBody
	commentColTimestamp = tableComments + "." + commentFieldTimestamp
	commentColSigningTS = tableComments + "." + commentFieldSigningTS
	commentColSignature = tableComments + "." + commentFieldSignature
	commentColIsHidden  = tableComments + "." + commentFieldIsHidden

	channelColClaimID = tableChannels + "." + channelFieldClaimID
	channelColName    = tableChannels + "." + channelFieldName
)

// commentFieldOrder fixes the registry key set and the column order of
// every projected query.
var commentFieldOrder = []string{
	comments.FieldComment,
	comments.FieldCommentID,
	comments.FieldClaimID,
	comments.FieldTimestamp,
	comments.FieldSignature,
	comments.FieldSigningTS,
	comments.FieldIsHidden,
	comments.FieldParentID,
	comments.FieldChannelID,
	comments.FieldChannelName,
	comments.FieldChannelURL,
}

// commentFieldExprs maps each logical field to its select expression.
// Every read projects through this registry; no query references
// storage columns outside it.
var commentFieldExprs = map[string]string{
	comments.FieldComment:     commentColBody + " AS comment",
	comments.FieldCommentID:   commentColCommentID,
	comments.FieldClaimID:     commentColClaimID,
	comments.FieldTimestamp:   commentColTimestamp,
	comments.FieldSignature:   commentColSignature,
	comments.FieldSigningTS:   commentColSigningTS,
	comments.FieldIsHidden:    commentColIsHidden,
	comments.FieldParentID:    commentColParentID,
	comments.FieldChannelID:   channelColClaimID + " AS channel_id",
	comments.FieldChannelName: channelColName + " AS channel_name",
	comments.FieldChannelURL:  "'lbry://' || " + channelColName + " || '#' || " + channelColClaimID + " AS channel_url",
}

// projectedFields applies the selection rules: start from the full
// registry, subtract the exclusion list, then intersect with the
// inclusion list. A field both excluded and included stays dropped.
func projectedFields(selectFields, excludeFields []string) []string {
	excluded := make(map[string]bool, len(excludeFields))
	for _, name := range excludeFields {
		excluded[name] = true
	}

	var included map[string]bool
	if selectFields != nil {
		included = make(map[string]bool, len(selectFields))
		for _, name := range selectFields {
			included[name] = true
		}
	}

	fields := make([]string, 0, len(commentFieldOrder))

	for _, name := range commentFieldOrder {
		if excluded[name] {
			continue
		}

		if included != nil && !included[name] {
			continue
		}

		fields = append(fields, name)
	}

	return fields
}

type CommentRepository struct {
	db *sql.DB
}

var _ comments.CommentRepository = (*CommentRepository)(nil)

func NewCommentRepository(db *sql.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

func listConditions(params *comments.ListParams) []sq.Sqlizer {
	conds := make([]sq.Sqlizer, 0, 5)

	if params.ClaimID != "" {
		conds = append(conds, sq.Eq{commentColClaimID: params.ClaimID})

		if params.TopLevel {
			conds = append(conds, sq.Eq{commentColParentID: nil})
		}
	}

	if params.ParentID != "" {
		conds = append(conds, sq.Eq{commentColParentID: params.ParentID})
	}

	if params.ExcludeMode != "" {
		showHidden := strings.EqualFold(params.ExcludeMode, comments.ExcludeModeHidden)
		conds = append(conds, sq.Eq{commentColIsHidden: showHidden})
	}

	if params.IDs != nil {
		conds = append(conds, sq.Eq{commentColCommentID: params.IDs})
	}

	if params.Expr != nil {
		conds = append(conds, sq.Sqlizer(params.Expr))
	}

	return conds
}

// List runs one filtered, projected, paginated read. The total is
// counted on the un-joined query; the channel join only enriches the
// page being materialized.
func (repo *CommentRepository) List(ctx context.Context, params *comments.ListParams) (*comments.Page, error) {
	page := params.Page
	if page < 1 {
		page = 1
	}

	pageSize := params.PageSize
	if pageSize < 0 {
		pageSize = 0
	}

	conds := listConditions(params)

	total, err := repo.countMatches(ctx, conds)
	if err != nil {
		return nil, fmt.Errorf("failed to count matching comments: %w", err)
	}

	totalPages := 0
	if pageSize > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}

	result := &comments.Page{
		Page:              page,
		PageSize:          pageSize,
		TotalPages:        totalPages,
		TotalItems:        total,
		Items:             make([]comments.Item, 0, pageSize),
		HasHiddenComments: strings.EqualFold(params.ExcludeMode, comments.ExcludeModeHidden),
	}

	fields := projectedFields(params.SelectFields, params.ExcludeFields)
	if len(fields) == 0 || pageSize == 0 {
		return result, nil
	}

	q := sq.Select()
	for _, name := range fields {
		q = q.Column(commentFieldExprs[name])
	}

	q = q.From(tableComments).
		LeftJoin(tableChannels + " ON " + commentColChannelID + " = " + channelColClaimID).
		OrderBy(commentColTimestamp+" DESC", commentColCommentID+" DESC").
		Limit(uint64(pageSize)).
		Offset(uint64(page-1) * uint64(pageSize))

	for _, cond := range conds {
		q = q.Where(cond)
	}

	rows, err := q.RunWith(repo.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			slog.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	for rows.Next() {
		item, err := scanItem(rows, fields)
		if err != nil {
			return nil, fmt.Errorf("scan comment failed: %w", err)
		}

		result.Items = append(result.Items, item)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return result, nil
}

func (repo *CommentRepository) countMatches(ctx context.Context, conds []sq.Sqlizer) (int, error) {
	q := sq.Select("COUNT(*)").From(tableComments)

	for _, cond := range conds {
		q = q.Where(cond)
	}

	var total int

	err := q.RunWith(repo.db).QueryRowContext(ctx).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to scan count: %w", err)
	}

	return total, nil
}

// scanItem reads one projected row into a sparse item: null-valued
// fields are dropped instead of carried as explicit nulls.
func scanItem(rows *sql.Rows, fields []string) (comments.Item, error) {
	values := make([]any, len(fields))
	ptrs := make([]any, len(fields))

	for i := range values {
		ptrs[i] = &values[i]
	}

	err := rows.Scan(ptrs...)
	if err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	item := make(comments.Item, len(fields))

	for i, name := range fields {
		value := values[i]
		if value == nil {
			continue
		}

		switch v := value.(type) {
		case []byte:
			value = string(v)
		case int64:
			if name == comments.FieldIsHidden {
				value = v != 0
			}
		}

		item[name] = value
	}

	return item, nil
}

func (repo *CommentRepository) Insert(ctx context.Context, comment *comments.Comment) error {
	q := sq.Insert(tableComments).
		Columns(
			commentFieldCommentID,
			commentFieldClaimID,
			commentFieldChannelID,
			commentFieldParentID,
			commentFieldBody,
			commentFieldTimestamp,
			commentFieldSigningTS,
			commentFieldSignature,
			commentFieldIsHidden,
		).
		Values(
			comment.CommentID,
			comment.ClaimID,
			comment.ChannelID,
			comment.ParentID,
			comment.Body,
			comment.Timestamp,
			comment.SigningTS,
			comment.Signature,
			comment.IsHidden,
		)

	q = q.RunWith(repo.db)

	_, err := q.ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to exec insert: %w", err)
	}

	return nil
}

func (repo *CommentRepository) HasSignature(ctx context.Context, signature string) (bool, error) {
	q := sq.Select("COUNT(*)").
		From(tableComments).
		Where(sq.Eq{commentFieldSignature: signature})

	var count int

	err := q.RunWith(repo.db).QueryRowContext(ctx).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to scan count: %w", err)
	}

	return count > 0, nil
}

// DeleteChannelComment removes one comment, scoped to the channel it
// is attributed to. Replies of the deleted comment are kept.
func (repo *CommentRepository) DeleteChannelComment(ctx context.Context, commentID, channelID string) (bool, error) {
	q := sq.Delete(tableComments).
		Where(sq.Eq{
			commentFieldCommentID: commentID,
			commentFieldChannelID: channelID,
		})

	q = q.RunWith(repo.db)

	result, err := q.ExecContext(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to exec delete: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}
