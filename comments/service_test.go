package comments_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/nasermirzaei89/talkback/comments"
	"github.com/nasermirzaei89/talkback/db/sqlite3"
	"github.com/nasermirzaei89/talkback/writer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allowAll(context.Context, string, string, string, string) (bool, error) {
	return true, nil
}

func denyAll(context.Context, string, string, string, string) (bool, error) {
	return false, nil
}

func newTestService(t *testing.T, authenticator comments.AuthenticatorFunc) (*comments.Service, *sql.DB) {
	t.Helper()

	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "comments.db")

	db, err := sqlite3.NewDB(ctx, dsn)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = db.Close()
	})

	err = sqlite3.MigrateUp(ctx, db)
	require.NoError(t, err)

	gateway := writer.NewGateway(8)

	runCtx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	go gateway.Run(runCtx)

	svc := comments.NewService(sqlite3.NewCommentRepository(db), gateway, authenticator)

	return svc, db
}

func TestServiceCreateComment(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t, allowAll)
	ctx := context.Background()

	err := sqlite3.NewChannelRepository(db).Insert(ctx, &comments.Channel{ClaimID: "chan1", Name: "alice"})
	require.NoError(t, err)

	item, err := svc.CreateComment(ctx, comments.CreateCommentRequest{
		ClaimID:   "k1",
		Body:      "hello world",
		ChannelID: "chan1",
	})
	require.NoError(t, err)

	commentID, ok := item[comments.FieldCommentID].(string)
	require.True(t, ok)
	assert.Len(t, commentID, 64)

	assert.Equal(t, "k1", item[comments.FieldClaimID])
	assert.Equal(t, "hello world", item[comments.FieldComment])
	assert.Equal(t, "alice", item[comments.FieldChannelName])
	assert.Equal(t, "lbry://alice#chan1", item[comments.FieldChannelURL])
	assert.NotContains(t, item, comments.FieldParentID)

	var timestamp int64
	timestamp, ok = item[comments.FieldTimestamp].(int64)
	require.True(t, ok)
	assert.Positive(t, timestamp)

	fetched, err := svc.GetComment(ctx, commentID)
	require.NoError(t, err)
	assert.Equal(t, item, fetched)
}

func TestServiceCreateReply(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, allowAll)
	ctx := context.Background()

	parent, err := svc.CreateComment(ctx, comments.CreateCommentRequest{ClaimID: "k1", Body: "parent"})
	require.NoError(t, err)

	parentID, _ := parent[comments.FieldCommentID].(string)

	reply, err := svc.CreateComment(ctx, comments.CreateCommentRequest{
		ClaimID:  "k1",
		Body:     "reply",
		ParentID: parentID,
	})
	require.NoError(t, err)

	assert.Equal(t, parentID, reply[comments.FieldParentID])
}

func TestServiceCreateCommentValidation(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, allowAll)
	ctx := context.Background()

	tests := []struct {
		name string
		req  comments.CreateCommentRequest
	}{
		{
			name: "missing claim id",
			req:  comments.CreateCommentRequest{Body: "hello"},
		},
		{
			name: "blank body",
			req:  comments.CreateCommentRequest{ClaimID: "k1", Body: "   "},
		},
		{
			name: "signature without signing ts",
			req:  comments.CreateCommentRequest{ClaimID: "k1", Body: "hi", ChannelID: "chan1", Signature: "sig"},
		},
		{
			name: "signature without channel",
			req:  comments.CreateCommentRequest{ClaimID: "k1", Body: "hi", Signature: "sig", SigningTS: "1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateComment(ctx, tt.req)
			require.Error(t, err)

			validationErr := &comments.ValidationError{}
			assert.ErrorAs(t, err, &validationErr)
		})
	}
}

func TestServiceCreateCommentDuplicateSignature(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, allowAll)
	ctx := context.Background()

	_, err := svc.CreateComment(ctx, comments.CreateCommentRequest{
		ClaimID:   "k1",
		Body:      "signed",
		ChannelID: "chan1",
		Signature: "sig-1",
		SigningTS: "100",
	})
	require.NoError(t, err)

	_, err = svc.CreateComment(ctx, comments.CreateCommentRequest{
		ClaimID:   "k1",
		Body:      "replayed",
		ChannelID: "chan2",
		Signature: "sig-1",
		SigningTS: "101",
	})
	require.Error(t, err)

	duplicateErr := &comments.DuplicateSignatureError{}
	assert.ErrorAs(t, err, &duplicateErr)

	// The conflicting create must not have inserted a row.
	page, err := svc.ListClaimComments(ctx, comments.ListClaimCommentsRequest{ClaimID: "k1"})
	require.NoError(t, err)
	assert.Equal(t, 1, page.TotalItems)
}

func TestServiceDeleteCommentAuthorized(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, allowAll)
	ctx := context.Background()

	item, err := svc.CreateComment(ctx, comments.CreateCommentRequest{
		ClaimID:   "k1",
		Body:      "to delete",
		ChannelID: "chan1",
	})
	require.NoError(t, err)

	commentID, _ := item[comments.FieldCommentID].(string)

	result, err := svc.DeleteComment(ctx, comments.DeleteCommentRequest{
		CommentID:   commentID,
		ChannelName: "alice",
		ChannelID:   "chan1",
		Signature:   "sig",
	})
	require.NoError(t, err)
	assert.True(t, result.Deleted)

	_, err = svc.GetComment(ctx, commentID)
	require.Error(t, err)

	notFoundErr := &comments.CommentNotFoundError{}
	assert.ErrorAs(t, err, &notFoundErr)
}

func TestServiceDeleteCommentUnauthorized(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, denyAll)
	ctx := context.Background()

	item, err := svc.CreateComment(ctx, comments.CreateCommentRequest{
		ClaimID:   "k1",
		Body:      "stays",
		ChannelID: "chan1",
	})
	require.NoError(t, err)

	commentID, _ := item[comments.FieldCommentID].(string)

	result, err := svc.DeleteComment(ctx, comments.DeleteCommentRequest{
		CommentID:   commentID,
		ChannelName: "alice",
		ChannelID:   "chan1",
		Signature:   "bad-sig",
	})
	require.NoError(t, err)
	assert.False(t, result.Deleted)

	_, err = svc.GetComment(ctx, commentID)
	require.NoError(t, err)
}

func TestServiceDeleteCommentMissingRow(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, allowAll)
	ctx := context.Background()

	result, err := svc.DeleteComment(ctx, comments.DeleteCommentRequest{
		CommentID:   "nope",
		ChannelName: "alice",
		ChannelID:   "chan1",
		Signature:   "sig",
	})
	require.NoError(t, err)
	assert.False(t, result.Deleted)
}

func TestServiceGetChannelFromCommentID(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t, allowAll)
	ctx := context.Background()

	err := sqlite3.NewChannelRepository(db).Insert(ctx, &comments.Channel{ClaimID: "chan1", Name: "alice"})
	require.NoError(t, err)

	attributed, err := svc.CreateComment(ctx, comments.CreateCommentRequest{
		ClaimID:   "k1",
		Body:      "attributed",
		ChannelID: "chan1",
	})
	require.NoError(t, err)

	anonymous, err := svc.CreateComment(ctx, comments.CreateCommentRequest{
		ClaimID: "k1",
		Body:    "anonymous",
	})
	require.NoError(t, err)

	attributedID, _ := attributed[comments.FieldCommentID].(string)
	anonymousID, _ := anonymous[comments.FieldCommentID].(string)

	item, err := svc.GetChannelFromCommentID(ctx, attributedID)
	require.NoError(t, err)
	assert.Equal(t, comments.Item{
		comments.FieldChannelID:   "chan1",
		comments.FieldChannelName: "alice",
		comments.FieldChannelURL:  "lbry://alice#chan1",
	}, item)

	// An anonymous comment resolves to an empty attribution.
	item, err = svc.GetChannelFromCommentID(ctx, anonymousID)
	require.NoError(t, err)
	assert.Empty(t, item)

	_, err = svc.GetChannelFromCommentID(ctx, "missing")
	require.Error(t, err)

	notFoundErr := &comments.CommentNotFoundError{}
	assert.ErrorAs(t, err, &notFoundErr)
}

func TestServiceGetCommentsByID(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, allowAll)
	ctx := context.Background()

	first, err := svc.CreateComment(ctx, comments.CreateCommentRequest{ClaimID: "k1", Body: "one"})
	require.NoError(t, err)

	second, err := svc.CreateComment(ctx, comments.CreateCommentRequest{ClaimID: "k1", Body: "two"})
	require.NoError(t, err)

	firstID, _ := first[comments.FieldCommentID].(string)
	secondID, _ := second[comments.FieldCommentID].(string)

	page, err := svc.GetCommentsByID(ctx, []string{firstID, secondID})
	require.NoError(t, err)

	assert.Equal(t, 2, page.TotalItems)
	assert.Equal(t, 2, page.PageSize)
	assert.Equal(t, 1, page.TotalPages)
	assert.Len(t, page.Items, 2)
}

func TestServiceGetCommentsByIDEmpty(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, allowAll)
	ctx := context.Background()

	page, err := svc.GetCommentsByID(ctx, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, page.PageSize)
	assert.Equal(t, 0, page.TotalItems)
	assert.Equal(t, 0, page.TotalPages)
	assert.Empty(t, page.Items)
}

func TestServiceListCommentIDs(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t, allowAll)
	ctx := context.Background()

	repo := sqlite3.NewCommentRepository(db)

	parentID := "p000"
	seed := []*comments.Comment{
		{CommentID: "p000", ClaimID: "k1", Body: "top", Timestamp: 100},
		{CommentID: "r000", ClaimID: "k1", ParentID: &parentID, Body: "reply", Timestamp: 200},
	}

	for _, comment := range seed {
		err := repo.Insert(ctx, comment)
		require.NoError(t, err)
	}

	t.Run("whole thread without a parent filter", func(t *testing.T) {
		result, err := svc.ListCommentIDs(ctx, comments.ListCommentIDsRequest{ClaimID: "k1"})
		require.NoError(t, err)

		page, ok := result.(*comments.Page)
		require.True(t, ok)

		require.Len(t, page.Items, 2)
		assert.Equal(t, comments.Item{
			comments.FieldCommentID: "r000",
			comments.FieldParentID:  "p000",
		}, page.Items[0])
		assert.Equal(t, comments.Item{comments.FieldCommentID: "p000"}, page.Items[1])
	})

	t.Run("replies of a parent", func(t *testing.T) {
		result, err := svc.ListCommentIDs(ctx, comments.ListCommentIDsRequest{ClaimID: "k1", ParentID: "p000"})
		require.NoError(t, err)

		page, ok := result.(*comments.Page)
		require.True(t, ok)

		require.Len(t, page.Items, 1)
		assert.Equal(t, comments.Item{
			comments.FieldCommentID: "r000",
			comments.FieldParentID:  "p000",
		}, page.Items[0])
	})

	t.Run("flattened", func(t *testing.T) {
		result, err := svc.ListCommentIDs(ctx, comments.ListCommentIDsRequest{
			ClaimID:   "k1",
			ParentID:  "p000",
			Flattened: true,
		})
		require.NoError(t, err)

		page, ok := result.(*comments.FlattenedIDPage)
		require.True(t, ok)

		assert.Equal(t, []string{"r000"}, page.Items)
		require.Len(t, page.Replies, 1)
		assert.Equal(t, "r000", page.Replies[0].CommentID)
		require.NotNil(t, page.Replies[0].ParentID)
		assert.Equal(t, "p000", *page.Replies[0].ParentID)
	})
}
