package sqlite3

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/nasermirzaei89/talkback/comments"
)

const (
	channelFieldClaimID = "claim_id"
	channelFieldName    = "name"
)

type ChannelRepository struct {
	db *sql.DB
}

var _ comments.ChannelRepository = (*ChannelRepository)(nil)

func NewChannelRepository(db *sql.DB) *ChannelRepository {
	return &ChannelRepository{db: db}
}

func channelColumns() []string {
	return []string{
		channelFieldClaimID,
		channelFieldName,
	}
}

func scanChannel(row sq.RowScanner) (*comments.Channel, error) {
	var channel comments.Channel

	err := row.Scan(
		&channel.ClaimID,
		&channel.Name,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	return &channel, nil
}

func (repo *ChannelRepository) Insert(ctx context.Context, channel *comments.Channel) error {
	q := sq.Insert(tableChannels).
		Columns(channelColumns()...).
		Values(channel.ClaimID, channel.Name)

	q = q.RunWith(repo.db)

	_, err := q.ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to exec insert: %w", err)
	}

	return nil
}

func (repo *ChannelRepository) Find(ctx context.Context, claimID string) (*comments.Channel, error) {
	q := sq.Select(channelColumns()...).
		From(tableChannels).
		Where(sq.Eq{channelFieldClaimID: claimID})

	q = q.RunWith(repo.db)

	row := q.QueryRowContext(ctx)

	channel, err := scanChannel(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &comments.ChannelNotFoundError{ClaimID: claimID}
		}

		return nil, fmt.Errorf("failed to scan channel: %w", err)
	}

	return channel, nil
}
