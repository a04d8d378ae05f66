package repository

import (
	"context"

	"github.com/Misikirayu/mate-finder/internal/models"
	"github.com/jackc/pgx/v5"
)

const messageColumns = `id, sender_id, receiver_id, content, seen, reaction, created_at`

type MessageRepository struct {
	db DBTX
}

func NewMessageRepository(db DBTX) *MessageRepository {
	return &MessageRepository{db: db}
}

func scanMessage(row pgx.Row, message *models.Message) error {
	return row.Scan(
		&message.ID,
		&message.SenderID,
		&message.ReceiverID,
		&message.Content,
		&message.Seen,
		&message.Reaction,
		&message.CreatedAt,
	)
}

func (r *MessageRepository) Create(
	ctx context.Context,
	senderID int64,
	receiverID int64,
	content string,
) (*models.Message, error) {
	query := `
		INSERT INTO messages (sender_id, receiver_id, content, seen)
		VALUES ($1, $2, $3, FALSE)
		RETURNING ` + messageColumns

	var message models.Message
	if err := scanMessage(r.db.QueryRow(ctx, query, senderID, receiverID, content), &message); err != nil {
		return nil, err
	}
	return &message, nil
}

func (r *MessageRepository) GetByID(ctx context.Context, id int64) (*models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = $1`

	var message models.Message
	if err := scanMessage(r.db.QueryRow(ctx, query, id), &message); err != nil {
		return nil, err
	}
	return &message, nil
}

// ListConversation returns the whole history between two users in either
// direction. id breaks ties between rows sharing a timestamp.
func (r *MessageRepository) ListConversation(ctx context.Context, userA int64, userB int64) ([]models.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE (sender_id = $1 AND receiver_id = $2)
		   OR (sender_id = $2 AND receiver_id = $1)
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.Query(ctx, query, userA, userB)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		var message models.Message
		if err := scanMessage(rows, &message); err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}

// MarkSeen flips every unseen message from senderID to receiverID and
// reports how many rows changed.
func (r *MessageRepository) MarkSeen(ctx context.Context, senderID int64, receiverID int64) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE messages
		SET seen = TRUE
		WHERE sender_id = $1
		  AND receiver_id = $2
		  AND seen = FALSE
	`, senderID, receiverID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *MessageRepository) UnreadCounts(ctx context.Context, receiverID int64) (models.UnreadCounts, error) {
	rows, err := r.db.Query(ctx, `
		SELECT sender_id, COUNT(*)
		FROM messages
		WHERE receiver_id = $1
		  AND seen = FALSE
		GROUP BY sender_id
	`, receiverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(models.UnreadCounts)
	for rows.Next() {
		var senderID int64
		var count int
		if err := rows.Scan(&senderID, &count); err != nil {
			return nil, err
		}
		counts[senderID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return counts, nil
}

// SetReaction overwrites the reaction and returns the updated row, or
// pgx.ErrNoRows when the message does not exist.
func (r *MessageRepository) SetReaction(ctx context.Context, id int64, reaction string) (*models.Message, error) {
	query := `
		UPDATE messages
		SET reaction = $2
		WHERE id = $1
		RETURNING ` + messageColumns

	var message models.Message
	if err := scanMessage(r.db.QueryRow(ctx, query, id, reaction), &message); err != nil {
		return nil, err
	}
	return &message, nil
}
