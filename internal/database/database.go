package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"chatrelay/internal/migrations"
	"chatrelay/internal/models"
	"chatrelay/internal/security"

	_ "github.com/mattn/go-sqlite3"
)

// Database is the durable store for messages, relationships, sessions and
// the presence flag. Message payloads are opaque blobs; they can optionally
// be encrypted at rest but are never inspected.
type Database struct {
	db        *sql.DB
	encryptor *encryptor
}

func New(dbPath string) (*Database, error) {
	if len(dbPath) == 0 || dbPath[0] == '\x00' {
		return nil, fmt.Errorf("invalid database path")
	}

	// In-memory databases are used by tests; file paths are validated to
	// prevent directory traversal.
	if dbPath != ":memory:" && !strings.HasPrefix(dbPath, "file:") {
		if err := security.ValidateFilePath(dbPath); err != nil {
			return nil, fmt.Errorf("invalid database path: %w", err)
		}
		file, err := os.OpenFile(dbPath, os.O_RDWR|os.O_CREATE, 0600)
		if err != nil {
			return nil, fmt.Errorf("failed to create database file: %w", err)
		}
		if err := file.Close(); err != nil {
			return nil, fmt.Errorf("failed to close database file: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to ping database: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(migrations.GetInitialSchema()); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to initialize schema: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	encryptor, err := NewEncryptor()
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to initialize encryptor: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to initialize encryptor: %w", err)
	}

	return &Database{db: db, encryptor: encryptor}, nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

// Message operations

// SaveMessage persists a message and assigns its durable identifier. The
// caller decides the initial status (queued or delivered) based on receiver
// presence at persist time.
func (d *Database) SaveMessage(ctx context.Context, msg *models.Message) error {
	encryptedPayload, err := d.encryptor.EncryptIfEnabled(msg.Payload)
	if err != nil {
		return fmt.Errorf("failed to encrypt payload: %w", err)
	}

	var id int64
	err = retryableDBOperation(ctx, func() error {
		result, execErr := d.db.ExecContext(ctx, insertMessageQuery,
			msg.SenderID, msg.ReceiverID, msg.Kind, encryptedPayload, msg.Status)
		if execErr != nil {
			return execErr
		}
		id, execErr = result.LastInsertId()
		return execErr
	}, "save message")
	if err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}

	msg.ID = id
	return nil
}

// GetMessage retrieves a message by its durable identifier. Returns nil
// without error when no such message exists.
func (d *Database) GetMessage(ctx context.Context, id int64) (*models.Message, error) {
	msg := &models.Message{}
	var encryptedPayload string

	err := d.db.QueryRowContext(ctx, selectMessageByIDQuery, id).Scan(
		&msg.ID, &msg.SenderID, &msg.ReceiverID, &msg.Kind,
		&encryptedPayload, &msg.Status, &msg.CreatedAt, &msg.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}

	msg.Payload, err = d.encryptor.DecryptIfEnabled(encryptedPayload)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt payload: %w", err)
	}
	return msg, nil
}

// AdvanceMessageStatus is a compare-and-set on the delivery status rank.
// The update applies only when the stored status ranks strictly below the
// new one, which makes the real-time ack path and the offline reconciliation
// path safely commutative: a stray delivered ack arriving after read is a
// no-op. Returns whether the status actually advanced.
func (d *Database) AdvanceMessageStatus(ctx context.Context, id, receiverID int64, status models.MessageStatus) (bool, error) {
	if !status.Valid() {
		return false, fmt.Errorf("invalid message status: %q", status)
	}

	lower := lowerStatuses(status)
	if len(lower) == 0 {
		return false, nil
	}

	query := fmt.Sprintf(advanceMessageStatusQueryTmpl, placeholders(len(lower)))
	args := make([]interface{}, 0, len(lower)+3)
	args = append(args, status, id, receiverID)
	for _, s := range lower {
		args = append(args, s)
	}

	var advanced bool
	err := retryableDBOperation(ctx, func() error {
		result, execErr := d.db.ExecContext(ctx, query, args...)
		if execErr != nil {
			return execErr
		}
		rows, execErr := result.RowsAffected()
		if execErr != nil {
			return execErr
		}
		advanced = rows > 0
		return nil
	}, "advance message status")
	if err != nil {
		return false, fmt.Errorf("failed to advance message status: %w", err)
	}
	return advanced, nil
}

// FetchAndPromoteQueued returns all queued messages for a receiver in
// creation order and promotes them to delivered in the same transaction.
// Calling it twice in a row returns the set once and then nothing.
func (d *Database) FetchAndPromoteQueued(ctx context.Context, receiverID int64) ([]models.OfflineMessage, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, selectQueuedMessagesQuery, receiverID)
	if err != nil {
		return nil, fmt.Errorf("failed to query queued messages: %w", err)
	}

	var messages []models.OfflineMessage
	var ids []interface{}
	for rows.Next() {
		var m models.OfflineMessage
		var encryptedPayload string
		if err := rows.Scan(&m.ID, &m.SenderID, &m.MessageKind, &encryptedPayload, &m.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan queued message: %w", err)
		}
		m.Payload, err = d.encryptor.DecryptIfEnabled(encryptedPayload)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to decrypt payload: %w", err)
		}
		messages = append(messages, m)
		ids = append(ids, m.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate queued messages: %w", err)
	}

	if len(ids) > 0 {
		query := fmt.Sprintf(promoteMessagesByIDQueryTmpl, placeholders(len(ids)))
		if _, err := tx.ExecContext(ctx, query, ids...); err != nil {
			return nil, fmt.Errorf("failed to promote queued messages: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit fetch-and-promote: %w", err)
	}
	return messages, nil
}

// PromoteAllQueued flips every queued message for a receiver to delivered
// without returning content. Used as a lightweight receipt sweep.
func (d *Database) PromoteAllQueued(ctx context.Context, receiverID int64) (int64, error) {
	var count int64
	err := retryableDBOperation(ctx, func() error {
		result, execErr := d.db.ExecContext(ctx, promoteAllQueuedQuery, receiverID)
		if execErr != nil {
			return execErr
		}
		count, execErr = result.RowsAffected()
		return execErr
	}, "promote all queued")
	if err != nil {
		return 0, fmt.Errorf("failed to promote queued messages: %w", err)
	}
	return count, nil
}

// DeleteMessageFrom hard-deletes a message if and only if requesterID is
// its original sender. Returns whether a row was removed.
func (d *Database) DeleteMessageFrom(ctx context.Context, id, requesterID int64) (bool, error) {
	var deleted bool
	err := retryableDBOperation(ctx, func() error {
		result, execErr := d.db.ExecContext(ctx, deleteMessageBySenderQuery, id, requesterID)
		if execErr != nil {
			return execErr
		}
		rows, execErr := result.RowsAffected()
		if execErr != nil {
			return execErr
		}
		deleted = rows > 0
		return nil
	}, "delete message")
	if err != nil {
		return false, fmt.Errorf("failed to delete message: %w", err)
	}
	return deleted, nil
}

// GetQueuedBacklogCount counts messages sitting in queued status longer
// than the threshold.
func (d *Database) GetQueuedBacklogCount(ctx context.Context, threshold time.Duration) (int, error) {
	var count int
	cutoff := time.Now().UTC().Add(-threshold)
	err := d.db.QueryRowContext(ctx, countStaleQueuedQuery, cutoff).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count queued backlog: %w", err)
	}
	return count, nil
}

// CleanupOldMessages removes delivered and read messages older than the
// retention window. Queued messages are never purged; they are still owed
// to their receiver.
func (d *Database) CleanupOldMessages(retentionDays int) error {
	if _, err := d.db.Exec(deleteOldMessagesQuery, retentionDays); err != nil {
		return fmt.Errorf("failed to cleanup old messages: %w", err)
	}
	return nil
}

// Presence operations

// SetUserOnline persists the presence flag. The flag is derived state: a
// user is online iff the connection registry holds a live connection.
func (d *Database) SetUserOnline(ctx context.Context, userID int64, online bool) error {
	_, err := d.db.ExecContext(ctx, upsertUserOnlineQuery, userID, online)
	if err != nil {
		return fmt.Errorf("failed to update online flag: %w", err)
	}
	return nil
}

// IsUserOnline reads the persisted presence flag. Unknown users are
// reported offline.
func (d *Database) IsUserOnline(ctx context.Context, userID int64) (bool, error) {
	var online bool
	err := d.db.QueryRowContext(ctx, selectUserOnlineQuery, userID).Scan(&online)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read online flag: %w", err)
	}
	return online, nil
}

// Relationship operations. Row lifecycle belongs to the external contact
// system; SaveRelationship exists for that system and for tests.

func (d *Database) SaveRelationship(ctx context.Context, rel *models.Relationship) error {
	_, err := d.db.ExecContext(ctx, upsertRelationshipQuery, rel.OwnerID, rel.OtherID, rel.Status)
	if err != nil {
		return fmt.Errorf("failed to save relationship: %w", err)
	}
	return nil
}

// GetRelationshipStatus returns the owner's view of another user. The
// second return value reports whether a relationship row exists at all.
func (d *Database) GetRelationshipStatus(ctx context.Context, ownerID, otherID int64) (models.RelationshipStatus, bool, error) {
	var status models.RelationshipStatus
	err := d.db.QueryRowContext(ctx, selectRelationshipStatusQuery, ownerID, otherID).Scan(&status)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get relationship: %w", err)
	}
	return status, true, nil
}

// GetNonBlockedContactIDs returns the ids of every user in the owner's
// relationship table whose status is not blocked.
func (d *Database) GetNonBlockedContactIDs(ctx context.Context, ownerID int64) ([]int64, error) {
	rows, err := d.db.QueryContext(ctx, selectNonBlockedContactsQuery, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query contacts: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan contact id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contacts: %w", err)
	}
	return ids, nil
}

// Session operations

// GetSessionUserID resolves an opaque session token to a user id. Expired
// tokens resolve to nothing. The second return value reports validity.
func (d *Database) GetSessionUserID(ctx context.Context, token, sessionType string) (int64, bool, error) {
	var userID int64
	err := d.db.QueryRowContext(ctx, selectSessionUserQuery, token, sessionType).Scan(&userID)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to look up session: %w", err)
	}
	return userID, true, nil
}

func (d *Database) SaveSession(ctx context.Context, token string, userID int64, sessionType string, expiresAt time.Time) error {
	_, err := d.db.ExecContext(ctx, upsertSessionQuery, token, userID, sessionType, expiresAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions purges sessions past their expiry.
func (d *Database) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	result, err := d.db.ExecContext(ctx, deleteExpiredSessionsQuery)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return result.RowsAffected()
}

// lowerStatuses returns every valid status ranking strictly below s.
func lowerStatuses(s models.MessageStatus) []models.MessageStatus {
	all := []models.MessageStatus{
		models.MessageStatusQueued,
		models.MessageStatusDelivered,
		models.MessageStatusRead,
	}
	var lower []models.MessageStatus
	for _, candidate := range all {
		if candidate.Before(s) {
			lower = append(lower, candidate)
		}
	}
	return lower
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
