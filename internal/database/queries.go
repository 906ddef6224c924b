package database

// Message queries
const (
	insertMessageQuery = `
		INSERT INTO messages (sender_id, receiver_id, message_kind, payload, status)
		VALUES (?, ?, ?, ?, ?)
	`

	selectMessageByIDQuery = `
		SELECT id, sender_id, receiver_id, message_kind, payload, status,
		       created_at, updated_at
		FROM messages
		WHERE id = ?
	`

	// The status IN (...) clause carries every status ranking below the
	// target, so the update is a compare-and-set on rank.
	advanceMessageStatusQueryTmpl = `
		UPDATE messages
		SET status = ?
		WHERE id = ? AND receiver_id = ? AND status IN (%s)
	`

	selectQueuedMessagesQuery = `
		SELECT id, sender_id, message_kind, payload, created_at
		FROM messages
		WHERE receiver_id = ? AND status = 'queued'
		ORDER BY created_at ASC, id ASC
	`

	promoteMessagesByIDQueryTmpl = `
		UPDATE messages
		SET status = 'delivered'
		WHERE status = 'queued' AND id IN (%s)
	`

	promoteAllQueuedQuery = `
		UPDATE messages
		SET status = 'delivered'
		WHERE receiver_id = ? AND status = 'queued'
	`

	deleteMessageBySenderQuery = `
		DELETE FROM messages
		WHERE id = ? AND sender_id = ?
	`

	countStaleQueuedQuery = `
		SELECT COUNT(*)
		FROM messages
		WHERE status = 'queued' AND created_at < ?
	`

	deleteOldMessagesQuery = `
		DELETE FROM messages
		WHERE status IN ('delivered', 'read')
		  AND created_at < datetime('now', '-' || ? || ' days')
	`
)

// Presence queries
const (
	upsertUserOnlineQuery = `
		INSERT INTO users (id, is_online) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET
			is_online = excluded.is_online,
			updated_at = CURRENT_TIMESTAMP
	`

	selectUserOnlineQuery = `
		SELECT is_online FROM users WHERE id = ?
	`
)

// Relationship queries
const (
	upsertRelationshipQuery = `
		INSERT INTO relationships (owner_id, other_id, status) VALUES (?, ?, ?)
		ON CONFLICT(owner_id, other_id) DO UPDATE SET
			status = excluded.status,
			updated_at = CURRENT_TIMESTAMP
	`

	selectRelationshipStatusQuery = `
		SELECT status FROM relationships
		WHERE owner_id = ? AND other_id = ?
	`

	selectNonBlockedContactsQuery = `
		SELECT other_id FROM relationships
		WHERE owner_id = ? AND status != 'blocked'
	`
)

// Session queries
const (
	upsertSessionQuery = `
		INSERT INTO sessions (token, user_id, type, expires_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(token) DO UPDATE SET
			user_id = excluded.user_id,
			type = excluded.type,
			expires_at = excluded.expires_at
	`

	selectSessionUserQuery = `
		SELECT user_id FROM sessions
		WHERE token = ? AND type = ? AND expires_at > CURRENT_TIMESTAMP
	`

	deleteExpiredSessionsQuery = `
		DELETE FROM sessions WHERE expires_at <= CURRENT_TIMESTAMP
	`
)
