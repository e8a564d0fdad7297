package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/radiusdt/roas-attribution/internal/dates"
	"github.com/radiusdt/roas-attribution/internal/models"
)

// PostgresFunnelStore reads funnel-platform events from the funnel_events
// table. Each row keeps the original document verbatim in a jsonb payload
// column; the extracted user_id, email and timestamp columns exist only
// for indexing.
type PostgresFunnelStore struct {
	pool *pgxpool.Pool
}

// NewPostgresFunnelStore creates a funnel store over a pgx pool.
func NewPostgresFunnelStore(pool *pgxpool.Pool) *PostgresFunnelStore {
	return &PostgresFunnelStore{pool: pool}
}

func (s *PostgresFunnelStore) EventsByUserInWindow(ctx context.Context, userID string, w dates.Window) ([]models.RawEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT payload
		FROM funnel_events
		WHERE user_id = $1
		  AND updated_at_unix_timestamp > $2
		  AND updated_at_unix_timestamp < $3`,
		userID, w.Start, w.End,
	)
	if err != nil {
		return nil, fmt.Errorf("query funnel events by window: %w", err)
	}
	return scanEvents(rows)
}

func (s *PostgresFunnelStore) EventsByEmail(ctx context.Context, email string) ([]models.RawEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT payload
		FROM funnel_events
		WHERE email = $1`,
		email,
	)
	if err != nil {
		return nil, fmt.Errorf("query funnel events by email: %w", err)
	}
	return scanEvents(rows)
}

func (s *PostgresFunnelStore) EventsByIP(ctx context.Context, version IPVersion, ip, userID string) ([]models.RawEvent, error) {
	field, err := ipField(version)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT payload
		FROM funnel_events
		WHERE user_id = $1
		  AND payload->>'%s' = $2`, field),
		userID, ip,
	)
	if err != nil {
		return nil, fmt.Errorf("query funnel events by %s: %w", field, err)
	}
	return scanEvents(rows)
}

func ipField(version IPVersion) (string, error) {
	switch version {
	case IPv4, IPv6:
		return string(version), nil
	}
	return "", fmt.Errorf("unknown ip version %q", version)
}

// scanEvents decodes jsonb payload rows into raw events.
func scanEvents(rows pgx.Rows) ([]models.RawEvent, error) {
	defer rows.Close()

	var events []models.RawEvent
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan payload: %w", err)
		}
		var e models.RawEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// PostgresCredentialStore reads ad-platform integration credentials from
// the integrations table.
type PostgresCredentialStore struct {
	pool *pgxpool.Pool
}

// NewPostgresCredentialStore creates a credential store over a pgx pool.
func NewPostgresCredentialStore(pool *pgxpool.Pool) *PostgresCredentialStore {
	return &PostgresCredentialStore{pool: pool}
}

func (s *PostgresCredentialStore) IntegrationCredentials(ctx context.Context, userID, accountName string) (*models.Credentials, error) {
	var creds models.Credentials
	err := s.pool.QueryRow(ctx, `
		SELECT user_id, account_name, access_token
		FROM integrations
		WHERE user_id = $1 AND account_name = $2
		LIMIT 1`,
		userID, accountName,
	).Scan(&creds.UserID, &creds.AccountName, &creds.AccessToken)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query integration credentials: %w", err)
	}
	return &creds, nil
}
