package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/radiusdt/roas-attribution/internal/models"
)

// ClickHouseEventStore reads raw ad click events from the click_events
// table. The ingestion path materializes ipv4, ipv6 and a has_ad_id flag
// as columns so IP lookups and the tier-3 identifier restriction run
// server side; the original document is kept verbatim in payload.
type ClickHouseEventStore struct {
	conn driver.Conn
}

// NewClickHouseEventStore creates a click-event store over a ClickHouse
// connection.
func NewClickHouseEventStore(conn driver.Conn) *ClickHouseEventStore {
	return &ClickHouseEventStore{conn: conn}
}

func (s *ClickHouseEventStore) EventsByIP(ctx context.Context, version IPVersion, ip, userID string) ([]models.RawEvent, error) {
	return s.query(ctx, version, ip, userID, false)
}

func (s *ClickHouseEventStore) EventsWithAdIDByIP(ctx context.Context, version IPVersion, ip, userID string) ([]models.RawEvent, error) {
	return s.query(ctx, version, ip, userID, true)
}

func (s *ClickHouseEventStore) query(ctx context.Context, version IPVersion, ip, userID string, adIDOnly bool) ([]models.RawEvent, error) {
	field, err := ipField(version)
	if err != nil {
		return nil, err
	}

	q := fmt.Sprintf(`
		SELECT payload
		FROM click_events
		WHERE %s = ? AND roas_user_id = ?`, field)
	if adIDOnly {
		q += " AND has_ad_id = 1"
	}

	rows, err := s.conn.Query(ctx, q, ip, userID)
	if err != nil {
		return nil, fmt.Errorf("query click events by %s: %w", field, err)
	}
	defer rows.Close()

	var events []models.RawEvent
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan click event: %w", err)
		}
		var e models.RawEvent
		if err := json.Unmarshal([]byte(payload), &e); err != nil {
			return nil, fmt.Errorf("decode click event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}
