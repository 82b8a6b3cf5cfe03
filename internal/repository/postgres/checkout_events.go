package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jafarshop/storefront-checkout/internal/domain"
)

type checkoutEventRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCheckoutEventRepository creates a new checkout event repository
func NewCheckoutEventRepository(db *sql.DB, logger *zap.Logger) *checkoutEventRepository {
	return &checkoutEventRepository{
		db:     db,
		logger: logger,
	}
}

func (r *checkoutEventRepository) Create(ctx context.Context, event *domain.CheckoutEvent) error {
	query := `
		INSERT INTO checkout_events (id, order_id, customer_id, event_type, event_data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	var eventDataJSON []byte
	var err error
	if event.EventData != nil {
		eventDataJSON, err = json.Marshal(event.EventData)
		if err != nil {
			return err
		}
	}

	_, err = r.db.ExecContext(ctx, query,
		event.ID,
		nullString(event.OrderID),
		nullString(event.CustomerID),
		event.EventType,
		eventDataJSON,
		event.CreatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create checkout event", zap.String("event_type", event.EventType), zap.Error(err))
		return err
	}

	return nil
}

func (r *checkoutEventRepository) GetByOrderID(ctx context.Context, orderID string) ([]*domain.CheckoutEvent, error) {
	query := `
		SELECT id, order_id, customer_id, event_type, event_data, created_at
		FROM checkout_events
		WHERE order_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		r.logger.Error("Failed to get checkout events by order ID", zap.String("order_id", orderID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ListRecentByType returns the newest events of a type, newest first
func (r *checkoutEventRepository) ListRecentByType(ctx context.Context, eventType string, limit int) ([]*domain.CheckoutEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, order_id, customer_id, event_type, event_data, created_at
		FROM checkout_events
		WHERE event_type = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, eventType, limit)
	if err != nil {
		r.logger.Error("Failed to list checkout events", zap.String("event_type", eventType), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]*domain.CheckoutEvent, error) {
	var events []*domain.CheckoutEvent
	for rows.Next() {
		var event domain.CheckoutEvent
		var orderID, customerID sql.NullString
		var eventDataJSON []byte

		err := rows.Scan(
			&event.ID,
			&orderID,
			&customerID,
			&event.EventType,
			&eventDataJSON,
			&event.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		event.OrderID = orderID.String
		event.CustomerID = customerID.String

		if len(eventDataJSON) > 0 {
			if err := json.Unmarshal(eventDataJSON, &event.EventData); err != nil {
				return nil, err
			}
		}

		events = append(events, &event)
	}

	return events, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
