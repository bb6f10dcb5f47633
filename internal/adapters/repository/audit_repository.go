package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/sony/gobreaker"

	"github.com/tambongslade/SMS-Simbtech-sub004/internal/config"
	"github.com/tambongslade/SMS-Simbtech-sub004/internal/core/ports"
)

// PostgresAuditRepository records authentication activity. Session events are
// inserted together with their outbox row in one transaction; a database
// trigger on outbox_events NOTIFYs the relay, which publishes to RabbitMQ.
type PostgresAuditRepository struct {
	db *sql.DB
	cb *gobreaker.CircuitBreaker
}

var _ ports.AuditRepository = (*PostgresAuditRepository)(nil)

func NewPostgresAuditRepository(db *sql.DB) *PostgresAuditRepository {
	return &PostgresAuditRepository{
		db: db,
		cb: config.NewCircuitBreaker("PostgreSQL-Audit"),
	}
}

func (r *PostgresAuditRepository) RecordLoginAttempt(ctx context.Context, attempt ports.LoginAttempt) error {
	_, err := r.cb.Execute(func() (interface{}, error) {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO auth_audit (id, kind, identifier, succeeded, reason, occurred_at)
			 VALUES ($1, 'login_attempt', $2, $3, $4, $5)`,
			attempt.ID,
			attempt.Identifier,
			attempt.Succeeded,
			attempt.Reason,
			attempt.OccurredAt,
		)
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("record login attempt: %w", err)
	}
	return nil
}

func (r *PostgresAuditRepository) RecordSessionEvent(ctx context.Context, evt ports.SessionEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode session event: %w", err)
	}

	_, err = r.cb.Execute(func() (interface{}, error) {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, err
		}
		defer tx.Rollback()

		_, err = tx.ExecContext(ctx,
			`INSERT INTO auth_audit (id, kind, identifier, succeeded, reason, occurred_at)
			 VALUES ($1, $2, $3, TRUE, $4, $5)`,
			evt.EventID,
			evt.Type,
			evt.Role,
			evt.Reason,
			evt.OccurredAt,
		)
		if err != nil {
			return nil, err
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO outbox_events (id, event_type, payload, created_at)
			 VALUES ($1, $2, $3, $4)`,
			evt.EventID,
			evt.Type,
			payload,
			evt.OccurredAt,
		)
		if err != nil {
			return nil, err
		}

		return nil, tx.Commit()
	})
	if err != nil {
		return fmt.Errorf("record session event: %w", err)
	}
	return nil
}
