package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/whenfree/libs/db"
	"github.com/md-rashed-zaman/whenfree/services/freetime-service/internal/model"
)

type CalendarRepository struct {
	pool *db.Pool
}

func NewCalendarRepository(pool *db.Pool) *CalendarRepository {
	return &CalendarRepository{pool: pool}
}

func (r *CalendarRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// ReplaceParticipantDay registers the participant in the group and swaps
// their stored events for the day in one transaction. An empty events
// slice registers a participant who is free for the whole day.
func (r *CalendarRepository) ReplaceParticipantDay(ctx context.Context, tx pgx.Tx, groupID, participantID string, day time.Time, events []model.BusyEvent) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO group_participants (group_id, participant_id)
		VALUES ($1, $2)
		ON CONFLICT (group_id, participant_id) DO NOTHING
	`, groupID, participantID)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		DELETE FROM busy_events
		WHERE group_id = $1 AND participant_id = $2 AND day = $3
	`, groupID, participantID, day)
	if err != nil {
		return err
	}

	for _, ev := range events {
		_, err = tx.Exec(ctx, `
			INSERT INTO busy_events (id, group_id, participant_id, day, start_minute, end_minute)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, ev.ID, ev.GroupID, ev.ParticipantID, ev.Day, ev.StartMinute, ev.EndMinute)
		if err != nil {
			return err
		}
	}
	return nil
}

// ListParticipants returns every participant registered in the group,
// in id order. Participants without stored events still appear.
func (r *CalendarRepository) ListParticipants(ctx context.Context, groupID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT participant_id
		FROM group_participants
		WHERE group_id = $1
		ORDER BY participant_id
	`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return ids, nil
}

func (r *CalendarRepository) ListDayEvents(ctx context.Context, groupID string, day time.Time) ([]model.BusyEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, group_id, participant_id, day, start_minute, end_minute
		FROM busy_events
		WHERE group_id = $1 AND day = $2
		ORDER BY participant_id, start_minute
	`, groupID, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.BusyEvent
	for rows.Next() {
		var ev model.BusyEvent
		if err := rows.Scan(&ev.ID, &ev.GroupID, &ev.ParticipantID, &ev.Day, &ev.StartMinute, &ev.EndMinute); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return events, nil
}
