package contacts

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const contactSchema = `
CREATE TABLE IF NOT EXISTS contacts (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	channel TEXT NOT NULL,
	address TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_contacts_name_channel ON contacts (LOWER(name), channel);

CREATE TABLE IF NOT EXISTS distribution_lists (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_distribution_lists_name ON distribution_lists (LOWER(name));

CREATE TABLE IF NOT EXISTS distribution_list_members (
	list_id UUID NOT NULL REFERENCES distribution_lists(id) ON DELETE CASCADE,
	contact_id UUID NOT NULL REFERENCES contacts(id) ON DELETE CASCADE,
	PRIMARY KEY (list_id, contact_id)
);
`

// PostgresStore persists the distribution directory in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, contactSchema); err != nil {
		return fmt.Errorf("ensure contact schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Upsert(ctx context.Context, contact *Contact) (*Contact, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO contacts (id, name, channel, address, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (LOWER(name), channel)
		DO UPDATE SET address = EXCLUDED.address
		RETURNING id, name, channel, address, created_at`,
		contact.ID, contact.Name, string(contact.Channel), contact.Address, contact.CreatedAt,
	)
	stored, err := scanContact(row)
	if err != nil {
		return nil, fmt.Errorf("upsert contact: %w", err)
	}
	return stored, nil
}

func (s *PostgresStore) List(ctx context.Context, channel Channel) ([]*Contact, error) {
	query := `SELECT id, name, channel, address, created_at FROM contacts`
	args := []any{}
	if channel != "" {
		query += ` WHERE channel = $1`
		args = append(args, string(channel))
	}
	query += ` ORDER BY LOWER(name), channel`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	var out []*Contact
	for rows.Next() {
		contact, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		out = append(out, contact)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM contacts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CreateList(ctx context.Context, list *DistributionList) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create list: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO distribution_lists (id, name, created_at)
		VALUES ($1, $2, $3)`,
		list.ID, list.Name, list.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrListNameTaken
		}
		return fmt.Errorf("insert list: %w", err)
	}

	for _, contactID := range list.ContactIDs {
		_, err = tx.Exec(ctx, `
			INSERT INTO distribution_list_members (list_id, contact_id)
			VALUES ($1, $2)`,
			list.ID, contactID,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			// 23503: the referenced contact does not exist.
			if errors.As(err, &pgErr) && pgErr.Code == "23503" {
				return ErrNotFound
			}
			return fmt.Errorf("insert list member: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit create list: %w", err)
	}
	return nil
}

func (s *PostgresStore) Lists(ctx context.Context) ([]*DistributionList, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT l.id, l.name, l.created_at,
			COALESCE(ARRAY_AGG(m.contact_id) FILTER (WHERE m.contact_id IS NOT NULL), '{}')
		FROM distribution_lists l
		LEFT JOIN distribution_list_members m ON m.list_id = l.id
		GROUP BY l.id, l.name, l.created_at
		ORDER BY LOWER(l.name)`)
	if err != nil {
		return nil, fmt.Errorf("list distribution lists: %w", err)
	}
	defer rows.Close()

	var out []*DistributionList
	for rows.Next() {
		var list DistributionList
		if err := rows.Scan(&list.ID, &list.Name, &list.CreatedAt, &list.ContactIDs); err != nil {
			return nil, fmt.Errorf("scan distribution list: %w", err)
		}
		list.CreatedAt = list.CreatedAt.UTC()
		out = append(out, &list)
	}
	return out, rows.Err()
}

func (s *PostgresStore) DeleteList(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM distribution_lists WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete distribution list: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrListNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContact(row rowScanner) (*Contact, error) {
	var contact Contact
	var channel string
	if err := row.Scan(&contact.ID, &contact.Name, &channel, &contact.Address, &contact.CreatedAt); err != nil {
		return nil, err
	}
	contact.Channel = Channel(channel)
	contact.CreatedAt = contact.CreatedAt.UTC()
	return &contact, nil
}
