// README: Profile store backed by PostgreSQL.
package profile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"carpool/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Profile, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, display_name, gender,
		       pet_tolerant, has_pet, smoke_tolerant, smokes,
		       created_at, updated_at
		FROM profiles
		WHERE id = $1`, string(id))

	var p Profile
	var pid string
	err := row.Scan(
		&pid, &p.DisplayName, &p.Gender,
		&p.PetTolerant, &p.HasPet, &p.SmokeTolerant, &p.Smokes,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	p.ID = types.ID(pid)
	return &p, nil
}

func (s *Store) Upsert(ctx context.Context, p *Profile) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	_, err := s.db.Exec(ctx, `
		INSERT INTO profiles (
			id, display_name, gender,
			pet_tolerant, has_pet, smoke_tolerant, smokes,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			gender = EXCLUDED.gender,
			pet_tolerant = EXCLUDED.pet_tolerant,
			has_pet = EXCLUDED.has_pet,
			smoke_tolerant = EXCLUDED.smoke_tolerant,
			smokes = EXCLUDED.smokes,
			updated_at = EXCLUDED.updated_at`,
		string(p.ID), p.DisplayName, p.Gender,
		p.PetTolerant, p.HasPet, p.SmokeTolerant, p.Smokes,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}
