// README: Ride request store backed by PostgreSQL.
package ride

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"carpool/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

const requestColumns = `
	id, requester_id,
	origin_lat, origin_lng, origin_label,
	dest_lat, dest_lng, dest_label,
	depart_at, matched_with, total_fare, fare_share,
	gender, pet_tolerant, has_pet, smoke_tolerant, smokes,
	created_at`

// ReplaceForRequester deletes any prior request for the requester and inserts
// the new one in a single transaction, so a superseded request is never
// visible as a stale candidate to a concurrent matcher.
func (s *Store) ReplaceForRequester(ctx context.Context, r *Request) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM rides WHERE requester_id = $1`, string(r.RequesterID)); err != nil {
		return fmt.Errorf("delete prior request: %w", err)
	}

	var gender *string
	var petTolerant, hasPet, smokeTolerant, smokes *bool
	if r.Prefs != nil {
		gender = &r.Prefs.Gender
		petTolerant = &r.Prefs.PetTolerant
		hasPet = &r.Prefs.HasPet
		smokeTolerant = &r.Prefs.SmokeTolerant
		smokes = &r.Prefs.Smokes
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO rides (
			id, requester_id,
			origin_lat, origin_lng, origin_label,
			dest_lat, dest_lng, dest_label,
			depart_at, matched_with, total_fare, fare_share,
			gender, pet_tolerant, has_pet, smoke_tolerant, smokes,
			created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9,
			NULL, NULL, NULL,
			$10, $11, $12, $13, $14, $15
		)`,
		string(r.ID), string(r.RequesterID),
		r.Origin.Lat, r.Origin.Lng, nullableLabel(r.OriginLabel),
		r.Destination.Lat, r.Destination.Lng, nullableLabel(r.DestinationLabel),
		r.DepartAt.UTC(),
		gender, petTolerant, hasPet, smokeTolerant, smokes,
		r.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert request: %w", err)
	}
	return tx.Commit(ctx)
}

// DeleteAllForRequester removes the requester's requests and returns the
// counterpart identities of any that were matched, so the caller can repair
// the now one-sided pairings.
func (s *Store) DeleteAllForRequester(ctx context.Context, requester types.ID) ([]types.ID, error) {
	rows, err := s.db.Query(ctx,
		`DELETE FROM rides WHERE requester_id = $1 RETURNING matched_with`, string(requester))
	if err != nil {
		return nil, fmt.Errorf("delete requests: %w", err)
	}
	defer rows.Close()

	var counterparts []types.ID
	for rows.Next() {
		var matched *string
		if err := rows.Scan(&matched); err != nil {
			return nil, err
		}
		if matched != nil && *matched != "" {
			counterparts = append(counterparts, types.ID(*matched))
		}
	}
	return counterparts, rows.Err()
}

// FindUnmatchedExcluding returns all unmatched requests from other requesters
// in creation order. A row that fails to scan is skipped rather than aborting
// the whole candidate set.
func (s *Store) FindUnmatchedExcluding(ctx context.Context, requester types.ID) ([]Request, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+requestColumns+`
		FROM rides
		WHERE matched_with IS NULL AND requester_id <> $1
		ORDER BY created_at, id`, string(requester))
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	var out []Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			log.Warn().Err(err).Msg("skipping malformed ride candidate")
			continue
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// ConditionalSetMatch pairs the requester's record with the counterpart only
// if the record is still unmatched. Returns false when the record was already
// claimed or no longer exists.
func (s *Store) ConditionalSetMatch(ctx context.Context, requester, counterpart types.ID, total, share types.Money) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE rides
		SET matched_with = $2, total_fare = $3, fare_share = $4
		WHERE requester_id = $1 AND matched_with IS NULL`,
		string(requester), string(counterpart), total.Amount, share.Amount)
	if err != nil {
		return false, fmt.Errorf("conditional match: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ClearMatch undoes a pairing on the requester's record, but only if it still
// names the given counterpart.
func (s *Store) ClearMatch(ctx context.Context, requester, counterpart types.ID) error {
	_, err := s.db.Exec(ctx, `
		UPDATE rides
		SET matched_with = NULL, total_fare = NULL, fare_share = NULL
		WHERE requester_id = $1 AND matched_with = $2`,
		string(requester), string(counterpart))
	if err != nil {
		return fmt.Errorf("clear match: %w", err)
	}
	return nil
}

// FindByRequester returns the requester's active request.
func (s *Store) FindByRequester(ctx context.Context, requester types.ID) (*Request, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+requestColumns+`
		FROM rides
		WHERE requester_id = $1`, string(requester))
	r, err := scanRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find request: %w", err)
	}
	return r, nil
}

func scanRequest(row pgx.Row) (*Request, error) {
	var r Request
	var id, requester string
	var originLabel, destLabel, matchedWith, gender *string
	var totalFare, fareShare *int64
	var petTolerant, hasPet, smokeTolerant, smokes *bool

	err := row.Scan(
		&id, &requester,
		&r.Origin.Lat, &r.Origin.Lng, &originLabel,
		&r.Destination.Lat, &r.Destination.Lng, &destLabel,
		&r.DepartAt, &matchedWith, &totalFare, &fareShare,
		&gender, &petTolerant, &hasPet, &smokeTolerant, &smokes,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.ID = types.ID(id)
	r.RequesterID = types.ID(requester)
	r.DepartAt = r.DepartAt.UTC()
	if originLabel != nil {
		r.OriginLabel = *originLabel
	}
	if destLabel != nil {
		r.DestinationLabel = *destLabel
	}
	if matchedWith != nil {
		m := types.ID(*matchedWith)
		r.MatchedWith = &m
	}
	if totalFare != nil {
		r.TotalFare = &types.Money{Amount: *totalFare, Currency: "TWD"}
	}
	if fareShare != nil {
		r.Share = &types.Money{Amount: *fareShare, Currency: "TWD"}
	}
	if gender != nil {
		r.Prefs = &Preferences{Gender: *gender}
		if petTolerant != nil {
			r.Prefs.PetTolerant = *petTolerant
		}
		if hasPet != nil {
			r.Prefs.HasPet = *hasPet
		}
		if smokeTolerant != nil {
			r.Prefs.SmokeTolerant = *smokeTolerant
		}
		if smokes != nil {
			r.Prefs.Smokes = *smokes
		}
	}
	return &r, nil
}

func nullableLabel(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
