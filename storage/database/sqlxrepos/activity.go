package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/mergington/core/activity"
)

type (
	activityRow struct {
		Name            string `db:"name"`
		Description     string `db:"description"`
		Schedule        string `db:"schedule"`
		MaxParticipants int    `db:"max_participants"`
	}

	participantRow struct {
		ActivityName string `db:"activity_name"`
		Email        string `db:"email"`
	}

	activityRepository struct {
		db *sqlx.DB
	}
)

var _ activity.Repository = (*activityRepository)(nil)

func NewActivityRepository(db *sqlx.DB) activity.Repository {
	return &activityRepository{db: db}
}

func (row activityRow) toActivity(participants []string) activity.Activity {
	if participants == nil {
		participants = make([]string, 0)
	}
	return activity.Activity{
		Name:            row.Name,
		Description:     row.Description,
		Schedule:        row.Schedule,
		MaxParticipants: row.MaxParticipants,
		Participants:    participants,
	}
}

// withTx runs `fn` in a transaction, committed only if `fn` succeeds.
func (repo *activityRepository) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

func (repo *activityRepository) Seed(ctx context.Context, activities []activity.Activity) error {
	seededAt := time.Now().UTC()
	return repo.withTx(ctx, func(tx *sqlx.Tx) error {
		insertActivity := tx.Rebind(`
			INSERT INTO activities (name, description, schedule, max_participants, position)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (name) DO NOTHING`)
		insertParticipant := tx.Rebind(`
			INSERT INTO participants (activity_name, email, signed_up_at)
			VALUES (?, ?, ?)
			ON CONFLICT (activity_name, email) DO NOTHING`)

		for pos, act := range activities {
			res, err := tx.ExecContext(ctx, insertActivity, act.Name, act.Description, act.Schedule, act.MaxParticipants, pos)
			if err != nil {
				return errors.Wrapf(err, "inserting activity %q", act.Name)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return errors.Wrapf(err, "counting inserted activities for %q", act.Name)
			}
			// keep the rosters of activities seeded by a previous run
			if n == 0 {
				continue
			}
			for i, email := range act.Participants {
				// preserve the roster order of the definition
				at := seededAt.Add(time.Duration(i) * time.Microsecond)
				if _, err = tx.ExecContext(ctx, insertParticipant, act.Name, email, at); err != nil {
					return errors.Wrapf(err, "inserting participant of %q", act.Name)
				}
			}
		}
		return nil
	})
}

func (repo *activityRepository) queryParticipants(ctx context.Context, names ...string) (map[string][]string, error) {
	query, args, err := sqlx.In(`
		SELECT activity_name, email FROM participants
		WHERE activity_name IN (?)
		ORDER BY signed_up_at, email`, names)
	if err != nil {
		return nil, errors.Wrap(err, "building participants query")
	}

	var rows []participantRow
	if err = repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "selecting participants")
	}
	participants := make(map[string][]string, len(names))
	for _, row := range rows {
		participants[row.ActivityName] = append(participants[row.ActivityName], row.Email)
	}
	return participants, nil
}

func (repo *activityRepository) QueryAll(ctx context.Context) ([]activity.Activity, error) {
	var rows []activityRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT name, description, schedule, max_participants FROM activities
		ORDER BY position, name`)
	if err != nil {
		return nil, errors.Wrap(err, "selecting activities")
	}
	if len(rows) == 0 {
		return []activity.Activity{}, nil
	}

	names := make([]string, 0, len(rows))
	for _, row := range rows {
		names = append(names, row.Name)
	}
	participants, err := repo.queryParticipants(ctx, names...)
	if err != nil {
		return nil, err
	}

	activities := make([]activity.Activity, 0, len(rows))
	for _, row := range rows {
		activities = append(activities, row.toActivity(participants[row.Name]))
	}
	return activities, nil
}

func (repo *activityRepository) GetActivity(ctx context.Context, name string) (activity.Activity, error) {
	var row activityRow
	err := repo.db.GetContext(ctx, &row, repo.db.Rebind(`
		SELECT name, description, schedule, max_participants FROM activities
		WHERE name = ?`), name)
	if err != nil {
		if err == sql.ErrNoRows {
			return activity.Activity{}, activity.ErrNotFound
		}
		return activity.Activity{}, errors.Wrap(err, "selecting activity")
	}

	participants, err := repo.queryParticipants(ctx, name)
	if err != nil {
		return activity.Activity{}, err
	}
	return row.toActivity(participants[name]), nil
}

func (repo *activityRepository) AddParticipant(ctx context.Context, name, email string, at time.Time) error {
	return repo.withTx(ctx, func(tx *sqlx.Tx) error {
		var count int
		err := tx.GetContext(ctx, &count, tx.Rebind(`SELECT COUNT(*) FROM activities WHERE name = ?`), name)
		if err != nil {
			return errors.Wrap(err, "checking activity")
		}
		if count == 0 {
			return activity.ErrNotFound
		}

		// the primary key makes the membership check and the insert a single step
		res, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO participants (activity_name, email, signed_up_at)
			VALUES (?, ?, ?)
			ON CONFLICT (activity_name, email) DO NOTHING`), name, email, at.UTC())
		if err != nil {
			return errors.Wrap(err, "inserting participant")
		}
		n, err := res.RowsAffected()
		if err != nil {
			return errors.Wrap(err, "counting inserted participants")
		}
		if n == 0 {
			return activity.ErrAlreadySignedUp
		}
		return nil
	})
}
