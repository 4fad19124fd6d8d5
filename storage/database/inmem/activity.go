package inmemdb

import (
	"context"
	"time"

	"github.com/trezcool/mergington/core/activity"
)

type activityRepository struct {
	db *activityTable
}

var _ activity.Repository = (*activityRepository)(nil)

func NewActivityRepository(db *DB) activity.Repository {
	return &activityRepository{db: db.activity}
}

func (repo *activityRepository) Seed(_ context.Context, activities []activity.Activity) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, act := range activities {
		if _, ok := repo.db.table[act.Name]; ok {
			continue
		}
		seeded := act.Clone()
		repo.db.table[act.Name] = &seeded
		repo.db.order = append(repo.db.order, act.Name)
	}
	return nil
}

func (repo *activityRepository) QueryAll(_ context.Context) ([]activity.Activity, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	activities := make([]activity.Activity, 0, len(repo.db.order))
	for _, name := range repo.db.order {
		activities = append(activities, repo.db.table[name].Clone())
	}
	return activities, nil
}

func (repo *activityRepository) GetActivity(_ context.Context, name string) (activity.Activity, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if act, ok := repo.db.table[name]; ok {
		return act.Clone(), nil
	}
	return activity.Activity{}, activity.ErrNotFound
}

func (repo *activityRepository) AddParticipant(_ context.Context, name, email string, _ time.Time) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	act, ok := repo.db.table[name]
	if !ok {
		return activity.ErrNotFound
	}
	if act.HasParticipant(email) {
		return activity.ErrAlreadySignedUp
	}
	act.Participants = append(act.Participants, email)
	return nil
}
