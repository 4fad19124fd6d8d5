package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mergington/core/activity"
)

// RunRepositoryTests checks the behaviour shared by every activity.Repository.
// newRepo must return an empty repository.
func RunRepositoryTests(t *testing.T, newRepo func(t *testing.T) activity.Repository) {
	ctx := context.Background()
	defaults := DefaultActivities(t)

	seeded := func(t *testing.T) activity.Repository {
		repo := newRepo(t)
		require.NoError(t, repo.Seed(ctx, defaults))
		return repo
	}

	t.Run("empty", func(t *testing.T) {
		repo := newRepo(t)
		activities, err := repo.QueryAll(ctx)
		require.NoError(t, err)
		assert.NotNil(t, activities)
		assert.Empty(t, activities)

		_, err = repo.GetActivity(ctx, "Chess Club")
		assert.Equal(t, activity.ErrNotFound, errors.Cause(err))
	})

	t.Run("seed", func(t *testing.T) {
		repo := seeded(t)
		activities, err := repo.QueryAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, defaults, activities)

		act, err := repo.GetActivity(ctx, "Gym Class")
		require.NoError(t, err)
		assert.Equal(t, defaults[2], act)
	})

	t.Run("seed keeps existing activities", func(t *testing.T) {
		repo := seeded(t)
		require.NoError(t, repo.AddParticipant(ctx, "Chess Club", "late@mergington.edu", time.Now()))

		changed := make([]activity.Activity, len(defaults))
		for i, act := range defaults {
			changed[i] = act.Clone()
			changed[i].Participants = nil
		}
		changed = append(changed, activity.Activity{
			Name: "Robotics", Description: "Build robots", Schedule: "Mondays", MaxParticipants: 8,
			Participants: []string{"ada@mergington.edu"},
		})
		require.NoError(t, repo.Seed(ctx, changed))

		activities, err := repo.QueryAll(ctx)
		require.NoError(t, err)
		require.Len(t, activities, len(defaults)+1)
		assert.Equal(t, "Robotics", activities[len(defaults)].Name)
		assert.Equal(t, []string{"ada@mergington.edu"}, activities[len(defaults)].Participants)
		assert.Equal(t,
			[]string{"michael@mergington.edu", "daniel@mergington.edu", "late@mergington.edu"},
			activities[0].Participants,
		)
	})

	t.Run("add participant", func(t *testing.T) {
		repo := seeded(t)
		now := time.Now()

		tests := []struct {
			name, activity, email string
			wantErr               error
		}{
			{name: "new", activity: "Chess Club", email: "new@mergington.edu"},
			{name: "duplicate", activity: "Chess Club", email: "new@mergington.edu", wantErr: activity.ErrAlreadySignedUp},
			{name: "seeded", activity: "Chess Club", email: "daniel@mergington.edu", wantErr: activity.ErrAlreadySignedUp},
			{name: "case sensitive email", activity: "Chess Club", email: "Daniel@mergington.edu"},
			{name: "unknown activity", activity: "Chess", email: "x@mergington.edu", wantErr: activity.ErrNotFound},
			{name: "other activity", activity: "Math Club", email: "new@mergington.edu"},
		}
		for i, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := repo.AddParticipant(ctx, tt.activity, tt.email, now.Add(time.Duration(i)*time.Millisecond))
				assert.Equal(t, tt.wantErr, errors.Cause(err))
			})
		}

		chess, err := repo.GetActivity(ctx, "Chess Club")
		require.NoError(t, err)
		assert.Equal(t,
			[]string{"michael@mergington.edu", "daniel@mergington.edu", "new@mergington.edu", "Daniel@mergington.edu"},
			chess.Participants,
		)
	})

	t.Run("concurrent add participant", func(t *testing.T) {
		repo := seeded(t)

		const n = 20
		var wg sync.WaitGroup
		errs := make([]error, 2*n)
		for i := 0; i < n; i++ {
			wg.Add(2)
			go func(i int) {
				defer wg.Done()
				errs[i] = repo.AddParticipant(ctx, "Soccer Club", fmt.Sprintf("player%02d@mergington.edu", i), time.Now())
			}(i)
			go func(i int) {
				defer wg.Done()
				errs[n+i] = repo.AddParticipant(ctx, "Soccer Club", "keeper@mergington.edu", time.Now())
			}(i)
		}
		wg.Wait()

		var dupes int
		for _, err := range errs {
			switch errors.Cause(err) {
			case nil:
			case activity.ErrAlreadySignedUp:
				dupes++
			default:
				t.Errorf("AddParticipant(): %v", err)
			}
		}
		assert.Equal(t, n-1, dupes)

		soccer, err := repo.GetActivity(ctx, "Soccer Club")
		require.NoError(t, err)
		assert.Len(t, soccer.Participants, 2+n+1)
	})
}
