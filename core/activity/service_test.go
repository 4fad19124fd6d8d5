package activity_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mergington/core/activity"
	"github.com/trezcool/mergington/services/email"
	"github.com/trezcool/mergington/testutil"
)

type metricsMock struct {
	mu      sync.Mutex
	results map[string][]error
}

func (m *metricsMock) RecordSignup(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.results == nil {
		m.results = make(map[string][]error)
	}
	m.results[name] = append(m.results[name], err)
}

// brokenRepository fails every write.
type brokenRepository struct {
	activity.Repository
}

var errDiskFull = errors.New("disk full")

func (brokenRepository) AddParticipant(context.Context, string, string, time.Time) error {
	return errDiskFull
}

func TestService_Signup(t *testing.T) {
	ctx := context.Background()
	conf := testutil.NewConfig()
	logger := testutil.NewLogger()
	repo := testutil.NewMemoryRepository(t, testutil.DefaultActivities(t))
	mailSvc := emailsvc.NewConsoleServiceMock(conf, testutil.EmailTemplates(t), logger)
	publisher := new(testutil.PublisherMock)
	metrics := new(metricsMock)
	svc := activity.NewServiceMock(repo, mailSvc, publisher, metrics, logger)

	tests := []struct {
		name    string
		signup  activity.Signup
		wantErr error
	}{
		{name: "new participant", signup: activity.Signup{Activity: "Basketball Team", Email: "kobe@mergington.edu"}},
		{name: "duplicate", signup: activity.Signup{Activity: "Basketball Team", Email: "kobe@mergington.edu"}, wantErr: activity.ErrAlreadySignedUp},
		{name: "seeded participant", signup: activity.Signup{Activity: "Basketball Team", Email: "james@mergington.edu"}, wantErr: activity.ErrAlreadySignedUp},
		{name: "unknown activity", signup: activity.Signup{Activity: "Quidditch", Email: "harry@mergington.edu"}, wantErr: activity.ErrNotFound},
		{name: "same student, other activity", signup: activity.Signup{Activity: "Chess Club", Email: "kobe@mergington.edu"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, err := svc.Signup(ctx, tt.signup)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				assert.Equal(t, activity.Registration{}, reg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.signup.Activity, reg.Activity)
			assert.Equal(t, tt.signup.Email, reg.Email)
			assert.Equal(t, time.UTC, reg.SignedUpAt.Location())

			act, err := svc.Get(ctx, tt.signup.Activity)
			require.NoError(t, err)
			assert.Equal(t, tt.signup.Email, act.Participants[len(act.Participants)-1])
		})
	}

	assert.Equal(t, []error{nil, activity.ErrAlreadySignedUp, activity.ErrAlreadySignedUp}, metrics.results["Basketball Team"])
	assert.Equal(t, []error{activity.ErrNotFound}, metrics.results["Quidditch"])

	events := publisher.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "Basketball Team", events[0].Activity)
	assert.Equal(t, "Chess Club", events[1].Activity)

	sent := mailSvc.SentMessages()
	require.Len(t, sent, 2)
	assert.Equal(t, "Signed up for Basketball Team", sent[0].Subject)
	assert.Contains(t, sent[0].TextContent, "kobe@mergington.edu")
	assert.Contains(t, sent[0].HTMLContent, "<strong>Basketball Team</strong>")
}

func TestService_Signup_sideEffectFailures(t *testing.T) {
	ctx := context.Background()
	logger := testutil.NewLogger()
	repo := testutil.NewMemoryRepository(t, testutil.DefaultActivities(t))
	publisher := &testutil.PublisherMock{Err: errors.New("broker down")}
	svc := activity.NewServiceMock(repo, nil, publisher, nil, logger)

	// neither a failing publisher nor an invalid address fail the signup
	_, err := svc.Signup(ctx, activity.Signup{Activity: "Drama Club", Email: "no address"})
	require.NoError(t, err)

	act, err := svc.Get(ctx, "Drama Club")
	require.NoError(t, err)
	assert.Contains(t, act.Participants, "no address")
}

func TestService_Signup_repositoryError(t *testing.T) {
	repo := brokenRepository{Repository: testutil.NewMemoryRepository(t, testutil.DefaultActivities(t))}
	publisher := new(testutil.PublisherMock)
	metrics := new(metricsMock)
	svc := activity.NewServiceMock(repo, nil, publisher, metrics, testutil.NewLogger())

	_, err := svc.Signup(context.Background(), activity.Signup{Activity: "Chess Club", Email: "x@mergington.edu"})
	require.Error(t, err)
	assert.Equal(t, errDiskFull, errors.Cause(err))
	assert.Contains(t, err.Error(), "adding participant")
	assert.Empty(t, publisher.Events())
	assert.Equal(t, []error{errDiskFull}, metrics.results["Chess Club"])
}

func TestService_QueryAll(t *testing.T) {
	ctx := context.Background()
	defaults := testutil.DefaultActivities(t)
	svc := activity.NewServiceMock(testutil.NewMemoryRepository(t, defaults), nil, nil, nil, testutil.NewLogger())

	ordered, err := svc.QueryAllOrdered(ctx)
	require.NoError(t, err)
	require.Len(t, ordered, len(defaults))
	for i, act := range ordered {
		assert.Equal(t, defaults[i].Name, act.Name)
	}

	catalog, err := svc.QueryAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, activity.NewCatalog(defaults), catalog)

	// returned values are snapshots
	catalog["Chess Club"].Participants[0] = "mallory@mergington.edu"
	again, err := svc.QueryAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, "michael@mergington.edu", again["Chess Club"].Participants[0])
}

func TestService_Seed(t *testing.T) {
	ctx := context.Background()
	defaults := testutil.DefaultActivities(t)
	svc := activity.NewServiceMock(testutil.NewMemoryRepository(t, defaults), nil, nil, nil, testutil.NewLogger())

	_, err := svc.Signup(ctx, activity.Signup{Activity: "Chess Club", Email: "new@mergington.edu"})
	require.NoError(t, err)

	// seeding again keeps the current rosters
	require.NoError(t, svc.Seed(ctx, defaults))
	chess, err := svc.Get(ctx, "Chess Club")
	require.NoError(t, err)
	assert.Equal(t, []string{"michael@mergington.edu", "daniel@mergington.edu", "new@mergington.edu"}, chess.Participants)
}

func TestService_Signup_concurrent(t *testing.T) {
	ctx := context.Background()
	svc := activity.NewService(testutil.NewMemoryRepository(t, testutil.DefaultActivities(t)), nil, nil, nil, testutil.NewLogger())

	const n = 100
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Signup(ctx, activity.Signup{Activity: "Art Club", Email: "picasso@mergington.edu"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok int
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.Equal(t, activity.ErrAlreadySignedUp, errors.Cause(err))
	}
	assert.Equal(t, 1, ok)
}
