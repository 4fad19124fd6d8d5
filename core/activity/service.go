package activity

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/mergington/core"
)

var (
	// errors
	ErrNotFound        = errors.New("Activity not found")
	ErrAlreadySignedUp = errors.New("Student already signed up for this activity")
)

// eventTimeout bounds the publication of an event, which outlives the signup request.
const eventTimeout = 10 * time.Second

type (
	Repository interface {
		// Seed registers the activities (and their participants) that are not stored yet.
		Seed(ctx context.Context, activities []Activity) error
		// QueryAll returns every activity in catalog order.
		QueryAll(ctx context.Context) ([]Activity, error)
		GetActivity(ctx context.Context, name string) (Activity, error)
		// AddParticipant appends `email` to the roster of activity `name` in a single step.
		// It fails with ErrNotFound or ErrAlreadySignedUp.
		AddParticipant(ctx context.Context, name, email string, at time.Time) error
	}

	// EventPublisher delivers domain events to other systems.
	EventPublisher interface {
		PublishParticipantJoined(ctx context.Context, evt ParticipantJoined) error
	}

	// Metrics records signup outcomes.
	Metrics interface {
		RecordSignup(activity string, err error)
	}

	ServiceInterface interface {
		Seed(ctx context.Context, activities []Activity) error
		QueryAll(ctx context.Context) (Catalog, error)
		QueryAllOrdered(ctx context.Context) ([]Activity, error)
		Get(ctx context.Context, name string) (Activity, error)
		Signup(ctx context.Context, s Signup) (Registration, error)
	}

	service struct {
		repo      Repository
		mailSvc   core.EmailService
		publisher EventPublisher
		metrics   Metrics
		logger    core.Logger
		// dispatch runs the post-signup side effects
		dispatch func(func())
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, publisher EventPublisher, metrics Metrics, logger core.Logger) ServiceInterface {
	return &service{
		repo:      repo,
		mailSvc:   mailSvc,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		dispatch:  func(f func()) { go f() },
	}
}

// NewSyncService returns a service running the post-signup side effects before Signup returns.
// Used by short-lived processes.
func NewSyncService(repo Repository, mailSvc core.EmailService, publisher EventPublisher, metrics Metrics, logger core.Logger) ServiceInterface {
	svc := NewService(repo, mailSvc, publisher, metrics, logger).(*service)
	svc.dispatch = func(f func()) { f() }
	return svc
}

func (svc *service) Seed(ctx context.Context, activities []Activity) error {
	return errors.Wrap(svc.repo.Seed(ctx, activities), "seeding activities")
}

func (svc *service) QueryAll(ctx context.Context) (Catalog, error) {
	activities, err := svc.QueryAllOrdered(ctx)
	if err != nil {
		return nil, err
	}
	return NewCatalog(activities), nil
}

func (svc *service) QueryAllOrdered(ctx context.Context) ([]Activity, error) {
	activities, err := svc.repo.QueryAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying activities")
	}
	return activities, nil
}

func (svc *service) Get(ctx context.Context, name string) (Activity, error) {
	return svc.repo.GetActivity(ctx, name)
}

// Signup registers a student in an activity. Capacity is not checked.
func (svc *service) Signup(ctx context.Context, s Signup) (Registration, error) {
	reg := Registration{
		Activity:   s.Activity,
		Email:      s.Email,
		SignedUpAt: time.Now().UTC(),
	}
	err := svc.repo.AddParticipant(ctx, reg.Activity, reg.Email, reg.SignedUpAt)
	if svc.metrics != nil {
		svc.metrics.RecordSignup(reg.Activity, errors.Cause(err))
	}
	if err != nil {
		switch errors.Cause(err) {
		case ErrNotFound, ErrAlreadySignedUp:
			return Registration{}, err
		default:
			return Registration{}, errors.Wrap(err, "adding participant")
		}
	}

	svc.dispatch(func() {
		svc.sendConfirmationMail(reg)
		svc.publishJoined(reg)
	})
	return reg, nil
}

func (svc *service) sendConfirmationMail(reg Registration) {
	if svc.mailSvc == nil {
		return
	}
	addr, err := mail.ParseAddress(reg.Email)
	if err != nil {
		svc.logger.Warn("skipping signup confirmation: unparsable email", map[string]interface{}{"email": reg.Email})
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{*addr},
		Subject:      "Signed up for " + reg.Activity,
		TemplateName: "activity_signup",
		TemplateData: reg,
	})
}

func (svc *service) publishJoined(reg Registration) {
	if svc.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	evt := ParticipantJoined{
		Activity: reg.Activity,
		Email:    reg.Email,
		JoinedAt: reg.SignedUpAt,
	}
	if err := svc.publisher.PublishParticipantJoined(ctx, evt); err != nil {
		svc.logger.Error("publishing participant joined event", errors.Wrap(err, "publishing event"))
	}
}
