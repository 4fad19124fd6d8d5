package activity

import "github.com/trezcool/mergington/core"

// NewServiceMock returns a service that runs the post-signup side effects synchronously.
func NewServiceMock(repo Repository, mailSvc core.EmailService, publisher EventPublisher, metrics Metrics, logger core.Logger) ServiceInterface {
	return NewSyncService(repo, mailSvc, publisher, metrics, logger)
}
