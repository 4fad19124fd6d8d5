package emailsvc

import "github.com/trezcool/mergington/core"

// NoopService drops every message; used when emails are disabled.
type NoopService struct{}

var _ core.EmailService = NoopService{}

func (NoopService) SendMessages(...*core.EmailMessage) {}
