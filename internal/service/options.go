package service

import (
	"time"

	"github.com/labstack/gommon/log"
)

// Options carries the collaborators shared by every service.  Zero values
// fall back to a no-op notifier, a prefixed default logger and the UTC
// wall clock.
type Options struct {
	Notifier Notifier
	Logger   *log.Logger
	Now      func() time.Time
}

func (o Options) withDefaults(prefix string) Options {
	if o.Notifier == nil {
		o.Notifier = nopNotifier{}
	}
	if o.Logger == nil {
		o.Logger = log.New(prefix)
	}
	if o.Now == nil {
		o.Now = utcNow
	}
	return o
}
