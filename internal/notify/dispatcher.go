package notify

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Dispatcher sends events asynchronously.  Notify returns immediately;
// publish errors are logged and dropped.
type Dispatcher struct {
	pub     Publisher
	log     logrus.FieldLogger
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewDispatcher wraps pub.  timeout bounds each publish attempt.
func NewDispatcher(pub Publisher, log logrus.FieldLogger, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{pub: pub, log: log, timeout: timeout}
}

// Notify publishes ev in the background.
func (d *Dispatcher) Notify(ev Event) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.log.WithField("panic", r).Error("notify: publisher panicked")
			}
		}()

		// not tied to the request context, which is gone by now
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.pub.Publish(ctx, ev); err != nil {
			d.log.WithError(err).WithFields(logrus.Fields{
				"kind":       ev.Kind,
				"booking_id": ev.BookingID,
			}).Warn("notify: publish failed")
		}
	}()
}

// Wait blocks until in-flight notifications have finished.  It is called
// during shutdown.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
