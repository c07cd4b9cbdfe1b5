// Package notify evaluates per-channel trigger conditions against a
// run's statistics and dispatches rendered messages to the configured
// channels.
package notify

import (
	"context"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/qa-gary-parker/playwright-smart-reporter-sub001/pkg/config"
)

const defaultSendTimeout = 10 * time.Second

// ChannelResult records the outcome of one channel's evaluation.
type ChannelResult struct {
	Name  string
	Type  string
	Fired bool
	Err   error
}

// Dispatcher fans a run's notification out to every configured
// channel. One channel's failure never blocks the others.
type Dispatcher struct {
	log     logrus.FieldLogger
	client  *http.Client
	console io.Writer
}

func NewDispatcher(log logrus.FieldLogger) *Dispatcher {
	return &Dispatcher{
		log:     log.WithField("component", "notify"),
		client:  &http.Client{Timeout: defaultSendTimeout},
		console: os.Stdout,
	}
}

// SetConsoleOutput redirects console-channel output, used by tests.
func (d *Dispatcher) SetConsoleOutput(w io.Writer) {
	d.console = w
}

// Dispatch evaluates every channel's conditions and sends to those
// that fire, concurrently. Errors are captured per channel and logged,
// never returned as a combined failure.
func (d *Dispatcher) Dispatch(ctx context.Context, channels []config.ChannelConfig, in Input) []ChannelResult {
	results := make([]ChannelResult, len(channels))

	g, ctx := errgroup.WithContext(ctx)

	for i, ch := range channels {
		i, ch := i, ch
		g.Go(func() error {
			results[i] = d.dispatchOne(ctx, ch, in)

			return nil
		})
	}

	_ = g.Wait()

	return results
}

func (d *Dispatcher) dispatchOne(ctx context.Context, ch config.ChannelConfig, in Input) ChannelResult {
	res := ChannelResult{Name: ch.Name, Type: ch.Type}

	log := d.log.WithFields(logrus.Fields{
		"channel": ch.Name,
		"type":    ch.Type,
	})

	if !ShouldNotify(ch.Conditions, in) {
		log.Debug("Notification conditions not met")

		return res
	}

	template := ch.Template
	if template == "" {
		template = DefaultTemplate
	}

	message := RenderTemplate(template, in)

	sender, err := newSender(ch, d.client, d.console)
	if err != nil {
		log.WithError(err).Error("Failed to build notification sender")

		res.Err = err

		return res
	}

	if err := sender.Send(ctx, message); err != nil {
		log.WithError(err).Error("Failed to send notification")

		res.Err = err

		return res
	}

	log.Info("Notification sent")

	res.Fired = true

	return res
}
