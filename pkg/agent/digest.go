package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"
	"github.com/majordomo-ai/majordomo/pkg/bus"
	"github.com/majordomo-ai/majordomo/pkg/logger"
)

const componentDigest = "digest"

// digestUserID namespaces the digest's conversation memory away from any
// real user.
const digestUserID = "digest"

// DigestService runs a configured prompt through the pipeline on a cron
// schedule and publishes the answer to a fixed channel/chat. Used for things
// like a morning news briefing.
type DigestService struct {
	bus      *bus.MessageBus
	pipeline *Pipeline
	schedule string
	prompt   string
	channel  string
	chatID   string
	stop     chan struct{}
}

func NewDigestService(msgBus *bus.MessageBus, pipeline *Pipeline, schedule, prompt, channel, chatID string) (*DigestService, error) {
	if !gronx.New().IsValid(schedule) {
		return nil, fmt.Errorf("invalid digest schedule %q", schedule)
	}
	if prompt == "" {
		return nil, fmt.Errorf("digest prompt is empty")
	}
	if channel == "" || chatID == "" {
		return nil, fmt.Errorf("digest delivery target not configured")
	}
	return &DigestService{
		bus:      msgBus,
		pipeline: pipeline,
		schedule: schedule,
		prompt:   prompt,
		channel:  channel,
		chatID:   chatID,
		stop:     make(chan struct{}),
	}, nil
}

// Start launches the scheduler goroutine. The schedule is checked once per
// minute, which matches cron's granularity.
func (ds *DigestService) Start(ctx context.Context) {
	go ds.loop(ctx)
	logger.InfoCF(componentDigest, "digest scheduled", map[string]interface{}{
		"schedule": ds.schedule,
		"channel":  ds.channel,
	})
}

func (ds *DigestService) Stop() {
	close(ds.stop)
}

func (ds *DigestService) loop(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ds.stop:
			return
		case now := <-ticker.C:
			due, err := gronx.New().IsDue(ds.schedule, now)
			if err != nil {
				logger.ErrorCF(componentDigest, "schedule check failed", map[string]interface{}{
					"error": err.Error(),
				})
				continue
			}
			if due {
				ds.run(ctx)
			}
		}
	}
}

func (ds *DigestService) run(ctx context.Context) {
	logger.InfoC(componentDigest, "running scheduled digest")
	answer := ds.pipeline.Respond(ctx, digestUserID, ds.prompt)
	if answer == "" {
		return
	}
	ds.bus.PublishOutbound(bus.OutboundMessage{
		Channel: ds.channel,
		ChatID:  ds.chatID,
		Content: answer,
	})
}
