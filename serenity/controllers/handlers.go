// serenity/controllers/handlers.go
package controllers

import (
	"context"
	"fmt"

	"serenity/serenity/events"
	"serenity/serenity/pipeline"
)

// RegisterPipelineHandlers wires the dispatcher's async events to their
// pipeline runs. Handler errors propagate so the dispatcher redelivers.
func RegisterPipelineHandlers(d *events.Dispatcher, pipe *pipeline.Pipeline) {
	d.On(pipeline.EventSessionCreated, func(ctx context.Context, evt events.Event) error {
		sessionEvent, ok := evt.Payload.(pipeline.SessionEvent)
		if !ok {
			return fmt.Errorf("event %s: unexpected payload %T", evt.Name, evt.Payload)
		}
		_, err := pipe.AnalyzeSession(ctx, sessionEvent)
		return err
	})

	// Async processing path for message events produced outside the HTTP
	// turn (e.g. replays). The synchronous chat route does not go through
	// here.
	d.On(pipeline.EventSessionMessage, func(ctx context.Context, evt events.Event) error {
		messageEvent, ok := evt.Payload.(pipeline.MessageEvent)
		if !ok {
			return fmt.Errorf("event %s: unexpected payload %T", evt.Name, evt.Payload)
		}
		pipe.ProcessChatMessage(ctx, messageEvent)
		return nil
	})

	d.On(pipeline.EventMoodUpdated, func(ctx context.Context, evt events.Event) error {
		moodEvent, ok := evt.Payload.(pipeline.MoodEvent)
		if !ok {
			return fmt.Errorf("event %s: unexpected payload %T", evt.Name, evt.Payload)
		}
		_, err := pipe.RecommendActivities(ctx, moodEvent)
		return err
	})
}
