package xcascade

import "context"

// PublishBatch publishes events in order. Each event's cascade settles before
// the next event is recorded; the first failure stops the batch.
func (b *Bus) PublishBatch(ctx context.Context, events ...PublishEvent) error {
	if b.closed.Load() {
		return ErrBusClosed
	}
	for _, evt := range events {
		if evt.Topic == "" {
			return ErrInvalidTopic
		}
	}
	for _, evt := range events {
		if err := b.Publish(ctx, evt.Topic, evt.Payload); err != nil {
			return err
		}
	}
	return nil
}
