package announce

import (
	"context"
	"encoding/json"
	"fmt"

	aqmevents "github.com/appetiteclub/apt/events"
	"github.com/chopline/kds/internal/event"
)

// NATSSpeaker hands announcements to the audio collaborator by publishing
// synthesis jobs on a NATS topic. The collaborator owns playback and its own
// degraded delivery path.
type NATSSpeaker struct {
	publisher aqmevents.Publisher
	topic     string
}

func NewNATSSpeaker(publisher aqmevents.Publisher, topic string) *NATSSpeaker {
	if topic == "" {
		topic = event.AnnouncementsTopic
	}
	return &NATSSpeaker{publisher: publisher, topic: topic}
}

func (s *NATSSpeaker) Announce(ctx context.Context, a Announcement) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("cannot encode announcement: %w", err)
	}
	if err := s.publisher.Publish(ctx, s.topic, data); err != nil {
		return fmt.Errorf("cannot publish announcement: %w", err)
	}
	return nil
}
