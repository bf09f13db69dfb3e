package domain

// Event names a business occurrence worth counting.
type Event string

const (
	EventConnectionRequested Event = "connection_requested"
	EventConnectionAccepted  Event = "connection_accepted"
	EventTopicCreated        Event = "topic_created"
	EventReplyCreated        Event = "reply_created"
	EventCommentCreated      Event = "comment_created"
)

// Observer receives business events from the engines.
type Observer interface {
	Observe(event Event)
}

type nopObserver struct{}

func (nopObserver) Observe(Event) {}

func observerOrNop(o Observer) Observer {
	if o == nil {
		return nopObserver{}
	}
	return o
}
