package agentcore

import (
	"github.com/voocel/agentcore/generation"
	"github.com/voocel/agentcore/schema"
)

// EventType identifies run loop events.
type EventType string

const (
	EventRunStart      EventType = "run.start"
	EventRunEnd        EventType = "run.end"
	EventRunCancelled  EventType = "run.cancelled"
	EventTurnStart     EventType = "turn.start"
	EventTurnEnd       EventType = "turn.end"
	EventMessageUpdate EventType = "message.update"
	EventMessageEnd    EventType = "message.end"
	EventToolResult    EventType = "tool.result"
	EventError         EventType = "error"
)

// Event is delivered to the rendering collaborator during a run.
type Event struct {
	Type    EventType
	Gen     generation.Gen
	Message schema.Message
	Delta   string
	Result  schema.ToolResult
	Err     error
}

func emit(ch chan<- Event, ev Event) {
	ch <- ev
}

// Collect consumes all events from a run and returns the messages the run
// appended to the conversation, plus any terminal error. Blocks until the
// channel is closed.
func Collect(events <-chan Event) ([]schema.Message, error) {
	var (
		msgs []schema.Message
		err  error
	)
	for ev := range events {
		if ev.Type == EventMessageEnd {
			msgs = append(msgs, ev.Message)
		}
		if ev.Type == EventError && ev.Err != nil {
			err = ev.Err
		}
	}
	return msgs, err
}
