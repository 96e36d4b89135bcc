package progress

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hirewatch/scraper-http-service/common/constants"
	"github.com/hirewatch/scraper-http-service/common/models"
)

// subscriberBuffer bounds how far a slow subscriber may lag before events
// are dropped for it. The log itself keeps every event for replay.
const subscriberBuffer = 256

// Publisher pushes progress events to external consumers
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Log is the append-only progress record of one workflow. Every event is
// delivered in order to live subscribers, replayed to late subscribers, and
// mirrored to the message broker.
type Log struct {
	workflowID string
	targetName string
	publisher  Publisher

	mu     sync.Mutex
	events []models.ProgressEvent
	subs   map[int]chan models.ProgressEvent
	nextID int
	seq    uint64
	closed bool
}

// NewLog creates the progress log for a workflow. publisher may be nil.
func NewLog(workflowID, targetName string, publisher Publisher) *Log {
	return &Log{
		workflowID: workflowID,
		targetName: targetName,
		publisher:  publisher,
		subs:       map[int]chan models.ProgressEvent{},
	}
}

// Emit appends an event to the log and fans it out. Events emitted after the
// terminal event are dropped.
func (l *Log) Emit(event models.ProgressEvent) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}

	l.seq++
	event.Seq = l.seq
	event.WorkflowID = l.workflowID
	event.TargetName = l.targetName
	if event.Status == "" {
		event.Status = models.WorkflowStatusRunning
	}
	event.Timestamp = time.Now().UTC()

	l.events = append(l.events, event)
	terminal := event.Terminal()
	for id, ch := range l.subs {
		select {
		case ch <- event:
			continue
		default:
		}
		if !terminal {
			log.Warn().Str("workflowID", l.workflowID).Int("subscriber", id).Msg("Progress subscriber lagging, dropping event")
			continue
		}
		// The terminal event must reach even a lagging subscriber before its
		// channel closes. Evict its oldest buffered event to make room; Emit
		// is the only sender, so the retry cannot block.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- event:
		default:
		}
	}

	if terminal {
		l.closed = true
		for id, ch := range l.subs {
			close(ch)
			delete(l.subs, id)
		}
	}
	l.mu.Unlock()

	l.mirror(event)
}

// Step emits a running progress event for a stage
func (l *Log) Step(stage models.WorkflowStage, message, url string) {
	l.Emit(models.ProgressEvent{Stage: stage, Message: message, URL: url})
}

// Shot emits a running progress event carrying a screenshot artifact
func (l *Log) Shot(stage models.WorkflowStage, message, url, image string) {
	l.Emit(models.ProgressEvent{Stage: stage, Message: message, URL: url, Image: image})
}

// Finish emits the terminal event and seals the log
func (l *Log) Finish(status models.WorkflowStatus, message string, err error) {
	event := models.ProgressEvent{
		Stage:   models.StageComplete,
		Status:  status,
		Message: message,
	}
	if err != nil {
		event.Error = err.Error()
	}
	l.Emit(event)
}

// Subscribe returns the events so far and a channel carrying subsequent ones.
// The channel is closed after the terminal event. cancel detaches the
// subscriber early.
func (l *Log) Subscribe() (replay []models.ProgressEvent, ch <-chan models.ProgressEvent, cancel func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	replay = make([]models.ProgressEvent, len(l.events))
	copy(replay, l.events)

	c := make(chan models.ProgressEvent, subscriberBuffer)
	if l.closed {
		close(c)
		return replay, c, func() {}
	}

	id := l.nextID
	l.nextID++
	l.subs[id] = c

	return replay, c, func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if existing, ok := l.subs[id]; ok {
			delete(l.subs, id)
			close(existing)
		}
	}
}

// Events returns a snapshot of the log
func (l *Log) Events() []models.ProgressEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.ProgressEvent, len(l.events))
	copy(out, l.events)
	return out
}

// Closed reports whether the terminal event has been emitted
func (l *Log) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

func (l *Log) mirror(event models.ProgressEvent) {
	if l.publisher == nil {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("workflowID", l.workflowID).Msg("Failed to marshal progress event")
		return
	}
	if err := l.publisher.Publish(constants.WorkflowProgressTopic(l.workflowID), data); err != nil {
		log.Warn().Err(err).Str("workflowID", l.workflowID).Msg("Failed to publish progress event")
	}
}
