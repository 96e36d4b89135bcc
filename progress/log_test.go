package progress

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hirewatch/scraper-http-service/common/models"
)

type capturePublisher struct {
	subjects []string
	payloads [][]byte
}

func (p *capturePublisher) Publish(subject string, data []byte) error {
	p.subjects = append(p.subjects, subject)
	p.payloads = append(p.payloads, data)
	return nil
}

func TestLogOrderingAndSequence(t *testing.T) {
	l := NewLog("wf-1", "example", nil)

	l.Step(models.StageSearching, "searching", "")
	l.Step(models.StageAnalyzing, "analyzing", "https://example.com")
	l.Finish(models.WorkflowStatusSuccess, "done", nil)

	events := l.Events()
	if len(events) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(events))
	}
	for i, e := range events {
		if e.Seq != uint64(i+1) {
			t.Errorf("Expected seq %d, got %d", i+1, e.Seq)
		}
		if e.WorkflowID != "wf-1" || e.TargetName != "example" {
			t.Errorf("Event missing identity: %+v", e)
		}
	}
	if events[0].Status != models.WorkflowStatusRunning {
		t.Errorf("Expected running status default, got %s", events[0].Status)
	}
	if events[2].Status != models.WorkflowStatusSuccess {
		t.Errorf("Expected terminal success, got %s", events[2].Status)
	}
	if !l.Closed() {
		t.Error("Expected log sealed after terminal event")
	}
}

func TestLogLiveSubscriber(t *testing.T) {
	l := NewLog("wf-1", "example", nil)

	replay, live, cancel := l.Subscribe()
	defer cancel()
	if len(replay) != 0 {
		t.Fatalf("Expected empty replay, got %d", len(replay))
	}

	l.Step(models.StageSearching, "searching", "")
	l.Finish(models.WorkflowStatusSuccess, "done", nil)

	var got []models.ProgressEvent
	for e := range live {
		got = append(got, e)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 live events and a closed channel, got %d", len(got))
	}
	if !got[1].Terminal() {
		t.Errorf("Expected terminal last event, got %+v", got[1])
	}
}

func TestLogLateSubscriberReplays(t *testing.T) {
	l := NewLog("wf-1", "example", nil)

	l.Step(models.StageSearching, "searching", "")
	l.Step(models.StageAnalyzing, "analyzing", "")

	replay, live, cancel := l.Subscribe()
	defer cancel()
	if len(replay) != 2 {
		t.Fatalf("Expected 2 replayed events, got %d", len(replay))
	}

	l.Finish(models.WorkflowStatusError, "failed", errors.New("boom"))

	select {
	case e, ok := <-live:
		if !ok {
			t.Fatal("Channel closed before delivering the terminal event")
		}
		if e.Error != "boom" {
			t.Errorf("Expected error carried on terminal event, got %q", e.Error)
		}
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for terminal event")
	}
}

func TestLogSubscribeAfterTerminal(t *testing.T) {
	l := NewLog("wf-1", "example", nil)
	l.Finish(models.WorkflowStatusSuccess, "done", nil)

	replay, live, cancel := l.Subscribe()
	defer cancel()
	if len(replay) != 1 {
		t.Fatalf("Expected terminal event in replay, got %d", len(replay))
	}
	if _, ok := <-live; ok {
		t.Error("Expected closed channel for a sealed log")
	}
}

func TestLogDropsEventsAfterTerminal(t *testing.T) {
	l := NewLog("wf-1", "example", nil)
	l.Finish(models.WorkflowStatusSuccess, "done", nil)
	l.Step(models.StageStoring, "late", "")

	if got := len(l.Events()); got != 1 {
		t.Errorf("Expected late events dropped, got %d", got)
	}
}

func TestLogLaggingSubscriberStillGetsTerminalEvent(t *testing.T) {
	l := NewLog("wf-1", "example", nil)

	_, live, cancel := l.Subscribe()
	defer cancel()

	// Never drain while the workflow floods the subscriber past its buffer
	for i := 0; i < subscriberBuffer+10; i++ {
		l.Step(models.StageValidating, "page", "")
	}
	l.Finish(models.WorkflowStatusSuccess, "done", nil)

	var last models.ProgressEvent
	var n int
	for e := range live {
		last = e
		n++
	}
	if n == 0 {
		t.Fatal("Expected buffered events to survive")
	}
	if !last.Terminal() {
		t.Errorf("Expected terminal event delivered last, got %+v", last)
	}
	if last.Status != models.WorkflowStatusSuccess {
		t.Errorf("Expected success status, got %s", last.Status)
	}
}

func TestLogMirrorsToPublisher(t *testing.T) {
	pub := &capturePublisher{}
	l := NewLog("wf-1", "example", pub)

	l.Step(models.StageSearching, "searching", "")

	if len(pub.subjects) != 1 {
		t.Fatalf("Expected 1 published event, got %d", len(pub.subjects))
	}
	if pub.subjects[0] != "scraper.workflow.wf-1.progress" {
		t.Errorf("Unexpected subject %q", pub.subjects[0])
	}

	var e models.ProgressEvent
	if err := json.Unmarshal(pub.payloads[0], &e); err != nil {
		t.Fatal(err)
	}
	if e.Stage != models.StageSearching || e.Seq != 1 {
		t.Errorf("Unexpected mirrored event: %+v", e)
	}
}
