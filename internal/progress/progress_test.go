package progress

import (
	"sync"
	"testing"
)

type recordingLogger struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recordingLogger) record(msg string) {
	r.mu.Lock()
	r.msgs = append(r.msgs, msg)
	r.mu.Unlock()
}

func (r *recordingLogger) InfoObj(msg, _ string, _ interface{})  { r.record(msg) }
func (r *recordingLogger) DebugObj(msg, _ string, _ interface{}) { r.record(msg) }
func (r *recordingLogger) WarnObj(msg, _ string, _ interface{})  { r.record(msg) }
func (r *recordingLogger) ErrorObj(msg, _ string, _ interface{}) { r.record(msg) }

func TestTrackerLogsBusyIdleTransitions(t *testing.T) {
	log := &recordingLogger{}
	tr := New(log)

	tr.Start()
	tr.Start()
	if !tr.Busy() || tr.InFlight() != 2 {
		t.Fatalf("expected two in flight, got %d", tr.InFlight())
	}
	tr.Done()
	tr.Done()
	if tr.Busy() {
		t.Fatalf("expected idle tracker")
	}

	want := []string{"request started", "requests finished"}
	if len(log.msgs) != len(want) {
		t.Fatalf("logged %v, want %v", log.msgs, want)
	}
	for i := range want {
		if log.msgs[i] != want[i] {
			t.Fatalf("logged %v, want %v", log.msgs, want)
		}
	}
}

func TestTrackerDoneNeverGoesNegative(t *testing.T) {
	tr := New(nil)
	tr.Done()
	tr.Start()
	if tr.InFlight() != 1 {
		t.Fatalf("expected one in flight, got %d", tr.InFlight())
	}
}

func TestTrackerConcurrentUse(t *testing.T) {
	tr := New(nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Start()
			tr.Done()
		}()
	}
	wg.Wait()
	if tr.InFlight() != 0 {
		t.Fatalf("expected idle after concurrent use, got %d", tr.InFlight())
	}
}
