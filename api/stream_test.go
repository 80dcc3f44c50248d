package api

import (
	"bufio"
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/vibedrive/vibedrive/internal/events"
)

func TestEventsStreamDeliversPublishedEvents(t *testing.T) {
	env := newTestEnv(t, &fakeSession{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		env.server.URL+"/api/events?sessionId=s1&topics=status", nil)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /api/events: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}

	// The handler subscribes after flushing headers; wait until the
	// sink is registered before publishing.
	waitFor(t, func() bool { return env.bus.SubscriberCount("s1") == 1 },
		"subscriber never registered")

	env.bus.Publish("s1", events.TypeToolStart, events.ToolStartPayload{
		TaskID: "task-1", ToolName: "setLight",
	})
	// Filtered out: the ambience topic was not requested.
	env.bus.Publish("s1", events.TypeComplete, events.CompletePayload{TaskID: "task-1"})
	env.bus.Publish("s1", events.TypeCancelled, events.CancelledPayload{TaskID: "task-1"})

	frames := readSSEFrames(t, resp, 2)
	if !strings.Contains(frames[0], "event: "+events.TypeToolStart) ||
		!strings.Contains(frames[0], "setLight") {
		t.Errorf("first frame = %q", frames[0])
	}
	if !strings.Contains(frames[1], "event: "+events.TypeCancelled) {
		t.Errorf("second frame = %q, complete event leaked through the filter", frames[1])
	}

	// Disconnecting unregisters the sink.
	cancel()
	waitFor(t, func() bool { return env.bus.SubscriberCount("s1") == 0 },
		"subscriber not removed after disconnect")
}

func TestEventsStreamRequiresSessionID(t *testing.T) {
	env := newTestEnv(t, &fakeSession{})

	resp, err := http.Get(env.server.URL + "/api/events")
	if err != nil {
		t.Fatalf("GET /api/events: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHeartbeatBypassesTopicFilter(t *testing.T) {
	env := newTestEnv(t, &fakeSession{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		env.server.URL+"/api/events?sessionId=s1&topics=ambience", nil)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /api/events: %v", err)
	}
	defer resp.Body.Close()

	waitFor(t, func() bool { return env.bus.SubscriberCount("s1") == 1 },
		"subscriber never registered")
	env.bus.Heartbeat()

	frames := readSSEFrames(t, resp, 1)
	if !strings.Contains(frames[0], "event: "+events.TypeHeartbeat) {
		t.Errorf("frame = %q, want heartbeat", frames[0])
	}
}

// readSSEFrames reads n blank-line-terminated SSE frames from the
// response, failing the test if they do not arrive within 2 seconds.
func readSSEFrames(t *testing.T, resp *http.Response, n int) []string {
	t.Helper()
	type result struct {
		frames []string
		err    error
	}
	ch := make(chan result, 1)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		var frames []string
		var current strings.Builder
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				frames = append(frames, current.String())
				current.Reset()
				if len(frames) == n {
					ch <- result{frames: frames}
					return
				}
				continue
			}
			current.WriteString(line)
			current.WriteString("\n")
		}
		ch <- result{frames: frames, err: scanner.Err()}
	}()

	select {
	case res := <-ch:
		if len(res.frames) < n {
			t.Fatalf("got %d frames, want %d (err: %v)", len(res.frames), n, res.err)
		}
		return res.frames
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for SSE frames")
		return nil
	}
}
