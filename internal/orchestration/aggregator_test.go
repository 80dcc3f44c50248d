package orchestration

import (
	"testing"

	"github.com/vibedrive/vibedrive/internal/ambience"
	"github.com/vibedrive/vibedrive/internal/log"
)

func TestAggregatorIngestAndFinalize(t *testing.T) {
	agg := NewAggregator("s1", log.NewNop())

	agg.Ingest("setLight", []byte(`{"color":{"hex":"#FFAA00"},"brightness":70,"mode":"BREATHING","transitionDuration":800}`))
	agg.Ingest("generateNarrative", []byte(`{"text":"Evening glow.","emotion":"WARM","voice":"default","speed":1,"volume":0.8}`))
	agg.Ingest("recommendMusic", []byte(`{"songs":[{"id":"x","title":"T","artist":"A","duration":100,"bpm":90}],"bpmRange":{"min":60,"max":100}}`))

	plan := agg.Finalize("cozy evening", ambience.ModeNormal)

	if plan.SessionID != "s1" {
		t.Errorf("SessionID = %q", plan.SessionID)
	}
	if plan.Light == nil || plan.Light.Brightness != 70 {
		t.Errorf("light = %+v", plan.Light)
	}
	if plan.Narrative == nil || plan.Narrative.Text != "Evening glow." {
		t.Errorf("narrative = %+v", plan.Narrative)
	}
	if !plan.HasMusic() {
		t.Error("music slot empty")
	}
	if plan.Scent != nil || plan.Massage != nil || plan.NowPlaying != nil {
		t.Error("unset slots are non-nil")
	}
	if plan.Reasoning != "cozy evening" {
		t.Errorf("reasoning = %q", plan.Reasoning)
	}
	if plan.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
}

func TestAggregatorIgnoresUnknownTool(t *testing.T) {
	agg := NewAggregator("s1", log.NewNop())
	agg.Ingest("searchMusic", []byte(`{"query":"jazz","candidates":[]}`))
	agg.Ingest("someDiagnosticTool", []byte(`{"ok":true}`))

	plan := agg.Finalize("", ambience.ModeNormal)
	if plan.FilledSlots() != 0 {
		t.Errorf("unknown tools filled %d slots", plan.FilledSlots())
	}
}

func TestAggregatorSkipsMalformedPayload(t *testing.T) {
	agg := NewAggregator("s1", log.NewNop())
	agg.Ingest("setScent", []byte(`not json at all`))

	plan := agg.Finalize("", ambience.ModeNormal)
	if plan.Scent != nil {
		t.Error("malformed payload populated the scent slot")
	}
}

func TestAggregatorLaterResultReplacesEarlier(t *testing.T) {
	agg := NewAggregator("s1", log.NewNop())
	agg.Ingest("setScent", []byte(`{"type":"OCEAN","intensity":3,"duration":30}`))
	agg.Ingest("setScent", []byte(`{"type":"LAVENDER","intensity":5,"duration":30}`))

	plan := agg.Finalize("", ambience.ModeNormal)
	if plan.Scent == nil || plan.Scent.Type != ambience.ScentLavender {
		t.Errorf("scent = %+v, want the later LAVENDER result", plan.Scent)
	}
}

func TestLoopStateImmutability(t *testing.T) {
	s := LoopState{}
	next := s.IncrementDepth().AddToolCalls(3)
	if s.Depth != 0 || s.TotalToolCalls != 0 {
		t.Error("LoopState methods mutated the receiver")
	}
	if next.Depth != 1 || next.TotalToolCalls != 3 {
		t.Errorf("next = %+v", next)
	}
}

func TestMailboxesFIFO(t *testing.T) {
	mb := NewMailboxes()
	mb.Enqueue("s1", Cancelled{TaskID: "a"})
	mb.Enqueue("s1", Success{TaskID: "b"})

	msgs := mb.Drain("s1")
	if len(msgs) != 2 {
		t.Fatalf("drained %d messages, want 2", len(msgs))
	}
	if _, ok := msgs[0].(Cancelled); !ok {
		t.Errorf("first message = %T, want Cancelled", msgs[0])
	}
	if _, ok := msgs[1].(Success); !ok {
		t.Errorf("second message = %T, want Success", msgs[1])
	}
	if got := mb.Drain("s1"); len(got) != 0 {
		t.Errorf("second drain returned %d messages", len(got))
	}
}
