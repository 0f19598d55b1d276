package results

import (
	"bytes"
	"context"
	"log"
	"strings"
	"testing"
)

func TestNewRecordStampsIdentity(t *testing.T) {
	a := NewRecord("bridge_walk", 2, true, 87.5)
	b := NewRecord("bridge_walk", 2, true, 87.5)

	if a.ID == "" || b.ID == "" {
		t.Fatal("record without an id")
	}
	if a.ID == b.ID {
		t.Error("two records share one id")
	}
	if a.Timestamp.IsZero() {
		t.Error("record without a timestamp")
	}
	if a.Exercise != "bridge_walk" || a.Level != 2 || !a.Completed || a.Score != 87.5 {
		t.Errorf("record fields lost: %+v", a)
	}
}

func TestNullSink(t *testing.T) {
	if err := (NullSink{}).Save(context.Background(), NewRecord("x", 0, false, 0)); err != nil {
		t.Errorf("NullSink.Save() = %v, want nil", err)
	}
}

func TestLogSinkWritesRecord(t *testing.T) {
	var buf bytes.Buffer
	sink := LogSink{Logger: log.New(&buf, "", 0)}

	rec := NewRecord("bridge_walk", 3, false, 42)
	if err := sink.Save(context.Background(), rec); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"bridge_walk", "level=3", "completed=false", "score=42.00"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q missing %q", out, want)
		}
	}
}
