package bridge

import (
	"testing"
)

func TestValidateNilData(t *testing.T) {
	result := Validate(nil)
	if result.OK() {
		t.Fatal("Validate(nil) reported OK")
	}
}

func TestValidateEmptyBridge(t *testing.T) {
	result := Validate(&Data{})
	if result.OK() {
		t.Fatal("a bridge without planks passed validation")
	}
}

func TestValidateCompleteBridge(t *testing.T) {
	builder, _ := newTestBuilder()
	data, err := builder.Build(DefaultConfig())
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	result := Validate(data)
	if !result.OK() {
		t.Fatalf("complete bridge failed validation: %v", result.Errors)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("complete bridge produced warnings: %v", result.Warnings)
	}
}

func TestValidateNilPlankReference(t *testing.T) {
	builder, _ := newTestBuilder()
	data, err := builder.Build(DefaultConfig())
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	data.Planks[3] = nil
	if result := Validate(data); result.OK() {
		t.Error("nil plank reference passed validation")
	}
}

func TestValidateMissingBody(t *testing.T) {
	builder, _ := newTestBuilder()
	data, err := builder.Build(DefaultConfig())
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	data.Planks[0].Body = nil
	if result := Validate(data); result.OK() {
		t.Error("plank without body passed validation")
	}
}

func TestValidateUnconstrainedEntityWarns(t *testing.T) {
	builder, _ := newTestBuilder()
	data, err := builder.Build(DefaultConfig())
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	// Drop every edge touching the second plank.
	var kept []Edge
	target := data.Planks[1].ID
	for _, e := range data.Edges {
		if e.From != target && e.To != target {
			kept = append(kept, e)
		}
	}
	data.Edges = kept

	result := Validate(data)
	if !result.OK() {
		t.Errorf("loose plank escalated to an error: %v", result.Errors)
	}
	if len(result.Warnings) == 0 {
		t.Error("loose plank produced no warning")
	}
}

func TestValidateBrokenChainWarns(t *testing.T) {
	builder, _ := newTestBuilder()
	data, err := builder.Build(DefaultConfig())
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	// Remove one chain hinge but leave both planks otherwise constrained,
	// so only the connectivity check can notice.
	for i, e := range data.Edges {
		if e.Type == ConstraintChain {
			data.Edges = append(data.Edges[:i], data.Edges[i+1:]...)
			break
		}
	}

	result := Validate(data)
	if !result.OK() {
		t.Errorf("broken chain escalated to an error: %v", result.Errors)
	}
	found := false
	for _, w := range result.Warnings {
		if w.Entity == "bridge" {
			found = true
		}
	}
	if !found {
		t.Error("broken chain produced no connectivity warning")
	}
}
