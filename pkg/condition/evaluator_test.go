package condition

import (
	"testing"
	"time"

	"github.com/listen-rs/listen-engine/pkg/pipeline"
)

func event(asset string, price float64) pipeline.PriceEvent {
	return pipeline.PriceEvent{Asset: asset, Price: price, Timestamp: time.Now()}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name          string
		cond          pipeline.ConditionType
		ev            pipeline.PriceEvent
		want          Verdict
		wantEvaluated bool
	}{
		{"above triggers", pipeline.PriceAbove{Asset: "X", Threshold: 100}, event("X", 101), Triggered, true},
		{"above is strict", pipeline.PriceAbove{Asset: "X", Threshold: 100}, event("X", 100), Unchanged, true},
		{"above not met", pipeline.PriceAbove{Asset: "X", Threshold: 100}, event("X", 90), Unchanged, true},
		{"below triggers", pipeline.PriceBelow{Asset: "X", Threshold: 100}, event("X", 99.99), Triggered, true},
		{"below is strict", pipeline.PriceBelow{Asset: "X", Threshold: 100}, event("X", 100), Unchanged, true},
		{"other asset ignored", pipeline.PriceAbove{Asset: "X", Threshold: 100}, event("Y", 1000), Unchanged, false},
		{"no rounding", pipeline.PriceAbove{Asset: "X", Threshold: 0.1}, event("X", 0.1000000001), Triggered, true},
		{"unhandled pointer variant never triggers", &pipeline.PriceAbove{Asset: "X", Threshold: 100}, event("X", 101), Unchanged, true},
		{"unhandled below pointer never triggers", &pipeline.PriceBelow{Asset: "X", Threshold: 100}, event("X", 1), Unchanged, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := pipeline.NewCondition(tt.cond)
			got := Evaluate(&c, tt.ev, time.Now())

			if got != tt.want {
				t.Errorf("Evaluate() = %v, expected %v", got, tt.want)
			}
			if c.Triggered != (tt.want == Triggered) {
				t.Errorf("Triggered = %v after verdict %v", c.Triggered, got)
			}
			if (c.LastEvaluated != nil) != tt.wantEvaluated {
				t.Errorf("LastEvaluated set = %v, expected %v", c.LastEvaluated != nil, tt.wantEvaluated)
			}
		})
	}
}

func TestEvaluate_LatchIsOneShot(t *testing.T) {
	c := pipeline.NewCondition(pipeline.PriceAbove{Asset: "X", Threshold: 100})
	now := time.Now()

	prices := []float64{90, 95, 101, 150, 50}
	triggers := 0
	for i, price := range prices {
		if Evaluate(&c, event("X", price), now.Add(time.Duration(i)*time.Second)) == Triggered {
			triggers++
			if price != 101 {
				t.Errorf("triggered on %v, expected only on 101", price)
			}
		}
	}

	if triggers != 1 {
		t.Errorf("expected exactly one trigger, got %d", triggers)
	}
	if !c.Triggered {
		t.Error("latch was reset by a later event")
	}
	if want := now.Add(2 * time.Second); !c.LastEvaluated.Equal(want) {
		t.Errorf("latched condition should not be re-evaluated, LastEvaluated = %v", c.LastEvaluated)
	}
}

func TestAllTriggered(t *testing.T) {
	step := pipeline.NewStep("s", pipeline.Notification{Message: "m"},
		pipeline.NewCondition(pipeline.PriceAbove{Asset: "X", Threshold: 100}),
		pipeline.NewCondition(pipeline.PriceAbove{Asset: "Y", Threshold: 50}),
	)

	if AllTriggered(step) {
		t.Fatal("no condition has triggered yet")
	}
	if !StepReferences(step, "Y") || StepReferences(step, "Z") {
		t.Error("unexpected StepReferences result")
	}

	Evaluate(&step.Conditions[1], event("Y", 60), time.Now())
	if AllTriggered(step) {
		t.Fatal("only one of two conditions has triggered")
	}
	Evaluate(&step.Conditions[0], event("X", 120), time.Now())
	if !AllTriggered(step) {
		t.Error("expected both conditions to be triggered")
	}

	empty := pipeline.NewStep("e", pipeline.Notification{Message: "m"})
	if !AllTriggered(empty) {
		t.Error("a step without conditions is trivially satisfied")
	}
}
