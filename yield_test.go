package gosched

import "testing"

func TestYieldPolicy_NoYieldBeforeFrameInterval(t *testing.T) {
	y := newYieldPolicy()
	if y.shouldYield(4) {
		t.Fatal("should not yield before frameIntervalMs elapses")
	}
}

func TestYieldPolicy_YieldsAtFrameIntervalWithoutHint(t *testing.T) {
	y := newYieldPolicy()
	if !y.shouldYield(5) {
		t.Fatal("should yield once frameIntervalMs elapses with no input hint")
	}
}

type fakeInputHint struct {
	discrete, continuous bool
}

func (h fakeInputHint) DiscreteInputPending() bool   { return h.discrete }
func (h fakeInputHint) ContinuousInputPending() bool { return h.continuous }

func TestYieldPolicy_WithHint_DiscreteWindow(t *testing.T) {
	y := newYieldPolicy()
	y.inputHint = fakeInputHint{discrete: true}
	if !y.shouldYield(10) {
		t.Fatal("discrete input pending should force a yield within the discrete window")
	}

	y2 := newYieldPolicy()
	y2.inputHint = fakeInputHint{discrete: false}
	if y2.shouldYield(10) {
		t.Fatal("no pending input should not force a yield within the discrete window")
	}
}

func TestYieldPolicy_WithHint_ContinuousWindow(t *testing.T) {
	y := newYieldPolicy()
	y.inputHint = fakeInputHint{continuous: true}
	if !y.shouldYield(60) {
		t.Fatal("continuous input pending should force a yield within the continuous window")
	}
}

func TestYieldPolicy_PastMaxInterval_AlwaysYields(t *testing.T) {
	y := newYieldPolicy()
	y.inputHint = fakeInputHint{}
	if !y.shouldYield(301) {
		t.Fatal("should always yield past maxYieldIntervalMs regardless of hint")
	}
}

func TestYieldPolicy_PaintRequested_ForcesYield(t *testing.T) {
	y := newYieldPolicy()
	y.inputHint = fakeInputHint{}
	y.requestPaint()
	if !y.shouldYield(10) {
		t.Fatal("a requested paint should force a yield once the frame interval has passed")
	}
}

func TestYieldPolicy_ForceFrameRate(t *testing.T) {
	y := newYieldPolicy()

	if err := y.forceFrameRate(200); err == nil {
		t.Fatal("200 fps is out of [0, 125] and should be rejected")
	}
	if y.frameIntervalMs != defaultFrameIntervalMs {
		t.Fatal("rejected forceFrameRate must not mutate state")
	}

	if err := y.forceFrameRate(100); err != nil {
		t.Fatalf("100 fps should be accepted: %v", err)
	}
	if y.frameIntervalMs != 10 {
		t.Fatalf("frameIntervalMs = %d, want 10", y.frameIntervalMs)
	}

	if err := y.forceFrameRate(0); err != nil {
		t.Fatalf("0 should reset to default: %v", err)
	}
	if y.frameIntervalMs != defaultFrameIntervalMs {
		t.Fatalf("frameIntervalMs = %d, want default %d", y.frameIntervalMs, defaultFrameIntervalMs)
	}
}
