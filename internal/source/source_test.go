package source

import "testing"

func TestActivityScoreRewardsContactSignals(t *testing.T) {
	baseline := activity{any: 10}
	withContact := baseline
	withContact.absPressure = 10
	withContact.btnTouch = 10

	if withContact.score() <= baseline.score() {
		t.Errorf("score() = %d with contact signals added, want more than baseline's %d", withContact.score(), baseline.score())
	}
}

func TestPathForExplicitOrDefaultPassthrough(t *testing.T) {
	got, err := PathForExplicitOrDefault("/dev/input/event7")
	if err != nil {
		t.Fatalf("PathForExplicitOrDefault: %v", err)
	}
	if got != "/dev/input/event7" {
		t.Errorf("got %q, want the explicit path unchanged", got)
	}
}

func TestAutoDetectActivePassthrough(t *testing.T) {
	got, err := AutoDetectActive("/dev/input/event3", 0)
	if err != nil {
		t.Fatalf("AutoDetectActive: %v", err)
	}
	if got != "/dev/input/event3" {
		t.Errorf("got %q, want the explicit path unchanged", got)
	}
}
