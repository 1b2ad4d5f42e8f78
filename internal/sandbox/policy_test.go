package sandbox

import (
	"testing"
	"time"
)

func TestDefaultPolicy_Validates(t *testing.T) {
	t.Parallel()
	p := DefaultPolicy("/tmp/project")
	if err := p.Validate(); err != nil {
		t.Fatalf("default policy should validate, got: %v", err)
	}
}

func TestPolicy_Validate_RejectsEmptyRoot(t *testing.T) {
	t.Parallel()
	p := DefaultPolicy("")
	if err := p.Validate(); err == nil {
		t.Error("expected empty project root to fail validation")
	}
}

func TestPolicy_Validate_RejectsBadRegex(t *testing.T) {
	t.Parallel()
	p := DefaultPolicy("/tmp/project")
	p.BlockedBashPatterns = []string{"("}
	if err := p.Validate(); err == nil {
		t.Error("expected invalid regex to fail validation")
	}
}

func TestClampDuration(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name          string
		d, def, hard  time.Duration
		want          time.Duration
	}{
		{"zero uses default", 0, 10 * time.Second, 120 * time.Second, 10 * time.Second},
		{"within bounds kept", 30 * time.Second, 10 * time.Second, 120 * time.Second, 30 * time.Second},
		{"over hard cap clamped", 999 * time.Second, 10 * time.Second, 120 * time.Second, 120 * time.Second},
		{"negative uses default", -5 * time.Second, 10 * time.Second, 120 * time.Second, 10 * time.Second},
	}
	for _, c := range cases {
		got := clampDuration(c.d, c.def, c.hard)
		if got != c.want {
			t.Errorf("%s: got %v, want %v", c.name, got, c.want)
		}
	}
}
