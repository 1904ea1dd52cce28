package version

import "testing"

func TestSatisfies(t *testing.T) {
	tests := []struct {
		current    string
		constraint string
		want       bool
	}{
		{"0.3.0", "", true},
		{"0.3.0", ">= 0.2.0", true},
		{"v0.3.0", ">= 0.4.0", false},
		{"1.4.2", "^1.2", true},
		{"2.0.0", "^1.2", false},
		{"dev", ">= 9.0.0", true},
	}
	for _, tt := range tests {
		t.Run(tt.current+" "+tt.constraint, func(t *testing.T) {
			got, err := Satisfies(tt.current, tt.constraint)
			if err != nil {
				t.Fatalf("Satisfies error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Satisfies(%q, %q) = %v, want %v", tt.current, tt.constraint, got, tt.want)
			}
		})
	}
}

func TestSatisfies_BadConstraint(t *testing.T) {
	if _, err := Satisfies("1.0.0", ">>> nope"); err == nil {
		t.Error("expected error for malformed constraint")
	}
}

func TestIsRelease(t *testing.T) {
	if !IsRelease("v1.0.0") {
		t.Error("v1.0.0 should be a release")
	}
	if IsRelease("dev") {
		t.Error("dev should not be a release")
	}
}
