package queue

import "testing"

func TestCaptureSubject(t *testing.T) {
	tests := []struct {
		device string
		want   string
	}{
		{"gate-1", "captures.gate-1"},
		{"lobby", "captures.lobby"},
		// Terminals may omit the device id; the subject must still be
		// valid under captures.> or the publish is rejected.
		{"", "captures.unknown"},
	}
	for _, tt := range tests {
		if got := captureSubject(tt.device); got != tt.want {
			t.Errorf("captureSubject(%q) = %q, want %q", tt.device, got, tt.want)
		}
	}
}

func TestAccessSubject(t *testing.T) {
	tests := []struct {
		device string
		want   string
	}{
		{"gate-1", "access.gate-1"},
		{"", "access.unknown"},
	}
	for _, tt := range tests {
		if got := accessSubject(tt.device); got != tt.want {
			t.Errorf("accessSubject(%q) = %q, want %q", tt.device, got, tt.want)
		}
	}
}
