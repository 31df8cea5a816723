package player

import "testing"

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{Stopped, "Stopped"},
		{Playing, "Playing"},
		{Paused, "Paused"},
		{State(99), "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.state.String(); got != tt.want {
				t.Errorf("State.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestState_IsActive(t *testing.T) {
	tests := []struct {
		state State
		want  bool
	}{
		{Stopped, false},
		{Playing, true},
		{Paused, true},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			if got := tt.state.IsActive(); got != tt.want {
				t.Errorf("State.IsActive() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEndReason_String(t *testing.T) {
	tests := []struct {
		reason EndReason
		want   string
	}{
		{EndFinished, "FINISHED"},
		{EndLoadFailed, "LOAD_FAILED"},
		{EndStopped, "STOPPED"},
		{EndReplaced, "REPLACED"},
		{EndCleanup, "CLEANUP"},
		{EndReason(42), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.reason.String(); got != tt.want {
				t.Errorf("EndReason.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEndReason_MayStartNext(t *testing.T) {
	tests := []struct {
		reason EndReason
		want   bool
	}{
		{EndFinished, true},
		{EndLoadFailed, true},
		{EndStopped, false},
		{EndReplaced, false},
		{EndCleanup, false},
	}

	for _, tt := range tests {
		t.Run(tt.reason.String(), func(t *testing.T) {
			if got := tt.reason.MayStartNext(); got != tt.want {
				t.Errorf("EndReason.MayStartNext() = %v, want %v", got, tt.want)
			}
		})
	}
}
