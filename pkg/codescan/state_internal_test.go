package codescan

import (
	"errors"
	"testing"
)

func TestTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from    State
		to      State
		want    State
		wantErr bool
	}{
		{from: StateBuildingPayload, to: StateUploading, want: StateUploading},
		{from: StateUploading, to: StateCreatingScan, want: StateCreatingScan},
		{from: StateCreatingScan, to: StatePolling, want: StatePolling},
		{from: StatePolling, to: StateFetchingResults, want: StateFetchingResults},
		{from: StateFetchingResults, to: StateDone, want: StateDone},
		{from: StateBuildingPayload, to: StateFailed, want: StateFailed},
		{from: StatePolling, to: StateFailed, want: StateFailed},
		{from: StateBuildingPayload, to: StateCreatingScan, want: StateBuildingPayload, wantErr: true},
		{from: StatePolling, to: StateUploading, want: StatePolling, wantErr: true},
		{from: StateUploading, to: StateUploading, want: StateUploading, wantErr: true},
		{from: StateFailed, to: StateFailed, want: StateFailed, wantErr: true},
		{from: StateFailed, to: StateUploading, want: StateFailed, wantErr: true},
		{from: StateDone, to: StateFailed, want: StateDone, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			t.Parallel()

			got, err := transition(tt.from, tt.to)

			if tt.wantErr != (err != nil) {
				t.Fatalf("transition() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errIllegalTransition) {
				t.Errorf("transition() error = %v, want %v", err, errIllegalTransition)
			}
			if got != tt.want {
				t.Errorf("transition() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestState_String(t *testing.T) {
	t.Parallel()

	if got := StatePolling.String(); got != "polling" {
		t.Errorf("String() = %q, want %q", got, "polling")
	}
	if got := State(42).String(); got != "State(42)" {
		t.Errorf("String() = %q, want %q", got, "State(42)")
	}
}
