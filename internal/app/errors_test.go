package app

import (
	"errors"
	"testing"

	"github.com/dshills/homebus/internal/hal"
)

func TestOperationError(t *testing.T) {
	tests := []struct {
		name     string
		err      *OperationError
		expected string
	}{
		{"op only", NewOperationError("configure", "", nil), "configure"},
		{"op and target", NewOperationError("invoke", "led", nil), "invoke led"},
		{"with error", NewOperationError("invoke", "led", ErrUnknownComponent), "invoke led: unknown component"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}

	var nilErr *OperationError
	if nilErr.Error() != "" {
		t.Error("nil OperationError should render empty")
	}
	if nilErr.Unwrap() != nil {
		t.Error("nil OperationError should unwrap to nil")
	}
}

func TestOperationError_Unwrap(t *testing.T) {
	err := NewOperationError("configure", "x", ErrUnknownPlatform)
	if !errors.Is(err, ErrUnknownPlatform) {
		t.Error("errors.Is should match the wrapped error")
	}
}

func TestComponentError(t *testing.T) {
	hw := &hal.HardwareInitError{Resource: "input", Pin: 99, Err: hal.ErrNoSuchPin}
	err := NewComponentError("btn", KindInput, hw)

	if got, want := err.Error(), "digital-input btn: "+hw.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	var target *hal.HardwareInitError
	if !errors.As(err, &target) {
		t.Fatal("errors.As should find the hardware error")
	}
	if target.Pin != 99 {
		t.Errorf("Pin = %d, want 99", target.Pin)
	}
	if !errors.Is(err, hal.ErrNoSuchPin) {
		t.Error("errors.Is should reach the sentinel")
	}

	bare := NewComponentError("btn", "", hal.ErrPinInUse)
	if got := bare.Error(); got != "btn: "+hal.ErrPinInUse.Error() {
		t.Errorf("Error() = %q", got)
	}
}
