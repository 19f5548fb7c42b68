package activity

import (
	"errors"
	"testing"
	"time"
)

func TestParseIdleMinutes(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Duration
		wantErr bool
	}{
		{input: "5", want: 5 * time.Minute},
		{input: " 60 ", want: time.Hour},
		{input: "0", wantErr: true},
		{input: "-3", wantErr: true},
		{input: "five", wantErr: true},
		{input: "", wantErr: true},
		{input: "1.5", wantErr: true},
		{input: "153722867", want: 153722867 * time.Minute},
		{input: "153722868", wantErr: true},
		{input: "307445735", wantErr: true},
		{input: "9223372036854775807", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseIdleMinutes(tt.input)
			if tt.wantErr {
				var cfgErr *ConfigurationError
				if !errors.As(err, &cfgErr) {
					t.Fatalf("ParseIdleMinutes(%q) error = %v, want ConfigurationError", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseIdleMinutes(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseIdleMinutes(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestConfigurationError_Unwrap(t *testing.T) {
	_, err := ParseIdleMinutes("abc")
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if cfgErr.Unwrap() == nil {
		t.Error("expected wrapped strconv error")
	}
}
