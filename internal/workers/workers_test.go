package workers

import (
	"runtime"
	"testing"
)

func TestCount(t *testing.T) {
	t.Setenv("THUMBNAIL_WORKERS", "")

	availableCPU := runtime.GOMAXPROCS(0)

	tests := []struct {
		name       string
		multiplier float64
		limit      int
		want       int
	}{
		{"one per CPU", 1.0, 0, availableCPU},
		{"two per CPU", 2.0, 0, availableCPU * 2},
		{"limit lower than calculated", 2.0, 1, 1},
		{"very low multiplier", 0.0001, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Count(tt.multiplier, tt.limit); got != tt.want {
				t.Errorf("Count(%v, %d) = %d, want %d", tt.multiplier, tt.limit, got, tt.want)
			}
		})
	}
}

func TestCountEnvOverride(t *testing.T) {
	tests := []struct {
		name  string
		env   string
		limit int
		want  int
	}{
		{"valid override", "7", 0, 7},
		{"override not capped by limit", "64", 32, 64},
		{"invalid override ignored", "many", 0, runtime.GOMAXPROCS(0)},
		{"zero override ignored", "0", 0, runtime.GOMAXPROCS(0)},
		{"negative override ignored", "-3", 0, runtime.GOMAXPROCS(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("THUMBNAIL_WORKERS", tt.env)
			if got := ForCPU(tt.limit); got != tt.want {
				t.Errorf("ForCPU(%d) = %d, want %d", tt.limit, got, tt.want)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	t.Setenv("THUMBNAIL_WORKERS", "5")

	tests := []struct {
		name      string
		requested int
		limit     int
		want      int
	}{
		{"explicit wins over env", 3, DefaultLimit, 3},
		{"explicit above limit kept", 64, DefaultLimit, 64},
		{"explicit with no limit", 100, 0, 100},
		{"zero uses env", 0, DefaultLimit, 5},
		{"negative uses env", -1, DefaultLimit, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resolve(tt.requested, tt.limit); got != tt.want {
				t.Errorf("Resolve(%d, %d) = %d, want %d", tt.requested, tt.limit, got, tt.want)
			}
		})
	}
}
