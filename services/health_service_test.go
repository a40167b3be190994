package services

import (
	"context"
	"testing"
)

func TestCombineStatus(t *testing.T) {
	tests := []struct {
		name      string
		current   string
		candidate string
		want      string
	}{
		{"ok stays ok", overallStatusOK, overallStatusOK, overallStatusOK},
		{"degraded wins over ok", overallStatusOK, overallStatusDegraded, overallStatusDegraded},
		{"critical wins over degraded", overallStatusDegraded, overallStatusCritical, overallStatusCritical},
		{"critical never downgrades", overallStatusCritical, overallStatusOK, overallStatusCritical},
		{"unknown current treated as ok", "garbage", overallStatusDegraded, overallStatusDegraded},
		{"unknown candidate ignored", overallStatusOK, "garbage", overallStatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := combineStatus(tt.current, tt.candidate); got != tt.want {
				t.Errorf("combineStatus(%q, %q) = %q, want %q", tt.current, tt.candidate, got, tt.want)
			}
		})
	}
}

func TestHTTPStatusForOverall(t *testing.T) {
	s := NewHealthService("", "")
	if got := s.HTTPStatusForOverall(overallStatusCritical); got != 503 {
		t.Errorf("critical = %d, want 503", got)
	}
	if got := s.HTTPStatusForOverall(overallStatusDegraded); got != 200 {
		t.Errorf("degraded = %d, want 200", got)
	}
	if got := s.HTTPStatusForOverall(overallStatusOK); got != 200 {
		t.Errorf("ok = %d, want 200", got)
	}
}

type fixedCounter int

func (f fixedCounter) ClientCount() int { return int(f) }

func TestCheckRealtime(t *testing.T) {
	s := NewHealthService("", "")

	check, status := s.checkRealtime(context.Background())
	if check.Status != checkStatusDisabled || status != overallStatusOK {
		t.Errorf("unattached hub: check %q / status %q, want disabled/ok", check.Status, status)
	}

	s.AttachRealtime(fixedCounter(3))
	check, status = s.checkRealtime(context.Background())
	if check.Status != checkStatusUp || status != overallStatusOK {
		t.Fatalf("attached hub: check %q / status %q, want up/ok", check.Status, status)
	}
	if check.Details["connected_clients"] != 3 {
		t.Errorf("connected_clients = %v, want 3", check.Details["connected_clients"])
	}
}

func TestNewHealthServiceDefaults(t *testing.T) {
	s := NewHealthService("  ", "")
	if s.serviceName != defaultServiceName || s.version != defaultVersion {
		t.Errorf("defaults = (%q, %q), want (%q, %q)", s.serviceName, s.version, defaultServiceName, defaultVersion)
	}
}
