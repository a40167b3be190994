package websocket

import (
	"testing"
	"time"

	"sata_school_go/services"
)

type fakeSink struct {
	lastEmployeeNo string
	lastAt         time.Time
	err            error
}

func (f *fakeSink) RecordScan(schoolID uint, employeeNo string, at time.Time) (*services.ScanResult, error) {
	f.lastEmployeeNo = employeeNo
	f.lastAt = at
	if f.err != nil {
		return nil, f.err
	}
	return &services.ScanResult{PersonKind: "student", FullName: "Ali Valiyev", Action: "entered"}, nil
}

func TestHandleFrame(t *testing.T) {
	tests := []struct {
		name      string
		frame     ScanFrame
		sinkErr   error
		wantOK    bool
		wantError string
	}{
		{
			name:   "valid scan",
			frame:  ScanFrame{EmployeeNo: "abc123"},
			wantOK: true,
		},
		{
			name:      "missing badge",
			frame:     ScanFrame{},
			wantError: "missing employee_no",
		},
		{
			name:      "malformed timestamp",
			frame:     ScanFrame{EmployeeNo: "abc123", Timestamp: "yesterday"},
			wantError: "bad timestamp, want RFC3339",
		},
		{
			name:      "unknown badge",
			frame:     ScanFrame{EmployeeNo: "nope"},
			sinkErr:   services.ErrNotFound,
			wantError: "unknown badge",
		},
		{
			name:      "debounced",
			frame:     ScanFrame{EmployeeNo: "abc123"},
			sinkErr:   &services.TooSoonError{WaitSeconds: 30},
			wantError: "scanned too recently",
		},
		{
			name:      "dwell not met",
			frame:     ScanFrame{EmployeeNo: "abc123"},
			sinkErr:   &services.MinimumDwellError{MinutesLeft: 3},
			wantError: "too early to leave",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &fakeSink{err: tt.sinkErr}
			bridge := NewBridge(NewHub(), sink, "")

			ack := bridge.handleFrame(1, tt.frame)
			if ack.OK != tt.wantOK {
				t.Fatalf("ok = %v, want %v (error %q)", ack.OK, tt.wantOK, ack.Error)
			}
			if ack.Error != tt.wantError {
				t.Errorf("error = %q, want %q", ack.Error, tt.wantError)
			}
		})
	}
}

func TestHandleFrameDeviceTimestamp(t *testing.T) {
	sink := &fakeSink{}
	bridge := NewBridge(NewHub(), sink, "")

	ack := bridge.handleFrame(1, ScanFrame{EmployeeNo: "abc123", Timestamp: "2024-03-04T08:15:00+05:00"})
	if !ack.OK {
		t.Fatalf("unexpected rejection: %s", ack.Error)
	}
	want := time.Date(2024, time.March, 4, 8, 15, 0, 0, time.FixedZone("", 5*3600))
	if !sink.lastAt.Equal(want) {
		t.Errorf("sink got %v, want %v", sink.lastAt, want)
	}
}
