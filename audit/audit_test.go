package audit

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/ipmitool/go-ipmi-lanplus"
)

func openTestSink(t *testing.T) *Sink {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audit.db")
	s, err := Open("sqlite", path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenRejectsUnknownType(t *testing.T) {
	if _, err := Open("oracle", "whatever"); err == nil {
		t.Error("expected an error for an unsupported database type")
	}
}

func TestRecordOpenAndClose(t *testing.T) {
	s := openTestSink(t)

	if err := s.RecordOpen("10.0.0.1:623"); err != nil {
		t.Fatalf("RecordOpen: %v", err)
	}
	if err := s.RecordClose("10.0.0.1:623"); err != nil {
		t.Fatalf("RecordClose: %v", err)
	}

	events, err := s.Recent("10.0.0.1:623", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
}

func TestRecordExecuteDistinguishesErrors(t *testing.T) {
	s := openTestSink(t)
	cmd := ipmigo.NewRawCommand("Get Device ID", 0x01, ipmigo.NewNetFnRsLUN(ipmigo.NetFnAppReq, 0), nil)

	if err := s.RecordExecute("10.0.0.1:623", cmd, nil); err != nil {
		t.Fatalf("RecordExecute(success): %v", err)
	}
	if err := s.RecordExecute("10.0.0.1:623", cmd, errors.New("timed out")); err != nil {
		t.Fatalf("RecordExecute(failure): %v", err)
	}

	events, err := s.Recent("10.0.0.1:623", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	var sawExecute, sawError bool
	for _, e := range events {
		switch e.Kind {
		case "execute":
			sawExecute = true
		case "error":
			sawError = true
			if e.Detail != "timed out" {
				t.Errorf("error Detail = %q, want %q", e.Detail, "timed out")
			}
		}
	}
	if !sawExecute || !sawError {
		t.Errorf("expected both an execute and an error event, got %+v", events)
	}
}
