package ipmigo

import (
	"errors"
	"testing"
	"time"
)

// fakeTimeoutError satisfies net.Error so it exercises the retry-on-timeout
// path in tracker.run(); the tracker itself never inspects anything but
// Timeout().
type fakeTimeoutError struct{}

func (fakeTimeoutError) Error() string   { return "fake timeout" }
func (fakeTimeoutError) Timeout() bool   { return true }
func (fakeTimeoutError) Temporary() bool { return true }

func completedPacket(cc CompletionCode) *ipmiPacket {
	return &ipmiPacket{Response: &ipmiResponseMessage{CompletionCode: cc}}
}

func TestTrackerRunRetriesOnTimeout(t *testing.T) {
	attempts := 0
	tr := &tracker{
		maxRetries: 3,
		send: func(timeout time.Duration) (*ipmiPacket, error) {
			attempts++
			if attempts < 3 {
				return nil, fakeTimeoutError{}
			}
			return completedPacket(CompletionOK), nil
		},
	}

	pkt, err := tr.run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	rsm := pkt.Response.(*ipmiResponseMessage)
	if rsm.CompletionCode != CompletionOK {
		t.Errorf("CompletionCode = %v, want CompletionOK", rsm.CompletionCode)
	}
}

func TestTrackerRunGrowsTimeoutByOneSecondPerRetry(t *testing.T) {
	var seen []time.Duration
	tr := &tracker{
		maxRetries: 3,
		timeout:    2 * time.Second,
		send: func(timeout time.Duration) (*ipmiPacket, error) {
			seen = append(seen, timeout)
			if len(seen) < 3 {
				return nil, fakeTimeoutError{}
			}
			return completedPacket(CompletionOK), nil
		},
	}

	if _, err := tr.run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	want := []time.Duration{2 * time.Second, 3 * time.Second, 4 * time.Second}
	if len(seen) != len(want) {
		t.Fatalf("attempts = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("attempt %d timeout = %s, want %s", i, seen[i], want[i])
		}
	}
}

func TestTrackerRunGivesUpAfterMaxRetries(t *testing.T) {
	attempts := 0
	tr := &tracker{
		maxRetries: 2,
		send: func(timeout time.Duration) (*ipmiPacket, error) {
			attempts++
			return nil, fakeTimeoutError{}
		},
	}

	_, err := tr.run()
	if err == nil {
		t.Fatal("expected an error once retries are exhausted")
	}
	if _, ok := err.(*TimeoutError); !ok {
		t.Errorf("error = %T, want *TimeoutError", err)
	}
	if attempts != 3 { // maxRetries + 1 initial attempt
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestTrackerRunReturnsNonTimeoutErrorImmediately(t *testing.T) {
	attempts := 0
	tr := &tracker{
		maxRetries: 5,
		send: func(timeout time.Duration) (*ipmiPacket, error) {
			attempts++
			return nil, errors.New("permanent failure")
		},
	}

	if _, err := tr.run(); err == nil {
		t.Error("expected an error")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (non-timeout errors are not retried)", attempts)
	}
}

func TestTrackerDuplicateResponsePollsOnceMore(t *testing.T) {
	attempts := 0
	tr := &tracker{
		maxRetries: 1,
		send: func(timeout time.Duration) (*ipmiPacket, error) {
			attempts++
			if attempts == 1 {
				return completedPacket(CompletionDuplicatedRequest), nil
			}
			return completedPacket(CompletionOK), nil
		},
	}

	pkt, err := tr.run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2 (initial send + one poll)", attempts)
	}
	rsm := pkt.Response.(*ipmiResponseMessage)
	if rsm.CompletionCode != CompletionOK {
		t.Errorf("CompletionCode = %v, want CompletionOK", rsm.CompletionCode)
	}
}

func TestTrackerInvalidDataFieldDuplicateAlsoPollsOnceMore(t *testing.T) {
	attempts := 0
	tr := &tracker{
		maxRetries: 1,
		send: func(timeout time.Duration) (*ipmiPacket, error) {
			attempts++
			if attempts == 1 {
				return completedPacket(CompletionInvalidDataField), nil
			}
			return completedPacket(CompletionOK), nil
		},
	}

	if _, err := tr.run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestTrackerPollsLongDurationCommandViaUpgradeStatus(t *testing.T) {
	sendCalls := 0
	pollCalls := 0
	tr := &tracker{
		maxRetries: 1,
		pollDelay:  time.Millisecond,
		maxPolls:   5,
		send: func(timeout time.Duration) (*ipmiPacket, error) {
			sendCalls++
			return completedPacket(completionCommandInProgress), nil
		},
		pollStatus: func() (*GetUpgradeStatusCommand, error) {
			pollCalls++
			cc := CompletionCode(completionCommandInProgress)
			if pollCalls >= 2 {
				cc = CompletionOK
			}
			return &GetUpgradeStatusCommand{LastCmdCompCode: cc}, nil
		},
	}

	pkt, err := tr.run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sendCalls != 1 {
		t.Errorf("sendCalls = %d, want 1 (only the original command is sent, not polled)", sendCalls)
	}
	if pollCalls != 2 {
		t.Errorf("pollCalls = %d, want 2", pollCalls)
	}
	rsm := pkt.Response.(*ipmiResponseMessage)
	if rsm.CompletionCode != CompletionOK {
		t.Errorf("final CompletionCode = %v, want CompletionOK (lastCmdCompCode grafted on)", rsm.CompletionCode)
	}
}

func TestTrackerLongDurationGivesUpAfterMaxPolls(t *testing.T) {
	pollCalls := 0
	tr := &tracker{
		maxRetries: 1,
		pollDelay:  time.Millisecond,
		maxPolls:   3,
		send: func(timeout time.Duration) (*ipmiPacket, error) {
			return completedPacket(completionCommandInProgress), nil
		},
		pollStatus: func() (*GetUpgradeStatusCommand, error) {
			pollCalls++
			return &GetUpgradeStatusCommand{LastCmdCompCode: completionCommandInProgress}, nil
		},
	}

	pkt, err := tr.run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	rsm := pkt.Response.(*ipmiResponseMessage)
	if rsm.CompletionCode != completionCommandInProgress {
		t.Errorf("CompletionCode = %v, want still in-progress after exhausting polls", rsm.CompletionCode)
	}
	if pollCalls != 3 {
		t.Errorf("pollCalls = %d, want 3 (bounded by maxPolls)", pollCalls)
	}
}

func TestTrackerInaccessibleWaitsThenReopens(t *testing.T) {
	reopened := false
	tr := &tracker{
		maxRetries:      1,
		inaccessTimeout: time.Millisecond,
		send: func(timeout time.Duration) (*ipmiPacket, error) {
			return completedPacket(CompletionTimeout), nil // 0xC3
		},
		reopen: func() (*ipmiPacket, error) {
			reopened = true
			return completedPacket(CompletionOK), nil
		},
	}

	pkt, err := tr.run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !reopened {
		t.Error("expected the session to be reopened on a 0xC3 response")
	}
	rsm := pkt.Response.(*ipmiResponseMessage)
	if rsm.CompletionCode != CompletionOK {
		t.Errorf("CompletionCode = %v, want CompletionOK from the reopened resend", rsm.CompletionCode)
	}
}

func TestTrackerUnspecifiedErrorAlsoTriggersReopen(t *testing.T) {
	reopened := false
	tr := &tracker{
		maxRetries:      1,
		inaccessTimeout: time.Millisecond,
		send: func(timeout time.Duration) (*ipmiPacket, error) {
			return completedPacket(CompletionUnspecifiedError), nil // 0xFF
		},
		reopen: func() (*ipmiPacket, error) {
			reopened = true
			return completedPacket(CompletionOK), nil
		},
	}

	if _, err := tr.run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !reopened {
		t.Error("expected the session to be reopened on a 0xFF response")
	}
}

func TestIsDuplicateResponse(t *testing.T) {
	if !isDuplicateResponse(CompletionDuplicatedRequest) {
		t.Error("0xCF must be treated as a duplicate")
	}
	if !isDuplicateResponse(CompletionInvalidDataField) {
		t.Error("0xCC must be treated as a duplicate")
	}
	if isDuplicateResponse(CompletionOK) {
		t.Error("CompletionOK must not be treated as a duplicate")
	}
}

func TestIsInaccessible(t *testing.T) {
	if !isInaccessible(CompletionTimeout) {
		t.Error("0xC3 must be treated as inaccessible")
	}
	if !isInaccessible(CompletionUnspecifiedError) {
		t.Error("0xFF must be treated as inaccessible")
	}
	if isInaccessible(CompletionOK) {
		t.Error("CompletionOK must not be treated as inaccessible")
	}
}
