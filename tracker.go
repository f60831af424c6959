package ipmigo

import (
	"net"
	"time"

	"github.com/sirupsen/logrus"
)

// tracker drives a single request to completion against the policy Section
// 4.6 describes beyond a bare request/response round trip:
//   - retry-on-timeout, resending the identical wire bytes with the
//     session timeout growing by one second per attempt (step 3)
//   - 0xCC/0xCF duplicate-response suppression: the BMC recognized a
//     retransmit it already executed, so the attempt is satisfied and the
//     tracker polls once more for the real result (step 4)
//   - completion code 0x80 ("command in progress") polling via a separate
//     Get Upgrade Status request until it clears or upgradeTimeout elapses
//   - 0xC3/0xFF inaccessibility: wait, reopen the session once, resend
//
// send/pollStatus/reopen are injected so the policy above can be unit
// tested without a real UDP session; sessionV2_0.execute wires the real
// implementations (lanplus.go).
type tracker struct {
	maxRetries      int
	timeout         time.Duration // initial per-attempt timeout; grows by 1s per retry
	pollDelay       time.Duration // defaults to 250ms, floored to 100ms while polling
	maxPolls        int           // defaults to 20
	upgradeTimeout  time.Duration // defaults to defaultUpgradeTimeout
	inaccessTimeout time.Duration // defaults to defaultInaccessTimeout
	logger          logrus.FieldLogger

	// send resends the exact same pre-built wire bytes with the given
	// per-attempt timeout (Section 4.6 step 3).
	send func(timeout time.Duration) (*ipmiPacket, error)

	// pollStatus issues one Get Upgrade Status request. Nil disables
	// long-duration polling (the response is returned as-is).
	pollStatus func() (*GetUpgradeStatusCommand, error)

	// reopen reopens the session and resends the original command once;
	// resolve sleeps inaccessTimeout before calling it. Nil disables the
	// inaccessibility path.
	reopen func() (*ipmiPacket, error)
}

func (t *tracker) run() (*ipmiPacket, error) {
	if t.pollDelay == 0 {
		t.pollDelay = 250 * time.Millisecond
	}
	if t.maxPolls == 0 {
		t.maxPolls = 20
	}
	if t.upgradeTimeout == 0 {
		t.upgradeTimeout = defaultUpgradeTimeout
	}
	if t.inaccessTimeout == 0 {
		t.inaccessTimeout = defaultInaccessTimeout
	}

	timeout := t.timeout
	var pkt *ipmiPacket
	var lastErr error
	for attempt := 0; attempt <= t.maxRetries; attempt++ {
		if attempt > 0 {
			t.debugf("retrying command execution (attempt %d/%d), timeout now %s", attempt, t.maxRetries, timeout)
		}
		p, err := t.send(timeout)
		if err == nil {
			pkt = p
			lastErr = nil
			break
		}
		lastErr = err
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			timeout += time.Second
			continue
		}
		return nil, err
	}
	if lastErr != nil {
		return nil, &TimeoutError{Operation: "command execution", Retries: t.maxRetries}
	}

	return t.resolve(pkt, timeout)
}

// resolve applies the duplicate/long-duration/inaccessibility policy to an
// already-received response.
func (t *tracker) resolve(pkt *ipmiPacket, timeout time.Duration) (*ipmiPacket, error) {
	rsm, ok := pkt.Response.(*ipmiResponseMessage)
	if !ok {
		return pkt, nil
	}

	if isDuplicateResponse(rsm.CompletionCode) {
		t.debugf("BMC reports %s (duplicate request already processed); polling once more", rsm.CompletionCode)
		p, err := t.send(timeout)
		if err != nil {
			return pkt, nil
		}
		pkt = p
		rsm, ok = pkt.Response.(*ipmiResponseMessage)
		if !ok {
			return pkt, nil
		}
	}

	if rsm.CompletionCode == completionCommandInProgress && t.pollStatus != nil {
		return t.pollLongDuration(pkt, rsm)
	}

	if isInaccessible(rsm.CompletionCode) && t.reopen != nil {
		t.warnf("BMC reports %s; waiting %s before reopening the session", rsm.CompletionCode, t.inaccessTimeout)
		time.Sleep(t.inaccessTimeout)
		p, err := t.reopen()
		if err != nil {
			return nil, err
		}
		return p, nil
	}

	return pkt, nil
}

// pollLongDuration implements Section 4.6's long-duration-command polling:
// while a command (Prepare Components, Upload Firmware Block, Activate
// Firmware, …) is still running, Get Upgrade Status keeps reporting 0x80 in
// its lastCmdCompCode field; the *final* completion code of the original
// command is the value that field reports once it changes, which is
// grafted onto pkt's response before returning it to the caller.
func (t *tracker) pollLongDuration(pkt *ipmiPacket, rsm *ipmiResponseMessage) (*ipmiPacket, error) {
	delay := t.pollDelay
	if delay < 100*time.Millisecond {
		delay = 100 * time.Millisecond
	}
	deadline := time.Now().Add(t.upgradeTimeout)

	status := &GetUpgradeStatusCommand{LastCmdCompCode: completionCommandInProgress}
	for i := 0; status.LastCmdCompCode == completionCommandInProgress && i < t.maxPolls && time.Now().Before(deadline); i++ {
		time.Sleep(delay)
		s, err := t.pollStatus()
		if err != nil {
			return nil, err
		}
		status = s
	}

	rsm.CompletionCode = status.LastCmdCompCode
	return pkt, nil
}

func (t *tracker) debugf(format string, args ...interface{}) {
	if t.logger != nil {
		t.logger.Debugf(format, args...)
	}
}

func (t *tracker) warnf(format string, args ...interface{}) {
	if t.logger != nil {
		t.logger.Warnf(format, args...)
	}
}

// completionCommandInProgress is the 0x80 completion code (Section 5.2):
// not an error, a signal to poll Get Upgrade Status until it clears.
const completionCommandInProgress CompletionCode = 0x80

const (
	defaultUpgradeTimeout  = 60 * time.Second // HPMFWUPG_DEFAULT_UPGRADE_TIMEOUT
	defaultInaccessTimeout = 60 * time.Second // HPMFWUPG_DEFAULT_INACCESS_TIMEOUT
)

// isDuplicateResponse reports whether cc indicates the BMC recognized this
// request as a retransmit of one it already executed: 0xCC (treated by
// Section 4.6 as an invalid-sequence duplicate) or 0xCF (duplicated
// request). The caller should treat the attempt as satisfied and poll once
// more rather than surface either code as an error.
func isDuplicateResponse(cc CompletionCode) bool {
	return cc == CompletionInvalidDataField || cc == CompletionDuplicatedRequest
}

// isInaccessible reports whether cc is one of the ccodes Section 4.6 treats
// as "BMC may have rebooted after firmware activation": 0xC3 (Timeout) or
// 0xFF (Unspecified error).
func isInaccessible(cc CompletionCode) bool {
	return cc == CompletionTimeout || cc == CompletionUnspecifiedError
}
