package ipmigo

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"net"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	consoleID uint32 = 0x49504d49 // 'IPMI'

	sessionHeaderV2_0Size = 12 // When payload type is not OEM
)

type sessionHeaderV2_0 struct {
	authType      authType
	payloadType   payloadType
	id            uint32
	sequence      uint32
	payloadLength uint16
}

func (s *sessionHeaderV2_0) ID() uint32               { return s.id }
func (s *sessionHeaderV2_0) AuthType() authType       { return s.authType }
func (s *sessionHeaderV2_0) PayloadType() payloadType { return s.payloadType }
func (s *sessionHeaderV2_0) SetEncrypted(b bool)      { s.payloadType.SetEncrypted(b) }
func (s *sessionHeaderV2_0) SetAuthenticated(b bool)  { s.payloadType.SetAuthenticated(b) }
func (s *sessionHeaderV2_0) PayloadLength() int       { return int(s.payloadLength) }
func (s *sessionHeaderV2_0) SetPayloadLength(n int)   { s.payloadLength = uint16(n) }

func (s *sessionHeaderV2_0) Marshal() ([]byte, error) {
	buf := make([]byte, sessionHeaderV2_0Size)
	buf[0] = byte(s.authType)
	buf[1] = byte(s.payloadType)
	binary.LittleEndian.PutUint32(buf[2:], s.id)
	binary.LittleEndian.PutUint32(buf[6:], s.sequence)
	binary.LittleEndian.PutUint16(buf[10:], s.payloadLength)
	return buf, nil
}

func (s *sessionHeaderV2_0) Unmarshal(buf []byte) ([]byte, error) {
	if len(buf) < sessionHeaderV2_0Size {
		return nil, &MessageError{
			Message: fmt.Sprintf("Invalid IPMI 2.0 session header size : %d", len(buf)),
			Detail:  hex.EncodeToString(buf),
		}
	}
	s.authType = authType(buf[0])
	s.payloadType = payloadType(buf[1])
	s.id = binary.LittleEndian.Uint32(buf[2:])
	s.sequence = binary.LittleEndian.Uint32(buf[6:])
	s.payloadLength = binary.LittleEndian.Uint16(buf[10:])
	return buf[sessionHeaderV2_0Size:], nil
}

func (s *sessionHeaderV2_0) String() string {
	return fmt.Sprintf(`{"AuthType":"%s","PayLoadType":%d,"ID":%d,"Sequence":%d,"PayloadLength":%d}`,
		s.authType, s.payloadType, s.id, s.sequence, s.payloadLength)
}

// sessionState tracks where an RMCP+ session is in the handshake described
// by Section 13: the bulk of the work below is walking this state machine
// forward one round trip at a time.
type sessionState uint8

const (
	stateClosed sessionState = iota
	statePresession
	stateOpenSent
	stateRakp1Sent
	stateRakp3Sent
	stateActive
)

func (st sessionState) String() string {
	switch st {
	case stateClosed:
		return "Closed"
	case statePresession:
		return "Presession"
	case stateOpenSent:
		return "OpenSent"
	case stateRakp1Sent:
		return "Rakp1Sent"
	case stateRakp3Sent:
		return "Rakp3Sent"
	case stateActive:
		return "Active"
	default:
		return fmt.Sprintf("Unknown(%d)", st)
	}
}

type sessionV2_0 struct {
	conn     net.Conn
	args     *Arguments
	state    sessionState
	id       uint32 // Session ID
	sequence uint32 // Session Sequence Number
	rqSeq    uint8  // Command Sequence Number
	suite    cipherSuite
	sik      []byte // Session Integrity Key
	k1       []byte // Integrity Key
	k2       []byte // Cipher Key

	solSeq         uint8  // outbound SOL packet sequence (1-15, wraps)
	solAckSeq      uint8  // last inbound SOL packet sequence ACK'd
	solAckLen      int    // character count delivered for solAckSeq, for tail-extension dedup
	solMaxOutbound uint16 // BMC-advertised max SOL payload size
}

func (s *sessionV2_0) ActiveSession() bool {
	return s.state == stateActive
}

func (s *sessionV2_0) Header(p payloadType) sessionHeader {
	return &sessionHeaderV2_0{
		authType:    authTypeRMCPPlus,
		id:          s.id,
		sequence:    s.NextSequence(),
		payloadType: p,
	}
}

func (s *sessionV2_0) Ping() error {
	conn, err := net.DialTimeout(s.args.Network, s.args.Address, s.args.Timeout)
	if err != nil {
		return err
	}
	defer conn.Close()

	return ping(conn, s.args.Timeout)
}

func (s *sessionV2_0) Open() error {
	if s.conn != nil {
		return nil
	}
	s.state = statePresession

	err := retry(int(s.args.Retries), func() error {
		conn, e := net.DialTimeout(s.args.Network, s.args.Address, s.args.Timeout)
		if e == nil {
			s.conn = conn
		}
		return e
	})
	if err != nil {
		return &TransportError{Cause: err, Message: "failed to dial BMC"}
	}

	err = s.openSession()
	if err != nil {
		defer s.Close()
	}
	return err
}

// resolveCipherSuiteID applies the cipher-suite selection policy: a nonzero
// Arguments.CipherSuiteID always wins; otherwise, when
// Arguments.NegotiateCipherSuite is set, the client asks the BMC for its
// supported suites and walks DefaultCipherSuitePreference (Section 4.4).
func (s *sessionV2_0) resolveCipherSuiteID() (uint, error) {
	if s.args.CipherSuiteID != 0 || !s.args.NegotiateCipherSuite {
		return s.args.CipherSuiteID, nil
	}

	s1 := &sessionV1_5{args: s.args, conn: s.conn}
	supported, err := probeCipherSuites(func(cmd Command) error {
		_, e := s1.execute(cmd)
		return e
	})
	if err != nil {
		// Fall back to the mandatory suite rather than failing outright.
		return 3, nil
	}
	return bestCipherSuite(supported, DefaultCipherSuitePreference), nil
}

func (s *sessionV2_0) openSession() error {
	// 1. Get Channel Authentication Capabilities

	// Send in 1.5 packet format to query any server
	s1 := &sessionV1_5{args: s.args, conn: s.conn}
	cac := newChannelAuthCapCommand(V2_0, s.args.PrivilegeLevel)
	if _, err := s1.execute(cac); err != nil {
		// Retry, without requesting IPMI V2
		cac = newChannelAuthCapCommand(V1_5, s.args.PrivilegeLevel)
		if _, err := s1.execute(cac); err != nil {
			return err
		}
	}

	if !cac.IsSupportedAuthType(authTypeRMCPPlus) {
		return &UnsupportedError{Message: "BMC does not advertise RMCP+ support", Value: cac.String()}
	}

	cipherID, err := s.resolveCipherSuiteID()
	if err != nil {
		return err
	}
	s.args.CipherSuiteID = cipherID
	suite, err := suiteToTriple(cipherID)
	if err != nil {
		return err
	}
	s.suite = *suite

	// 2. Open Session Request
	priv := s.args.PrivilegeLevel
	if priv == PrivilegeAdministrator {
		// Request the highest level matching proposed algorithms (lanplus.c L2809)
		priv = PrivilegeLevel(0)
	}

	s.state = stateOpenSent
	var pkt *ipmiPacket
	err = retry(int(s.args.Retries), func() (e error) {
		req := &ipmiPacket{
			RMCPHeader:    newRMCPHeaderForIPMI(),
			SessionHeader: s.Header(payloadTypeRMCPOpenReq),
			Request: &openSessionRequest{
				ConsoleID:      consoleID,
				PrivilegeLevel: priv,
				CipherSuiteID:  cipherID,
			},
		}
		pkt, e = s.SendPacket(req)
		return
	})
	if err != nil {
		return &TimeoutError{Operation: "Open Session Request", Retries: int(s.args.Retries)}
	}

	osr, ok := pkt.Response.(*openSessionResponse)
	if !ok {
		return &MessageError{
			Message: "Received an unexpected message (Open Session Response)",
			Detail:  pkt.String(),
		}
	}
	if osr.StatusCode != rakpStatusNoErrors {
		return &AuthFailedError{Message: fmt.Sprintf("Error in Open Session Response : %s", osr.StatusCode)}
	}
	if consoleID != osr.ConsoleID {
		return &MessageError{
			Message: fmt.Sprintf("Mismatch console session ID in Open Session Response : 0x%x - 0x%x",
				consoleID, osr.ConsoleID),
			Detail: pkt.String(),
		}
	}
	if !s.suite.Equal(&osr.CipherSuite) {
		return &MessageError{
			Message: fmt.Sprintf("Mismatch cipher suite : %s - %s", &s.suite, osr.CipherSuite),
			Detail:  pkt.String(),
		}
	}

	// 3. Exchange information(RAKP Message 1,2)
	s.state = stateRakp1Sent
	r1 := &rakpMessage1{
		ManagedID:       osr.ManagedID,
		PrivilegeLevel:  s.args.PrivilegeLevel,
		PrivilegeLookup: false,
		Username:        s.args.Username,
	}

	err = retry(int(s.args.Retries), func() (e error) {
		req := &ipmiPacket{
			RMCPHeader:    newRMCPHeaderForIPMI(),
			SessionHeader: s.Header(payloadTypeRAKP1),
			Request:       r1,
		}
		pkt, e = s.SendPacket(req)
		return
	})
	if err != nil {
		return &TimeoutError{Operation: "RAKP Message 1", Retries: int(s.args.Retries)}
	}

	r2, ok := pkt.Response.(*rakpMessage2)
	if !ok {
		return &MessageError{
			Message: "Received an unexpected message (RAKP 2)",
			Detail:  pkt.String(),
		}
	}
	if r2.StatusCode != rakpStatusNoErrors {
		return &AuthFailedError{Message: fmt.Sprintf("Error in RAKP 2 : %s", r2.StatusCode)}
	}
	if consoleID != r2.ConsoleID {
		return &MessageError{
			Message: fmt.Sprintf("Mismatch console session ID in RAKP 2 : 0x%x - 0x%x", consoleID, r2.ConsoleID),
			Detail:  pkt.String(),
		}
	}
	if err = r2.ValidateAuthCode(s.args, r1); err != nil {
		// Section 13.21: a RAKP 2 HMAC mismatch still requires RAKP 3 to be
		// sent so the BMC can tear its half-open session state down.
		abortR3 := &rakpMessage3{StatusCode: rakpStatusInvalidIntegrityCheck, ManagedID: osr.ManagedID}
		_, _ = s.SendPacket(&ipmiPacket{
			RMCPHeader:    newRMCPHeaderForIPMI(),
			SessionHeader: s.Header(payloadTypeRAKP3),
			Request:       abortR3,
		})
		return err
	}

	// 4. Activate session(RAKP Message 3,4)
	s.state = stateRakp3Sent
	r3 := &rakpMessage3{
		StatusCode: rakpStatusNoErrors,
		ManagedID:  osr.ManagedID,
	}
	r3.GenerateAuthCode(s.args, r1, r2)
	r3.GenerateSIK(s.args, r1, r2)
	r3.GenerateK1(s.args)
	r3.GenerateK2(s.args)

	err = retry(int(s.args.Retries), func() (e error) {
		req := &ipmiPacket{
			RMCPHeader:    newRMCPHeaderForIPMI(),
			SessionHeader: s.Header(payloadTypeRAKP3),
			Request:       r3,
		}
		pkt, e = s.SendPacket(req)
		return
	})
	if err != nil {
		return &TimeoutError{Operation: "RAKP Message 3", Retries: int(s.args.Retries)}
	}

	r4, ok := pkt.Response.(*rakpMessage4)
	if !ok {
		return &MessageError{
			Message: "Received an unexpected message (RAKP 4)",
			Detail:  pkt.String(),
		}
	}
	if r4.StatusCode != rakpStatusNoErrors {
		return &AuthFailedError{Message: fmt.Sprintf("Error in RAKP 4 : %s", r4.StatusCode)}
	}
	if consoleID != r4.ConsoleID {
		return &MessageError{
			Message: fmt.Sprintf("Mismatch console session ID in RAKP 4 : 0x%x - 0x%x", consoleID, r4.ConsoleID),
			Detail:  pkt.String(),
		}
	}
	if err = r4.ValidateAuthCode(s.args, r1, r2, r3); err != nil {
		return err
	}

	// Set session ID and keys
	s.id = osr.ManagedID
	s.sik = r3.SIK
	s.k1 = r3.K1
	s.k2 = r3.K2
	s.state = stateActive

	// Set session privilege level (bridging, if any, is not possible during
	// session setup - original_source disables it for the same call)
	if l := s.args.PrivilegeLevel; l > PrivilegeUser {
		if _, err := s.execute(newSetSessionPrivilegeCommand(l)); err != nil {
			return &AuthFailedError{Message: fmt.Sprintf("Unable to set session privilege level to %s", l), Detail: err.Error()}
		}
	}

	return nil
}

func (s *sessionV2_0) Close() error {
	if s.ActiveSession() {
		if err := s.Execute(newCloseSessionCommand(s.id)); err != nil {
			return err
		}

		s.id = 0
		s.sequence = 0
		s.rqSeq = 0
		s.sik = nil
		s.k1 = nil
		s.k2 = nil
		s.state = stateClosed
	}

	if c := s.conn; c != nil {
		if err := c.Close(); err != nil {
			return err
		}
		s.conn = nil
	}

	return nil
}

func (s *sessionV2_0) Execute(cmd Command) error {
	if err := s.Open(); err != nil {
		return err
	}

	if _, err := s.execute(cmd); err != nil {
		return err
	}
	return nil
}

// execute wraps a single request/response exchange with the long-running
// command poll (completion code 0x80, Section 5.2) and duplicate-response
// detection the bare request/response loop can't see on its own; the
// policy itself lives in tracker.go. The wire bytes are built exactly once
// (Section 4.6 step 3: "re-send the exact same wire bytes") and every retry
// replays them unchanged over a growing timeout.
func (s *sessionV2_0) execute(cmd Command) (response, error) {
	rqSeq := s.NextRqSeq()
	req := &ipmiPacket{
		RMCPHeader:    newRMCPHeaderForIPMI(),
		SessionHeader: s.Header(payloadTypeIPMI),
		Request: &ipmiRequestMessage{
			RsAddr:  bmcSlaveAddress,
			RqAddr:  remoteSWID,
			RqSeq:   rqSeq,
			Command: cmd,
		},
	}
	wire, err := s.buildWire(req)
	if err != nil {
		return nil, err
	}

	t := &tracker{
		maxRetries:      int(s.args.Retries),
		timeout:         s.args.Timeout,
		upgradeTimeout:  s.args.UpgradeTimeout,
		inaccessTimeout: s.args.InaccessTimeout,
		logger:          s.args.Logger,
		send: func(timeout time.Duration) (*ipmiPacket, error) {
			return s.sendWireExpecting(wire, timeout, matchRqSeq(rqSeq, s.args.Logger))
		},
		pollStatus: func() (*GetUpgradeStatusCommand, error) {
			return s.getUpgradeStatus()
		},
		reopen: func() (*ipmiPacket, error) {
			return s.reopenAndResend(cmd)
		},
	}

	res, err := t.run()
	if err != nil {
		return nil, err
	}

	rsm, ok := res.Response.(*ipmiResponseMessage)
	if !ok {
		return nil, &MessageError{
			Message: "Received an unexpected message (Command)",
			Detail:  res.String(),
		}
	}

	if rsm.CompletionCode != CompletionOK {
		return nil, &CommandError{
			CompletionCode: rsm.CompletionCode,
			Command:        cmd,
		}
	}
	if _, err = cmd.Unmarshal(rsm.Data); err != nil {
		return nil, err
	}

	return res, nil
}

func (s *sessionV2_0) NextSequence() uint32 {
	if s.ActiveSession() {
		switch s.sequence {
		case math.MaxUint32:
			// wrap around
			s.sequence = 1
		default:
			s.sequence++
		}
	}
	return s.sequence
}

func (s *sessionV2_0) NextRqSeq() uint8 {
	n := s.rqSeq
	s.rqSeq++
	if s.rqSeq >= 64 {
		s.rqSeq = 0
	}
	return n << 2
}

// buildWire prepares req's final on-the-wire bytes: marshal the request
// body, encrypt it if the negotiated suite requires confidentiality, and
// append the integrity trailer if it requires integrity. The result is
// the exact byte sequence that goes out on the UDP socket - callers that
// need to retransmit (tracker.go) replay these bytes verbatim rather than
// rebuilding, since rebuilding would draw a fresh random IV (Section 4.6
// step 3's "pre-built wire bytes retained verbatim for retransmission").
func (s *sessionV2_0) buildWire(req *ipmiPacket) ([]byte, error) {
	if buf, err := req.Request.Marshal(); err == nil {
		req.PayloadBytes = buf
		req.SessionHeader.SetPayloadLength(len(buf))
	} else {
		return nil, err
	}

	if s.ActiveSession() {
		// Encrypt the payload
		if requiredConfidentiality(s.args.CipherSuiteID) {
			req.SessionHeader.SetEncrypted(true)
			if buf, err := encryptPayload(req.PayloadBytes, s.k2); err == nil {
				req.PayloadBytes = buf
				req.SessionHeader.SetPayloadLength(len(buf))
			} else {
				return nil, err
			}
		}
		// Append the session trailer
		if requiredIntegrity(s.args.CipherSuiteID) {
			// Trailer's source is the session header and payload
			req.SessionHeader.SetAuthenticated(true)
			if msg, err := req.SessionHeader.Marshal(); err == nil {
				trailer := makeTrailer(s.suite.Integrity, append(msg, req.PayloadBytes...), s.k1)
				req.PayloadBytes = append(req.PayloadBytes, trailer...)
			} else {
				return nil, err
			}
		}
	}

	return req.Marshal()
}

// sendWire writes wire as-is and waits timeout for a response, applying it
// to sendWireExpecting with no sequence filter (handshake/SOL exchanges
// have no in-flight table to match against).
func (s *sessionV2_0) sendWire(wire []byte, timeout time.Duration) (*ipmiPacket, error) {
	return s.sendWireExpecting(wire, timeout, nil)
}

// sendWireExpecting writes wire once and reads responses until accept
// reports one as ours, timeout elapses, or a non-timeout error occurs.
// Responses accept rejects are sequence numbers that don't match any
// in-flight entry (Section 4.6 step 5); they are dropped and logged rather
// than returned, and the read loop continues against the same deadline.
func (s *sessionV2_0) sendWireExpecting(wire []byte, timeout time.Duration, accept func(*ipmiPacket) bool) (*ipmiPacket, error) {
	deadline := time.Now().Add(timeout)
	if err := s.conn.SetDeadline(deadline); err != nil {
		return nil, err
	}
	if _, err := s.conn.Write(wire); err != nil {
		return nil, err
	}

	for {
		buf := make([]byte, recvBufferSize)
		n, err := s.conn.Read(buf)
		if err != nil {
			return nil, err
		}

		pkt, err := s.parseResponseWire(buf[:n])
		if err != nil {
			return nil, err
		}
		if accept == nil || accept(pkt) {
			return pkt, nil
		}
	}
}

// parseResponseWire decodes one inbound datagram: RMCP/session envelope,
// session-ID check, authcode validation, decryption, and finally the
// command-specific response body.
func (s *sessionV2_0) parseResponseWire(buf []byte) (*ipmiPacket, error) {
	res, msg, err := unmarshalMessage(buf)
	if err != nil {
		return nil, err
	}
	pkt, ok := res.(*ipmiPacket)
	if !ok {
		return nil, &MessageError{
			Message: "Received an unexpected message (IPMI)",
			Detail:  res.String(),
		}
	}

	if s.ActiveSession() {
		if id := pkt.SessionHeader.ID(); consoleID != id {
			return nil, &MessageError{
				Message: fmt.Sprintf("Mismatch console session ID : 0x%x - 0x%x", consoleID, id),
				Detail:  pkt.String(),
			}
		}

		if requiredIntegrity(s.args.CipherSuiteID) {
			if !pkt.SessionHeader.PayloadType().Authenticated() {
				return nil, &MessageError{
					Message: "Response message is not authenticated",
					Detail:  pkt.String(),
				}
			}
			if err := validateTrailer(s.suite.Integrity, msg[rmcpHeaderSize:], s.k1); err != nil {
				return nil, err
			}
		}

		if requiredConfidentiality(s.args.CipherSuiteID) {
			if !pkt.SessionHeader.PayloadType().Encrypted() {
				return nil, &MessageError{
					Message: "Response message is not encrypted",
					Detail:  pkt.String(),
				}
			}
			if buf, err := decryptPayload(pkt.PayloadBytes, s.k2); err == nil {
				pkt.PayloadBytes = buf
				pkt.SessionHeader.SetPayloadLength(len(buf))
			} else {
				return nil, err
			}
		}
	}

	// Response unmarshal
	if _, err := pkt.Response.Unmarshal(pkt.PayloadBytes); err != nil {
		return nil, err
	}

	return pkt, nil
}

// SendPacket builds and sends req in one shot; callers that may need to
// retry with the identical wire bytes (the request tracker) use
// buildWire/sendWire directly instead.
func (s *sessionV2_0) SendPacket(req *ipmiPacket) (*ipmiPacket, error) {
	wire, err := s.buildWire(req)
	if err != nil {
		return nil, err
	}
	return s.sendWire(wire, s.args.Timeout)
}

// matchRqSeq builds a sendWireExpecting acceptance filter for an ordinary
// command exchange: responses whose rq_seq doesn't match the one this
// request was sent with belong to some other in-flight entry (or a stale
// retransmit) and are dropped with a log line (Section 4.6 step 5).
func matchRqSeq(want uint8, logger logrus.FieldLogger) func(*ipmiPacket) bool {
	return func(p *ipmiPacket) bool {
		rsm, ok := p.Response.(*ipmiResponseMessage)
		if !ok {
			return true
		}
		if rsm.RqSeq != want {
			if logger != nil {
				logger.Debugf("ipmigo: dropping response with rq_seq=%#x, want %#x", rsm.RqSeq, want)
			}
			return false
		}
		return true
	}
}

// getUpgradeStatus issues a fresh Get Upgrade Status request (Section 4.6's
// long-duration-command polling) outside of the tracker's retry/dup
// handling - it's the thing being polled, not a retry of the original
// command.
func (s *sessionV2_0) getUpgradeStatus() (*GetUpgradeStatusCommand, error) {
	status := &GetUpgradeStatusCommand{}
	req := &ipmiPacket{
		RMCPHeader:    newRMCPHeaderForIPMI(),
		SessionHeader: s.Header(payloadTypeIPMI),
		Request: &ipmiRequestMessage{
			RsAddr:  bmcSlaveAddress,
			RqAddr:  remoteSWID,
			RqSeq:   s.NextRqSeq(),
			Command: status,
		},
	}
	pkt, err := s.SendPacket(req)
	if err != nil {
		return nil, err
	}
	rsm, ok := pkt.Response.(*ipmiResponseMessage)
	if !ok {
		return nil, &MessageError{Message: "Received an unexpected message (Get Upgrade Status)", Detail: pkt.String()}
	}
	if rsm.CompletionCode != CompletionOK {
		return nil, &CommandError{CompletionCode: rsm.CompletionCode, Command: status}
	}
	if _, err := status.Unmarshal(rsm.Data); err != nil {
		return nil, err
	}
	if s.args.Logger != nil {
		s.args.Logger.Debugf("ipmigo: Get Upgrade Status: in-process=%#x last-completion=%s", status.CommandInProcess, status.LastCmdCompCode)
	}
	return status, nil
}

// reopenAndResend implements the Section 4.6 Inaccessibility path: the
// caller has already waited inaccessTimeout, this closes and re-opens the
// UDP session (fresh handshake, fresh keys - the original wire bytes no
// longer apply) and resends cmd exactly once.
func (s *sessionV2_0) reopenAndResend(cmd Command) (*ipmiPacket, error) {
	if err := s.Close(); err != nil && s.args.Logger != nil {
		s.args.Logger.Debugf("ipmigo: close before reopen: %v", err)
	}
	if err := s.Open(); err != nil {
		return nil, err
	}

	req := &ipmiPacket{
		RMCPHeader:    newRMCPHeaderForIPMI(),
		SessionHeader: s.Header(payloadTypeIPMI),
		Request: &ipmiRequestMessage{
			RsAddr:  bmcSlaveAddress,
			RqAddr:  remoteSWID,
			RqSeq:   s.NextRqSeq(),
			Command: cmd,
		},
	}
	return s.SendPacket(req)
}

func (s *sessionV2_0) String() string {
	return fmt.Sprintf(`{"State":"%s","ID":%d,"Sequence":%d,"RqSeq":%d,"CipherSuite":%s}`,
		s.state, s.id, s.sequence, s.rqSeq, &s.suite)
}

func newSessionV2_0(args *Arguments) session {
	return &sessionV2_0{
		args:  args,
		state: stateClosed,
	}
}

// makeTrailer builds the Session Trailer (Table 13-8): integrity pad, pad
// length, next header (0x07), then the truncated authcode over the session
// header and payload, MAC'd with the negotiated integrity algorithm.
func makeTrailer(alg integrityAlgorithm, src, key []byte) []byte {
	macLen := alg.macLength()
	srcLen := len(src)
	padLen := 0
	if mod := (srcLen + 1 + 1 + macLen) % 4; mod != 0 {
		padLen = 4 - mod
	}

	data := make([]byte, srcLen+padLen+2+macLen)
	copy(data, src)

	for i := 0; i < padLen; i++ {
		data[srcLen+i] = 0xff // Integrity Pad byte
	}
	data[srcLen+padLen] = byte(padLen)
	data[srcLen+padLen+1] = 0x07 // Next Header

	authCode := hmacSum(alg.hash(), key, data[:srcLen+padLen+2])
	copy(data[srcLen+padLen+2:], authCode[:macLen])

	return data[srcLen:]
}

func validateTrailer(alg integrityAlgorithm, src, key []byte) error {
	macLen := alg.macLength()
	if l := len(src); l < macLen {
		return &MessageError{Message: fmt.Sprintf("Payload does not contain auth code : %d", l)}
	}

	authCode := src[len(src)-macLen:]
	generated := hmacSum(alg.hash(), key, src[:len(src)-macLen])

	if !hmacEqual(authCode, generated[:macLen]) {
		return &MessageError{
			Message: fmt.Sprintf("Received message with invalid authcode : %s - %s",
				hex.EncodeToString(authCode), hex.EncodeToString(generated[:macLen])),
			Detail: hex.EncodeToString(src),
		}
	}

	return nil
}
