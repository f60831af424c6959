package ipmigo

import (
	"encoding/binary"
	"fmt"
)

// Serial-Over-LAN sub-protocol (Section 20). SOL packets travel as payload
// type 0x01 over an already-active RMCP+ session; unlike the vendored
// go-sol this client's SOL exchange stays on the caller's goroutine -
// SendSOL/RecvSOL block for one round trip per SOL packet, matching the
// cooperative, single-threaded execution model the rest of this package
// already uses for ordinary commands.

const (
	solHeaderSize = 4

	// Control bits in the 4th SOL header byte (Section 20.3).
	solBitNACK               = 0x40
	solBitTransferUnavailable = 0x20
	solBitInactive            = 0x10
	solBitTransmitOverrun     = 0x08
	solBitBreak               = 0x04

	activatePayloadCmd   = 0x48
	deactivatePayloadCmd = 0x49
)

type solHeader struct {
	PacketSeq    uint8 // 1-15, wraps; 0 reserved for ACK-only packets
	AckSeq       uint8 // sequence number being acknowledged
	AcceptedLen  uint8 // count of characters the peer accepted from our last send
	Status       uint8 // control bits above
}

func (h *solHeader) IsNACK() bool               { return h.Status&solBitNACK != 0 }
func (h *solHeader) TransferUnavailable() bool  { return h.Status&solBitTransferUnavailable != 0 }
func (h *solHeader) Inactive() bool             { return h.Status&solBitInactive != 0 }

func (h *solHeader) pack() []byte {
	return []byte{h.PacketSeq & 0x0f, h.AckSeq & 0x0f, h.AcceptedLen, h.Status}
}

func parseSOLHeader(buf []byte) (*solHeader, error) {
	if len(buf) < solHeaderSize {
		return nil, &MessageError{Message: fmt.Sprintf("SOL packet too short : %d", len(buf))}
	}
	return &solHeader{
		PacketSeq:   buf[0] & 0x0f,
		AckSeq:      buf[1] & 0x0f,
		AcceptedLen: buf[2],
		Status:      buf[3],
	}, nil
}

// solPacket is a payload-type-0x01 message: the 4-byte SOL header followed
// by raw character data (possibly zero-length for an ACK-only packet).
type solPacket struct {
	Header *solHeader
	Data   []byte
}

func (p *solPacket) Marshal() ([]byte, error) {
	return append(p.Header.pack(), p.Data...), nil
}

func (p *solPacket) Unmarshal(buf []byte) ([]byte, error) {
	h, err := parseSOLHeader(buf)
	if err != nil {
		return nil, err
	}
	p.Header = h
	p.Data = append([]byte(nil), buf[solHeaderSize:]...)
	return nil, nil
}

func (p *solPacket) String() string { return toJSON(p) }

// nextSOLSeq advances a 1-15 wrapping SOL sequence number (Section 20.3:
// "sequence numbers for SOL packets range from 1 to 15, 0 is reserved").
func nextSOLSeq(cur uint8) uint8 {
	n := cur + 1
	if n > 15 {
		n = 1
	}
	return n
}

// solResendTail decides what part of a sent chunk still needs to go out,
// given how many characters the peer's accepted_character_count reported
// (Section 20.4). Resend is driven by that count alone, independent of the
// NACK bit: a plain ACK with accepted < len(chunk) still means resend the
// tail. Returns nil when the whole chunk was accepted and nothing further
// needs sending.
func solResendTail(chunk []byte, accepted int, quirk Quirk) []byte {
	n := len(chunk)
	if accepted >= n {
		return nil
	}
	if quirk == QuirkIntelPlus && accepted == 0 {
		// Intel's SOL implementation reports accepted==0 on a fully
		// accepted chunk instead of echoing n back; treat it as "everything
		// went through", not "nothing did".
		return nil
	}
	return chunk[accepted:]
}

// activateSOLCommand is Activate Payload (Section 24.1) specialized to
// payload type 1 (SOL).
type activateSOLCommand struct {
	Instance uint8

	MaxOutboundSize uint16
	MaxInboundSize  uint16
}

func (c *activateSOLCommand) Name() string { return "Activate Payload (SOL)" }
func (c *activateSOLCommand) Code() uint8  { return activatePayloadCmd }
func (c *activateSOLCommand) NetFnRsLUN() NetFnRsLUN {
	return NewNetFnRsLUN(NetFnAppReq, 0)
}
func (c *activateSOLCommand) String() string { return cmdToJSON(c) }

func (c *activateSOLCommand) Marshal() ([]byte, error) {
	buf := make([]byte, 6)
	buf[0] = byte(payloadTypeSOL)
	buf[1] = c.Instance & 0x0f
	// buf[2:6] auxiliary request data: no encryption/auth bit overrides.
	return buf, nil
}

func (c *activateSOLCommand) Unmarshal(buf []byte) ([]byte, error) {
	if len(buf) == 0 {
		// Some BMCs (observed on Dell iDRAC) return no data on success.
		return nil, nil
	}
	if err := cmdValidateLength(c, buf, 12); err != nil {
		return nil, err
	}
	c.MaxInboundSize = binary.LittleEndian.Uint16(buf[8:])
	c.MaxOutboundSize = binary.LittleEndian.Uint16(buf[10:])
	return nil, nil
}

type deactivateSOLCommand struct {
	Instance uint8
}

func (c *deactivateSOLCommand) Name() string { return "Deactivate Payload (SOL)" }
func (c *deactivateSOLCommand) Code() uint8  { return deactivatePayloadCmd }
func (c *deactivateSOLCommand) NetFnRsLUN() NetFnRsLUN {
	return NewNetFnRsLUN(NetFnAppReq, 0)
}
func (c *deactivateSOLCommand) String() string { return cmdToJSON(c) }

func (c *deactivateSOLCommand) Marshal() ([]byte, error) {
	return []byte{byte(payloadTypeSOL), c.Instance & 0x0f, 0, 0, 0, 0}, nil
}

func (c *deactivateSOLCommand) Unmarshal(buf []byte) ([]byte, error) { return nil, nil }

// ActivateSOL negotiates and activates a SOL payload instance, honoring a
// BMC that reports it's already active by deactivating and retrying once
// (the Dell iDRAC quirk the vendored go-sol worked around).
func (s *sessionV2_0) ActivateSOL(instance uint8) error {
	act := &activateSOLCommand{Instance: instance}
	_, err := s.execute(act)
	if ce, ok := err.(*CommandError); ok && ce.CompletionCode == CompletionOK+0x80 {
		// 0x80 on this command means "payload already active" - force a
		// deactivate and retry once.
		_, _ = s.execute(&deactivateSOLCommand{Instance: instance})
		_, err = s.execute(act)
	}
	if err != nil {
		return err
	}
	if act.MaxOutboundSize == 0 {
		act.MaxOutboundSize = 200 // matches the BMCs that report 0/invalid
	}
	s.solMaxOutbound = act.MaxOutboundSize
	s.solSeq = 0
	s.solAckSeq = 0
	s.solAckLen = 0
	return nil
}

func (s *sessionV2_0) DeactivateSOL(instance uint8) error {
	_, err := s.execute(&deactivateSOLCommand{Instance: instance})
	return err
}

// SendSOL transmits data as one or more SOL packets, chunked to the
// BMC-advertised MaxOutboundSize (Section 20.3), resending per
// is_sol_partial_ack semantics (driven by the accepted character count, see
// solResendTail): if the BMC only accepted part of a chunk, the unaccepted
// remainder of that chunk is sent again ahead of the rest of data.
func (s *sessionV2_0) SendSOL(data []byte) error {
	if !s.ActiveSession() {
		return &SessionClosedError{}
	}
	chunkSize := int(s.solMaxOutbound) - solHeaderSize
	if chunkSize <= 0 {
		chunkSize = 196
	}
	if c := clampPayloadSize(chunkSize, s.suite.Crypt); c > 0 {
		chunkSize = c
	}

	for len(data) > 0 {
		n := len(data)
		if n > chunkSize {
			n = chunkSize
		}
		chunk := data[:n]

		s.solSeq = nextSOLSeq(s.solSeq)
		pkt := &solPacket{
			Header: &solHeader{PacketSeq: s.solSeq, AckSeq: s.solAckSeq},
			Data:   chunk,
		}
		resp, err := s.sendSOLPacket(pkt)
		if err != nil {
			return err
		}

		if tail := solResendTail(chunk, int(resp.Header.AcceptedLen), s.args.Quirk); tail != nil {
			data = data[len(chunk)-len(tail):]
			continue
		}

		data = data[n:]
	}
	return nil
}

// RecvSOL sends one ACK-only SOL packet and returns the character data of
// the SOL packet the BMC answers with (possibly empty, for a pure
// keepalive/ACK packet). The ACK-only packet carries ack sequence 0; the
// returned packet is not acknowledged back to the BMC. Duplicate
// retransmits of an already-seen sequence number are suppressed per
// check_sol_packet_for_new_data.
func (s *sessionV2_0) RecvSOL() ([]byte, error) {
	if !s.ActiveSession() {
		return nil, &SessionClosedError{}
	}

	ack := &solPacket{Header: &solHeader{PacketSeq: 0, AcceptedLen: 0xff}}
	pkt, err := s.sendSOLPacket(ack)
	if err != nil {
		return nil, err
	}

	data, seq, length := solInboundDelta(s.solAckSeq, s.solAckLen, pkt)
	s.solAckSeq = seq
	s.solAckLen = length
	return data, nil
}

// solInboundDelta computes what, if anything, a freshly-received SOL packet
// delivers that the caller hasn't already seen. A retransmit of the last
// acknowledged sequence number can extend it with more trailing characters
// (Property 6); only that tail is new. An ACK-only packet (PacketSeq 0) and
// an exact-length repeat of the last packet both deliver nothing.
func solInboundDelta(lastSeq uint8, lastLen int, pkt *solPacket) (data []byte, seq uint8, length int) {
	if pkt.Header.PacketSeq == 0 {
		return nil, lastSeq, lastLen
	}
	if pkt.Header.PacketSeq == lastSeq {
		if len(pkt.Data) > lastLen {
			return pkt.Data[lastLen:], lastSeq, len(pkt.Data)
		}
		return nil, lastSeq, lastLen
	}
	return pkt.Data, pkt.Header.PacketSeq, len(pkt.Data)
}

func (s *sessionV2_0) sendSOLPacket(pkt *solPacket) (*solPacket, error) {
	req := &ipmiPacket{
		RMCPHeader:    newRMCPHeaderForIPMI(),
		SessionHeader: s.Header(payloadTypeSOL),
		Request:       pkt,
	}
	var res *ipmiPacket
	err := retry(int(s.args.Retries), func() (e error) {
		res, e = s.SendPacket(req)
		return
	})
	if err != nil {
		return nil, &TimeoutError{Operation: "SOL exchange", Retries: int(s.args.Retries)}
	}
	rp, ok := res.Response.(*solPacket)
	if !ok {
		return nil, &MessageError{Message: "Received an unexpected message (SOL)", Detail: res.String()}
	}
	return rp, nil
}
