package ipmigo

import (
	"bytes"
	"testing"
)

func TestSOLHeaderPackAndParse(t *testing.T) {
	h := &solHeader{PacketSeq: 5, AckSeq: 3, AcceptedLen: 42, Status: solBitNACK}
	buf := h.pack()
	if len(buf) != solHeaderSize {
		t.Fatalf("pack length = %d, want %d", len(buf), solHeaderSize)
	}

	got, err := parseSOLHeader(buf)
	if err != nil {
		t.Fatalf("parseSOLHeader: %v", err)
	}
	if *got != *h {
		t.Errorf("parseSOLHeader round trip = %+v, want %+v", got, h)
	}
	if !got.IsNACK() {
		t.Error("IsNACK should be true when solBitNACK is set")
	}
}

func TestSOLHeaderMasksSequenceToFourBits(t *testing.T) {
	h := &solHeader{PacketSeq: 0xff, AckSeq: 0xff}
	buf := h.pack()
	if buf[0] != 0x0f || buf[1] != 0x0f {
		t.Errorf("sequence bytes = %#x %#x, want masked to 0x0f", buf[0], buf[1])
	}
}

func TestParseSOLHeaderRejectsShortInput(t *testing.T) {
	if _, err := parseSOLHeader([]byte{1, 2, 3}); err == nil {
		t.Error("expected an error for a too-short SOL packet")
	}
}

func TestSOLPacketMarshalUnmarshal(t *testing.T) {
	p := &solPacket{
		Header: &solHeader{PacketSeq: 1, AckSeq: 0, AcceptedLen: 3, Status: 0},
		Data:   []byte("abc"),
	}
	buf, err := p.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	got := &solPacket{}
	if _, err := got.Unmarshal(buf); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !bytes.Equal(got.Data, p.Data) {
		t.Errorf("Data = %q, want %q", got.Data, p.Data)
	}
	if *got.Header != *p.Header {
		t.Errorf("Header = %+v, want %+v", got.Header, p.Header)
	}
}

func TestSOLPacketUnmarshalAllowsEmptyData(t *testing.T) {
	p := &solPacket{Header: &solHeader{PacketSeq: 0, AckSeq: 0, AcceptedLen: 0xff}}
	buf, _ := p.Marshal()

	got := &solPacket{}
	if _, err := got.Unmarshal(buf); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(got.Data) != 0 {
		t.Errorf("Data = %x, want empty", got.Data)
	}
}

func TestNextSOLSeqWraps(t *testing.T) {
	cases := []struct{ cur, want uint8 }{
		{0, 1},
		{1, 2},
		{14, 15},
		{15, 1},
	}
	for _, c := range cases {
		if got := nextSOLSeq(c.cur); got != c.want {
			t.Errorf("nextSOLSeq(%d) = %d, want %d", c.cur, got, c.want)
		}
	}
}

func TestClampPayloadSizeNoOpWithoutAES(t *testing.T) {
	if got := clampPayloadSize(200, cryptNone); got != 200 {
		t.Errorf("clampPayloadSize(200, cryptNone) = %d, want 200 (no clamp without AES-CBC)", got)
	}
}

func TestClampPayloadSizeRoundsDownForAES(t *testing.T) {
	got := clampPayloadSize(200, cryptAesCBC_128)
	if got%16 != 0 {
		t.Errorf("clampPayloadSize(200, AES) = %d, want a multiple of 16", got)
	}
	if got >= 200-17 {
		t.Errorf("clampPayloadSize(200, AES) = %d, want room for IV+pad overhead", got)
	}
}

func TestClampPayloadSizeHandlesTinyBase(t *testing.T) {
	if got := clampPayloadSize(10, cryptAesCBC_128); got != 0 {
		t.Errorf("clampPayloadSize(10, AES) = %d, want 0 (no room for a full block)", got)
	}
}

func TestSOLResendTailFullyAccepted(t *testing.T) {
	if got := solResendTail([]byte("hello"), 5, QuirkNone); got != nil {
		t.Errorf("fully accepted chunk must not be resent, got %q", got)
	}
}

func TestSOLResendTailPartialAcceptResendsRemainder(t *testing.T) {
	chunk := []byte("0123456789abcdef")
	got := solResendTail(chunk, 12, QuirkNone)
	if string(got) != "cdef" {
		t.Errorf("tail = %q, want %q", got, "cdef")
	}
}

func TestSOLResendTailPlainAckStillResends(t *testing.T) {
	// A plain ACK (no NACK bit) with a short accepted count must still
	// trigger a resend: the decision is driven by the count alone.
	got := solResendTail([]byte("0123456789abcdef"), 12, QuirkNone)
	if len(got) != 4 {
		t.Errorf("expected a 4-byte tail resend on a plain ACK with accepted=12, got %d bytes", len(got))
	}
}

func TestSOLResendTailZeroAcceptedResendsWholeChunkWithoutQuirk(t *testing.T) {
	chunk := []byte("abc")
	got := solResendTail(chunk, 0, QuirkNone)
	if string(got) != "abc" {
		t.Errorf("tail = %q, want the whole chunk %q", got, chunk)
	}
}

func TestSOLResendTailIntelPlusQuirkTreatsZeroAcceptedAsDone(t *testing.T) {
	if got := solResendTail([]byte("abc"), 0, QuirkIntelPlus); got != nil {
		t.Errorf("intelplus quirk must treat accepted=0 as fully accepted, got %q", got)
	}
}

func TestSOLInboundDeltaAckOnlyDeliversNothing(t *testing.T) {
	pkt := &solPacket{Header: &solHeader{PacketSeq: 0}}
	data, seq, length := solInboundDelta(3, 5, pkt)
	if data != nil || seq != 3 || length != 5 {
		t.Errorf("ack-only packet must not change state, got data=%q seq=%d length=%d", data, seq, length)
	}
}

func TestSOLInboundDeltaNewSequenceDeliversFullData(t *testing.T) {
	pkt := &solPacket{Header: &solHeader{PacketSeq: 4}, Data: []byte("hello")}
	data, seq, length := solInboundDelta(3, 5, pkt)
	if string(data) != "hello" || seq != 4 || length != 5 {
		t.Errorf("got data=%q seq=%d length=%d, want hello/4/5", data, seq, length)
	}
}

func TestSOLInboundDeltaExactDuplicateDeliversNothing(t *testing.T) {
	pkt := &solPacket{Header: &solHeader{PacketSeq: 3}, Data: []byte("hello")}
	data, seq, length := solInboundDelta(3, 5, pkt)
	if data != nil || seq != 3 || length != 5 {
		t.Errorf("exact duplicate must deliver nothing, got data=%q seq=%d length=%d", data, seq, length)
	}
}

func TestSOLInboundDeltaTailExtensionDeliversOnlyNewBytes(t *testing.T) {
	// Same sequence number retransmitted with 8 more characters appended
	// (Property 6): only the new tail should be delivered.
	pkt := &solPacket{Header: &solHeader{PacketSeq: 3}, Data: []byte("0123456789abcdefgh")}
	data, seq, length := solInboundDelta(3, 10, pkt)
	if string(data) != "abcdefgh" || seq != 3 || length != 18 {
		t.Errorf("got data=%q seq=%d length=%d, want abcdefgh/3/18", data, seq, length)
	}
}
