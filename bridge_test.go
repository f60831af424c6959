package ipmigo

import "testing"

// wrapResponseMessage builds a valid IPMI LAN response message (the same
// wire format ipmiResponseMessage.Unmarshal expects) around data, so
// bridgedCommand.Unmarshal has something realistic to strip off.
func wrapResponseMessage(rqAddr, netFnRsLUN, rsAddr, rqSeq, code uint8, cc CompletionCode, data []byte) []byte {
	head := []byte{rqAddr, netFnRsLUN}
	buf := append(head, checksum(head))
	tail := append([]byte{rsAddr, rqSeq, code, byte(cc)}, data...)
	buf = append(buf, tail...)
	buf = append(buf, checksum(tail))
	return buf
}

func TestBridgeRouteBridged(t *testing.T) {
	if (BridgeRoute{}).bridged() {
		t.Error("zero-value BridgeRoute must not be considered bridged")
	}
	if !(BridgeRoute{TargetAddr: 0x52, TargetChannel: 1}).bridged() {
		t.Error("a route with a target addr/channel must be considered bridged")
	}
}

func TestBridgedCommandMarshalSingleHop(t *testing.T) {
	inner := NewRawCommand("Get Device ID", 0x01, NewNetFnRsLUN(NetFnAppReq, 0), nil)
	b := &bridgedCommand{
		Route: BridgeRoute{TargetAddr: 0x52, TargetChannel: 7},
		Inner: inner,
	}

	buf, err := b.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if len(buf) == 0 {
		t.Fatal("Marshal produced no bytes")
	}
	if buf[0] != 0x47 {
		t.Errorf("tracking byte = %#x, want 0x47 (0x40 | TargetChannel)", buf[0])
	}
	// buf[1:] is the inner ipmiRequestMessage; its RsAddr is the first byte.
	if buf[1] != 0x52 {
		t.Errorf("inner RsAddr = %#x, want 0x52", buf[1])
	}
}

func TestBridgedCommandMarshalDoubleHop(t *testing.T) {
	inner := NewRawCommand("Get Device ID", 0x01, NewNetFnRsLUN(NetFnAppReq, 0), nil)
	single := &bridgedCommand{
		Route: BridgeRoute{TargetAddr: 0x52, TargetChannel: 7},
		Inner: inner,
	}
	double := &bridgedCommand{
		Route: BridgeRoute{
			TargetAddr: 0x52, TargetChannel: 7,
			Double: true, TransitAddr: 0x20, TransitChannel: 1,
		},
		Inner: inner,
	}

	singleBuf, err := single.Marshal()
	if err != nil {
		t.Fatalf("single Marshal: %v", err)
	}
	doubleBuf, err := double.Marshal()
	if err != nil {
		t.Fatalf("double Marshal: %v", err)
	}

	if doubleBuf[0] != 0x41 {
		t.Errorf("outer tracking byte = %#x, want 0x41 (0x40 | TransitChannel)", doubleBuf[0])
	}
	if doubleBuf[1] != 0x20 {
		t.Errorf("outer RsAddr = %#x, want 0x20 (TransitAddr)", doubleBuf[1])
	}
	if len(doubleBuf) <= len(singleBuf) {
		t.Error("double-bridged request must be larger than the single-bridged one (extra envelope)")
	}
}

func TestBridgedCommandUnmarshalSingleHop(t *testing.T) {
	inner := NewRawCommand("Get Device ID", 0x01, NewNetFnRsLUN(NetFnAppReq, 0), nil)
	b := &bridgedCommand{
		Route: BridgeRoute{TargetAddr: 0x52, TargetChannel: 7},
		Inner: inner,
	}

	payload := []byte{0xde, 0xad, 0xbe, 0xef}
	wrapped := wrapResponseMessage(remoteSWID, byte(NewNetFnRsLUN(NetFnAppReq, 0)), bmcSlaveAddress, 0, 0x01, CompletionOK, payload)

	if _, err := b.Unmarshal(wrapped); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if string(inner.Output()) != string(payload) {
		t.Errorf("inner Output = %x, want %x", inner.Output(), payload)
	}
}

func TestBridgedCommandUnmarshalPropagatesCompletionError(t *testing.T) {
	inner := NewRawCommand("Get Device ID", 0x01, NewNetFnRsLUN(NetFnAppReq, 0), nil)
	b := &bridgedCommand{
		Route: BridgeRoute{TargetAddr: 0x52, TargetChannel: 7},
		Inner: inner,
	}

	wrapped := wrapResponseMessage(remoteSWID, byte(NewNetFnRsLUN(NetFnAppReq, 0)), bmcSlaveAddress, 0, 0x01, CompletionUnspecifiedError, nil)

	if _, err := b.Unmarshal(wrapped); err == nil {
		t.Error("expected an error when the bridged hop reports a non-OK completion code")
	}
}
