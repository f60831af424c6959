package ipmigo

import "fmt"

// sendMessageCmd is cmd 0x34 under NetFn App (Section 6.12): the envelope
// used to route a request through a bridge to a second IPMB segment.
const sendMessageCmd = 0x34

// BridgeRoute names up to two bridge hops a command should be routed
// through before reaching its target channel (Section 6.12's "double
// bridging" case: console -> BMC -> transit channel -> target channel).
// Zero-value BridgeRoute is a direct (unbridged) request.
type BridgeRoute struct {
	TargetAddr    uint8
	TargetChannel uint8

	// TransitAddr/TransitChannel are only consulted when Double is true.
	Double          bool
	TransitAddr     uint8
	TransitChannel  uint8
}

func (r BridgeRoute) bridged() bool { return r.TargetChannel != 0 || r.TargetAddr != 0 }

// trackingChannelByte sets the Send Message "track request" bit (0x40) on
// the target channel so the bridge returns a response instead of firing the
// request and forgetting it (Section 6.12).
func trackingChannelByte(channel uint8) byte {
	return 0x40 | (channel & 0x0f)
}

// bridgedCommand wraps an inner Command inside one or two levels of Send
// Message encapsulation so it can be addressed to a satellite controller
// behind the BMC's IPMB. Unmarshal strips the same number of Send Message
// response wrappers back off before handing the inner payload to the
// wrapped command.
type bridgedCommand struct {
	Route BridgeRoute
	Inner Command
}

func (b *bridgedCommand) Name() string { return fmt.Sprintf("Bridged(%s)", b.Inner.Name()) }
func (b *bridgedCommand) Code() uint8  { return sendMessageCmd }
func (b *bridgedCommand) NetFnRsLUN() NetFnRsLUN {
	return NewNetFnRsLUN(NetFnAppReq, 0)
}
func (b *bridgedCommand) String() string { return cmdToJSON(b) }

// Marshal builds the Send Message request data: tracking byte, then the
// inner IPMB request message addressed to TargetAddr/TargetChannel. A
// double-bridged route nests a second Send Message envelope addressed to
// TransitAddr/TransitChannel around that.
func (b *bridgedCommand) Marshal() ([]byte, error) {
	innerReq := &ipmiRequestMessage{
		RsAddr:  b.Route.TargetAddr,
		RqAddr:  remoteSWID,
		RqSeq:   0,
		Command: b.Inner,
	}
	innerBuf, err := innerReq.Marshal()
	if err != nil {
		return nil, err
	}

	buf := append([]byte{trackingChannelByte(b.Route.TargetChannel)}, innerBuf...)

	if b.Route.Double {
		transitReq := &ipmiRequestMessage{
			RsAddr: b.Route.TransitAddr,
			RqAddr: remoteSWID,
			RqSeq:  0,
			Command: &RawCommand{
				name: "Send Message (transit)",
				code: sendMessageCmd,
				netFnRsLUN: NewNetFnRsLUN(NetFnAppReq, 0),
				input: buf,
			},
		}
		transitBuf, err := transitReq.Marshal()
		if err != nil {
			return nil, err
		}
		buf = append([]byte{trackingChannelByte(b.Route.TransitChannel)}, transitBuf...)
	}

	return buf, nil
}

// Unmarshal strips the IPMB response wrapper(s) a bridged request comes
// back with before delegating to the inner command.
func (b *bridgedCommand) Unmarshal(buf []byte) ([]byte, error) {
	levels := 1
	if b.Route.Double {
		levels = 2
	}
	for i := 0; i < levels; i++ {
		rsm := &ipmiResponseMessage{}
		if _, err := rsm.Unmarshal(buf); err != nil {
			return nil, err
		}
		if rsm.CompletionCode != CompletionOK {
			return nil, &CommandError{CompletionCode: rsm.CompletionCode, Command: b.Inner}
		}
		buf = rsm.Data
	}
	return b.Inner.Unmarshal(buf)
}
