package ipmigo

// HPM.1 firmware upgrade commands (PICMG Group Extension, NetFn 0x2c/0x2d).
// Only Get Upgrade Status is needed here: the tracker polls it while a
// long-duration command (Prepare Components, Upload Firmware Block,
// Activate Firmware, …) is reporting completion code 0x80
// (original_source/ipmitool/lib/ipmi_hpmfwupg.c).

const (
	hpmPICMGIdentifier  = 0x00
	getUpgradeStatusCmd = 0x34
)

// GetUpgradeStatusCommand is HpmfwupgGetUpgradeStatus: it reports whether a
// previously-issued long-duration HPM.1 command is still running and, once
// finished, that command's own completion code.
type GetUpgradeStatusCommand struct {
	// Response Data
	CommandInProcess uint8
	LastCmdCompCode  CompletionCode
}

func (c *GetUpgradeStatusCommand) Name() string { return "Get Upgrade Status" }
func (c *GetUpgradeStatusCommand) Code() uint8  { return getUpgradeStatusCmd }
func (c *GetUpgradeStatusCommand) NetFnRsLUN() NetFnRsLUN {
	return NewNetFnRsLUN(NetFnGroupExtensionReq, 0)
}
func (c *GetUpgradeStatusCommand) String() string { return cmdToJSON(c) }

func (c *GetUpgradeStatusCommand) Marshal() ([]byte, error) {
	return []byte{hpmPICMGIdentifier}, nil
}

func (c *GetUpgradeStatusCommand) Unmarshal(buf []byte) ([]byte, error) {
	if err := cmdValidateLength(c, buf, 3); err != nil {
		return nil, err
	}
	// buf[0] is the echoed PICMG identifier.
	c.CommandInProcess = buf[1]
	c.LastCmdCompCode = CompletionCode(buf[2])
	return buf[3:], nil
}
