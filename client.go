package ipmigo

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

type Version int

const (
	V1_5 Version = iota + 1
	V2_0
)

// Channel Privilege Levels. (Section 6.8)
type PrivilegeLevel uint8

const (
	PrivilegeCallback PrivilegeLevel = iota + 1
	PrivilegeUser
	PrivilegeOperator
	PrivilegeAdministrator
)

func (p PrivilegeLevel) String() string {
	switch p {
	case PrivilegeCallback:
		return "CALLBACK"
	case PrivilegeUser:
		return "USER"
	case PrivilegeOperator:
		return "OPERATOR"
	case PrivilegeAdministrator:
		return "ADMINISTRATOR"
	default:
		return fmt.Sprintf("Unknown(%d)", p)
	}
}

// An argument for creating an IPMI Client
type Arguments struct {
	Version        Version        // IPMI version to use
	Network        string         // See net.Dial parameter (The default is `udp`)
	Address        string         // See net.Dial parameter
	Timeout        time.Duration  // Each connect/read-write timeout (The default is 5sec)
	Retries        uint           // Number of retries (The default is `0`)
	Username       string         // Remote server username
	Password       string         // Remote server password
	KG             []byte         // Optional BMC key (two-key RAKP, Section 13.32); nil uses the password alone
	PrivilegeLevel PrivilegeLevel // Session privilege level (The default is `Administrator`)
	CipherSuiteID  uint           // ID of cipher suite, See Table 22-20 (The default is `0` which no auth and no encrypt)

	// NegotiateCipherSuite, when CipherSuiteID is left at 0, probes the BMC
	// with Get Channel Cipher Suites and picks the best of
	// DefaultCipherSuitePreference instead of using suite 0 (no security).
	NegotiateCipherSuite bool

	Quirk  Quirk            // BMC/NIC firmware quirk to work around, if any
	Logger logrus.FieldLogger // Destination for session diagnostics (default: logrus' standard logger)

	// UpgradeTimeout bounds how long the tracker polls Get Upgrade Status
	// for a long-duration command (completion code 0x80) before giving up
	// and surfacing whatever the last poll reported (Section 4.6; default
	// 60s, matching ipmitool's HPMFWUPG_DEFAULT_UPGRADE_TIMEOUT).
	UpgradeTimeout time.Duration

	// InaccessTimeout is how long the tracker waits, after a 0xC3/0xFF
	// response suggests the BMC rebooted, before attempting one session
	// reopen (Section 4.6; default 60s, matching ipmitool's
	// HPMFWUPG_DEFAULT_INACCESS_TIMEOUT).
	InaccessTimeout time.Duration
}

func (a *Arguments) setDefault() {
	if a.Version == 0 {
		a.Version = V2_0
	}
	if a.Network == "" {
		a.Network = "udp"
	}
	if a.Timeout == 0 {
		a.Timeout = 5 * time.Second
	}
	if a.PrivilegeLevel == 0 {
		a.PrivilegeLevel = PrivilegeAdministrator
	}
	if a.UpgradeTimeout == 0 {
		a.UpgradeTimeout = defaultUpgradeTimeout
	}
	if a.InaccessTimeout == 0 {
		a.InaccessTimeout = defaultInaccessTimeout
	}
	a.Logger = defaultLogger(a.Logger)
}

func (a *Arguments) validate() error {
	switch a.Version {
	case V2_0:
		if len(a.Password) > passwordMaxLengthV2_0 {
			return &ArgumentError{
				Value:   a.Password,
				Message: "Password is too long",
			}
		}
		if a.CipherSuiteID > uint(len(cipherSuiteIDs)-1) {
			return &ArgumentError{
				Value:   a.CipherSuiteID,
				Message: "Invalid Cipher Suite ID",
			}
		}
	case V1_5:
		// TODO Support v1.5 ?
		fallthrough
	default:
		return &ArgumentError{
			Value:   a.Version,
			Message: "Unsupported IPMI version",
		}
	}

	if a.PrivilegeLevel < 0 || a.PrivilegeLevel > PrivilegeAdministrator {
		return &ArgumentError{
			Value:   a.PrivilegeLevel,
			Message: "Invalid Privilege Level",
		}
	}

	if len(a.Username) > userNameMaxLength {
		return &ArgumentError{
			Value:   a.Username,
			Message: "Username is too long",
		}
	}

	return nil
}

// IPMI Client
type Client struct {
	session session
}

func (c *Client) Ping() error               { return c.session.Ping() }
func (c *Client) Open() error               { return c.session.Open() }
func (c *Client) Close() error              { return c.session.Close() }
func (c *Client) Execute(cmd Command) error { return c.session.Execute(cmd) }

// Keepalive issues Get Device ID over an otherwise-idle session. Unlike an
// ASF presence ping, this travels over the authenticated RMCP+ session
// itself: if the BMC has silently dropped the session, the request times
// out instead of succeeding against a socket the far end no longer
// recognizes (grounded on the vendored go-sol's keepaliveLoop).
func (c *Client) Keepalive() error { return c.Execute(&GetDeviceIDCommand{}) }

// ExecuteBridged routes cmd through the given BridgeRoute before executing
// it, for targets that sit on a satellite controller's IPMB rather than
// answering the BMC directly (Section 6.12).
func (c *Client) ExecuteBridged(cmd Command, route BridgeRoute) error {
	if !route.bridged() {
		return c.Execute(cmd)
	}
	return c.session.Execute(&bridgedCommand{Route: route, Inner: cmd})
}

// solSession is implemented by session types that can carry SOL traffic
// (sessionV2_0 only); Client.ActivateSOL/DeactivateSOL fail with
// UnsupportedError on anything else.
type solSession interface {
	ActivateSOL(instance uint8) error
	DeactivateSOL(instance uint8) error
}

// ActivateSOL activates SOL payload instance 1 on the client's session.
// The session must already be Open.
func (c *Client) ActivateSOL() error {
	sol, ok := c.session.(solSession)
	if !ok {
		return &UnsupportedError{Message: "session does not support SOL"}
	}
	return sol.ActivateSOL(1)
}

// DeactivateSOL tears down SOL payload instance 1.
func (c *Client) DeactivateSOL() error {
	sol, ok := c.session.(solSession)
	if !ok {
		return &UnsupportedError{Message: "session does not support SOL"}
	}
	return sol.DeactivateSOL(1)
}

// SendSOL writes data to the remote console's serial stream.
func (c *Client) SendSOL(data []byte) error { return c.session.SendSOL(data) }

// RecvSOL blocks for the next chunk of inbound serial data, returning nil,
// nil if the round only produced a keepalive ACK.
func (c *Client) RecvSOL() ([]byte, error) { return c.session.RecvSOL() }

// Create an IPMI Client
func NewClient(args Arguments) (*Client, error) {
	args.setDefault()
	if err := args.validate(); err != nil {
		return nil, err
	}

	var s session
	switch args.Version {
	case V1_5:
		s = newSessionV1_5(&args)
	case V2_0:
		s = newSessionV2_0(&args)
	}
	return &Client{session: s}, nil
}
