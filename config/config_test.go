package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ipmitool/go-ipmi-lanplus"
)

func writeTestConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "hosts.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadParsesHostProfiles(t *testing.T) {
	path := writeTestConfig(t, `
hosts:
  - name: rack1-bmc
    address: 192.168.1.10:623
    username: admin
    password: secret
    privilege: admin
    cipher_suite: 3
    timeout: 5s
    retries: 2
`)

	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(f.Hosts) != 1 {
		t.Fatalf("Hosts = %d, want 1", len(f.Hosts))
	}
	h := f.Hosts[0]
	if h.Name != "rack1-bmc" || h.Address != "192.168.1.10:623" {
		t.Errorf("unexpected host profile: %+v", h)
	}
}

func TestHostProfileArgumentsConvertsFields(t *testing.T) {
	p := HostProfile{
		Address:       "10.0.0.5:623",
		Username:      "op",
		Password:      "pw",
		Privilege:     "operator",
		CipherSuiteID: 17,
		Retries:       3,
	}

	args, err := p.Arguments()
	if err != nil {
		t.Fatalf("Arguments: %v", err)
	}
	if args.PrivilegeLevel != ipmigo.PrivilegeOperator {
		t.Errorf("PrivilegeLevel = %v, want PrivilegeOperator", args.PrivilegeLevel)
	}
	if args.CipherSuiteID != 17 {
		t.Errorf("CipherSuiteID = %d, want 17", args.CipherSuiteID)
	}
	if args.Retries != 3 {
		t.Errorf("Retries = %d, want 3", args.Retries)
	}
}

func TestHostProfileArgumentsRejectsUnknownPrivilege(t *testing.T) {
	p := HostProfile{Privilege: "superuser"}
	if _, err := p.Arguments(); err == nil {
		t.Error("expected an error for an unknown privilege level")
	}
}

func TestHostProfileArgumentsRejectsUnknownQuirk(t *testing.T) {
	p := HostProfile{Quirk: "not-a-real-quirk"}
	if _, err := p.Arguments(); err == nil {
		t.Error("expected an error for an unknown quirk profile")
	}
}
