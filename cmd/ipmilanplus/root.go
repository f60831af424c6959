package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ipmitool/go-ipmi-lanplus"
)

var (
	flagAddress   string
	flagUsername  string
	flagPassword  string
	flagCipher    uint
	flagNegotiate bool
	flagPrivilege string
	flagTimeout   time.Duration
	flagRetries   uint
	flagDebug     bool
)

var rootCmd = &cobra.Command{
	Use:   "ipmilanplus",
	Short: "IPMI v2.0/RMCP+ lanplus client",
	Long:  "A command-line client for the IPMI v2.0/RMCP+ lanplus transport: open a session, run raw commands, or start a SOL console.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagAddress, "host", "H", "", "BMC address (host:port)")
	rootCmd.PersistentFlags().StringVarP(&flagUsername, "user", "U", "", "Username")
	rootCmd.PersistentFlags().StringVarP(&flagPassword, "pass", "P", "", "Password")
	rootCmd.PersistentFlags().UintVarP(&flagCipher, "cipher", "C", 3, "Cipher suite ID (0-17)")
	rootCmd.PersistentFlags().BoolVar(&flagNegotiate, "negotiate", false, "Probe the BMC and pick the best available cipher suite instead of --cipher")
	rootCmd.PersistentFlags().StringVar(&flagPrivilege, "privilege", "admin", "Session privilege level: callback, user, operator, admin")
	rootCmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", 5*time.Second, "Per-request timeout")
	rootCmd.PersistentFlags().UintVar(&flagRetries, "retries", 1, "Request retries")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(rawCmd, solCmd)
}

func newArguments() ipmigo.Arguments {
	log := logrus.StandardLogger()
	if flagDebug {
		log.SetLevel(logrus.DebugLevel)
	}

	priv := map[string]ipmigo.PrivilegeLevel{
		"callback": ipmigo.PrivilegeCallback,
		"user":     ipmigo.PrivilegeUser,
		"operator": ipmigo.PrivilegeOperator,
		"admin":    ipmigo.PrivilegeAdministrator,
	}[flagPrivilege]

	return ipmigo.Arguments{
		Version:              ipmigo.V2_0,
		Address:              flagAddress,
		Username:             flagUsername,
		Password:             flagPassword,
		CipherSuiteID:        flagCipher,
		NegotiateCipherSuite: flagNegotiate,
		PrivilegeLevel:       priv,
		Timeout:              flagTimeout,
		Retries:              flagRetries,
		Logger:               log,
	}
}

var rawCmd = &cobra.Command{
	Use:   "raw <netfn> <code> [data-hex]",
	Short: "Send a raw IPMI command and print the response bytes",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		var netFn, code uint8
		if _, err := fmt.Sscanf(args[0], "0x%x", &netFn); err != nil {
			if _, err := fmt.Sscanf(args[0], "%d", &netFn); err != nil {
				return fmt.Errorf("invalid netfn %q", args[0])
			}
		}
		if _, err := fmt.Sscanf(args[1], "0x%x", &code); err != nil {
			if _, err := fmt.Sscanf(args[1], "%d", &code); err != nil {
				return fmt.Errorf("invalid code %q", args[1])
			}
		}
		var data []byte
		if len(args) == 3 {
			d, err := hex.DecodeString(args[2])
			if err != nil {
				return fmt.Errorf("invalid data hex: %w", err)
			}
			data = d
		}

		c, err := ipmigo.NewClient(newArguments())
		if err != nil {
			return err
		}
		if err := c.Open(); err != nil {
			return err
		}
		defer c.Close()

		rc := ipmigo.NewRawCommand("raw", code, ipmigo.NewNetFnRsLUN(ipmigo.NetFn(netFn), 0), data)
		if err := c.Execute(rc); err != nil {
			return err
		}
		fmt.Println(hex.EncodeToString(rc.Output()))
		return nil
	},
}

var solCmd = &cobra.Command{
	Use:   "sol",
	Short: "Activate SOL and print inbound console data until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := ipmigo.NewClient(newArguments())
		if err != nil {
			return err
		}
		if err := c.Open(); err != nil {
			return err
		}
		defer c.Close()

		if err := c.ActivateSOL(); err != nil {
			return err
		}
		defer c.DeactivateSOL()

		for {
			data, err := c.RecvSOL()
			if err != nil {
				return err
			}
			if len(data) > 0 {
				os.Stdout.Write(data)
			}
		}
	},
}
