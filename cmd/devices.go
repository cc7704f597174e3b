package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/google/gopacket/pcap"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"firestige.xyz/ttlmangle/internal/source"
)

// findDevices is replaced in tests.
var findDevices = pcap.FindAllDevs

func newDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List capture devices",
		Long:  `List the devices libpcap can open. The device marked "*" is used when no interface is configured.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			devs, err := findDevices()
			if err != nil {
				return fmt.Errorf("failed to list devices: %w", err)
			}
			return printDevices(cmd.OutOrStdout(), devs)
		},
	}
}

func printDevices(out io.Writer, devs []pcap.Interface) error {
	if len(devs) == 0 {
		fmt.Fprintln(out, "no capture devices found (are you running with capture privileges?)")
		return nil
	}
	def, _ := source.PickDefault(devs)

	data := pterm.TableData{{"", "NAME", "DESCRIPTION", "ADDRESSES"}}
	for _, dev := range devs {
		mark := ""
		if dev.Name == def {
			mark = "*"
		}
		addrs := make([]string, 0, len(dev.Addresses))
		for _, a := range dev.Addresses {
			if a.IP != nil {
				addrs = append(addrs, a.IP.String())
			}
		}
		data = append(data, []string{mark, dev.Name, dev.Description, strings.Join(addrs, ",")})
	}

	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, table)
	return err
}
