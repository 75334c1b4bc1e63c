package lirc

import (
	"fmt"
	"io"
	"text/tabwriter"

	"tv-bridge/internal/domain"
)

// WriteRemoteConf renders an RC5 lircd.conf remote definition carrying the
// code table, so lircd transmits exactly the codes the bridge was built with.
func WriteRemoteConf(w io.Writer, remote string, codes domain.CodeTable, buttons map[domain.Function]string) error {
	if err := codes.Validate(); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "# generated by tv-bridge\n")
	fmt.Fprintf(tw, "begin remote\n\n")
	fmt.Fprintf(tw, "  name\t%s\n", remote)
	fmt.Fprintf(tw, "  bits\t13\n")
	fmt.Fprintf(tw, "  flags\tRC5|CONST_LENGTH\n")
	fmt.Fprintf(tw, "  eps\t30\n")
	fmt.Fprintf(tw, "  aeps\t100\n\n")
	fmt.Fprintf(tw, "  one\t889 889\n")
	fmt.Fprintf(tw, "  zero\t889 889\n")
	fmt.Fprintf(tw, "  plead\t889\n")
	fmt.Fprintf(tw, "  gap\t113792\n")
	fmt.Fprintf(tw, "  toggle_bit_mask\t0x800\n")
	fmt.Fprintf(tw, "  frequency\t36000\n\n")
	fmt.Fprintf(tw, "  begin codes\n")

	for _, fn := range domain.Functions {
		button, ok := buttons[fn]
		if !ok {
			return fmt.Errorf("no lircd button for %s", fn)
		}
		fmt.Fprintf(tw, "    %s\t0x%04X\n", button, codes[fn])
	}

	fmt.Fprintf(tw, "  end codes\n\n")
	fmt.Fprintf(tw, "end remote\n")

	return tw.Flush()
}
