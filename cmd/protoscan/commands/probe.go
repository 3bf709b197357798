package commands

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/flowlayer/protoscan/internal/config"
	"github.com/flowlayer/protoscan/internal/direction"
	"github.com/flowlayer/protoscan/internal/dnsproto"
	"github.com/flowlayer/protoscan/internal/ftpproto"
	"github.com/flowlayer/protoscan/internal/logger"
	"github.com/flowlayer/protoscan/internal/nfs4proto"
	"github.com/spf13/cobra"
)

var (
	probeFile  string
	probeProto string
	probeDir   string
	probeHex   bool
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Feed one captured payload through a protocol engine",
	Long: `probe reads a single reassembled payload from a file (or stdin with
--file -) and runs it through a protocol engine's Probe/Parse entrypoints,
printing what the engine recognized.

With --proto auto (the default) it tries dns, then nfs4, then ftp, reporting
the first match. This command constructs a fresh, single-message flow state
each run; it does not track transactions across invocations.

Examples:
  # Auto-detect a captured UDP DNS datagram
  protoscan probe --file query.bin

  # Force NFSv4 dissection of a record-marked SunRPC call
  protoscan probe --proto nfs4 --dir to_server --file compound.bin

  # Read a hex-encoded payload from stdin
  cat payload.hex | protoscan probe --proto ftp --hex --file -`,
	RunE: runProbe,
}

func init() {
	probeCmd.Flags().StringVar(&probeFile, "file", "", "path to the payload file, or - for stdin (required)")
	probeCmd.Flags().StringVar(&probeProto, "proto", "auto", "protocol to dissect: auto, dns, nfs4, ftp")
	probeCmd.Flags().StringVar(&probeDir, "dir", "to_server", "stream direction: to_server or to_client")
	probeCmd.Flags().BoolVar(&probeHex, "hex", false, "payload is hex-encoded text rather than raw bytes")
	_ = probeCmd.MarkFlagRequired("file")
}

func runProbe(cmd *cobra.Command, args []string) error {
	data, err := readProbePayload()
	if err != nil {
		return err
	}

	dir, err := parseProbeDirection(probeDir)
	if err != nil {
		return err
	}

	logger.Info("probe started", "proto", probeProto, "direction", probeDir, "bytes", len(data))

	switch strings.ToLower(probeProto) {
	case "dns":
		return probeDNS(cmd, dir, data)
	case "nfs4":
		return probeNFS4(cmd, dir, data)
	case "ftp":
		return probeFTP(cmd, data)
	case "auto":
		return probeAuto(cmd, dir, data)
	default:
		return fmt.Errorf("unknown protocol %q (want auto, dns, nfs4, or ftp)", probeProto)
	}
}

func readProbePayload() ([]byte, error) {
	var raw []byte
	var err error
	if probeFile == "-" {
		raw, err = readAllStdin()
	} else {
		raw, err = os.ReadFile(probeFile)
	}
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}

	if !probeHex {
		return raw, nil
	}

	decoded, err := hex.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("decode hex payload: %w", err)
	}
	return decoded, nil
}

func readAllStdin() ([]byte, error) {
	var buf []byte
	chunk := make([]byte, 4096)
	for {
		n, err := os.Stdin.Read(chunk)
		buf = append(buf, chunk[:n]...)
		if err != nil {
			break
		}
	}
	return buf, nil
}

func parseProbeDirection(s string) (direction.Direction, error) {
	switch s {
	case "to_server":
		return direction.ToServer, nil
	case "to_client":
		return direction.ToClient, nil
	default:
		return 0, fmt.Errorf("unknown direction %q (want to_server or to_client)", s)
	}
}

func probeAuto(cmd *cobra.Command, dir direction.Direction, data []byte) error {
	if isDNS, _ := dnsproto.Probe(data); isDNS {
		return probeDNS(cmd, dir, data)
	}
	if nfs4proto.Probe(data[minInt(len(data), 4):]) {
		return probeNFS4(cmd, dir, data)
	}
	for _, parse := range []func([]byte) (uint16, error){
		ftpproto.ParsePORT, ftpproto.ParseEPRT,
		ftpproto.ParsePassiveReply227, ftpproto.ParseExtendedPassiveReply229,
	} {
		if _, err := parse(data); err == nil {
			return probeFTP(cmd, data)
		}
	}
	logger.Warn("no protocol recognized this payload", "bytes", len(data))
	cmd.Println("no protocol recognized this payload; pass --proto to force one")
	return nil
}

func probeDNS(cmd *cobra.Command, dir direction.Direction, data []byte) error {
	isDNS, isRequest := dnsproto.Probe(data)
	if !isDNS {
		cmd.Println("dns: payload too short to be a DNS message")
		return nil
	}

	s := dnsproto.NewState(config.GetDefaultConfig().Limits, nil)
	ok := s.ParseDatagram(dir, data)

	cmd.Printf("dns: is_request=%v parsed=%v transactions=%d\n", isRequest, ok, s.TxCount())
	for i := 0; i < s.TxCount(); i++ {
		tx, _ := s.TxByIndex(i)
		cmd.Printf("  tx[%d] id=%d events=%v\n", i, tx.TxID(), tx.Codes())
	}
	return nil
}

func probeNFS4(cmd *cobra.Command, dir direction.Direction, data []byte) error {
	s := nfs4proto.NewState(config.GetDefaultConfig().Limits, nil)

	switch dir {
	case direction.ToServer:
		s.ParseToServer(data, 0)
	default:
		s.ParseToClient(data, 0)
	}

	cmd.Printf("nfs4: transactions=%d\n", s.TxCount())
	for i := 0; i < s.TxCount(); i++ {
		tx, _ := s.TxByIndex(i)
		cmd.Printf("  tx[%d] id=%d file=%q handle=%q events=%v\n", i, tx.TxID(), tx.FileName, tx.FileHandle, tx.Codes())
	}
	if identity, ok := s.LastGSSServiceIdentity(); ok {
		cmd.Printf("  gss service identity: %s@%s\n", identity.ServicePrincipal, identity.ServiceRealm)
	}
	return nil
}

func probeFTP(cmd *cobra.Command, data []byte) error {
	line := data
	if port, err := ftpproto.ParsePORT(line); err == nil {
		cmd.Printf("ftp: PORT command, data port=%d\n", port)
		return nil
	}
	if port, err := ftpproto.ParseEPRT(line); err == nil {
		cmd.Printf("ftp: EPRT command, data port=%d\n", port)
		return nil
	}
	if port, err := ftpproto.ParsePassiveReply227(line); err == nil {
		cmd.Printf("ftp: 227 PASV reply, data port=%d\n", port)
		return nil
	}
	if port, err := ftpproto.ParseExtendedPassiveReply229(line); err == nil {
		cmd.Printf("ftp: 229 EPSV reply, data port=%d\n", port)
		return nil
	}
	cmd.Println("ftp: payload did not match PORT, EPRT, PASV reply, or EPSV reply grammar")
	return nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
