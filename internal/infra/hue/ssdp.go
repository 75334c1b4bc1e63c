package hue

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"golang.org/x/net/ipv4"
)

const (
	ssdpPort   = 1900
	deviceType = "urn:schemas-upnp-org:device:basic:1"
	rootDevice = "upnp:rootdevice"
	searchAll  = "ssdp:all"
	discover   = `"ssdp:discover"`
)

var ssdpGroup = net.IPv4(239, 255, 255, 250)

// Responder answers SSDP M-SEARCH requests so assistants on the LAN find
// the bridge and fetch its description.
type Responder struct {
	location string
	serial   string
	logger   *slog.Logger
}

// NewResponder advertises location, the absolute URL of /description.xml.
func NewResponder(location, serial string, logger *slog.Logger) *Responder {
	return &Responder{
		location: location,
		serial:   serial,
		logger:   logger,
	}
}

// Serve listens on the SSDP multicast group until ctx is done.
func (r *Responder) Serve(ctx context.Context) error {
	conn, err := net.ListenPacket("udp4", fmt.Sprintf("0.0.0.0:%d", ssdpPort))
	if err != nil {
		return fmt.Errorf("listening for ssdp: %w", err)
	}

	p := ipv4.NewPacketConn(conn)
	if err := joinGroup(p); err != nil {
		conn.Close()
		return err
	}

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	r.logger.Info("ssdp responder listening", "group", ssdpGroup, "location", r.location)

	buf := make([]byte, 2048)
	for {
		n, _, src, err := p.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("reading ssdp packet: %w", err)
		}

		st, ok := parseSearch(buf[:n])
		if !ok {
			continue
		}

		r.logger.Debug("ssdp search", "from", src, "st", st)
		if _, err := conn.WriteTo(searchResponse(st, r.location, r.serial), src); err != nil {
			r.logger.Warn("ssdp reply failed", "to", src, "error", err)
		}
	}
}

func joinGroup(p *ipv4.PacketConn) error {
	ifaces, err := net.Interfaces()
	if err != nil {
		return fmt.Errorf("listing interfaces: %w", err)
	}

	joined := 0
	for i := range ifaces {
		iface := &ifaces[i]
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagMulticast == 0 {
			continue
		}
		if err := p.JoinGroup(iface, &net.UDPAddr{IP: ssdpGroup}); err != nil {
			continue
		}
		joined++
	}
	if joined == 0 {
		return errors.New("no interface could join the ssdp group")
	}
	return nil
}

// parseSearch reports whether packet is an M-SEARCH the bridge should
// answer, and the search target to echo.
func parseSearch(packet []byte) (string, bool) {
	req, err := http.ReadRequest(bufio.NewReader(bytes.NewReader(packet)))
	if err != nil || req.Method != "M-SEARCH" {
		return "", false
	}
	if req.Header.Get("MAN") != discover {
		return "", false
	}

	st := req.Header.Get("ST")
	switch strings.ToLower(st) {
	case searchAll:
		return deviceType, true
	case rootDevice, deviceType:
		return st, true
	default:
		return "", false
	}
}

func searchResponse(st, location, serial string) []byte {
	usn := "uuid:" + bridgeUUID(serial)
	if st == rootDevice {
		usn += "::" + rootDevice
	}

	var b strings.Builder
	b.WriteString("HTTP/1.1 200 OK\r\n")
	b.WriteString("EXT:\r\n")
	b.WriteString("CACHE-CONTROL: max-age=100\r\n")
	b.WriteString("LOCATION: " + location + "\r\n")
	b.WriteString("SERVER: Linux/3.14.0 UPnP/1.0 IpBridge/1.24.0\r\n")
	b.WriteString("hue-bridgeid: " + bridgeID(serial) + "\r\n")
	b.WriteString("ST: " + st + "\r\n")
	b.WriteString("USN: " + usn + "\r\n")
	b.WriteString("\r\n")
	return []byte(b.String())
}

// bridgeID expands a 12 digit serial the way real bridges do.
func bridgeID(serial string) string {
	if len(serial) != 12 {
		return strings.ToUpper(serial)
	}
	return strings.ToUpper(serial[:6] + "FFFE" + serial[6:])
}

// OutboundIP returns the local address used to reach the LAN, for building
// the advertised location.
func OutboundIP() (net.IP, error) {
	conn, err := net.Dial("udp4", (&net.UDPAddr{IP: ssdpGroup, Port: ssdpPort}).String())
	if err != nil {
		return nil, fmt.Errorf("finding outbound address: %w", err)
	}
	defer conn.Close()

	return conn.LocalAddr().(*net.UDPAddr).IP, nil
}

// SerialFromMAC derives a 12 digit bridge serial from the first hardware
// address found, falling back to a fixed serial.
func SerialFromMAC() string {
	ifaces, err := net.Interfaces()
	if err == nil {
		for _, iface := range ifaces {
			if iface.Flags&net.FlagLoopback != 0 || len(iface.HardwareAddr) != 6 {
				continue
			}
			return strings.ReplaceAll(iface.HardwareAddr.String(), ":", "")
		}
	}
	return "001788a1b2c3"
}
