package config

import (
	"regexp"
	"strconv"
	"strings"

	"mini-ack/message"
	"mini-ack/protocol"
)

const (
	MinPort = 1024
	MaxPort = 65535
)

var ipv4Pattern = regexp.MustCompile(`^((25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}(25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)$`)

// ValidIPv4 reports whether s is a dotted-quad IPv4 address.
func ValidIPv4(s string) bool {
	return ipv4Pattern.MatchString(s)
}

// CanonicalIPv4 rewrites a ValidIPv4 address without leading zeros, so
// "127.000.000.001" becomes "127.0.0.1". The resolver treats padded octets
// as a hostname, not a literal.
func CanonicalIPv4(s string) (string, error) {
	if !ValidIPv4(s) {
		return "", protocol.Configf("invalid IP address %q", s)
	}
	octets := strings.Split(s, ".")
	for i, o := range octets {
		n, err := strconv.Atoi(o)
		if err != nil {
			return "", protocol.Configf("invalid IP address %q", s)
		}
		octets[i] = strconv.Itoa(n)
	}
	return strings.Join(octets, "."), nil
}

// ParsePort parses a port in [MinPort, MaxPort].
func ParsePort(s string) (int, error) {
	port, err := strconv.Atoi(s)
	if err != nil || port < MinPort || port > MaxPort {
		return 0, protocol.Configf("invalid port number %q, must be in [%d, %d]", s, MinPort, MaxPort)
	}
	return port, nil
}

// ParsePayload parses a decimal payload that fits in 31 bits.
func ParsePayload(s string) (uint32, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil || uint32(n) > message.MaxPayload {
		return 0, protocol.Configf("invalid payload %q, must be in [0, %d]", s, message.MaxPayload)
	}
	return uint32(n), nil
}
