package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	HashLength = sha256.Size

	wsScheme = "ws"
)

// AccessCheck checks whether the file or directory exists
func AccessCheck(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("not found %s or permission denied", path)
	}
	return nil
}

// ParseIPPort parses a host:port string, the host may be a name or an IP
func ParseIPPort(hostPort string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(hostPort)
	if err != nil {
		return "", 0, err
	}
	if len(host) == 0 {
		return "", 0, fmt.Errorf("missing host in %q", hostPort)
	}

	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, fmt.Errorf("invalid port in %q", hostPort)
	}
	return host, port, nil
}

// PeerURL turns "host:port", "ws://host:port" or "wss://host:port/path"
// into a websocket url
func PeerURL(address string) (string, error) {
	address = strings.TrimSpace(address)
	if !strings.Contains(address, "://") {
		address = wsScheme + "://" + address
	}

	u, err := url.Parse(address)
	if err != nil {
		return "", err
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if _, _, err := ParseIPPort(u.Host); err != nil {
		return "", err
	}
	if len(u.Path) == 0 {
		u.Path = "/"
	}
	return u.String(), nil
}

// Hash return sha256sum of data
func Hash(data []byte) []byte {
	h := sha256.Sum256(data)
	return h[:]
}

// ToHex returns the lower case hexadecimal encoding string
func ToHex(data []byte) string {
	return hex.EncodeToString(data)
}

// FromHex returns the bytes represented by the hexadecimal string s
func FromHex(s string) ([]byte, error) {
	return hex.DecodeString(s)
}

// UnixSeconds returns t as seconds since epoch with millisecond precision
func UnixSeconds(t time.Time) float64 {
	return float64(t.UnixMilli()) / 1000
}

// TimeToString returns a textual representation of seconds since epoch
func TimeToString(seconds float64) string {
	return time.UnixMilli(int64(seconds * 1000)).Format(timeFormat)
}
