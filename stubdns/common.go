package main

import (
	"strconv"
	"strings"

	"github.com/dnscrypt/stubdns/dnsmsg"
)

var (
	// A bare 12-byte header is a valid query: it gets a SERVFAIL answer
	// rather than being dropped at the length guard.
	MinDNSPacketSize = 12
	MaxDNSPacketSize = dnsmsg.MaxPacketSize
)

func Min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func StringQuote(str string) string {
	str = strconv.QuoteToGraphic(str)
	return str[1 : len(str)-1]
}

// ExtractHostAndPort parses a string containing a host and optional port.
// If no port is present or cannot be parsed, the defaultPort is returned.
func ExtractHostAndPort(str string, defaultPort int) (host string, port int) {
	host, port = str, defaultPort
	if idx := strings.LastIndex(str, ":"); idx >= 0 && idx < len(str)-1 {
		if portX, err := strconv.Atoi(str[idx+1:]); err == nil {
			host, port = host[:idx], portX
		}
	}
	return host, port
}
