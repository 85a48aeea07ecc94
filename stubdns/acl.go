package main

import (
	"fmt"
	"net"
	"strings"

	iradix "github.com/hashicorp/go-immutable-radix"
	"github.com/k-sone/critbitgo"
)

// ClientACL decides which client addresses may use the resolver. Rules come
// in three forms: exact IPs, CIDR networks, and trailing-wildcard prefixes
// such as "192.168.1.*". An empty ACL allows everyone.
type ClientACL struct {
	allowedIPs      map[string]interface{}
	allowedPrefixes *iradix.Tree
	allowedNets     *critbitgo.Net
	ruleCount       int
}

func NewClientACL(rules []string) (*ClientACL, error) {
	acl := &ClientACL{
		allowedIPs:      make(map[string]interface{}),
		allowedPrefixes: iradix.New(),
		allowedNets:     critbitgo.NewNet(),
	}
	for _, rule := range rules {
		if err := acl.addRule(rule); err != nil {
			return nil, err
		}
	}
	return acl, nil
}

func (acl *ClientACL) addRule(rule string) error {
	line := strings.ToLower(strings.TrimSpace(rule))
	if len(line) < 2 {
		return fmt.Errorf("Suspicious allowed client rule [%s]", rule)
	}
	if strings.Contains(line, "/") {
		if err := acl.allowedNets.AddCIDR(line, true); err != nil {
			return fmt.Errorf("Invalid network in allowed_clients: [%s]", rule)
		}
		acl.ruleCount++
		return nil
	}
	trailingStar := strings.HasSuffix(line, "*")
	if trailingStar {
		line = line[:len(line)-1]
		if net.ParseIP(line) != nil {
			return fmt.Errorf("Suspicious allowed client rule [%s]", rule)
		}
	}
	if strings.HasSuffix(line, ":") || strings.HasSuffix(line, ".") {
		line = line[:len(line)-1]
	}
	if len(line) == 0 {
		return fmt.Errorf("Empty allowed client rule")
	}
	if strings.Contains(line, "*") {
		return fmt.Errorf("Invalid rule: [%s] - wildcards can only be used as a suffix", rule)
	}
	if trailingStar {
		acl.allowedPrefixes, _, _ = acl.allowedPrefixes.Insert([]byte(line), 0)
		acl.ruleCount++
		return nil
	}
	ip := net.ParseIP(line)
	if ip == nil {
		return fmt.Errorf("Invalid IP address in allowed_clients: [%s]", rule)
	}
	acl.allowedIPs[ip.String()] = true
	acl.ruleCount++
	return nil
}

// AllowsClient reports whether the client address passes the ACL. Sources
// without an IP are let through, the transport should never produce any.
func (acl *ClientACL) AllowsClient(clientIP net.IP) bool {
	if acl == nil || acl.ruleCount == 0 {
		return true
	}
	if clientIP == nil {
		return true
	}
	ipStr := clientIP.String()
	if _, found := acl.allowedIPs[ipStr]; found {
		return true
	}
	if contained, err := acl.allowedNets.ContainedIP(clientIP); err == nil && contained {
		return true
	}
	match, _, found := acl.allowedPrefixes.Root().LongestPrefix([]byte(ipStr))
	if found {
		if len(match) == len(ipStr) || ipStr[len(match)] == '.' || ipStr[len(match)] == ':' {
			return true
		}
	}
	return false
}
