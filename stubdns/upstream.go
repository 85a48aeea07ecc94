package main

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/VividCortex/ewma"
	stamps "github.com/jedisct1/go-dnsstamps"
)

const (
	DefaultUpstreamPort = 53
	RTTEwmaDecay        = 10.0
)

type UpstreamServer struct {
	sync.RWMutex
	Name         string
	UDPAddr      *net.UDPAddr
	Timeout      time.Duration
	rtt          ewma.MovingAverage
	lastActionTS time.Time
}

func NewUpstreamServer(upstreamStr string, timeout time.Duration) (*UpstreamServer, error) {
	addrStr := strings.TrimSpace(upstreamStr)
	if strings.HasPrefix(addrStr, "sdns:") {
		stamp, err := PlainServerStampFromString(addrStr)
		if err != nil {
			return nil, err
		}
		addrStr = stamp.ServerAddrStr
	}
	udpAddr, err := upstreamUDPAddr(addrStr)
	if err != nil {
		return nil, err
	}
	return &UpstreamServer{
		Name:    udpAddr.String(),
		UDPAddr: udpAddr,
		Timeout: timeout,
		rtt:     ewma.NewMovingAverage(RTTEwmaDecay),
	}, nil
}

func (upstream *UpstreamServer) noticeBegin() {
	upstream.Lock()
	upstream.lastActionTS = time.Now()
	upstream.Unlock()
}

func (upstream *UpstreamServer) noticeFailure() {
	upstream.Lock()
	upstream.rtt.Add(float64(upstream.Timeout.Nanoseconds() / 1000000))
	upstream.Unlock()
}

func (upstream *UpstreamServer) noticeSuccess() {
	now := time.Now()
	upstream.Lock()
	elapsed := now.Sub(upstream.lastActionTS)
	elapsedMs := elapsed.Nanoseconds() / 1000000
	if elapsedMs > 0 && (upstream.Timeout <= 0 || elapsed < upstream.Timeout) {
		upstream.rtt.Add(float64(elapsedMs))
	}
	upstream.Unlock()
}

func (upstream *UpstreamServer) RTT() float64 {
	upstream.RLock()
	defer upstream.RUnlock()
	return upstream.rtt.Value()
}

// upstreamUDPAddr turns a host or host:port string into a UDP address,
// rejecting anything that is not an IP literal. Hostnames would require a
// resolver of their own, which is exactly what this daemon is.
func upstreamUDPAddr(addrStr string) (*net.UDPAddr, error) {
	colIndex := strings.LastIndex(addrStr, ":")
	bracketIndex := strings.LastIndex(addrStr, "]")
	if colIndex < bracketIndex {
		colIndex = -1
	}
	if colIndex < 0 {
		addrStr = fmt.Sprintf("%s:%d", addrStr, DefaultUpstreamPort)
	}
	host, _, err := net.SplitHostPort(addrStr)
	if err != nil {
		return nil, err
	}
	if net.ParseIP(host) == nil {
		return nil, fmt.Errorf("Upstream server address [%s] is not an IP address", host)
	}
	return net.ResolveUDPAddr("udp", addrStr)
}

// PlainServerStampFromString decodes an sdns:// stamp and requires it to use
// the plain DNS protocol. Stamps for other protocols are decoded just enough
// to name the protocol in the error.
func PlainServerStampFromString(stampStr string) (stamps.ServerStamp, error) {
	if !strings.HasPrefix(stampStr, "sdns:") {
		return stamps.ServerStamp{}, errors.New("Stamps are expected to start with \"sdns:\"")
	}
	encoded := strings.TrimPrefix(stampStr[5:], "//")
	bin, err := base64.RawURLEncoding.Strict().DecodeString(encoded)
	if err != nil {
		return stamps.ServerStamp{}, err
	}
	if len(bin) < 1 {
		return stamps.ServerStamp{}, errors.New("Stamp is too short")
	}
	if bin[0] != uint8(stamps.StampProtoTypePlain) {
		if stamp, err := stamps.NewServerStampFromString(stampStr); err == nil {
			return stamps.ServerStamp{}, fmt.Errorf("Upstream stamp uses the %v protocol, but only plain DNS is supported", stamp.Proto.String())
		}
		return stamps.ServerStamp{}, errors.New("Unsupported stamp version or protocol")
	}
	return newPlainServerStamp(bin)
}

// id(u8)=0x00 props addrLen(1) serverAddr
func newPlainServerStamp(bin []byte) (stamps.ServerStamp, error) {
	stamp := stamps.ServerStamp{Proto: stamps.StampProtoTypePlain}
	if len(bin) < 13 {
		return stamp, errors.New("Stamp is too short")
	}
	stamp.Props = stamps.ServerInformalProperties(binary.LittleEndian.Uint64(bin[1:9]))
	binLen := len(bin)
	pos := 9
	length := int(bin[pos])
	if 1+length > binLen-pos {
		return stamp, errors.New("Invalid stamp")
	}
	pos++
	stamp.ServerAddrStr = string(bin[pos : pos+length])
	pos += length

	colIndex := strings.LastIndex(stamp.ServerAddrStr, ":")
	bracketIndex := strings.LastIndex(stamp.ServerAddrStr, "]")
	if colIndex < bracketIndex {
		colIndex = -1
	}
	if colIndex < 0 {
		colIndex = len(stamp.ServerAddrStr)
		stamp.ServerAddrStr = fmt.Sprintf("%s:%d", stamp.ServerAddrStr, DefaultUpstreamPort)
	}
	if colIndex >= len(stamp.ServerAddrStr)-1 {
		return stamp, errors.New("Invalid stamp (empty port)")
	}
	ipOnly := stamp.ServerAddrStr[:colIndex]
	portOnly := stamp.ServerAddrStr[colIndex+1:]
	if _, err := strconv.ParseUint(portOnly, 10, 16); err != nil {
		return stamp, errors.New("Invalid stamp (port range)")
	}
	if net.ParseIP(strings.TrimRight(strings.TrimLeft(ipOnly, "["), "]")) == nil {
		return stamp, errors.New("Invalid stamp (IP address)")
	}
	if pos != binLen {
		return stamp, errors.New("Invalid stamp (garbage after end)")
	}
	return stamp, nil
}
