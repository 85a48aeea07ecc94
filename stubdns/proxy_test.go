package main

import (
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jedisct1/dlog"
	"github.com/miekg/dns"
	"github.com/powerman/check"
)

func TestMain(m *testing.M) { check.TestMain(m) }

func startServerUDP(t *check.C, proto string, h dns.Handler) (*dns.Server, error) {
	waitLock := sync.Mutex{}
	addr := ":0"
	if proto == "udp6" {
		addr = "[::]:0"
	}
	server := &dns.Server{Addr: addr, Net: proto, ReadTimeout: time.Hour, WriteTimeout: time.Hour, NotifyStartedFunc: waitLock.Unlock, Handler: h}
	waitLock.Lock()

	go func() {
		err := server.ListenAndServe()
		t.Nil(err)
	}()
	waitLock.Lock()
	return server, nil
}

func toServerAddr(s *dns.Server) (string, error) {
	var h, p string
	var err error
	if strings.HasPrefix(s.Net, "udp") {
		h, p, err = net.SplitHostPort(s.PacketConn.LocalAddr().String())
	} else {
		h, p, err = net.SplitHostPort(s.Listener.Addr().String())
	}
	if err != nil {
		return "", err
	}
	if net.ParseIP(h).To4() == nil {
		return "[::1]:" + p, nil
	}
	return "127.0.0.1:" + p, nil
}

func FakeUpstream(w dns.ResponseWriter, req *dns.Msg) {
	m := new(dns.Msg)
	m.SetReply(req)

	m.Answer = make([]dns.RR, 1)
	m.Answer[0] = &dns.A{Hdr: dns.RR_Header{Name: m.Question[0].Name, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: 3600}, A: net.ParseIP("192.0.2.53").To4()}
	w.WriteMsg(m)
}

func newTestProxy(t *check.C, upstreamAddr string, timeout time.Duration) *Proxy {
	upstream, err := NewUpstreamServer(upstreamAddr, timeout)
	t.Nil(err)
	proxy := NewProxy()
	proxy.upstream = upstream
	proxy.timeout = timeout
	return &proxy
}

func startTestListener(t *check.C, proxy *Proxy) *net.UDPConn {
	clientPc, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	t.Nil(err)
	proxy.registerUDPListener(clientPc)
	go proxy.udpListener(clientPc)
	return clientPc
}

func exchangeWithProxy(t *check.C, listener *net.UDPConn, query []byte, deadline time.Duration) ([]byte, error) {
	client, err := net.Dial("udp", listener.LocalAddr().String())
	t.Nil(err)
	defer client.Close()
	client.SetDeadline(time.Now().Add(deadline))
	_, err = client.Write(query)
	t.Nil(err)
	response := make([]byte, MaxDNSPacketSize)
	length, err := client.Read(response)
	if err != nil {
		return nil, err
	}
	return response[:length], nil
}

func TestExchangeWithUDPServer(tt *testing.T) {
	if testing.Verbose() {
		dlog.SetLogLevel(dlog.SeverityDebug)
		dlog.UseSyslog(false)
	}
	t := check.T(tt)

	us, err := startServerUDP(t, "udp4", dns.HandlerFunc(FakeUpstream))
	t.Nil(err)
	defer us.Shutdown()

	serverAddr, err := toServerAddr(us)
	t.Nil(err)
	proxy := newTestProxy(t, serverAddr, 2*time.Second)

	msg := dns.Msg{}
	msg.SetQuestion("example.com.", dns.TypeA)
	query, err := msg.Pack()
	t.Nil(err)

	r, err := proxy.exchangeWithUDPServer(query)
	t.Nil(err)
	t.Must(len(r) > 0)
	resp := dns.Msg{}
	t.Nil(resp.Unpack(r))
	t.EQ(resp.Rcode, dns.RcodeSuccess)
	t.Len(resp.Answer, 1)
}

func TestServeForwardsQueries(tt *testing.T) {
	if testing.Verbose() {
		dlog.SetLogLevel(dlog.SeverityDebug)
		dlog.UseSyslog(false)
	}
	t := check.T(tt)

	us, err := startServerUDP(t, "udp4", dns.HandlerFunc(FakeUpstream))
	t.Nil(err)
	defer us.Shutdown()

	serverAddr, err := toServerAddr(us)
	t.Nil(err)
	proxy := newTestProxy(t, serverAddr, 2*time.Second)
	listener := startTestListener(t, proxy)
	defer listener.Close()

	msg := dns.Msg{}
	msg.SetQuestion("example.com.", dns.TypeA)
	msg.Id = 0x1234
	query, err := msg.Pack()
	t.Nil(err)

	r, err := exchangeWithProxy(t, listener, query, 2*time.Second)
	t.Nil(err)
	resp := dns.Msg{}
	t.Nil(resp.Unpack(r))
	t.EQ(resp.Id, uint16(0x1234))
	t.True(resp.Response)
	t.True(resp.RecursionAvailable)
	t.EQ(resp.Rcode, dns.RcodeSuccess)
	t.Len(resp.Question, 1)
	t.EQ(resp.Question[0].Name, "example.com.")
	t.Len(resp.Answer, 1)
	answer, ok := resp.Answer[0].(*dns.A)
	t.Must(ok)
	t.EQ(answer.A.String(), "192.0.2.53")
	t.EQ(answer.Hdr.Ttl, uint32(3600))
}

func TestServeZeroQuestions(tt *testing.T) {
	t := check.T(tt)

	us, err := startServerUDP(t, "udp4", dns.HandlerFunc(FakeUpstream))
	t.Nil(err)
	defer us.Shutdown()

	serverAddr, err := toServerAddr(us)
	t.Nil(err)
	proxy := newTestProxy(t, serverAddr, 2*time.Second)
	listener := startTestListener(t, proxy)
	defer listener.Close()

	// A header-only query with no questions cannot be answered, but it is
	// still well-formed and gets a SERVFAIL rather than silence.
	query := []byte{0xab, 0xcd, 0x01, 0x00, 0, 0, 0, 0, 0, 0, 0, 0}
	r, err := exchangeWithProxy(t, listener, query, 2*time.Second)
	t.Nil(err)
	resp := dns.Msg{}
	t.Nil(resp.Unpack(r))
	t.EQ(resp.Id, uint16(0xabcd))
	t.True(resp.Response)
	t.EQ(resp.Rcode, dns.RcodeServerFailure)
	t.Len(resp.Question, 0)
}

func TestServeUpstreamDown(tt *testing.T) {
	t := check.T(tt)

	dead, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	t.Nil(err)
	deadAddr := dead.LocalAddr().String()
	dead.Close()

	proxy := newTestProxy(t, deadAddr, 100*time.Millisecond)
	listener := startTestListener(t, proxy)
	defer listener.Close()

	msg := dns.Msg{}
	msg.SetQuestion("example.com.", dns.TypeA)
	query, err := msg.Pack()
	t.Nil(err)

	r, err := exchangeWithProxy(t, listener, query, 2*time.Second)
	t.Nil(err)
	resp := dns.Msg{}
	t.Nil(resp.Unpack(r))
	t.EQ(resp.Rcode, dns.RcodeServerFailure)
	// The question section is only filled in when an upstream reply is
	// relayed; a swallowed upstream failure leaves it empty.
	t.Len(resp.Question, 0)
	t.Len(resp.Answer, 0)
}

func TestServeDropsMalformedQueries(tt *testing.T) {
	t := check.T(tt)

	us, err := startServerUDP(t, "udp4", dns.HandlerFunc(FakeUpstream))
	t.Nil(err)
	defer us.Shutdown()

	serverAddr, err := toServerAddr(us)
	t.Nil(err)
	proxy := newTestProxy(t, serverAddr, 2*time.Second)
	listener := startTestListener(t, proxy)
	defer listener.Close()

	// The question name is a compression pointer pointing at itself, which
	// trips the jump limit. Malformed datagrams are dropped without a reply.
	query := []byte{
		0x12, 0x34, 0x01, 0x00, 0x00, 0x01, 0, 0, 0, 0, 0, 0,
		0xc0, 0x0c, 0x00, 0x01, 0x00, 0x01,
	}
	_, err = exchangeWithProxy(t, listener, query, 300*time.Millisecond)
	t.NotNil(err)

	// Same for anything shorter than a DNS header.
	_, err = exchangeWithProxy(t, listener, []byte{0x00, 0x01, 0x02}, 300*time.Millisecond)
	t.NotNil(err)
}

func TestServeClientACL(tt *testing.T) {
	t := check.T(tt)

	us, err := startServerUDP(t, "udp4", dns.HandlerFunc(FakeUpstream))
	t.Nil(err)
	defer us.Shutdown()

	serverAddr, err := toServerAddr(us)
	t.Nil(err)

	msg := dns.Msg{}
	msg.SetQuestion("example.com.", dns.TypeA)
	query, err := msg.Pack()
	t.Nil(err)

	proxy := newTestProxy(t, serverAddr, 2*time.Second)
	acl, err := NewClientACL([]string{"203.0.113.7"})
	t.Nil(err)
	proxy.clientsACL = acl
	listener := startTestListener(t, proxy)
	defer listener.Close()

	_, err = exchangeWithProxy(t, listener, query, 300*time.Millisecond)
	t.NotNil(err, "query from a denied client should be dropped")

	proxy = newTestProxy(t, serverAddr, 2*time.Second)
	acl, err = NewClientACL([]string{"127.0.0.1"})
	t.Nil(err)
	proxy.clientsACL = acl
	listener2 := startTestListener(t, proxy)
	defer listener2.Close()

	r, err := exchangeWithProxy(t, listener2, query, 2*time.Second)
	t.Nil(err)
	resp := dns.Msg{}
	t.Nil(resp.Unpack(r))
	t.EQ(resp.Rcode, dns.RcodeSuccess)
}
