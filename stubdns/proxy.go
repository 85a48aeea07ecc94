package main

import (
	crypto_rand "crypto/rand"
	"encoding/binary"
	"net"
	"time"

	"github.com/dnscrypt/stubdns/dnsmsg"
	"github.com/jedisct1/dlog"
)

type Proxy struct {
	upstream              *UpstreamServer
	queryLog              *QueryLog
	clientsACL            *ClientACL
	timeout               time.Duration
	listenAddresses       []string
	udpListeners          []*net.UDPConn
	queryLogFile          string
	queryLogFormat        string
	queryLogIgnoredQtypes []string
	logMaxSize            int
	logMaxAge             int
	logMaxBackups         int
}

func NewProxy() Proxy {
	return Proxy{}
}

func (proxy *Proxy) StartProxy() {
	if len(proxy.queryLogFile) > 0 {
		proxy.queryLog = NewQueryLog(proxy.queryLogFile, proxy.queryLogFormat, proxy.queryLogIgnoredQtypes,
			proxy.logMaxSize, proxy.logMaxAge, proxy.logMaxBackups)
	}
	for _, listenAddrStr := range proxy.listenAddresses {
		listenUDPAddr, err := net.ResolveUDPAddr("udp", listenAddrStr)
		if err != nil {
			dlog.Fatal(err)
		}
		if err := proxy.udpListenerFromAddr(listenUDPAddr); err != nil {
			dlog.Fatal(err)
		}
	}
	if err := proxy.addSystemDListeners(); err != nil {
		dlog.Fatal(err)
	}
	if len(proxy.udpListeners) == 0 {
		dlog.Fatal("No local sockets - check the `listen_addresses` configuration value")
	}
	for _, listener := range proxy.udpListeners {
		go proxy.udpListener(listener)
	}
	dlog.Noticef("stubdns is ready - forwarding to %v", proxy.upstream.Name)
	ServiceManagerReadyNotify()
}

func (proxy *Proxy) registerUDPListener(conn *net.UDPConn) {
	proxy.udpListeners = append(proxy.udpListeners, conn)
}

func (proxy *Proxy) udpListenerFromAddr(listenAddr *net.UDPAddr) error {
	clientPc, err := net.ListenUDP("udp", listenAddr)
	if err != nil {
		return err
	}
	proxy.registerUDPListener(clientPc)
	dlog.Noticef("Now listening to %v [UDP]", listenAddr)
	return nil
}

// udpListener serves one datagram at a time: a request is fully processed,
// ephemeral upstream socket included, before the next one is read.
func (proxy *Proxy) udpListener(clientPc *net.UDPConn) {
	defer clientPc.Close()
	for {
		buffer := make([]byte, MaxDNSPacketSize)
		length, clientAddr, err := clientPc.ReadFrom(buffer)
		if err != nil {
			return
		}
		packet := buffer[:length]
		proxy.processIncomingQuery(packet, clientAddr, clientPc)
	}
}

func (proxy *Proxy) exchangeWithUDPServer(query []byte) ([]byte, error) {
	upstream := proxy.upstream
	pc, err := net.DialUDP("udp", nil, upstream.UDPAddr)
	if err != nil {
		return nil, err
	}
	if upstream.Timeout > 0 {
		pc.SetDeadline(time.Now().Add(upstream.Timeout))
	}
	pc.Write(query)
	response := make([]byte, MaxDNSPacketSize)
	length, err := pc.Read(response)
	pc.Close()
	if err != nil {
		return nil, err
	}
	return response[:length], nil
}

// forwardQuery sends a fresh single-question query to the upstream server
// and returns the decoded reply.
func (proxy *Proxy) forwardQuery(question dnsmsg.Question) (*dnsmsg.Message, error) {
	upstream := proxy.upstream
	var msgID [2]byte
	if _, err := crypto_rand.Read(msgID[:]); err != nil {
		return nil, err
	}
	query := &dnsmsg.Message{}
	query.Header.ID = binary.BigEndian.Uint16(msgID[:])
	query.Header.RecursionDesired = true
	query.Questions = append(query.Questions, question)
	pb := dnsmsg.NewPacketBuffer()
	if err := query.Encode(pb); err != nil {
		return nil, err
	}
	upstream.noticeBegin()
	packet, err := proxy.exchangeWithUDPServer(pb.Bytes())
	if err != nil {
		upstream.noticeFailure()
		return nil, err
	}
	rpb, err := dnsmsg.NewPacketBufferFrom(packet)
	if err != nil {
		upstream.noticeFailure()
		return nil, err
	}
	reply, err := dnsmsg.DecodeMessage(rpb)
	if err != nil {
		upstream.noticeFailure()
		return nil, err
	}
	upstream.noticeSuccess()
	dlog.Infof("Upstream [%v] RTT estimate: %.0fms", upstream.Name, upstream.RTT())
	return reply, nil
}

func (proxy *Proxy) processIncomingQuery(query []byte, clientAddr net.Addr, clientPc net.PacketConn) {
	if len(query) < MinDNSPacketSize {
		return
	}
	var clientIP net.IP
	if udpAddr, ok := clientAddr.(*net.UDPAddr); ok {
		clientIP = udpAddr.IP
	}
	if !proxy.clientsACL.AllowsClient(clientIP) {
		dlog.Debugf("Client [%v] is not allowed to use this resolver", clientIP)
		return
	}
	start := time.Now()
	pb, err := dnsmsg.NewPacketBufferFrom(query)
	if err != nil {
		return
	}
	request, err := dnsmsg.DecodeMessage(pb)
	if err != nil {
		dlog.Debugf("Dropping malformed query from [%v]: [%s]", clientIP, err)
		return
	}

	response := &dnsmsg.Message{}
	response.Header.ID = request.Header.ID
	response.Header.RecursionDesired = true
	response.Header.RecursionAvailable = true
	response.Header.Response = true

	var question *dnsmsg.Question
	if len(request.Questions) > 0 {
		question = &request.Questions[0]
	}
	if question == nil {
		response.Header.Rcode = dnsmsg.RcodeServFail
	} else if reply, err := proxy.forwardQuery(*question); err != nil {
		dlog.Infof("Upstream server [%v] didn't reply: [%s]", proxy.upstream.Name, err)
		response.Header.Rcode = dnsmsg.RcodeServFail
	} else {
		response.Questions = append(response.Questions, *question)
		response.Header.Rcode = reply.Header.Rcode
		response.Answers = reply.Answers
		response.Authorities = reply.Authorities
		response.Resources = reply.Resources
	}

	out := dnsmsg.NewPacketBuffer()
	if err := response.Encode(out); err != nil {
		dlog.Debugf("Unable to encode the response for [%v]: [%s]", clientIP, err)
		return
	}
	clientPc.WriteTo(out.Bytes(), clientAddr)
	if question != nil {
		proxy.queryLog.Log(clientIP, question.Name, question.QType, response.Header.Rcode, time.Since(start))
	}
}
