package main

import (
	"bytes"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/dnscrypt/stubdns/dnsmsg"
	"github.com/powerman/check"
)

func TestQueryLogTSV(tt *testing.T) {
	t := check.T(tt)

	buffer := &bytes.Buffer{}
	queryLog := &QueryLog{logger: buffer, format: "tsv"}
	queryLog.Log(net.ParseIP("127.0.0.1"), "example.com", dnsmsg.TypeA, dnsmsg.RcodeNoError, 12*time.Millisecond)

	line := buffer.String()
	t.Match(line, `^\[\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\]\t`)
	fields := strings.Split(strings.TrimSuffix(line, "\n"), "\t")
	t.Len(fields, 6)
	t.EQ(fields[1], "127.0.0.1")
	t.EQ(fields[2], "example.com")
	t.EQ(fields[3], "A")
	t.EQ(fields[4], "NOERROR")
	t.EQ(fields[5], "12ms")
}

func TestQueryLogLTSV(tt *testing.T) {
	t := check.T(tt)

	buffer := &bytes.Buffer{}
	queryLog := &QueryLog{logger: buffer, format: "ltsv"}
	queryLog.Log(net.ParseIP("192.0.2.1"), "example.net", dnsmsg.TypeAAAA, dnsmsg.RcodeServFail, 7*time.Millisecond)

	line := buffer.String()
	t.Match(line, `^time:\d+\t`)
	t.Contains(line, "host:192.0.2.1")
	t.Contains(line, "message:example.net")
	t.Contains(line, "type:AAAA")
	t.Contains(line, "return:SERVFAIL")
	t.Contains(line, "duration:7")
}

func TestQueryLogIgnoredQtypes(tt *testing.T) {
	t := check.T(tt)

	buffer := &bytes.Buffer{}
	queryLog := &QueryLog{logger: buffer, format: "ltsv", ignoredQtypes: []string{"aaaa", "MX"}}
	queryLog.Log(net.ParseIP("127.0.0.1"), "example.com", dnsmsg.TypeAAAA, dnsmsg.RcodeNoError, time.Millisecond)
	queryLog.Log(net.ParseIP("127.0.0.1"), "example.com", dnsmsg.TypeMX, dnsmsg.RcodeNoError, time.Millisecond)
	t.Zero(buffer.Len())

	queryLog.Log(net.ParseIP("127.0.0.1"), "example.com", dnsmsg.TypeA, dnsmsg.RcodeNoError, time.Millisecond)
	t.NotZero(buffer.Len())
}

func TestQueryLogEscapesNames(tt *testing.T) {
	t := check.T(tt)

	buffer := &bytes.Buffer{}
	queryLog := &QueryLog{logger: buffer, format: "ltsv"}
	queryLog.Log(net.ParseIP("127.0.0.1"), "weird\tname", dnsmsg.TypeA, dnsmsg.RcodeNoError, time.Millisecond)
	t.Contains(buffer.String(), `message:weird\tname`)
}

func TestQueryLogNilReceiver(t *testing.T) {
	var queryLog *QueryLog
	queryLog.Log(net.ParseIP("127.0.0.1"), "example.com", dnsmsg.TypeA, dnsmsg.RcodeNoError, time.Millisecond)
}
