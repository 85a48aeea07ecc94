package main

import (
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/dnscrypt/stubdns/dnsmsg"
	"github.com/jedisct1/dlog"
)

// QueryLog writes one line per served query, in the same tsv/ltsv formats
// the rest of the log files use.
type QueryLog struct {
	sync.Mutex
	logger        io.Writer
	format        string
	ignoredQtypes []string
}

func NewQueryLog(logFile string, format string, ignoredQtypes []string, logMaxSize int, logMaxAge int, logMaxBackups int) *QueryLog {
	return &QueryLog{
		logger:        Logger(logMaxSize, logMaxAge, logMaxBackups, logFile),
		format:        format,
		ignoredQtypes: ignoredQtypes,
	}
}

func (queryLog *QueryLog) Log(clientIP net.IP, qName string, qType dnsmsg.QueryType, rcode dnsmsg.ResponseCode, elapsed time.Duration) {
	if queryLog == nil {
		return
	}
	qTypeStr := qType.String()
	for _, ignoredQtype := range queryLog.ignoredQtypes {
		if strings.EqualFold(ignoredQtype, qTypeStr) {
			return
		}
	}
	clientIPStr := clientIP.String()
	durationMs := elapsed.Nanoseconds() / 1000000
	var line string
	if queryLog.format == "tsv" {
		now := time.Now()
		year, month, day := now.Date()
		hour, minute, second := now.Clock()
		tsStr := fmt.Sprintf("[%d-%02d-%02d %02d:%02d:%02d]", year, int(month), day, hour, minute, second)
		line = fmt.Sprintf("%s\t%s\t%s\t%s\t%s\t%dms\n", tsStr, clientIPStr, StringQuote(qName), qTypeStr, rcode.String(), durationMs)
	} else if queryLog.format == "ltsv" {
		line = fmt.Sprintf("time:%d\thost:%s\tmessage:%s\ttype:%s\treturn:%s\tduration:%d\n",
			time.Now().Unix(), clientIPStr, StringQuote(qName), qTypeStr, rcode.String(), durationMs)
	} else {
		dlog.Fatalf("Unexpected log format: [%s]", queryLog.format)
	}
	queryLog.Lock()
	defer queryLog.Unlock()
	if queryLog.logger == nil {
		return
	}
	if _, err := queryLog.logger.Write([]byte(line)); err != nil {
		dlog.Warnf("Unable to write to the query log: [%s]", err)
	}
}
