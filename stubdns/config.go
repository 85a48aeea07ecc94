package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/jedisct1/dlog"
)

const (
	MaxTimeout             = 43200
	DefaultNetprobeAddress = "9.9.9.9:53"
)

type Config struct {
	LogLevel        int            `toml:"log_level"`
	LogFile         *string        `toml:"log_file"`
	UseSyslog       bool           `toml:"use_syslog"`
	ListenAddresses []string       `toml:"listen_addresses"`
	Upstream        string         `toml:"upstream"`
	Timeout         int            `toml:"timeout"`
	AllowedClients  []string       `toml:"allowed_clients"`
	NetprobeAddress string         `toml:"netprobe_address"`
	NetprobeTimeout int            `toml:"netprobe_timeout"`
	QueryLog        QueryLogConfig `toml:"query_log"`
	Log             LogConfig      `toml:"log"`
}

type QueryLogConfig struct {
	File          string   `toml:"file"`
	Format        string   `toml:"format"`
	IgnoredQtypes []string `toml:"ignored_qtypes"`
}

type LogConfig struct {
	MaxSize    int `toml:"max_size"`
	MaxAge     int `toml:"max_age"`
	MaxBackups int `toml:"max_backups"`
}

func newConfig() Config {
	return Config{
		LogLevel:        int(dlog.LogLevel()),
		ListenAddresses: []string{"127.0.0.1:2053"},
		Upstream:        "8.8.8.8:53",
		Timeout:         5000,
		NetprobeTimeout: 60,
		NetprobeAddress: DefaultNetprobeAddress,
		QueryLog:        QueryLogConfig{Format: "tsv"},
		Log:             LogConfig{MaxSize: 10, MaxAge: 7, MaxBackups: 1},
	}
}

type UpstreamSummary struct {
	Name string `json:"name"`
	Addr string `json:"addr"`
	Port int    `json:"port"`
}

func findConfigFile(configFile *string) (string, error) {
	if _, err := os.Stat(*configFile); os.IsNotExist(err) {
		cdLocal()
		if _, err := os.Stat(*configFile); err != nil {
			return "", err
		}
	}
	pwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	if filepath.IsAbs(*configFile) {
		return *configFile, nil
	}
	return path.Join(pwd, *configFile), nil
}

func cdLocal() {
	exeFileName, err := os.Executable()
	if err != nil {
		dlog.Warnf("Unable to determine the executable directory: [%s] -- You will need to specify absolute paths in the configuration file", err)
	} else if err := os.Chdir(filepath.Dir(exeFileName)); err != nil {
		dlog.Warnf("Unable to change working directory to [%s]: %s", exeFileName, err)
	}
}

func cdFileDir(fileName string) error {
	return os.Chdir(filepath.Dir(fileName))
}

func ConfigLoad(proxy *Proxy, svcFlag *string) error {
	version := flag.Bool("version", false, "print current server version")
	jsonOutput := flag.Bool("json", false, "output the upstream list as JSON")
	check := flag.Bool("check", false, "check the configuration file and exit")
	configFile := flag.String("config", DefaultConfigFileName, "Path to the configuration file")
	listUpstreams := flag.Bool("list-upstreams", false, "print the configured upstream server and exit")
	netprobeTimeoutOverride := flag.Int("netprobe-timeout", 60, "Override the netprobe timeout")

	flag.Parse()

	if *svcFlag == "stop" || *svcFlag == "uninstall" {
		return nil
	}
	if *version {
		fmt.Println(AppVersion)
		os.Exit(0)
	}

	foundConfigFile, err := findConfigFile(configFile)
	if err != nil {
		dlog.Fatalf("Unable to load the configuration file [%s] -- Maybe use the -config command-line switch?", *configFile)
	}
	WarnIfMaybeWritableByOtherUsers(foundConfigFile)
	config := newConfig()
	md, err := toml.DecodeFile(foundConfigFile, &config)
	if err != nil {
		return err
	}
	undecoded := md.Undecoded()
	if len(undecoded) > 0 {
		return fmt.Errorf("Unsupported key in configuration file: [%s]", undecoded[0])
	}
	if err := cdFileDir(foundConfigFile); err != nil {
		return err
	}
	if config.LogLevel >= 0 && config.LogLevel < int(dlog.SeverityLast) {
		dlog.SetLogLevel(dlog.Severity(config.LogLevel))
	}
	if dlog.LogLevel() <= dlog.SeverityDebug && os.Getenv("DEBUG") == "" {
		dlog.SetLogLevel(dlog.SeverityInfo)
	}
	if config.UseSyslog {
		dlog.UseSyslog(true)
	} else if config.LogFile != nil {
		dlog.UseLogFile(*config.LogFile)
	}

	proxy.logMaxSize = config.Log.MaxSize
	proxy.logMaxAge = config.Log.MaxAge
	proxy.logMaxBackups = config.Log.MaxBackups

	proxy.listenAddresses = config.ListenAddresses
	proxy.timeout = time.Duration(config.Timeout) * time.Millisecond

	if len(config.Upstream) == 0 {
		return errors.New("No upstream server configured")
	}
	upstream, err := NewUpstreamServer(config.Upstream, proxy.timeout)
	if err != nil {
		return err
	}
	proxy.upstream = upstream

	clientsACL, err := NewClientACL(config.AllowedClients)
	if err != nil {
		return err
	}
	proxy.clientsACL = clientsACL

	if len(config.QueryLog.Format) == 0 {
		config.QueryLog.Format = "tsv"
	} else {
		config.QueryLog.Format = strings.ToLower(config.QueryLog.Format)
	}
	if config.QueryLog.Format != "tsv" && config.QueryLog.Format != "ltsv" {
		return errors.New("Unsupported query log format")
	}
	proxy.queryLogFile = config.QueryLog.File
	proxy.queryLogFormat = config.QueryLog.Format
	proxy.queryLogIgnoredQtypes = config.QueryLog.IgnoredQtypes

	InitSandbox(&config)

	netprobeTimeout := config.NetprobeTimeout
	flag.Visit(func(flag *flag.Flag) {
		if flag.Name == "netprobe-timeout" && netprobeTimeoutOverride != nil {
			netprobeTimeout = *netprobeTimeoutOverride
		}
	})
	netprobeAddress := DefaultNetprobeAddress
	if len(config.NetprobeAddress) > 0 {
		netprobeAddress = config.NetprobeAddress
	}
	if err := NetProbe(netprobeAddress, netprobeTimeout); err != nil {
		return err
	}

	if *listUpstreams {
		config.printUpstream(proxy, *jsonOutput)
		os.Exit(0)
	}
	if *check {
		dlog.Notice("Configuration successfully checked")
		os.Exit(0)
	}
	return nil
}

func (config *Config) printUpstream(proxy *Proxy, jsonOutput bool) {
	summary := UpstreamSummary{
		Name: proxy.upstream.Name,
		Addr: proxy.upstream.UDPAddr.IP.String(),
		Port: proxy.upstream.UDPAddr.Port,
	}
	if jsonOutput {
		jsonStr, err := json.MarshalIndent(summary, "", " ")
		if err != nil {
			dlog.Fatal(err)
		}
		fmt.Print(string(jsonStr) + "\n")
	} else {
		fmt.Println(summary.Name)
	}
}
