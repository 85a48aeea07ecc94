package main

import (
	"os"
	"os/exec"
	"path/filepath"
)

// Determine the minimum set of privileges and files we need to access. We cannot expand our privileges
// after this function is called. This is only enforced on openbsd, but serves as a specification and may
// inform the creation of manual sandbox rules on other platforms.
func InitSandbox(config *Config) {
	// need to do this first before we start unveiling things to get access to directories
	execPath, err := exec.LookPath(os.Args[0])
	if err == nil {
		path, err := filepath.Abs(execPath)
		if err == nil {
			execPath = path
		} else {
			execPath = ""
		}
	} else {
		execPath = ""
	}

	// minimum promises needed to function
	promises := "cpath fattr inet rpath stdio wpath"

	Unveil("/dev/random", "r")
	Unveil("/dev/urandom", "r")

	if config.UseSyslog {
		promises += " unix"
		Unveil("/dev/log", "w")
	} else if config.LogFile != nil {
		Unveil(*config.LogFile, "cw")
	}

	if pidFile != nil && len(*pidFile) > 0 {
		UnveilContainingDirectoryOf(*pidFile, "cw")
	}

	Unveil(execPath, "r")

	UnveilContainingDirectoryOf(config.QueryLog.File, "cw")

	PledgePromises(promises)
}
