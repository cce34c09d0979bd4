// Package env keeps names of environment variables with special significance to
// vbridge.
package env

// Environment variables with special significance to vbridge.
const (
	// Path of the configuration file, overriding the default location.
	VBRIDGE_CONFIG = "VBRIDGE_CONFIG"
	// Path of the log file. Logging is off when unset.
	VBRIDGE_LOG = "VBRIDGE_LOG"

	HOME            = "HOME"
	XDG_CONFIG_HOME = "XDG_CONFIG_HOME"
	XDG_STATE_HOME  = "XDG_STATE_HOME"
)
