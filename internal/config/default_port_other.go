//go:build !windows

package config

// DefaultPort 默认串口号
func DefaultPort() string {
	return "/dev/ttyUSB0"
}
