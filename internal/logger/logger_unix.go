//go:build darwin || linux

package logger

import (
	"os"

	"golang.org/x/sys/unix"
)

const SupportsColorEscapes = true

func GetTerminalInfo(file *os.File) TerminalInfo {
	fd := int(file.Fd())

	// Is this file descriptor a terminal?
	if _, err := unix.IoctlGetTermios(fd, ioctlReadTermios); err != nil {
		return TerminalInfo{}
	}

	width := 80
	if w, err := unix.IoctlGetWinsize(fd, unix.TIOCGWINSZ); err == nil && w.Col > 0 {
		width = int(w.Col)
	}

	return TerminalInfo{
		IsTTY:           true,
		UseColorEscapes: os.Getenv("NO_COLOR") == "",
		Width:           width,
	}
}
