//go:build darwin || linux

package interaction

import (
	"os"

	"golang.org/x/sys/unix"
)

// setRaw saves the current termios and switches stdin to raw mode. ISIG
// stays enabled so Ctrl+C still reaches the signal handler.
func (kr *KeyboardReader) setRaw(getReq, setReq uint) error {
	fd := int(os.Stdin.Fd())

	oldState, err := unix.IoctlGetTermios(fd, getReq)
	if err != nil {
		return err
	}
	kr.oldState = oldState

	newState := *oldState
	newState.Lflag &^= unix.ECHO | unix.ICANON | unix.IEXTEN
	newState.Iflag &^= unix.BRKINT | unix.ICRNL | unix.INPCK | unix.ISTRIP | unix.IXON
	newState.Cflag |= unix.CS8
	newState.Cc[unix.VMIN] = 1
	newState.Cc[unix.VTIME] = 0

	return unix.IoctlSetTermios(fd, setReq, &newState)
}
