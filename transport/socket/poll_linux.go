package socket

import "golang.org/x/sys/unix"

const ioctlReadable = unix.SIOCINQ
