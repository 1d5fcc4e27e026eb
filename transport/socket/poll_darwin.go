package socket

// FIONREAD from <sys/filio.h>, _IOR('f', 127, int).
const ioctlReadable = 0x4004667f
