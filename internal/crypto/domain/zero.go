package domain

import "runtime"

// Zero overwrites every given buffer with zeros. Derived keys, master secrets and
// decrypted field values pass through here once they are no longer needed.
func Zero(bufs ...[]byte) {
	for _, b := range bufs {
		clear(b)
	}
	runtime.KeepAlive(bufs)
}
