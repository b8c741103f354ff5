package cipher

import "runtime"

// zero overwrites every byte of b with 0. runtime.KeepAlive prevents the
// compiler from proving the writes dead and eliding them, which a plain
// loop followed directly by the end of a Free method would otherwise
// risk under escape analysis and inlining.
func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}
