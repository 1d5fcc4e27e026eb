//go:build !(linux || darwin)

package control

func ReuseAddr() Func {
	return nil
}
