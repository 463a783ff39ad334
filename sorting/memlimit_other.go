//go:build !linux

package sorting

func systemMemory() uint64 {
	return 0
}
