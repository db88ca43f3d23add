package format

// Align8 returns n rounded up to the next multiple of Alignment.
//
// Example:
//
//	Align8(1)  = 8
//	Align8(8)  = 8
//	Align8(9)  = 16
func Align8(n int) int {
	return (n + AlignmentMask) &^ AlignmentMask
}

// IsAligned reports whether n is a multiple of Alignment.
func IsAligned(n int) bool {
	return n&AlignmentMask == 0
}

// BlockSizeFor returns the total block size needed to carry a payload of
// n bytes: payload plus Overhead, rounded up to Alignment. It never returns
// less than MinBlockSize.
func BlockSizeFor(n int) int {
	size := Align8(n + Overhead)
	if size < MinBlockSize {
		return MinBlockSize
	}
	return size
}
