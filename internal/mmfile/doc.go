// Package mmfile reserves the fixed backing memory of an emulated heap.
//
// On unix the memory is an anonymous private mapping obtained through
// golang.org/x/sys/unix; elsewhere it is an ordinary byte slice. Either way
// the reservation is made once, up front, for the configured maximum heap
// size, so the arena never relocates while blocks are live.
package mmfile
