// Package trace reads and writes allocation trace files.
//
// A trace is a whitespace-separated text file:
//
//	<suggested heap size>
//	<number of ids>
//	<number of ops>
//	<weight>
//	a <id> <bytes>    allocate
//	r <id> <bytes>    reallocate
//	f <id>            free
//
// Blank lines and lines starting with '#' are ignored. Files written by
// Windows tooling often carry a UTF-16 or UTF-8 byte order mark; Parse
// decodes those transparently.
package trace

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const (
	commentPrefix = "#"

	// Scanner sizing; op lines are short.
	scannerInitialBufferSize = 4 * 1024
	scannerMaxLineSize       = 64 * 1024
)

// Kind is the operation code of a trace line.
type Kind byte

const (
	Alloc   Kind = 'a'
	Realloc Kind = 'r'
	Free    Kind = 'f'
)

func (k Kind) String() string {
	switch k {
	case Alloc:
		return "alloc"
	case Realloc:
		return "realloc"
	case Free:
		return "free"
	default:
		return fmt.Sprintf("Kind(%q)", byte(k))
	}
}

// Op is one trace operation. Size is zero for Free.
type Op struct {
	Kind Kind
	ID   int
	Size int
}

// Trace is a parsed trace file.
type Trace struct {
	SuggestedHeap int // Heap size the trace author expected
	NumIDs        int // Block ids are in [0, NumIDs)
	NumOps        int // Declared op count; equals len(Ops) after Parse
	Weight        int // Whether the trace counts towards the performance index
	Ops           []Op
}

// Parse errors.
var (
	ErrHeader    = errors.New("trace: malformed header")
	ErrOp        = errors.New("trace: malformed operation")
	ErrOpCount   = errors.New("trace: op count does not match header")
	ErrSemantics = errors.New("trace: operation on wrong block state")
)

// Parse reads a trace from r.
func Parse(r io.Reader) (*Trace, error) {
	// Honour a UTF-16/UTF-8 BOM if present, pass everything else through.
	decoder := unicode.BOMOverride(encoding.Nop.NewDecoder())
	scanner := bufio.NewScanner(transform.NewReader(r, decoder))
	buf := make([]byte, 0, scannerInitialBufferSize)
	scanner.Buffer(buf, scannerMaxLineSize)

	tr := &Trace{}
	header := []*int{&tr.SuggestedHeap, &tr.NumIDs, &tr.NumOps, &tr.Weight}
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, commentPrefix) {
			continue
		}

		if len(header) > 0 {
			v, err := strconv.Atoi(line)
			if err != nil || v < 0 {
				return nil, fmt.Errorf("%w: line %d: %q", ErrHeader, lineNo, line)
			}
			*header[0] = v
			header = header[1:]
			if len(header) == 0 {
				tr.Ops = make([]Op, 0, min(tr.NumOps, 1<<20))
			}
			continue
		}

		op, err := parseOp(line, tr.NumIDs)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		tr.Ops = append(tr.Ops, op)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("trace: read: %w", err)
	}

	if len(header) > 0 {
		return nil, fmt.Errorf("%w: %d header fields missing", ErrHeader, len(header))
	}
	if len(tr.Ops) != tr.NumOps {
		return nil, fmt.Errorf("%w: header says %d, found %d", ErrOpCount, tr.NumOps, len(tr.Ops))
	}
	return tr, nil
}

func parseOp(line string, numIDs int) (Op, error) {
	fields := strings.Fields(line)
	if len(fields[0]) != 1 {
		return Op{}, fmt.Errorf("%w: unknown op %q", ErrOp, fields[0])
	}

	op := Op{Kind: Kind(fields[0][0])}
	want := 3
	switch op.Kind {
	case Alloc, Realloc:
	case Free:
		want = 2
	default:
		return Op{}, fmt.Errorf("%w: unknown op %q", ErrOp, fields[0])
	}
	if len(fields) != want {
		return Op{}, fmt.Errorf("%w: %s takes %d fields, got %d", ErrOp, op.Kind, want-1, len(fields)-1)
	}

	id, err := strconv.Atoi(fields[1])
	if err != nil || id < 0 || id >= numIDs {
		return Op{}, fmt.Errorf("%w: id %q outside [0, %d)", ErrOp, fields[1], numIDs)
	}
	op.ID = id

	if want == 3 {
		size, err := strconv.Atoi(fields[2])
		if err != nil || size < 0 {
			return Op{}, fmt.Errorf("%w: size %q", ErrOp, fields[2])
		}
		op.Size = size
	}
	return op, nil
}

// Validate checks that ops follow block lifetimes: an id is allocated only
// while dead and reallocated or freed only while live. A realloc to size 0
// ends the block's life.
func (t *Trace) Validate() error {
	live := make([]bool, t.NumIDs)
	for i, op := range t.Ops {
		if op.ID < 0 || op.ID >= len(live) {
			return fmt.Errorf("%w: op %d: id %d outside [0, %d)", ErrOp, i, op.ID, len(live))
		}
		switch op.Kind {
		case Alloc:
			if live[op.ID] {
				return fmt.Errorf("%w: op %d allocates live id %d", ErrSemantics, i, op.ID)
			}
			live[op.ID] = true
		case Realloc, Free:
			if !live[op.ID] {
				return fmt.Errorf("%w: op %d: %s of dead id %d", ErrSemantics, i, op.Kind, op.ID)
			}
			live[op.ID] = op.Kind == Realloc && op.Size > 0
		}
	}
	return nil
}

// Write encodes t in trace file format.
func (t *Trace) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d\n%d\n%d\n%d\n", t.SuggestedHeap, t.NumIDs, len(t.Ops), t.Weight)
	for _, op := range t.Ops {
		if op.Kind == Free {
			fmt.Fprintf(bw, "%c %d\n", byte(op.Kind), op.ID)
			continue
		}
		fmt.Fprintf(bw, "%c %d %d\n", byte(op.Kind), op.ID, op.Size)
	}
	return bw.Flush()
}
