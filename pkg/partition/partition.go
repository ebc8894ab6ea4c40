package partition

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidPlan is returned by Plan when the inputs cannot produce a
// partition list where every partition holds at least one byte.
var ErrInvalidPlan = errors.New("partition: invalid plan")

// ErrMismatch is returned by Assemble when buffers do not line up with their
// partitions.
var ErrMismatch = errors.New("partition: buffer does not match partition")

// Partition is the half-open byte range [Start, End) of a file.
type Partition struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// Len returns the number of bytes in the partition.
func (p Partition) Len() int64 {
	return p.End - p.Start
}

// Header returns the value for an HTTP Range header covering p.
// The header form is inclusive on both ends.
func (p Partition) Header() string {
	return fmt.Sprintf("bytes=%d-%d", p.Start, p.End-1)
}

func (p Partition) String() string {
	return fmt.Sprintf("[%d,%d)", p.Start, p.End)
}

// Plan splits totalSize bytes into numParts contiguous partitions, starting at
// byte 0 in ascending order. The first partition absorbs the remainder of the
// division.
func Plan(totalSize int64, numParts int) ([]Partition, error) {
	if numParts < 1 {
		return nil, fmt.Errorf("%w: %d parts", ErrInvalidPlan, numParts)
	}
	if totalSize < int64(numParts) {
		return nil, fmt.Errorf("%w: %d bytes cannot fill %d parts", ErrInvalidPlan, totalSize, numParts)
	}

	n := int64(numParts)
	base := totalSize / n
	remainder := totalSize - base*n

	parts := make([]Partition, numParts)
	var start int64
	for i := range parts {
		size := base
		if i == 0 {
			size += remainder
		}
		parts[i] = Partition{Start: start, End: start + size}
		start += size
	}

	return parts, nil
}

// Assemble concatenates bufs, where bufs[i] holds the bytes of parts[i], into
// one buffer ordered by partition start. The partitions must tile [0, total)
// once sorted.
func Assemble(parts []Partition, bufs [][]byte) ([]byte, error) {
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: no partitions", ErrMismatch)
	}
	if len(parts) != len(bufs) {
		return nil, fmt.Errorf("%w: %d partitions, %d buffers", ErrMismatch, len(parts), len(bufs))
	}

	order := make([]int, len(parts))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return parts[order[a]].Start < parts[order[b]].Start
	})

	var next, total int64
	for _, i := range order {
		p := parts[i]
		if p.Start != next {
			return nil, fmt.Errorf("%w: partition %s does not start at %d", ErrMismatch, p, next)
		}
		if int64(len(bufs[i])) != p.Len() {
			return nil, fmt.Errorf("%w: partition %s has %d bytes", ErrMismatch, p, len(bufs[i]))
		}
		next = p.End
		total += p.Len()
	}

	out := make([]byte, 0, total)
	for _, i := range order {
		out = append(out, bufs[i]...)
	}
	return out, nil
}

// TrimExcess drops trailing bytes of buf beyond expected. Buffers that are not
// longer than expected are returned unchanged.
func TrimExcess(buf []byte, expected int64) []byte {
	if expected < 0 || int64(len(buf)) <= expected {
		return buf
	}
	return buf[:expected]
}

// PartsPerFile returns how many partitions each of numFiles files gets so that
// the total number of in-flight fetches stays near target. The result is never
// below 1.
func PartsPerFile(target, numFiles int) int {
	if numFiles < 1 || target < 1 {
		return 1
	}
	return (target-1)/numFiles + 1
}

// ProgressMax returns the maximum a progress display should use for files of
// totalSize combined bytes, each split into parts partitions. It leaves one
// byte of headroom per extra partition to absorb range rounding.
func ProgressMax(totalSize int64, parts, files int) int64 {
	if parts < 1 {
		parts = 1
	}
	return totalSize + int64(parts-1)*int64(files)
}
