package archive

import (
	"fmt"
	"strconv"
	"strings"
)

// Descriptor locates one article: the byte offset of the compressed stream
// holding it, its page id and title.
type Descriptor struct {
	Offset uint64
	ID     uint64
	Title  string
}

// ParseIndexLine parses "offset:id:title". Titles may themselves contain ':'.
func ParseIndexLine(line string) (Descriptor, error) {
	first := strings.IndexByte(line, ':')
	if first < 0 {
		return Descriptor{}, fmt.Errorf("offset read failed: no ':' in %q", line)
	}
	second := strings.IndexByte(line[first+1:], ':')
	if second < 0 {
		return Descriptor{}, fmt.Errorf("id read failed: no second ':' in %q", line)
	}
	second += first + 1

	offset, err := strconv.ParseUint(line[:first], 10, 64)
	if err != nil {
		return Descriptor{}, fmt.Errorf("offset parse failed: %w", err)
	}
	id, err := strconv.ParseUint(line[first+1:second], 10, 64)
	if err != nil {
		return Descriptor{}, fmt.Errorf("id parse failed: %w", err)
	}
	return Descriptor{
		Offset: offset,
		ID:     id,
		Title:  line[second+1:],
	}, nil
}
