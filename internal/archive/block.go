package archive

import "fmt"

const (
	rootOpen  = "<dummyroot>"
	rootClose = "</dummyroot>"
)

// Block is one decompressed stream of the dump together with the index
// entries that point at it. Content is the stream's page records wrapped in
// a synthetic root element so it parses as a single XML document.
type Block struct {
	Descriptors []Descriptor
	Content     []byte
}

func (b *Block) Offset() uint64 {
	return b.Descriptors[0].Offset
}

func (b *Block) String() string {
	first := b.Descriptors[0]
	last := b.Descriptors[len(b.Descriptors)-1]
	return fmt.Sprintf("Block{ %s-%s (%d-%d), %d descriptors, %d bytes in xml }",
		first.Title, last.Title,
		first.ID, last.ID,
		len(b.Descriptors),
		len(b.Content),
	)
}
