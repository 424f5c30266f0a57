package models

import (
	"reflector/internal/domain"
)

// Block is an addressable unit of editor content.
type Block struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// Document is an ordered, id-unique collection of blocks.
// Values are treated as immutable: every mutation returns a new Document.
type Document struct {
	Blocks []Block `json:"blocks"`
}

// NewDocument copies blocks into a new Document.
func NewDocument(blocks ...Block) Document {
	return Document{Blocks: append([]Block(nil), blocks...)}
}

// Validate checks the unique block id invariant.
// Duplicates are reported once each, in first-seen order.
func (d Document) Validate() error {
	seen := make(map[string]int, len(d.Blocks))
	var dups []string
	for _, b := range d.Blocks {
		seen[b.ID]++
		if seen[b.ID] == 2 {
			dups = append(dups, b.ID)
		}
	}
	if len(dups) > 0 {
		return &domain.InvalidDocumentError{DuplicateIDs: dups}
	}
	return nil
}

// Block returns the block with the given id.
func (d Document) Block(id string) (Block, bool) {
	for _, b := range d.Blocks {
		if b.ID == id {
			return b, true
		}
	}
	return Block{}, false
}

// WithUpdatedBlock returns a copy of d where the content of blockID is replaced.
// Unknown ids fail with *domain.ReferenceError and d is returned unchanged.
func (d Document) WithUpdatedBlock(blockID, content string) (Document, error) {
	idx := -1
	for i, b := range d.Blocks {
		if b.ID == blockID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return d, &domain.ReferenceError{BlockID: blockID}
	}

	next := d.Clone()
	next.Blocks[idx].Content = content
	return next, nil
}

// Clone returns a Document backed by a fresh slice.
func (d Document) Clone() Document {
	if d.Blocks == nil {
		return Document{}
	}
	return Document{Blocks: append(make([]Block, 0, len(d.Blocks)), d.Blocks...)}
}

// Equal reports whether both documents hold the same blocks in the same order.
func (d Document) Equal(other Document) bool {
	if len(d.Blocks) != len(other.Blocks) {
		return false
	}
	for i := range d.Blocks {
		if d.Blocks[i] != other.Blocks[i] {
			return false
		}
	}
	return true
}
