package layout

import (
	"strings"

	"github.com/nconklindev/treegrid/internal/types"
	"github.com/nconklindev/treegrid/internal/value"
)

type nodeKind int

const (
	objectNode nodeKind = iota
	arrayNode
	scalarNode
)

// node is an arena slot. Objects index their fields by trie node; arrays
// keep their element slots in order.
type node struct {
	kind   nodeKind
	fields map[*Node]int
	items  []int
	scalar value.Value
}

// Builder assembles a tree from classified data rows.
type Builder struct {
	cols *Columns
	tok  Tokens
	log  Logger
	opts Options

	arena []node
	// cursor holds the arena slot of the current element per array node.
	cursor map[*Node]int
	// above carries the last non-blank text per payload column for "<".
	above map[int]string
	// context is false until a data row lands, and again after a block
	// boundary.
	context bool

	rows     int
	warnings int
}

// NewBuilder starts an empty tree for the given columns.
func NewBuilder(cols *Columns, opts Options) *Builder {
	b := &Builder{
		cols:   cols,
		tok:    opts.Tokens,
		log:    opts.logger(),
		opts:   opts,
		cursor: make(map[*Node]int),
		above:  make(map[int]string),
	}
	b.alloc(objectNode)
	return b
}

// Build folds rows into a tree in one call.
func Build(cols *Columns, rows []types.Row, opts Options) (value.Value, error) {
	b := NewBuilder(cols, opts)
	for _, r := range rows {
		if err := b.Add(r); err != nil {
			return value.Value{}, err
		}
	}
	return b.Value(), nil
}

// Rows is the number of data rows consumed so far.
func (b *Builder) Rows() int { return b.rows }

// Warnings counts the advisories logged so far.
func (b *Builder) Warnings() int { return b.warnings }

func (b *Builder) alloc(kind nodeKind) int {
	n := node{kind: kind}
	if kind == objectNode {
		n.fields = make(map[*Node]int)
	}
	b.arena = append(b.arena, n)
	return len(b.arena) - 1
}

type cellRef struct {
	col  Column
	text string
	at   int
}

// Add consumes one classified row. Header and ignored rows are skipped;
// block boundaries close every open array context.
func (b *Builder) Add(r types.Row) error {
	switch r.Kind {
	case types.RowBlockStart, types.RowBlockEnd:
		b.cursor = make(map[*Node]int)
		b.context = false
		return nil
	case types.RowData, types.RowDataContinuation:
	default:
		return nil
	}

	present := b.resolve(r)
	if len(present) == 0 {
		return nil
	}

	continued := r.Kind == types.RowDataContinuation
	if continued && !b.context {
		return gridError(ErrContinuationWithoutArrayContext, r.Index, present[0].at,
			"continuation row has no preceding data row")
	}

	advance := make(map[*Node]bool)
	var cells []cellRef
	for _, c := range present {
		if !continued {
			for _, n := range c.col.Leaf.Path() {
				if n.IsArray {
					advance[n] = true
				}
			}
			cells = append(cells, c)
			continue
		}

		owner := c.col.Leaf.Owner()
		if owner == nil {
			if err := b.repeat(r, c); err != nil {
				return err
			}
			continue
		}
		advance[owner] = true
		cells = append(cells, c)
	}

	advanced := make(map[*Node]bool)
	for _, c := range cells {
		if err := b.place(r, c, advance, advanced); err != nil {
			return err
		}
	}

	b.context = true
	b.rows++
	return nil
}

// resolve applies vertical inheritance and returns the non-blank cells.
func (b *Builder) resolve(r types.Row) []cellRef {
	var present []cellRef
	for _, col := range b.cols.Columns {
		var text string
		if col.Index < len(r.Cells) {
			cell := r.Cells[col.Index]
			if cell.Inherited {
				text = b.above[col.Index]
			} else {
				text = strings.TrimSpace(cell.Text)
			}
		}
		if text != "" {
			b.above[col.Index] = text
			present = append(present, cellRef{col: col, text: text, at: r.Offset + col.Index})
		}
	}
	return present
}

// repeat accepts a continuation cell for a column outside any array only
// when it restates the value already held.
func (b *Builder) repeat(r types.Row, c cellRef) error {
	idx := 0
	for _, n := range c.col.Leaf.Path() {
		slot, ok := b.arena[idx].fields[n]
		if !ok {
			return gridError(ErrContinuationWithoutArrayContext, r.Index, c.at,
				"%s is not inside an array and has no value to continue", c.col.Path.Format(b.tok))
		}
		idx = slot
	}
	if v := value.Coerce(c.text); !value.Equal(b.arena[idx].scalar, v) {
		return gridError(ErrContinuationWithoutArrayContext, r.Index, c.at,
			"%s is not inside an array; continuation changes %s to %s",
			c.col.Path.Format(b.tok), b.arena[idx].scalar, v)
	}
	return nil
}

func (b *Builder) place(r types.Row, c cellRef, advance, advanced map[*Node]bool) error {
	idx := 0
	parentAdvanced := false

	for _, n := range c.col.Leaf.Path() {
		if !n.IsArray {
			if n.IsLeaf() {
				return b.set(r, c, idx, n)
			}
			idx = b.child(idx, n, objectNode)
			continue
		}

		slot := b.child(idx, n, arrayNode)
		if n.IsLeaf() {
			item := b.alloc(scalarNode)
			b.arena[item].scalar = b.coerce(r, c)
			b.arena[slot].items = append(b.arena[slot].items, item)
			return nil
		}

		cur, hasCursor := b.cursor[n]
		switch {
		case advanced[n]:
			idx = cur
		case advance[n] || parentAdvanced:
			idx = b.open(slot, n)
			advanced[n] = true
		case hasCursor:
			idx = cur
		default:
			return gridError(ErrContinuationWithoutArrayContext, r.Index, c.at,
				"%s has no open element to continue", n.Format(b.tok))
		}
		parentAdvanced = parentAdvanced || advanced[n]
	}
	return nil
}

// open appends a fresh element to an array slot and makes it current,
// dropping the cursors of arrays nested below.
func (b *Builder) open(slot int, n *Node) int {
	elem := b.alloc(objectNode)
	b.arena[slot].items = append(b.arena[slot].items, elem)
	for k := range b.cursor {
		if k != n && isBelow(k, n) {
			delete(b.cursor, k)
		}
	}
	b.cursor[n] = elem
	return elem
}

func isBelow(n, ancestor *Node) bool {
	for cur := n.Parent; cur != nil; cur = cur.Parent {
		if cur == ancestor {
			return true
		}
	}
	return false
}

func (b *Builder) child(idx int, n *Node, kind nodeKind) int {
	if slot, ok := b.arena[idx].fields[n]; ok {
		return slot
	}
	slot := b.alloc(kind)
	b.arena[idx].fields[n] = slot
	return slot
}

// set stores a scalar field. A field that already holds a value, which
// only happens outside every array, must be given the same value again.
func (b *Builder) set(r types.Row, c cellRef, idx int, n *Node) error {
	v := b.coerce(r, c)
	if slot, ok := b.arena[idx].fields[n]; ok {
		if old := b.arena[slot].scalar; !value.Equal(old, v) {
			return gridError(ErrContinuationWithoutArrayContext, r.Index, c.at,
				"%s is not inside an array; a later row changes %s to %s",
				c.col.Path.Format(b.tok), old, v)
		}
		return nil
	}
	slot := b.child(idx, n, scalarNode)
	b.arena[slot].scalar = v
	return nil
}

func (b *Builder) coerce(r types.Row, c cellRef) value.Value {
	if value.IsAmbiguous(c.text) {
		b.warnings++
		at := gridError(ErrAmbiguousScalarType, r.Index+b.opts.RowOffset, c.at+b.opts.ColOffset, "")
		b.log.Warn("%s at %s: %q kept as text", ErrAmbiguousScalarType, at.Cell(), c.text)
	}
	return value.Coerce(c.text)
}

// Value materialises the tree in header order.
func (b *Builder) Value() value.Value {
	root := b.object(0, b.cols.Root)
	if !b.cols.RootArray {
		return root
	}
	if arr, ok := root.Get(b.tok.RootArray); ok {
		return arr
	}
	return value.Array()
}

func (b *Builder) object(idx int, n *Node) value.Value {
	obj := value.Object()
	for _, child := range n.Children {
		if slot, ok := b.arena[idx].fields[child]; ok {
			obj.Set(child.Name, b.materialise(slot, child))
			continue
		}
		if child.IsOptional {
			continue
		}
		obj.Set(child.Name, b.unset(child))
	}
	return obj
}

func (b *Builder) materialise(slot int, n *Node) value.Value {
	nd := b.arena[slot]
	switch nd.kind {
	case scalarNode:
		return nd.scalar
	case arrayNode:
		items := make([]value.Value, len(nd.items))
		for i, item := range nd.items {
			if n.IsLeaf() {
				items[i] = b.arena[item].scalar
			} else {
				items[i] = b.object(item, n)
			}
		}
		return value.Array(items...)
	default:
		return b.object(slot, n)
	}
}

// unset is the value of a non-optional field no cell filled.
func (b *Builder) unset(n *Node) value.Value {
	switch {
	case n.IsArray:
		return value.Array()
	case n.IsLeaf():
		return value.Null()
	}
	obj := value.Object()
	for _, child := range n.Children {
		if !child.IsOptional {
			obj.Set(child.Name, b.unset(child))
		}
	}
	return obj
}
