package layout

import (
	"strings"

	"github.com/nconklindev/treegrid/internal/types"
)

// Segment is one step of a column key-path.
type Segment struct {
	Name       string
	IsArray    bool
	IsOptional bool
}

// ColumnPath is the ordered list of segments naming a column.
type ColumnPath []Segment

// Format renders the path as dotted text, e.g. "users[].?email".
func (p ColumnPath) Format(tok Tokens) string {
	parts := make([]string, len(p))
	for i, seg := range p {
		parts[i] = tok.FormatSegment(seg)
	}
	return strings.Join(parts, ".")
}

// Node is a trie node shared by every column whose path passes through it.
type Node struct {
	Segment
	Parent   *Node
	Children []*Node
	// Column indexes Columns.Columns for a leaf, -1 for interior nodes.
	Column int
	Depth  int

	index map[string]*Node
}

func newNode(seg Segment, parent *Node) *Node {
	n := &Node{Segment: seg, Parent: parent, Column: -1, index: make(map[string]*Node)}
	if parent != nil {
		n.Depth = parent.Depth + 1
		parent.Children = append(parent.Children, n)
		parent.index[seg.Name] = n
	}
	return n
}

// Child looks up a direct child by name.
func (n *Node) Child(name string) *Node {
	return n.index[name]
}

// IsLeaf reports whether a column ends at this node.
func (n *Node) IsLeaf() bool {
	return n.Column >= 0
}

// Path returns the nodes from the first segment down to n.
func (n *Node) Path() []*Node {
	var nodes []*Node
	for cur := n; cur != nil && cur.Parent != nil; cur = cur.Parent {
		nodes = append(nodes, cur)
	}
	for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
		nodes[i], nodes[j] = nodes[j], nodes[i]
	}
	return nodes
}

// Format renders the path from the first segment down to n.
func (n *Node) Format(tok Tokens) string {
	nodes := n.Path()
	path := make(ColumnPath, len(nodes))
	for i, x := range nodes {
		path[i] = x.Segment
	}
	return path.Format(tok)
}

// Owner is the deepest array on the path to n, including n itself, or nil.
func (n *Node) Owner() *Node {
	for cur := n; cur != nil && cur.Parent != nil; cur = cur.Parent {
		if cur.IsArray {
			return cur
		}
	}
	return nil
}

// Column is a resolved payload column.
type Column struct {
	// Index is the payload column, relative to Row.Offset.
	Index int
	Path  ColumnPath
	Leaf  *Node
}

// Columns is the resolved header: the column list in grid order and the
// trie they form.
type Columns struct {
	Root    *Node
	Columns []Column
	// RootArray is set when the only top-level segment is the root array
	// name, i.e. the document itself is an array.
	RootArray bool
	// HeaderRows is the number of header rows folded.
	HeaderRows int
}

// Paths lists the formatted column paths in grid order.
func (c *Columns) Paths(tok Tokens) []string {
	paths := make([]string, len(c.Columns))
	for i, col := range c.Columns {
		paths[i] = col.Path.Format(tok)
	}
	return paths
}

// ResolveHeaders folds the header rows into column paths.
func ResolveHeaders(rows []types.Row, tok Tokens) (*Columns, error) {
	var headers []types.Row
	width := 0
	for _, r := range rows {
		if r.Kind != types.RowHeader {
			continue
		}
		headers = append(headers, r)
		if len(r.Cells) > width {
			width = len(r.Cells)
		}
	}
	if len(headers) == 0 {
		return nil, &PositionError{Err: ErrMissingHeader, Row: -1, Col: -1}
	}

	// resolved[d][c] is the segment at depth d of column c, nil when unset.
	resolved := make([][]*Segment, len(headers))
	for d := range resolved {
		resolved[d] = make([]*Segment, width)
	}

	cols := &Columns{Root: newNode(Segment{}, nil), HeaderRows: len(headers)}

	for c := 0; c < width; c++ {
		deepest := -1
		for d, h := range headers {
			if strings.TrimSpace(cellText(h, c)) != "" {
				deepest = d
			}
		}
		if deepest < 0 {
			continue
		}

		path := make(ColumnPath, 0, deepest+1)
		for d := 0; d <= deepest; d++ {
			h := headers[d]
			text := strings.TrimSpace(cellText(h, c))
			gridCol := h.Offset + c

			if text == "" || text == tok.Inherit {
				left := leftSegment(resolved[d], c)
				if left == nil {
					if text == tok.Inherit {
						return nil, gridError(ErrInconsistentColumnDepth, h.Index, gridCol,
							"%q has no cell to its left to inherit from", tok.Inherit)
					}
					return nil, gridError(ErrInconsistentColumnDepth, h.Index, gridCol,
						"missing segment above a deeper header cell")
				}
				seg := *left
				resolved[d][c] = &seg
				path = append(path, seg)
				continue
			}

			seg, _ := tok.ParseSegment(text)
			if seg.Name == "" || seg.Name == tok.Inherit {
				return nil, gridError(ErrInvalidSegment, h.Index, gridCol, "header cell %q names no key", text)
			}
			resolved[d][c] = &seg
			path = append(path, seg)
		}

		if err := cols.add(c, path, headers[deepest].Index, headers[deepest].Offset+c, tok); err != nil {
			return nil, err
		}
	}

	if len(cols.Columns) == 0 {
		return nil, &PositionError{Err: ErrMissingHeader, Row: headers[0].Index, Col: -1, Message: "header rows name no columns"}
	}

	if top := cols.Root.Children; len(top) == 1 && top[0].IsArray && top[0].Name == tok.RootArray {
		cols.RootArray = true
	}
	return cols, nil
}

func (c *Columns) add(index int, path ColumnPath, row, col int, tok Tokens) error {
	node := c.Root
	for d, seg := range path {
		last := d == len(path)-1
		child := node.Child(seg.Name)
		if child == nil {
			child = newNode(seg, node)
		} else {
			if child.IsArray != seg.IsArray {
				return gridError(ErrInconsistentColumnDepth, row, col,
					"%s is declared both with and without %q", path[:d+1].Format(tok), tok.ArraySuffix)
			}
			child.IsOptional = child.IsOptional || seg.IsOptional
		}

		switch {
		case !last && child.IsLeaf():
			return gridError(ErrInconsistentColumnDepth, row, col,
				"%s is both a value column and a parent", path[:d+1].Format(tok))
		case last && child.IsLeaf():
			other := c.Columns[child.Column]
			return gridError(ErrDuplicateColumnPath, row, col,
				"%s is also defined by payload column %d", path.Format(tok), other.Index+1)
		case last && len(child.Children) > 0:
			return gridError(ErrInconsistentColumnDepth, row, col,
				"%s is both a value column and a parent", path.Format(tok))
		}
		node = child
	}

	node.Column = len(c.Columns)
	c.Columns = append(c.Columns, Column{Index: index, Path: path, Leaf: node})
	return nil
}

func leftSegment(row []*Segment, c int) *Segment {
	for j := c - 1; j >= 0; j-- {
		if row[j] != nil {
			return row[j]
		}
	}
	return nil
}

func cellText(r types.Row, c int) string {
	if c < 0 || c >= len(r.Cells) {
		return ""
	}
	return r.Cells[c].Text
}
