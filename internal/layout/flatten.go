package layout

import (
	"fmt"
	"math"
	"strings"

	"github.com/nconklindev/treegrid/internal/types"
	"github.com/nconklindev/treegrid/internal/value"
)

type shapeKind int

const (
	shapeUnknown shapeKind = iota
	shapeScalar
	shapeScalarArray
	shapeEmptyArray
	shapeObject
	shapeObjectArray
)

func (k shapeKind) String() string {
	switch k {
	case shapeScalar:
		return "a scalar"
	case shapeScalarArray:
		return "an array of scalars"
	case shapeEmptyArray:
		return "an empty array"
	case shapeObject:
		return "an object"
	case shapeObjectArray:
		return "an array of objects"
	default:
		return "nothing"
	}
}

// shape is the union of every instance seen at one key-path.
type shape struct {
	name     string
	kind     shapeKind
	parent   *shape
	children []*shape
	index    map[string]*shape

	// instances counts objects visited at this shape, present counts the
	// parent instances that carry this key.
	instances int
	present   int
	sawNull   bool
	sawEmpty  bool

	column int
}

func newShape(name string, parent *shape) *shape {
	s := &shape{name: name, parent: parent, index: make(map[string]*shape), column: -1}
	if parent != nil {
		parent.children = append(parent.children, s)
		parent.index[name] = s
	}
	return s
}

func (s *shape) isLeaf() bool {
	return s.kind == shapeScalar || s.kind == shapeScalarArray
}

func (s *shape) isArray() bool {
	return s.kind == shapeScalarArray || s.kind == shapeObjectArray
}

func (s *shape) optional() bool {
	return s.parent != nil && s.present < s.parent.instances
}

func (s *shape) segment() Segment {
	return Segment{Name: s.name, IsArray: s.isArray(), IsOptional: s.optional()}
}

// path lists the shapes from the first segment down to s.
func (s *shape) path() []*shape {
	var out []*shape
	for cur := s; cur.parent != nil; cur = cur.parent {
		out = append(out, cur)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// owner is the deepest array on the path to s, or nil.
func (s *shape) owner() *shape {
	for cur := s; cur.parent != nil; cur = cur.parent {
		if cur.isArray() {
			return cur
		}
	}
	return nil
}

// fragment is one output row: payload column text plus the arrays whose
// elements begin on it.
type fragment struct {
	cells map[int]string
	opens map[*shape]bool

	// fresh rows open a new top-level element without the continuation
	// marker; at names that element for errors.
	fresh bool
	at    string
}

func newFragment() *fragment {
	return &fragment{cells: map[int]string{}, opens: map[*shape]bool{}}
}

func cellFragment(col int, text string) *fragment {
	fr := newFragment()
	fr.cells[col] = text
	return fr
}

func (fr *fragment) absorb(other *fragment) {
	for col, text := range other.cells {
		fr.cells[col] = text
	}
	for s := range other.opens {
		fr.opens[s] = true
	}
	if other.fresh {
		fr.fresh = true
		fr.at = other.at
	}
}

type flattener struct {
	tok          Tokens
	mergeHeaders bool
	log          Logger

	doc   value.Value
	root  *shape
	cols  []*shape
	depth int

	warnings int
}

// Flatten renders a tree as a grid of header and data rows.
func Flatten(tree value.Value, opts Options) (types.Grid, error) {
	f, err := newFlattener(tree, opts)
	if err != nil {
		return nil, err
	}
	return f.grid()
}

func newFlattener(tree value.Value, opts Options) (*flattener, error) {
	f := &flattener{
		tok:          opts.Tokens,
		mergeHeaders: opts.MergeHeaders,
		log:          opts.logger(),
		root:         newShape("", nil),
	}

	switch tree.Kind() {
	case value.KindArray:
		f.doc = value.Object(value.F(f.tok.RootArray, tree))
	case value.KindObject:
		fields := tree.Fields()
		if len(fields) == 1 && fields[0].Key == f.tok.RootArray && fields[0].Value.Kind() == value.KindArray {
			return nil, treeError(ErrUnsupportedTreeShape, fields[0].Key,
				"a lone top-level array named %q reads back as a root array", f.tok.RootArray)
		}
		f.doc = tree
	default:
		return nil, treeError(ErrUnsupportedTreeShape, "", "document root is %s, not an object or array", tree.Kind())
	}

	if err := f.collectObject(f.doc, f.root, ""); err != nil {
		return nil, err
	}
	f.finish(f.root, "")
	f.layout(f.root)
	if len(f.cols) == 0 {
		return nil, treeError(ErrUnsupportedTreeShape, "", "document has no values to tabulate")
	}
	return f, nil
}

func (f *flattener) collectObject(obj value.Value, s *shape, path string) error {
	if obj.Len() == 0 {
		return treeError(ErrUnsupportedTreeShape, path, "empty objects have no columns")
	}
	s.instances++
	for _, fld := range obj.Fields() {
		if err := f.checkKey(fld.Key, path); err != nil {
			return err
		}
		child := s.index[fld.Key]
		if child == nil {
			child = newShape(fld.Key, s)
		}
		child.present++
		if err := f.collect(fld.Value, child, join(path, fld.Key)); err != nil {
			return err
		}
	}
	return nil
}

func (f *flattener) checkKey(key, path string) error {
	seg, ok := f.tok.ParseSegment(key)
	switch {
	case key == "":
		return treeError(ErrUnsupportedTreeShape, path, "empty key")
	case !ok, seg != Segment{Name: key}, key == f.tok.Inherit:
		return treeError(ErrUnsupportedTreeShape, join(path, key), "key %q collides with header syntax", key)
	}
	return nil
}

func (f *flattener) collect(v value.Value, s *shape, path string) error {
	switch v.Kind() {
	case value.KindNull:
		s.sawNull = true
		return f.merge(s, shapeScalar, path)
	case value.KindFloat:
		if math.IsNaN(v.AsFloat()) || math.IsInf(v.AsFloat(), 0) {
			return treeError(ErrUnsupportedTreeShape, path, "non-finite number %v", v.AsFloat())
		}
		return f.merge(s, shapeScalar, path)
	case value.KindBool, value.KindInt, value.KindString:
		return f.merge(s, shapeScalar, path)
	case value.KindObject:
		if err := f.merge(s, shapeObject, path); err != nil {
			return err
		}
		return f.collectObject(v, s, path)
	case value.KindArray:
		return f.collectArray(v.Items(), s, path)
	}
	return treeError(ErrUnsupportedTreeShape, path, "unknown value kind %s", v.Kind())
}

func (f *flattener) collectArray(items []value.Value, s *shape, path string) error {
	if len(items) == 0 {
		s.sawEmpty = true
		return f.merge(s, shapeEmptyArray, path)
	}

	objects := 0
	for i, item := range items {
		at := fmt.Sprintf("%s[%d]", path, i)
		switch item.Kind() {
		case value.KindObject:
			objects++
		case value.KindArray:
			return treeError(ErrUnsupportedTreeShape, at, "arrays of arrays have no column form")
		case value.KindNull:
			return treeError(ErrUnsupportedTreeShape, at, "null inside an array of scalars")
		case value.KindString:
			if strings.TrimSpace(item.AsStr()) == "" {
				return treeError(ErrUnsupportedTreeShape, at, "blank string inside an array of scalars")
			}
		case value.KindFloat:
			if math.IsNaN(item.AsFloat()) || math.IsInf(item.AsFloat(), 0) {
				return treeError(ErrUnsupportedTreeShape, at, "non-finite number %v", item.AsFloat())
			}
		}
	}

	switch objects {
	case 0:
		return f.merge(s, shapeScalarArray, path)
	case len(items):
		if err := f.merge(s, shapeObjectArray, path); err != nil {
			return err
		}
		for i, item := range items {
			if err := f.collectObject(item, s, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
		return nil
	default:
		return treeError(ErrUnsupportedTreeShape, path, "array mixes objects and scalars")
	}
}

func (f *flattener) merge(s *shape, k shapeKind, path string) error {
	switch {
	case s.kind == shapeUnknown || s.kind == k:
		s.kind = k
	case s.kind == shapeEmptyArray && (k == shapeScalarArray || k == shapeObjectArray):
		s.kind = k
	case k == shapeEmptyArray && (s.kind == shapeScalarArray || s.kind == shapeObjectArray):
	default:
		return treeError(ErrUnsupportedTreeShape, path, "holds %s in one place and %s in another", s.kind, k)
	}
	return nil
}

// finish settles never-filled arrays as scalar arrays and reports shapes
// that will not read back exactly.
func (f *flattener) finish(s *shape, path string) {
	for _, child := range s.children {
		at := join(path, child.name)
		if child.kind == shapeEmptyArray {
			child.kind = shapeScalarArray
		}
		if child.optional() && (child.sawNull || child.sawEmpty) {
			f.warn("%s is optional, so its null or empty instances read back as absent", at)
		}
		f.finish(child, at)
	}
}

func (f *flattener) layout(s *shape) {
	for _, child := range s.children {
		if child.isLeaf() {
			child.column = len(f.cols)
			f.cols = append(f.cols, child)
			if d := len(child.path()); d > f.depth {
				f.depth = d
			}
			continue
		}
		f.layout(child)
	}
}

func (f *flattener) warn(format string, args ...any) {
	f.warnings++
	f.log.Warn(format, args...)
}

func (f *flattener) paths() []string {
	out := make([]string, len(f.cols))
	for i, col := range f.cols {
		nodes := col.path()
		path := make(ColumnPath, len(nodes))
		for j, n := range nodes {
			path[j] = n.segment()
		}
		out[i] = path.Format(f.tok)
	}
	return out
}

func (f *flattener) grid() (types.Grid, error) {
	rows, err := f.objectRows(f.doc, f.root, "")
	if err != nil {
		return nil, err
	}

	// Values outside every array repeat on each row.
	for _, col := range f.cols {
		if col.owner() != nil {
			continue
		}
		if text, ok := rows[0].cells[col.column]; ok {
			for _, fr := range rows[1:] {
				fr.cells[col.column] = text
			}
		}
	}

	start := f.tok.payloadStart()
	width := start + len(f.cols)
	grid := make(types.Grid, 0, f.depth+len(rows))

	paths := make([][]*shape, len(f.cols))
	for j, col := range f.cols {
		paths[j] = col.path()
	}
	for d := 0; d < f.depth; d++ {
		row := make([]string, width)
		row[0] = f.tok.Header
		for j, path := range paths {
			if d >= len(path) {
				continue
			}
			if f.mergeHeaders && j > 0 && d < len(paths[j-1]) && paths[j-1][d] == path[d] {
				row[start+j] = f.tok.Inherit
				continue
			}
			row[start+j] = f.tok.FormatSegment(path[d].segment())
		}
		grid = append(grid, row)
	}

	for i, fr := range rows {
		row := make([]string, width)
		row[0] = f.tok.Data
		if i > 0 {
			if !fr.fresh {
				row[f.tok.MarkerColumn] = f.tok.Continuation
			} else if err := f.checkFresh(fr); err != nil {
				return nil, err
			}
		}
		for col, text := range fr.cells {
			row[start+col] = text
		}
		grid = append(grid, row)
	}
	return grid, nil
}

// checkFresh requires every array on the path of each value in a row
// without the continuation marker to begin an element on that row.
func (f *flattener) checkFresh(fr *fragment) error {
	for col, text := range fr.cells {
		if text == "" {
			continue
		}
		for _, n := range f.cols[col].path() {
			if n.isArray() && !fr.opens[n] {
				return treeError(ErrUnsupportedTreeShape, fr.at,
					"element has no value of its own on its first row and shares that row with %s", n.name)
			}
		}
	}
	return nil
}

func (f *flattener) objectRows(obj value.Value, s *shape, path string) ([]*fragment, error) {
	out := []*fragment{newFragment()}
	for _, child := range s.children {
		v, ok := obj.Get(child.name)
		if !ok {
			continue
		}
		rows, err := f.valueRows(v, child, join(path, child.name))
		if err != nil {
			return nil, err
		}
		for i, fr := range rows {
			if i >= len(out) {
				out = append(out, newFragment())
			}
			out[i].absorb(fr)
		}
	}
	return out, nil
}

func (f *flattener) valueRows(v value.Value, s *shape, path string) ([]*fragment, error) {
	switch s.kind {
	case shapeScalar:
		if v.IsNull() {
			return []*fragment{newFragment()}, nil
		}
		text, err := f.scalar(v, path)
		if err != nil {
			return nil, err
		}
		return []*fragment{cellFragment(s.column, text)}, nil

	case shapeScalarArray:
		items := v.Items()
		if len(items) == 0 {
			return []*fragment{newFragment()}, nil
		}
		rows := make([]*fragment, len(items))
		for i, item := range items {
			text, err := f.scalar(item, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			rows[i] = cellFragment(s.column, text)
			rows[i].opens[s] = true
		}
		return rows, nil

	case shapeObject:
		return f.objectRows(v, s, path)

	case shapeObjectArray:
		var rows []*fragment
		for i, elem := range v.Items() {
			at := fmt.Sprintf("%s[%d]", path, i)
			er, err := f.objectRows(elem, s, at)
			if err != nil {
				return nil, err
			}
			er[0].opens[s] = true
			if !f.anchored(er[0], s, i == 0) {
				if s.parent.owner() != nil || !hasText(er[0]) {
					return nil, treeError(ErrUnsupportedTreeShape, at,
						"element has no value of its own on its first row, so it cannot be told apart from the one before")
				}
				er[0].fresh = true
				er[0].at = at
			}
			rows = append(rows, er...)
		}
		if len(rows) == 0 {
			return []*fragment{newFragment()}, nil
		}
		return rows, nil
	}
	return nil, treeError(ErrUnsupportedTreeShape, path, "cannot tabulate %s", s.kind)
}

// anchored reports whether a continuation row opens a new element of arr
// when read back: the first element needs any value, later ones need a
// value whose deepest array is arr itself.
func (f *flattener) anchored(fr *fragment, arr *shape, first bool) bool {
	for col, text := range fr.cells {
		if text == "" {
			continue
		}
		if first || f.cols[col].owner() == arr {
			return true
		}
	}
	return false
}

func hasText(fr *fragment) bool {
	for _, text := range fr.cells {
		if text != "" {
			return true
		}
	}
	return false
}

func (f *flattener) scalar(v value.Value, path string) (string, error) {
	text, err := value.FormatScalar(v)
	if err != nil {
		return "", treeError(ErrUnsupportedTreeShape, path, "%v", err)
	}
	if back := value.Coerce(text); !value.Equal(back, v) {
		f.warn("%s: %s reads back as %s", path, v, back)
	}
	return text, nil
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
