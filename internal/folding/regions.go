package folding

import (
	"fmt"
	"sort"
)

const (
	// MaxFoldingRegions bounds the number of regions a Regions can hold.
	MaxFoldingRegions = 0xFFFF
	// MaxLineNumber bounds the line numbers a Regions can hold.
	MaxLineNumber = 0xFFFFFF
)

// Well-known region types.
const (
	TypeComment = "comment"
	TypeImports = "imports"
	TypeRegion  = "region"
)

// Source tells who created a fold range.
type Source uint8

const (
	// SourceProvider ranges come from a range provider and are replaced on
	// every recomputation.
	SourceProvider Source = iota
	// SourceUserDefined ranges were created manually and survive
	// recomputation until removed.
	SourceUserDefined
)

// String implements fmt.Stringer.
func (s Source) String() string {
	if s == SourceUserDefined {
		return "userDefined"
	}
	return "provider"
}

// MarshalText implements encoding.TextMarshaler.
func (s Source) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Source) UnmarshalText(text []byte) error {
	switch string(text) {
	case "", "provider":
		*s = SourceProvider
	case "userDefined":
		*s = SourceUserDefined
	default:
		return fmt.Errorf("unknown fold source %q", text)
	}
	return nil
}

// FoldRange is one row of a Regions table in value form.
type FoldRange struct {
	StartLine int    `json:"startLineNumber"`
	EndLine   int    `json:"endLineNumber"`
	Type      string `json:"type,omitempty"`
	Collapsed bool   `json:"isCollapsed"`
	Source    Source `json:"source"`
}

// Validate checks the range against a document of lineCount lines.
func (r FoldRange) Validate(lineCount int) error {
	if r.StartLine >= r.EndLine {
		return ErrInvalidRange
	}
	if r.StartLine < 1 || r.EndLine > lineCount || r.EndLine > MaxLineNumber {
		return ErrRangeOutOfBounds
	}
	return nil
}

// Contains reports whether o nests inside r (bounds may touch).
func (r FoldRange) Contains(o FoldRange) bool {
	return r.StartLine <= o.StartLine && o.EndLine <= r.EndLine
}

type bitset []uint64

func newBitset(n int) bitset {
	return make(bitset, (n+63)/64)
}

func (b bitset) get(i int) bool {
	return b[i/64]&(1<<(uint(i)%64)) != 0
}

func (b bitset) set(i int, v bool) {
	if v {
		b[i/64] |= 1 << (uint(i) % 64)
	} else {
		b[i/64] &^= 1 << (uint(i) % 64)
	}
}

// Regions is an immutable, sorted fold-range forest stored in parallel
// arrays. Only the collapse and user-defined bits may change after
// construction. Index arguments must be in [0, Length()).
type Regions struct {
	starts      []uint32
	ends        []uint32
	types       []string
	parents     []int32
	collapsed   bitset
	userDefined bitset
}

// newRegions builds a Regions from ranges that are already sorted and well
// nested.
func newRegions(ranges []FoldRange) *Regions {
	n := len(ranges)
	r := &Regions{
		starts:      make([]uint32, n),
		ends:        make([]uint32, n),
		parents:     make([]int32, n),
		collapsed:   newBitset(n),
		userDefined: newBitset(n),
	}
	stack := make([]int, 0, 16)
	for i, fr := range ranges {
		r.starts[i] = uint32(fr.StartLine)
		r.ends[i] = uint32(fr.EndLine)
		if fr.Type != "" {
			if r.types == nil {
				r.types = make([]string, n)
			}
			r.types[i] = fr.Type
		}
		r.collapsed.set(i, fr.Collapsed)
		r.userDefined.set(i, fr.Source == SourceUserDefined)

		for len(stack) > 0 {
			top := stack[len(stack)-1]
			if r.starts[top] <= r.starts[i] && r.ends[i] <= r.ends[top] {
				break
			}
			stack = stack[:len(stack)-1]
		}
		if len(stack) > 0 {
			r.parents[i] = int32(stack[len(stack)-1])
		} else {
			r.parents[i] = -1
		}
		stack = append(stack, i)
	}
	return r
}

// EmptyRegions returns a Regions with no ranges.
func EmptyRegions() *Regions {
	return newRegions(nil)
}

// Length returns the number of regions.
func (r *Regions) Length() int {
	if r == nil {
		return 0
	}
	return len(r.starts)
}

// StartLineNumber returns the first line of region i.
func (r *Regions) StartLineNumber(i int) int {
	return int(r.starts[i])
}

// EndLineNumber returns the last line of region i.
func (r *Regions) EndLineNumber(i int) int {
	return int(r.ends[i])
}

// Type returns the type tag of region i, or "".
func (r *Regions) Type(i int) string {
	if r.types == nil {
		return ""
	}
	return r.types[i]
}

// HasTypes reports whether any region carries a type tag.
func (r *Regions) HasTypes() bool {
	if r == nil {
		return false
	}
	for _, t := range r.types {
		if t != "" {
			return true
		}
	}
	return false
}

// IsCollapsed reports whether region i is collapsed.
func (r *Regions) IsCollapsed(i int) bool {
	return r.collapsed.get(i)
}

// SetCollapsed sets the collapse state of region i.
func (r *Regions) SetCollapsed(i int, collapsed bool) {
	r.collapsed.set(i, collapsed)
}

// IsUserDefined reports whether region i was created manually.
func (r *Regions) IsUserDefined(i int) bool {
	return r.userDefined.get(i)
}

// SetUserDefined marks region i as manual or provider owned.
func (r *Regions) SetUserDefined(i int, userDefined bool) {
	r.userDefined.set(i, userDefined)
}

// Source returns the source of region i.
func (r *Regions) Source(i int) Source {
	if r.IsUserDefined(i) {
		return SourceUserDefined
	}
	return SourceProvider
}

// ParentIndex returns the index of the enclosing region of i, or -1.
func (r *Regions) ParentIndex(i int) int {
	return int(r.parents[i])
}

// ContainsLine reports whether line lies within region i.
func (r *Regions) ContainsLine(i, line int) bool {
	return r.StartLineNumber(i) <= line && line <= r.EndLineNumber(i)
}

// findIndex returns the last region whose start line is <= line, or -1.
func (r *Regions) findIndex(line int) int {
	n := len(r.starts)
	i := sort.Search(n, func(k int) bool { return int(r.starts[k]) > line })
	return i - 1
}

// FindRange returns the index of the innermost region containing line,
// or -1.
func (r *Regions) FindRange(line int) int {
	if r.Length() == 0 {
		return -1
	}
	index := r.findIndex(line)
	for index >= 0 {
		if line <= r.EndLineNumber(index) {
			return index
		}
		index = r.ParentIndex(index)
	}
	return -1
}

// RegionAtLine returns the innermost region containing line.
func (r *Regions) RegionAtLine(line int) (Region, bool) {
	index := r.FindRange(line)
	if index < 0 {
		return Region{}, false
	}
	return r.ToRegion(index), true
}

// ToRegion returns a view of region i.
func (r *Regions) ToRegion(i int) Region {
	return Region{ranges: r, index: i}
}

// ToFoldRange returns region i in value form.
func (r *Regions) ToFoldRange(i int) FoldRange {
	return FoldRange{
		StartLine: r.StartLineNumber(i),
		EndLine:   r.EndLineNumber(i),
		Type:      r.Type(i),
		Collapsed: r.IsCollapsed(i),
		Source:    r.Source(i),
	}
}

// ToFoldRanges returns all regions in value form, in order.
func (r *Regions) ToFoldRanges() []FoldRange {
	out := make([]FoldRange, r.Length())
	for i := range out {
		out[i] = r.ToFoldRange(i)
	}
	return out
}

// RegionsInside walks the descendants of parent in order, or the whole
// forest when parent is negative. filter receives the region and its depth
// relative to parent (direct children are level 1); a nil filter accepts
// every region.
func (r *Regions) RegionsInside(parent int, filter func(region Region, level int) bool) []Region {
	var result []Region
	start := 0
	endLine := MaxLineNumber + 1
	if parent >= 0 {
		start = parent + 1
		endLine = r.EndLineNumber(parent)
	}
	levels := make([]Region, 0, 8)
	for i := start; i < r.Length(); i++ {
		if r.StartLineNumber(i) > endLine || (parent >= 0 && r.EndLineNumber(i) > endLine) {
			break
		}
		current := r.ToRegion(i)
		for len(levels) > 0 && !levels[len(levels)-1].ContainsRegion(current) {
			levels = levels[:len(levels)-1]
		}
		levels = append(levels, current)
		if filter == nil || filter(current, len(levels)) {
			result = append(result, current)
		}
	}
	return result
}

// Equal reports whether both tables hold the same ranges and bits.
func (r *Regions) Equal(o *Regions) bool {
	if r.Length() != o.Length() {
		return false
	}
	for i := 0; i < r.Length(); i++ {
		if r.ToFoldRange(i) != o.ToFoldRange(i) {
			return false
		}
	}
	return true
}

// String returns a compact dump for tests and debug logs.
func (r *Regions) String() string {
	s := "["
	for i := 0; i < r.Length(); i++ {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%d-%d", r.StartLineNumber(i), r.EndLineNumber(i))
		if r.IsCollapsed(i) {
			s += "*"
		}
	}
	return s + "]"
}

// Region is a lightweight view of one row of a Regions table. It stays
// valid only as long as the table it came from.
type Region struct {
	ranges *Regions
	index  int
}

// Index returns the row index.
func (g Region) Index() int { return g.index }

// Regions returns the table the region belongs to.
func (g Region) Regions() *Regions { return g.ranges }

// StartLine returns the first line of the region.
func (g Region) StartLine() int { return g.ranges.StartLineNumber(g.index) }

// EndLine returns the last line of the region.
func (g Region) EndLine() int { return g.ranges.EndLineNumber(g.index) }

// Type returns the region's type tag.
func (g Region) Type() string { return g.ranges.Type(g.index) }

// IsCollapsed reports whether the region is collapsed.
func (g Region) IsCollapsed() bool { return g.ranges.IsCollapsed(g.index) }

// IsUserDefined reports whether the region was created manually.
func (g Region) IsUserDefined() bool { return g.ranges.IsUserDefined(g.index) }

// ParentIndex returns the index of the enclosing region, or -1.
func (g Region) ParentIndex() int { return g.ranges.ParentIndex(g.index) }

// ContainsLine reports whether line lies within the region.
func (g Region) ContainsLine(line int) bool {
	return g.StartLine() <= line && line <= g.EndLine()
}

// HidesLine reports whether line would be hidden when the region is collapsed.
func (g Region) HidesLine(line int) bool {
	return g.StartLine() < line && line <= g.EndLine()
}

// ContainsRegion reports whether o nests inside g.
func (g Region) ContainsRegion(o Region) bool {
	return g.StartLine() <= o.StartLine() && o.EndLine() <= g.EndLine()
}

// FoldRange returns the region in value form.
func (g Region) FoldRange() FoldRange { return g.ranges.ToFoldRange(g.index) }

// FromFoldRanges builds a well-formed Regions from unsorted, possibly
// overlapping candidates.
//
// Candidates with start >= end or outside [1, MaxLineNumber] are dropped.
// The rest are sorted by start line, longer range first on equal starts, in
// a stable way. A single stack pass then keeps every candidate that nests in
// the current stack top. When two candidates share both start and end the
// first one wins. A candidate that starts inside the stack top but ends
// after it (partial overlap) is dropped, so the earlier-starting range
// always wins. At most MaxFoldingRegions ranges are kept.
func FromFoldRanges(ranges []FoldRange) *Regions {
	valid := make([]FoldRange, 0, len(ranges))
	for _, fr := range ranges {
		if fr.StartLine < 1 || fr.StartLine >= fr.EndLine || fr.EndLine > MaxLineNumber {
			continue
		}
		valid = append(valid, fr)
	}
	sortFoldRanges(valid)

	out := make([]FoldRange, 0, len(valid))
	stack := make([]FoldRange, 0, 16)
	for _, fr := range valid {
		for len(stack) > 0 && stack[len(stack)-1].EndLine < fr.StartLine {
			stack = stack[:len(stack)-1]
		}
		if len(stack) > 0 {
			top := stack[len(stack)-1]
			if top.StartLine == fr.StartLine && top.EndLine == fr.EndLine {
				continue
			}
			if fr.EndLine > top.EndLine {
				continue
			}
		}
		out = append(out, fr)
		stack = append(stack, fr)
		if len(out) == MaxFoldingRegions {
			break
		}
	}
	return newRegions(out)
}

func sortFoldRanges(ranges []FoldRange) {
	sort.SliceStable(ranges, func(i, j int) bool {
		if ranges[i].StartLine != ranges[j].StartLine {
			return ranges[i].StartLine < ranges[j].StartLine
		}
		return ranges[i].EndLine > ranges[j].EndLine
	})
}

// SanitizeAndMerge merges manual or previously folded ranges (newRanges)
// into the ranges of existing and returns a sorted, well-nested list.
//
// Rules:
//   - a user-defined range replaces an existing range with the same start;
//   - a provider range in newRanges only contributes its collapse state to
//     an existing range with identical bounds, and is otherwise discarded;
//   - an existing range that a user-defined range partially overlaps is
//     dropped;
//   - ranges with start >= end or ending after lineCount are dropped.
func SanitizeAndMerge(existing *Regions, newRanges []FoldRange, lineCount int) []FoldRange {
	if lineCount <= 0 {
		lineCount = MaxLineNumber
	}
	a := existing.ToFoldRanges()
	b := make([]FoldRange, len(newRanges))
	copy(b, newRanges)
	sortFoldRanges(b)

	result := make([]FoldRange, 0, len(a)+len(b))
	stack := make([]FoldRange, 0, 16)
	lastStart, lastEnd := 0, 0

	push := func(use FoldRange) {
		for len(stack) > 0 && stack[len(stack)-1].EndLine < use.StartLine {
			stack = stack[:len(stack)-1]
		}
		if use.StartLine < 1 || use.EndLine <= use.StartLine || use.EndLine > lineCount {
			return
		}
		if use.StartLine < lastStart || (use.StartLine == lastStart && use.EndLine >= lastEnd) {
			return
		}
		if len(stack) > 0 && stack[len(stack)-1].EndLine < use.EndLine {
			return
		}
		result = append(result, use)
		lastStart, lastEnd = use.StartLine, use.EndLine
		stack = append(stack, use)
	}

	// pushExisting drops an existing range that a pending user-defined
	// range partially overlaps.
	pushExisting := func(na FoldRange, ib int) {
		for scan := ib; scan < len(b) && b[scan].StartLine <= na.EndLine; scan++ {
			if b[scan].Source == SourceUserDefined && b[scan].EndLine > na.EndLine {
				return
			}
		}
		push(na)
	}

	ia, ib := 0, 0
	for ia < len(a) || ib < len(b) {
		if ib < len(b) && (ia >= len(a) || a[ia].StartLine >= b[ib].StartLine) {
			nb := b[ib]
			ib++
			if ia < len(a) && a[ia].StartLine == nb.StartLine {
				if nb.Source == SourceUserDefined {
					ia++
					push(nb)
					continue
				}
				// Existing ranges sharing the start line are ordered outermost
				// first; only the one with the same end takes nb's state.
				for ia < len(a) && a[ia].StartLine == nb.StartLine && a[ia].EndLine > nb.EndLine {
					pushExisting(a[ia], ib)
					ia++
				}
				if ia < len(a) && a[ia].StartLine == nb.StartLine && a[ia].EndLine == nb.EndLine {
					na := a[ia]
					ia++
					na.Collapsed = nb.Collapsed
					na.Source = SourceProvider
					push(na)
				}
				continue
			}
			if nb.Source == SourceUserDefined {
				push(nb)
			}
			continue
		}

		na := a[ia]
		ia++
		pushExisting(na, ib)
	}
	return result
}
