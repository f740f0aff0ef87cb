package folding

// testText is a minimal TextModel over a fixed slice of lines.
type testText struct {
	lines   []string
	version int
}

func newTestText(lines ...string) *testText {
	if len(lines) == 0 {
		lines = []string{""}
	}
	return &testText{lines: lines, version: 1}
}

// linesOf returns n lines named "line 1" ... "line n".
func linesOf(n int) *testText {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = "line " + itoa(i+1)
	}
	return newTestText(lines...)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var b []byte
	for n > 0 {
		b = append([]byte{byte('0' + n%10)}, b...)
		n /= 10
	}
	return string(b)
}

func (t *testText) LineCount() int { return len(t.lines) }
func (t *testText) LineContent(lineNumber int) string { return t.lines[lineNumber-1] }
func (t *testText) VersionID() int { return t.version }
func (t *testText) LanguageID() string { return "plaintext" }
func (t *testText) URI() string { return "mem://test.txt" }
func (t *testText) TabSize() int { return 4 }

// fr is shorthand for a provider range.
func fr(start, end int) FoldRange {
	return FoldRange{StartLine: start, EndLine: end}
}

// modelWith returns a model over n lines holding the given ranges.
func modelWith(n int, ranges ...FoldRange) *Model {
	m := NewModel(linesOf(n))
	m.Update(FromFoldRanges(ranges), nil)
	return m
}

// lineRanges returns the (start, end) pairs of regions for compact asserts.
func lineRanges(r *Regions) [][2]int {
	out := make([][2]int, r.Length())
	for i := range out {
		out[i] = [2]int{r.StartLineNumber(i), r.EndLineNumber(i)}
	}
	return out
}
