package textbuf

type gapBuffer struct {
	data     []rune
	gapStart int
	gapEnd   int
}

const minGap = 64

func newGapBuffer(rs []rune) gapBuffer {
	data := make([]rune, len(rs)+minGap)
	copy(data, rs)
	return gapBuffer{data: data, gapStart: len(rs), gapEnd: len(rs) + minGap}
}

func (g *gapBuffer) Len() int {
	return len(g.data) - (g.gapEnd - g.gapStart)
}

func (g *gapBuffer) ensureGap(n int) {
	if n <= g.gapEnd-g.gapStart {
		return
	}
	extra := n + minGap
	oldGap := g.gapEnd - g.gapStart
	grown := make([]rune, len(g.data)+extra)
	copy(grown, g.data[:g.gapStart])
	tailLen := len(g.data) - g.gapEnd
	newGapEnd := g.gapStart + oldGap + extra
	copy(grown[newGapEnd:newGapEnd+tailLen], g.data[g.gapEnd:])
	g.data = grown
	g.gapEnd = newGapEnd
}

func (g *gapBuffer) moveGap(pos int) {
	pos = clamp(pos, 0, g.Len())
	if pos == g.gapStart {
		return
	}
	if pos < g.gapStart {
		delta := g.gapStart - pos
		copy(g.data[g.gapEnd-delta:g.gapEnd], g.data[pos:g.gapStart])
		g.gapStart -= delta
		g.gapEnd -= delta
		return
	}
	delta := pos - g.gapStart
	copy(g.data[g.gapStart:g.gapStart+delta], g.data[g.gapEnd:g.gapEnd+delta])
	g.gapStart += delta
	g.gapEnd += delta
}

func (g *gapBuffer) Insert(pos int, rs []rune) {
	if len(rs) == 0 {
		return
	}
	g.moveGap(pos)
	g.ensureGap(len(rs))
	copy(g.data[g.gapStart:g.gapStart+len(rs)], rs)
	g.gapStart += len(rs)
}

func (g *gapBuffer) Delete(start, end int) {
	start = clamp(start, 0, g.Len())
	end = clamp(end, 0, g.Len())
	if end <= start {
		return
	}
	g.moveGap(start)
	g.gapEnd += end - start
}

func (g *gapBuffer) RuneAt(i int) (rune, bool) {
	if i < 0 || i >= g.Len() {
		return 0, false
	}
	if i < g.gapStart {
		return g.data[i], true
	}
	return g.data[i+(g.gapEnd-g.gapStart)], true
}

func (g *gapBuffer) Slice(a, b int) []rune {
	a = clamp(a, 0, g.Len())
	b = clamp(b, 0, g.Len())
	if b <= a {
		return nil
	}
	out := make([]rune, b-a)
	for i := range out {
		out[i], _ = g.RuneAt(a + i)
	}
	return out
}

func (g *gapBuffer) Runes() []rune {
	out := make([]rune, g.Len())
	copy(out, g.data[:g.gapStart])
	copy(out[g.gapStart:], g.data[g.gapEnd:])
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
