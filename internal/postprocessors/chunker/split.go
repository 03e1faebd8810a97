package chunker

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// Level is a granularity of structural boundary in text.
// Higher levels are coarser.
type Level int

// Boundary levels, finest first.
const (
	LevelCharacter Level = iota
	LevelWord
	LevelSentence
	LevelLine
	LevelParagraph
	LevelSection
	levelDocument
)

var levelNames = map[Level]string{
	LevelCharacter: "character",
	LevelWord:      "word",
	LevelSentence:  "sentence",
	LevelLine:      "line",
	LevelParagraph: "paragraph",
	LevelSection:   "section",
}

// String returns the level's config name.
func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "document"
}

// ParseLevel converts a config name into a Level.
func ParseLevel(s string) (Level, error) {
	for l, name := range levelNames {
		if strings.EqualFold(s, name) {
			return l, nil
		}
	}
	return 0, fmt.Errorf("unknown chunk level %q", s)
}

// separator is a boundary marker. The cut falls cut bytes into the match.
type separator struct {
	text string
	cut  int
}

var separators = map[Level][]separator{
	LevelSection:   {{"\n#", 1}, {"\n\n\n", 3}},
	LevelParagraph: {{"\n\n", 2}},
	LevelLine:      {{"\n", 1}},
	LevelSentence:  {{". ", 2}, {"! ", 2}, {"? ", 2}, {"; ", 2}},
	LevelWord:      {{" ", 1}},
}

// Segment is one chunk of text and its byte range in the source text.
type Segment struct {
	Text  string
	Start int
	End   int
}

// Splitter cuts text into overlapping segments no longer than MaxSize
// characters, preferring the coarsest structural boundary available.
type Splitter struct {
	// MaxSize is the maximum segment length in characters.
	MaxSize int

	// Overlap is the maximum number of characters shared by adjacent segments.
	Overlap int

	// MinLevel is the finest level the splitter may cut at. A unit at this
	// level that is longer than MaxSize is emitted whole.
	MinLevel Level
}

// Split cuts text with character-level fallback.
func Split(text string, maxSize, overlap int) []Segment {
	return Splitter{MaxSize: maxSize, Overlap: overlap, MinLevel: LevelCharacter}.Split(text)
}

// piece is a span of text that is never divided when building windows.
// It covers [previous piece end, end) and its end is a boundary of the
// given strength.
type piece struct {
	end      int
	strength Level
}

type splitState struct {
	Splitter
	text string

	// runeAt[b] is the number of runes before byte b (valid at rune starts).
	runeAt []int32
	// byteAt[r] is the byte offset of rune r.
	byteAt []int

	pieces []piece
}

// Split returns the segments of text in order of increasing Start.
// Segment.Text is always text[Start:End]. Whitespace-only segments are
// dropped, so for text with long whitespace runs the segments minus their
// overlaps rebuild the text only up to those runs.
func (s Splitter) Split(text string) []Segment {
	if text == "" {
		return nil
	}
	if s.MaxSize < 1 {
		s.MaxSize = 1
	}
	if s.Overlap < 0 {
		s.Overlap = 0
	}
	if s.Overlap >= s.MaxSize {
		s.Overlap = s.MaxSize - 1
	}

	st := &splitState{Splitter: s, text: text}
	st.index()
	st.descend(0, len(text), LevelSection, levelDocument)
	return st.windows()
}

func (st *splitState) index() {
	st.runeAt = make([]int32, len(st.text)+1)
	st.byteAt = make([]int, 0, len(st.text)+1)
	var r int32
	for b := range st.text {
		st.runeAt[b] = r
		st.byteAt = append(st.byteAt, b)
		r++
	}
	st.runeAt[len(st.text)] = r
	st.byteAt = append(st.byteAt, len(st.text))

	// Continuation bytes inherit the count of the rune they belong to.
	for b := 1; b < len(st.text); b++ {
		if !utf8.RuneStart(st.text[b]) {
			st.runeAt[b] = st.runeAt[b-1]
		}
	}
}

func (st *splitState) runes(from, to int) int {
	return int(st.runeAt[to] - st.runeAt[from])
}

// descend splits [lo, hi) down to words, or to characters for words that
// are still too long, and appends the resulting pieces. Each piece ends at
// a boundary as strong as the coarsest level that cut there. Pieces are
// kept to MaxSize-Overlap characters so a window can always start inside
// the previous one and still take the next piece whole.
func (st *splitState) descend(lo, hi int, lvl, endStrength Level) {
	if lvl < st.MinLevel || (lvl == LevelCharacter && st.runes(lo, hi) <= st.MaxSize-st.Overlap) {
		st.pieces = append(st.pieces, piece{end: hi, strength: endStrength})
		return
	}

	if lvl == LevelCharacter {
		first := int(st.runeAt[lo])
		last := int(st.runeAt[hi])
		for r := first + 1; r < last; r++ {
			st.pieces = append(st.pieces, piece{end: st.byteAt[r], strength: LevelCharacter})
		}
		st.pieces = append(st.pieces, piece{end: hi, strength: endStrength})
		return
	}

	cuts := st.boundaries(lo, hi, lvl)
	if len(cuts) == 0 {
		st.descend(lo, hi, lvl-1, endStrength)
		return
	}

	from := lo
	for _, cut := range cuts {
		st.descend(from, cut, lvl-1, lvl)
		from = cut
	}
	st.descend(from, hi, lvl-1, endStrength)
}

// boundaries returns the sorted, distinct cut positions of level lvl
// strictly inside (lo, hi).
func (st *splitState) boundaries(lo, hi int, lvl Level) []int {
	span := st.text[lo:hi]
	seen := make(map[int]struct{})
	var cuts []int
	for _, sep := range separators[lvl] {
		for off := 0; off < len(span); {
			i := strings.Index(span[off:], sep.text)
			if i < 0 {
				break
			}
			pos := lo + off + i + sep.cut
			if pos > lo && pos < hi {
				if _, dup := seen[pos]; !dup {
					seen[pos] = struct{}{}
					cuts = append(cuts, pos)
				}
			}
			off += i + len(sep.text)
		}
	}
	sort.Ints(cuts)
	return cuts
}

// windows greedily merges pieces into segments.
func (st *splitState) windows() []Segment {
	var out []Segment
	n := len(st.text)
	start := 0
	prevEnd := 0
	i := 0

	for start < n {
		for st.pieces[i].end <= start {
			i++
		}

		end := st.pieces[i].end
		if st.runes(start, end) <= st.MaxSize {
			end = st.chooseEnd(start, prevEnd, i)
		}

		if strings.TrimSpace(st.text[start:end]) != "" {
			out = append(out, Segment{Text: st.text[start:end], Start: start, End: end})
		}
		if end >= n {
			break
		}
		start = st.nextStart(start, end, i)
		prevEnd = end
	}
	return out
}

// chooseEnd picks the window end among the pieces that fit after start
// and reach past prevEnd. Among candidates at least half full, ends that
// leave a remainder fitting in one more window are preferred; then the
// strongest boundary wins and ties go to the longest window.
func (st *splitState) chooseEnd(start, prevEnd, i int) int {
	for st.pieces[i].end <= prevEnd {
		i++
	}
	last := i
	for last+1 < len(st.pieces) && st.runes(start, st.pieces[last+1].end) <= st.MaxSize {
		last++
	}
	if st.pieces[last].end == len(st.text) {
		return len(st.text)
	}

	half := st.MaxSize / 2
	best := -1
	bestFinishes := false
	for j := i; j <= last; j++ {
		if st.runes(start, st.pieces[j].end) < half {
			continue
		}
		finishes := st.finishes(st.pieces[j].end)
		switch {
		case best < 0, finishes && !bestFinishes:
		case finishes != bestFinishes:
			continue
		case st.pieces[j].strength < st.pieces[best].strength:
			continue
		}
		best, bestFinishes = j, finishes
	}
	if best < 0 {
		best = last
	}
	return st.pieces[best].end
}

// finishes reports whether a window ending at end leaves a remainder that
// the next window can cover entirely.
func (st *splitState) finishes(end int) bool {
	if st.Overlap == 0 {
		return st.runes(end, len(st.text)) <= st.MaxSize
	}
	return int(st.runeAt[end]) > st.tailRune()
}

// tailRune is the first rune a window reaching the end of the text can
// start at.
func (st *splitState) tailRune() int {
	return int(st.runeAt[len(st.text)]) - st.MaxSize
}

// nextStart returns where the window after [start, end) begins. It is the
// earliest word boundary within the last Overlap characters of the
// window, or exactly Overlap characters back when there is none, moved
// forward if needed so the following piece still fits. When the rest of
// the text fits in one window starting inside the overlap, the search
// begins at the first such position instead.
func (st *splitState) nextStart(start, end, i int) int {
	if st.Overlap == 0 {
		return end
	}

	lowRune := int(st.runeAt[end]) - st.Overlap
	if floor := int(st.runeAt[start]) + 1; lowRune < floor {
		lowRune = floor
	}
	lo := st.byteAt[lowRune]

	// The window after this one must reach past end.
	next := i
	for st.pieces[next].end <= end {
		next++
	}
	nextEnd := st.pieces[next].end
	if st.runes(end, nextEnd) > st.MaxSize {
		return end
	}
	if st.runes(lo, nextEnd) > st.MaxSize {
		lo = st.byteAt[int(st.runeAt[nextEnd])-st.MaxSize]
	}
	if tail := st.tailRune(); tail > int(st.runeAt[lo]) && tail < int(st.runeAt[end]) {
		lo = st.byteAt[tail]
	}
	if lo >= end {
		return end
	}

	for p := lo; p < end; p++ {
		if isSpace(st.text[p-1]) && !isSpace(st.text[p]) {
			return p
		}
	}
	return lo
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\r'
}
