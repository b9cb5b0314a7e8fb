package report

import (
	"math"
	"strings"
)

// ApproxMeasurer wraps text assuming every glyph is half an em wide. It is
// close enough to Helvetica for laying out previews and tests.
type ApproxMeasurer struct{}

func (ApproxMeasurer) Wrap(text string, width, fontSize float64) []string {
	charW := fontSize * ptToMM * 0.5
	usable := width - 2*cellPadding
	perLine := int(math.Floor(usable / charW))
	if perLine < 1 {
		perLine = 1
	}
	var out []string
	for _, para := range strings.Split(text, "\n") {
		rs := []rune(para)
		if len(rs) == 0 {
			out = append(out, "")
			continue
		}
		for len(rs) > perLine {
			out = append(out, string(rs[:perLine]))
			rs = rs[perLine:]
		}
		out = append(out, string(rs))
	}
	return out
}

func (m ApproxMeasurer) Lines(text string, width, fontSize float64) int {
	return len(m.Wrap(text, width, fontSize))
}
