package pdf

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// MarkedPages selects the pages carrying ink.
const MarkedPages = "marked"

// PageRange is a slice of a document's pages. Pages are 1-based in the
// textual form and 0-based here; negative values count from the end.
type PageRange struct {
	Start, Stop *int
	Step        int
}

// ParsePageRanges parses a comma separated list of ranges. Each range is a
// page ("3", "end", "-2") or a slice "start:stop[:step]" whose parts may be
// empty or "end". "" selects every page. Stops are exclusive: "2:4"
// selects pages 2 and 3.
func ParsePageRanges(s string) ([]PageRange, error) {
	var out []PageRange
	for _, part := range strings.Split(s, ",") {
		r, err := parsePageRange(part)
		if err != nil {
			return nil, errors.Wrapf(err, "page range %q", strings.TrimSpace(part))
		}
		out = append(out, r)
	}
	return out, nil
}

func pageIndex(s string) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if i < 0 {
		return i, nil
	}
	return i - 1, nil
}

func intp(i int) *int {
	return &i
}

func parsePageRange(s string) (PageRange, error) {
	parts := strings.Split(s, ":")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) > 3 {
		return PageRange{}, errors.New("too many colons")
	}

	if len(parts) == 1 {
		switch parts[0] {
		case "":
			return PageRange{}, nil
		case "end":
			return PageRange{Start: intp(-1)}, nil
		}
		i, err := pageIndex(parts[0])
		if err != nil {
			return PageRange{}, err
		}
		if i == -1 {
			return PageRange{Start: intp(-1)}, nil
		}
		return PageRange{Start: intp(i), Stop: intp(i + 1)}, nil
	}

	var r PageRange
	for i, p := range parts {
		empty := p == "" || p == "end"
		switch {
		case i == 0 && empty:
			if p == "end" {
				r.Start = intp(-1)
			}
		case i == 0:
			v, err := pageIndex(p)
			if err != nil {
				return PageRange{}, err
			}
			r.Start = intp(v)
		case i == 1 && empty:
		case i == 1:
			v, err := pageIndex(p)
			if err != nil {
				return PageRange{}, err
			}
			r.Stop = intp(v)
		case empty:
		default:
			v, err := strconv.Atoi(p)
			if err != nil {
				return PageRange{}, err
			}
			if v == 0 {
				return PageRange{}, errors.New("step is zero")
			}
			r.Step = v
		}
	}
	return r, nil
}

// Indices returns the 0-based pages selected out of n.
func (r PageRange) Indices(n int) []int {
	step := r.Step
	if step == 0 {
		step = 1
	}
	clamp := func(p *int, def, lo, hi int) int {
		if p == nil {
			return def
		}
		v := *p
		if v < 0 {
			v += n
		}
		if v < lo {
			return lo
		}
		if v > hi {
			return hi
		}
		return v
	}

	var out []int
	if step > 0 {
		start := clamp(r.Start, 0, 0, n)
		stop := clamp(r.Stop, n, 0, n)
		for i := start; i < stop; i += step {
			out = append(out, i)
		}
		return out
	}
	start := clamp(r.Start, n-1, -1, n-1)
	stop := clamp(r.Stop, -1, -1, n-1)
	for i := start; i > stop; i += step {
		out = append(out, i)
	}
	return out
}

// SelectPages resolves a page range expression against a document of n
// pages. marked lists the pages with ink for the "marked" keyword.
func SelectPages(spec string, n int, marked []int) ([]int, error) {
	if strings.TrimSpace(spec) == MarkedPages {
		if marked == nil {
			return PageRange{}.Indices(n), nil
		}
		return marked, nil
	}
	ranges, err := ParsePageRanges(spec)
	if err != nil {
		return nil, err
	}
	var out []int
	for _, r := range ranges {
		out = append(out, r.Indices(n)...)
	}
	if len(out) == 0 {
		return nil, errors.New("no pages to export")
	}
	return out, nil
}
