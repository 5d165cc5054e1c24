// Package atlas parses Spine texture atlas files in both the 3.x and 4.x text layouts.
package atlas

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-spine/engine/spine"
)

// Page is one texture page of an atlas.
type Page struct {
	Name               string
	Width, Height      int
	Format             string
	MinFilter          spine.Filter
	MagFilter          spine.Filter
	UWrap, VWrap       spine.Wrap
	PremultipliedAlpha bool
}

// Region is a named rectangle on a page.
type Region struct {
	Name string
	// Page indexes Atlas.Pages.
	Page int

	X, Y, Width, Height           int
	OriginalWidth, OriginalHeight int
	OffsetX, OffsetY              int
	// Degrees is the packing rotation, 0 or 90 in practice.
	Degrees int
	Index   int

	U, V, U2, V2 float32
}

// Rotated reports whether the region was packed rotated by 90 degrees.
func (r Region) Rotated() bool {
	return r.Degrees == 90
}

// Atlas is a parsed atlas file.
type Atlas struct {
	Pages   []Page
	Regions []Region
}

// Region finds a region by name.
//
// Parameters:
//   - name: the region name
//
// Returns:
//   - Region: the region
//   - bool: false if no region has that name
func (a *Atlas) Region(name string) (Region, bool) {
	for _, r := range a.Regions {
		if r.Name == name {
			return r, true
		}
	}
	return Region{}, false
}

// PremultipliedAlpha reports whether any page declares premultiplied alpha.
func (a *Atlas) PremultipliedAlpha() bool {
	for _, p := range a.Pages {
		if p.PremultipliedAlpha {
			return true
		}
	}
	return false
}

// FirstPageName returns the first non-blank line of an atlas, which is the image name of its first page.
//
// Parameters:
//   - data: the atlas text
//
// Returns:
//   - string: the first page name, or "" if the atlas is empty
func FirstPageName(data []byte) string {
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			return line
		}
	}
	return ""
}

// Parse reads an atlas.
//
// Parameters:
//   - data: the atlas text
//
// Returns:
//   - *Atlas: the parsed atlas
//   - error: an error naming the offending line if a value cannot be parsed
func Parse(data []byte) (*Atlas, error) {
	a := &Atlas{}
	sc := bufio.NewScanner(bytes.NewReader(data))

	var (
		page       *Page
		region     *Region
		lineNo     int
		expectPage = true
	)

	flushRegion := func() {
		if region == nil {
			return
		}
		finishRegion(region, a.Pages[region.Page])
		a.Regions = append(a.Regions, *region)
		region = nil
	}

	for sc.Scan() {
		lineNo++
		raw := sc.Text()
		line := strings.TrimSpace(raw)
		if line == "" {
			flushRegion()
			expectPage = true
			continue
		}

		key, value, isEntry := splitEntry(line)
		switch {
		case !isEntry && expectPage:
			a.Pages = append(a.Pages, Page{Name: line, MinFilter: spine.FilterNearest, MagFilter: spine.FilterNearest})
			page = &a.Pages[len(a.Pages)-1]
			expectPage = false
		case !isEntry:
			flushRegion()
			if page == nil {
				return nil, fmt.Errorf("atlas line %d: region %q before any page", lineNo, line)
			}
			region = &Region{Name: line, Page: len(a.Pages) - 1, Index: -1}
		case region != nil:
			if err := applyRegionEntry(region, key, value); err != nil {
				return nil, fmt.Errorf("atlas line %d: %w", lineNo, err)
			}
		case page != nil:
			if err := applyPageEntry(page, key, value); err != nil {
				return nil, fmt.Errorf("atlas line %d: %w", lineNo, err)
			}
		default:
			return nil, fmt.Errorf("atlas line %d: entry %q outside of a page", lineNo, key)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	flushRegion()

	if len(a.Pages) == 0 {
		return nil, fmt.Errorf("atlas has no pages")
	}
	return a, nil
}

func splitEntry(line string) (key, value string, ok bool) {
	key, value, ok = strings.Cut(line, ":")
	if !ok {
		return "", "", false
	}
	return strings.TrimSpace(key), strings.TrimSpace(value), true
}

func ints(value string, n int) ([]int, error) {
	parts := strings.Split(value, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("expected %d values, got %q", n, value)
	}
	out := make([]int, n)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", p)
		}
		out[i] = v
	}
	return out, nil
}

func applyPageEntry(p *Page, key, value string) error {
	switch key {
	case "size":
		v, err := ints(value, 2)
		if err != nil {
			return fmt.Errorf("size: %w", err)
		}
		p.Width, p.Height = v[0], v[1]
	case "format":
		p.Format = value
	case "filter":
		minName, magName, _ := strings.Cut(value, ",")
		minF, err := spine.ParseFilter(minName)
		if err != nil {
			return err
		}
		magF, err := spine.ParseFilter(magName)
		if err != nil {
			return err
		}
		p.MinFilter, p.MagFilter = minF, magF
	case "repeat":
		p.UWrap, p.VWrap = spine.WrapClampToEdge, spine.WrapClampToEdge
		if strings.Contains(value, "x") {
			p.UWrap = spine.WrapRepeat
		}
		if strings.Contains(value, "y") {
			p.VWrap = spine.WrapRepeat
		}
	case "pma":
		p.PremultipliedAlpha = value == "true"
	}
	return nil
}

func applyRegionEntry(r *Region, key, value string) error {
	var err error
	var v []int
	switch key {
	case "xy":
		if v, err = ints(value, 2); err == nil {
			r.X, r.Y = v[0], v[1]
		}
	case "size":
		if v, err = ints(value, 2); err == nil {
			r.Width, r.Height = v[0], v[1]
		}
	case "bounds":
		if v, err = ints(value, 4); err == nil {
			r.X, r.Y, r.Width, r.Height = v[0], v[1], v[2], v[3]
		}
	case "orig":
		if v, err = ints(value, 2); err == nil {
			r.OriginalWidth, r.OriginalHeight = v[0], v[1]
		}
	case "offset":
		if v, err = ints(value, 2); err == nil {
			r.OffsetX, r.OffsetY = v[0], v[1]
		}
	case "offsets":
		if v, err = ints(value, 4); err == nil {
			r.OffsetX, r.OffsetY, r.OriginalWidth, r.OriginalHeight = v[0], v[1], v[2], v[3]
		}
	case "rotate":
		switch value {
		case "true":
			r.Degrees = 90
		case "false":
			r.Degrees = 0
		default:
			r.Degrees, err = strconv.Atoi(value)
		}
	case "index":
		r.Index, err = strconv.Atoi(value)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}

func finishRegion(r *Region, p Page) {
	if r.OriginalWidth == 0 && r.OriginalHeight == 0 {
		r.OriginalWidth, r.OriginalHeight = r.Width, r.Height
	}
	if p.Width == 0 || p.Height == 0 {
		return
	}
	w, h := float32(p.Width), float32(p.Height)
	r.U = float32(r.X) / w
	r.V = float32(r.Y) / h
	if r.Rotated() {
		r.U2 = float32(r.X+r.Height) / w
		r.V2 = float32(r.Y+r.Width) / h
	} else {
		r.U2 = float32(r.X+r.Width) / w
		r.V2 = float32(r.Y+r.Height) / h
	}
}
