// Package views expands explorer dimensions into the cross-product of concrete views.
package views

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/owid/owid-grapher-sub039/internal/explorer"
	"github.com/owid/owid-grapher-sub039/internal/slug"
)

// IDSeparator joins the choice slugs of a view id.
const IDSeparator = "__"

// ErrUnknownViewID is returned for a view id that no combination of choices produces.
var ErrUnknownViewID = errors.New("unknown view id")

// View is one combination of choices across all dimensions.
type View struct {
	ExplorerSlug string
	// Dimensions maps dimension slug to choice slug.
	Dimensions    map[string]string
	ViewID        string
	ChartConfigID string
}

// ViewID derives the id of a combination. Values are ordered by key, slugified and
// joined, so the id does not depend on map order.
func ViewID(dimensions map[string]string) string {
	keys := make([]string, 0, len(dimensions))
	for k := range dimensions {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = slug.Slugify(dimensions[k])
	}
	return strings.ToLower(strings.Join(parts, IDSeparator))
}

// Count returns the number of views Enumerate produces for dims.
func Count(dims []explorer.Dimension) int {
	if len(dims) == 0 {
		return 0
	}
	n := 1
	for _, d := range dims {
		n *= len(d.Choices)
	}
	return n
}

// Enumerate returns every combination of choices. The first dimension varies slowest.
// No dimensions, or a dimension without choices, yields no views.
func Enumerate(explorerSlug string, dims []explorer.Dimension) []View {
	total := Count(dims)
	if total == 0 {
		return nil
	}

	out := make([]View, 0, total)
	idx := make([]int, len(dims))
	for {
		combo := make(map[string]string, len(dims))
		for i, d := range dims {
			combo[d.Slug] = d.Choices[idx[i]].Slug
		}
		out = append(out, View{ExplorerSlug: explorerSlug, Dimensions: combo, ViewID: ViewID(combo)})

		// Advance the odometer from the last dimension.
		i := len(dims) - 1
		for ; i >= 0; i-- {
			idx[i]++
			if idx[i] < len(dims[i].Choices) {
				break
			}
			idx[i] = 0
		}
		if i < 0 {
			return out
		}
	}
}

// Find returns the view with viewID.
func Find(vs []View, viewID string) (View, error) {
	for _, v := range vs {
		if v.ViewID == viewID {
			return v, nil
		}
	}
	return View{}, fmt.Errorf("%w: %q", ErrUnknownViewID, viewID)
}
