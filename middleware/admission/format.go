// Small formatting helpers, kept dependency-free on purpose: headers
// and diagnostic bodies only ever need a handful of integers/floats
// rendered, so pulling in fmt's general-purpose formatting would be
// more than this needs.

package admission

import "strconv"

func formatInt(v int) string { return strconv.Itoa(v) }

func formatPercent(v int) string { return strconv.Itoa(v) + "%" }
