package interval

// Mapping is one row of a remap table. A nil Destination marks the source
// range as deliberately unmapped.
type Mapping struct {
	Source      Interval
	Destination *Interval
}

// Remap finds the first mapping whose source contains iv and translates iv
// into destination numbering by offset from the source start. matched is
// false when no row covers iv; a nil result with matched true means the row
// exists but is unmapped. Destinations shorter than their source are clamped
// to the destination's upper bound.
func Remap(iv Interval, table []Mapping) (result *Interval, matched bool) {
	for _, row := range table {
		if !row.Source.Contains(iv) {
			continue
		}
		if row.Destination == nil {
			return nil, true
		}
		dst := *row.Destination
		out := Interval{
			Lo: dst.Lo + (iv.Lo - row.Source.Lo),
			Hi: dst.Lo + (iv.Hi - row.Source.Lo),
		}
		if !dst.IsOpen() && out.Hi > dst.Hi {
			out.Hi = dst.Hi
		}
		if out.Lo > out.Hi {
			out.Lo = out.Hi
		}
		return &out, true
	}
	return nil, false
}
