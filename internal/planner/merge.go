package planner

import "github.com/RoaringBitmap/roaring"

// Merge combines candidate id sets according to strategy. A nil set means the
// domain did not constrain the result. For the superset strategy remote holds
// the ids whose full tree evaluated true. The inputs are never modified.
func Merge(strategy Strategy, local, remote *roaring.Bitmap) *roaring.Bitmap {
	switch strategy {
	case StrategyLocal:
		return cloneOrEmpty(local)
	case StrategyRemote:
		return cloneOrEmpty(remote)
	}
	switch {
	case local == nil && remote == nil:
		return roaring.New()
	case local == nil:
		return remote.Clone()
	case remote == nil:
		return local.Clone()
	}
	return roaring.And(local, remote)
}

func cloneOrEmpty(b *roaring.Bitmap) *roaring.Bitmap {
	if b == nil {
		return roaring.New()
	}
	return b.Clone()
}

// BitmapOf builds a bitmap from AniList ids, skipping non-positive ids.
func BitmapOf(ids []int) *roaring.Bitmap {
	b := roaring.New()
	for _, id := range ids {
		if id > 0 {
			b.Add(uint32(id))
		}
	}
	return b
}

// IDs returns the members of b in ascending order.
func IDs(b *roaring.Bitmap) []int {
	if b == nil {
		return nil
	}
	out := make([]int, 0, b.GetCardinality())
	it := b.Iterator()
	for it.HasNext() {
		out = append(out, int(it.Next()))
	}
	return out
}
