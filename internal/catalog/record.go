package catalog

import (
	"slices"

	"MiniCatalog/internal/money"
)

type Record struct {
	ID    int64       `json:"id"`
	Tags  []int64     `json:"tags"`
	Price money.Money `json:"price"`
}

func (r *Record) hasTag(tag int64) bool {
	_, ok := slices.BinarySearch(r.Tags, tag)
	return ok
}

func (r *Record) dropTag(tag int64) bool {
	i, ok := slices.BinarySearch(r.Tags, tag)
	if !ok {
		return false
	}
	r.Tags = slices.Delete(r.Tags, i, i+1)
	return true
}

func (r *Record) clone() Record {
	return Record{ID: r.ID, Tags: append([]int64{}, r.Tags...), Price: r.Price}
}

func byID(a, b *Record) bool { return a.ID < b.ID }

// normalizeTags returns a sorted copy of tags without duplicates.
func normalizeTags(tags []int64) []int64 {
	out := append([]int64{}, tags...)
	slices.Sort(out)
	return slices.Compact(out)
}

// Bitmaps order keys as unsigned; flipping the sign bit keeps id order.
func idKey(id int64) uint64 { return uint64(id) ^ (1 << 63) }

func keyID(k uint64) int64 { return int64(k ^ (1 << 63)) }
