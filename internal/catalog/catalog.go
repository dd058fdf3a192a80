package catalog

import (
	"sync"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/google/btree"
	"go.uber.org/zap"

	"MiniCatalog/internal/money"
)

const btreeDegree = 32

// Catalog keeps records ordered by id and a tag -> ids index over the same
// records. Both structures are guarded by one lock and every exported method
// leaves them consistent: a record lists tag t iff t's id set holds its id,
// and no tag maps to an empty set.
//
// Lookups that miss return zero values (money.Zero, 0) rather than errors.
// Use Contains to tell a missing id from a record priced at 0.00.
type Catalog struct {
	mu    sync.RWMutex
	byID  *btree.BTreeG[*Record]
	byTag map[int64]*roaring64.Bitmap

	log *zap.Logger
}

// New returns an empty catalog logging mutations at debug level to log; a nil
// log discards them.
func New(log *zap.Logger) *Catalog {
	if log == nil {
		log = zap.NewNop()
	}
	return &Catalog{
		byID:  btree.NewG(btreeDegree, byID),
		byTag: map[int64]*roaring64.Bitmap{},
		log:   log,
	}
}

func (c *Catalog) get(id int64) (*Record, bool) {
	return c.byID.Get(&Record{ID: id})
}

func (c *Catalog) link(id int64, tags []int64) {
	for _, t := range tags {
		ids, ok := c.byTag[t]
		if !ok {
			ids = roaring64.New()
			c.byTag[t] = ids
		}
		ids.Add(idKey(id))
	}
}

func (c *Catalog) unlink(id int64, tags []int64) {
	for _, t := range tags {
		c.unlinkOne(id, t)
	}
}

func (c *Catalog) unlinkOne(id, tag int64) {
	ids, ok := c.byTag[tag]
	if !ok {
		return
	}
	ids.Remove(idKey(id))
	if ids.IsEmpty() {
		delete(c.byTag, tag)
	}
}

// Insert adds a record or updates an existing one. For an existing id an
// empty tag list replaces only the price. It reports whether the id was new.
func (c *Catalog) Insert(id int64, price money.Money, tags []int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.get(id)
	if !ok {
		rec = &Record{ID: id, Tags: normalizeTags(tags), Price: price}
		c.byID.ReplaceOrInsert(rec)
		c.link(id, rec.Tags)
		c.log.Debug("record inserted", zap.Int64("id", id), zap.Int64s("tags", rec.Tags), zap.Stringer("price", price))
		return true
	}

	rec.Price = price
	if len(tags) > 0 {
		c.unlink(id, rec.Tags)
		rec.Tags = normalizeTags(tags)
		c.link(id, rec.Tags)
	}
	c.log.Debug("record replaced", zap.Int64("id", id), zap.Int64s("tags", rec.Tags), zap.Stringer("price", price))
	return false
}

// Find returns the price of id, or money.Zero when id is unknown.
func (c *Catalog) Find(id int64) money.Money {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if rec, ok := c.get(id); ok {
		return rec.Price
	}
	return money.Zero
}

// Contains reports whether id is stored, including records priced at 0.00
// that Find and Delete treat as absent.
func (c *Catalog) Contains(id int64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, ok := c.get(id)
	return ok
}

// Record returns a copy of the record stored under id.
func (c *Catalog) Record(id int64) (Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rec, ok := c.get(id)
	if !ok {
		return Record{}, false
	}
	return rec.clone(), true
}

// Tags returns the sorted tag set of id, nil when id is unknown.
func (c *Catalog) Tags(id int64) []int64 {
	rec, ok := c.Record(id)
	if !ok {
		return nil
	}
	return rec.Tags
}

// Delete removes id and returns the sum of its tags. A record priced at 0.00
// is indistinguishable from a missing one here and is left in place.
func (c *Catalog) Delete(id int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.get(id)
	if !ok || rec.Price.IsZero() {
		return 0
	}

	var sum int64
	for _, t := range rec.Tags {
		sum += t
	}
	c.unlink(id, rec.Tags)
	c.byID.Delete(rec)

	c.log.Debug("record deleted", zap.Int64("id", id), zap.Int64("tag_sum", sum))
	return sum
}

// FindMinPrice returns the lowest price among records carrying tag, or
// money.Zero when tag is unknown.
func (c *Catalog) FindMinPrice(tag int64) money.Money {
	return c.extremePrice(tag, money.Money.Less)
}

// FindMaxPrice returns the highest price among records carrying tag, or
// money.Zero when tag is unknown.
func (c *Catalog) FindMaxPrice(tag int64) money.Money {
	return c.extremePrice(tag, func(a, b money.Money) bool { return b.Less(a) })
}

// extremePrice returns the price under tag that no other price beats.
func (c *Catalog) extremePrice(tag int64, better func(a, b money.Money) bool) money.Money {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids, ok := c.byTag[tag]
	if !ok {
		return money.Zero
	}

	var (
		best  money.Money
		found bool
	)
	it := ids.Iterator()
	for it.HasNext() {
		rec, ok := c.get(keyID(it.Next()))
		if !ok {
			continue
		}
		if !found || better(rec.Price, best) {
			best = rec.Price
			found = true
		}
	}
	return best
}

// FindPriceRange counts records tagged with tag whose price is in [low, high].
func (c *Catalog) FindPriceRange(tag int64, low, high money.Money) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids, ok := c.byTag[tag]
	if !ok {
		return 0
	}

	n := 0
	it := ids.Iterator()
	for it.HasNext() {
		rec, ok := c.get(keyID(it.Next()))
		if !ok {
			continue
		}
		if low.Cmp(rec.Price) <= 0 && rec.Price.Cmp(high) <= 0 {
			n++
		}
	}
	return n
}

// PriceHike raises by ratePercent the price of every record with id in
// [low, high], dropping fractional cents, and returns the summed increase.
// Prices and the total saturate at ±money.MaxCents.
func (c *Catalog) PriceHike(low, high int64, ratePercent float64) money.Money {
	if low > high {
		return money.Zero
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	total := money.Zero
	n := 0
	c.byID.AscendGreaterOrEqual(&Record{ID: low}, func(rec *Record) bool {
		if rec.ID > high {
			return false
		}
		inc := rec.Price.Increase(ratePercent)
		rec.Price = rec.Price.Add(inc)
		total = total.Add(inc)
		n++
		return true
	})

	c.log.Debug("price hike",
		zap.Int64("low", low),
		zap.Int64("high", high),
		zap.Float64("rate", ratePercent),
		zap.Int("records", n),
		zap.Stringer("increase", total),
	)
	return total
}

// RemoveTags drops the listed tags from id and returns the sum of the tags
// that were actually present. Unknown tags are ignored.
func (c *Catalog) RemoveTags(id int64, tags []int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.get(id)
	if !ok {
		return 0
	}

	var sum int64
	for _, t := range tags {
		if !rec.dropTag(t) {
			continue
		}
		sum += t
		c.unlinkOne(id, t)
	}

	c.log.Debug("tags removed", zap.Int64("id", id), zap.Int64("tag_sum", sum))
	return sum
}

// Len is the number of records.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.byID.Len()
}

// TagLen is the number of distinct tags in use.
func (c *Catalog) TagLen() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byTag)
}

// Ascend calls fn with a copy of every record in id order until fn returns
// false. fn must not call back into the catalog.
func (c *Catalog) Ascend(fn func(Record) bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	c.byID.Ascend(func(rec *Record) bool {
		return fn(rec.clone())
	})
}

// List returns every record in id order.
func (c *Catalog) List() []Record {
	out := make([]Record, 0, c.Len())
	c.Ascend(func(r Record) bool {
		out = append(out, r)
		return true
	})
	return out
}
