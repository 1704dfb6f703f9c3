package runtime

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Dict is an insertion-ordered mapping with unique keys. Reads take a
// shared borrow and writes an exclusive one; a conflicting borrow fails
// with ErrAlreadyInUse rather than blocking.
type Dict struct {
	mu      sync.RWMutex
	entries []dictEntry
	index   map[uint64][]int
	live    atomic.Int64
}

type dictEntry struct {
	key     Value
	value   Value
	hash    uint64
	deleted bool
}

// Item is one key/value pair of a Dict snapshot.
type Item struct {
	Key   Value
	Value Value
}

func NewDict() *Dict {
	return &Dict{index: make(map[uint64][]int)}
}

// DictFromPairs builds a dict from ordered pairs; later keys overwrite
// earlier ones in place.
func DictFromPairs(pairs []Item) (*Dict, error) {
	d := NewDict()
	for _, p := range pairs {
		if err := d.Set(p.Key, p.Value); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// DictFrom implements the dict constructor: src may be another Dict or an
// iterable of two-element iterables, and keyword arguments are applied
// last.
func DictFrom(src Value, kwargs []KeywordArg) (*Dict, error) {
	d := NewDict()
	switch s := src.(type) {
	case nil:
	case *Dict:
		items, err := s.Items()
		if err != nil {
			return nil, err
		}
		for _, it := range items {
			if err := d.Set(it.Key, it.Value); err != nil {
				return nil, err
			}
		}
	default:
		elems, err := Iterate(src)
		if err != nil {
			return nil, err
		}
		for i, elem := range elems {
			pair, err := Iterate(elem)
			if err != nil {
				return nil, NewException(TypeErrorClass, "cannot convert dictionary update sequence element #%d to a sequence", i)
			}
			if len(pair) != 2 {
				return nil, NewException(ValueErrorClass, "dictionary update sequence element #%d has length %d; 2 is required", i, len(pair))
			}
			if err := d.Set(pair[0], pair[1]); err != nil {
				return nil, err
			}
		}
	}
	for _, kw := range kwargs {
		if err := d.Set(Str(kw.Name), kw.Value); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (*Dict) Class() *Class { return DictClass }

func (d *Dict) borrow() (func(), error) {
	if !d.mu.TryRLock() {
		return nil, ErrAlreadyInUse
	}
	return d.mu.RUnlock, nil
}

func (d *Dict) borrowMut() (func(), error) {
	if !d.mu.TryLock() {
		return nil, ErrAlreadyInUse
	}
	return d.mu.Unlock, nil
}

// Hold takes an exclusive borrow and keeps it until release is called.
// Every other access fails with ErrAlreadyInUse meanwhile.
func (d *Dict) Hold() (release func(), err error) {
	return d.borrowMut()
}

func (d *Dict) find(key Value, h uint64) int {
	for _, i := range d.index[h] {
		if Equal(d.entries[i].key, key) {
			return i
		}
	}
	return -1
}

func (d *Dict) Get(key Value) (Value, bool, error) {
	h, err := Hash(key)
	if err != nil {
		return nil, false, err
	}
	release, err := d.borrow()
	if err != nil {
		return nil, false, err
	}
	defer release()
	if i := d.find(key, h); i >= 0 {
		return d.entries[i].value, true, nil
	}
	return nil, false, nil
}

// Set inserts or overwrites; an overwrite keeps the key's position.
func (d *Dict) Set(key, value Value) error {
	h, err := Hash(key)
	if err != nil {
		return err
	}
	release, err := d.borrowMut()
	if err != nil {
		return err
	}
	defer release()
	if i := d.find(key, h); i >= 0 {
		d.entries[i].value = value
		return nil
	}
	if d.index == nil {
		d.index = make(map[uint64][]int)
	}
	d.index[h] = append(d.index[h], len(d.entries))
	d.entries = append(d.entries, dictEntry{key: key, value: value, hash: h})
	d.live.Add(1)
	return nil
}

// Delete removes key, reporting whether it was present.
func (d *Dict) Delete(key Value) (bool, error) {
	h, err := Hash(key)
	if err != nil {
		return false, err
	}
	release, err := d.borrowMut()
	if err != nil {
		return false, err
	}
	defer release()
	i := d.find(key, h)
	if i < 0 {
		return false, nil
	}
	bucket := d.index[h]
	for j, idx := range bucket {
		if idx == i {
			bucket = append(bucket[:j], bucket[j+1:]...)
			break
		}
	}
	if len(bucket) == 0 {
		delete(d.index, h)
	} else {
		d.index[h] = bucket
	}
	d.entries[i] = dictEntry{deleted: true}
	d.live.Add(-1)
	if len(d.entries) > 8 && int(d.live.Load()) < len(d.entries)/2 {
		d.compact()
	}
	return true, nil
}

func (d *Dict) compact() {
	n := int(d.live.Load())
	entries := make([]dictEntry, 0, n)
	index := make(map[uint64][]int, n)
	for _, e := range d.entries {
		if e.deleted {
			continue
		}
		index[e.hash] = append(index[e.hash], len(entries))
		entries = append(entries, e)
	}
	d.entries = entries
	d.index = index
}

func (d *Dict) Clear() error {
	release, err := d.borrowMut()
	if err != nil {
		return err
	}
	defer release()
	d.entries = nil
	d.index = make(map[uint64][]int)
	d.live.Store(0)
	return nil
}

// Len does not borrow, so it is usable while the dict is held.
func (d *Dict) Len() int {
	return int(d.live.Load())
}

func (d *Dict) Contains(key Value) (bool, error) {
	_, ok, err := d.Get(key)
	return ok, err
}

// Items snapshots the pairs in insertion order. The snapshot is not
// affected by later mutation.
func (d *Dict) Items() ([]Item, error) {
	release, err := d.borrow()
	if err != nil {
		return nil, err
	}
	defer release()
	out := make([]Item, 0, d.live.Load())
	for _, e := range d.entries {
		if !e.deleted {
			out = append(out, Item{Key: e.key, Value: e.value})
		}
	}
	return out, nil
}

func (d *Dict) Keys() ([]Value, error) {
	items, err := d.Items()
	if err != nil {
		return nil, err
	}
	keys := make([]Value, len(items))
	for i, it := range items {
		keys[i] = it.Key
	}
	return keys, nil
}

func (d *Dict) GetStr(name string) (Value, bool, error) {
	return d.Get(Str(name))
}

func (d *Dict) SetStr(name string, value Value) error {
	return d.Set(Str(name), value)
}

// Attributes converts a dict with string keys into name/value pairs, in
// order. Non-string keys are an error.
func (d *Dict) Attributes() ([]KeywordArg, error) {
	items, err := d.Items()
	if err != nil {
		return nil, err
	}
	out := make([]KeywordArg, len(items))
	for i, it := range items {
		name, ok := it.Key.(Str)
		if !ok {
			return nil, fmt.Errorf("runtime: attribute name must be str, not %s", TypeName(it.Key))
		}
		out[i] = KeywordArg{Name: string(name), Value: it.Value}
	}
	return out, nil
}
