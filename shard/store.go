package shard

// Store holds the slots of one shard. Callers hold the shard lock.
type Store interface {
	Get(string) (*Slot, bool)
	Put(string, *Slot)
	Delete(string)
	Size() int

	// Range calls fn for every slot until fn returns false.
	Range(fn func(k string, s *Slot) bool)
}

// mapStore is a plain map. Slots are mutated under the shard lock on
// every fetch and subscription change, so there are no lock-free reads to
// protect and a copy-on-write map would only add allocations.
type mapStore struct {
	data map[string]*Slot
}

func NewMapStore() Store {
	return &mapStore{data: make(map[string]*Slot)}
}

func (s *mapStore) Get(k string) (*Slot, bool) {
	slot, ok := s.data[k]
	return slot, ok
}

func (s *mapStore) Put(k string, slot *Slot) { s.data[k] = slot }

func (s *mapStore) Delete(k string) { delete(s.data, k) }

func (s *mapStore) Size() int { return len(s.data) }

func (s *mapStore) Range(fn func(k string, s *Slot) bool) {
	for k, slot := range s.data {
		if !fn(k, slot) {
			return
		}
	}
}
