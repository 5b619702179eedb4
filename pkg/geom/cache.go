package geom

// Cache owns every collection produced during one top-level evaluation of
// an object. It is cleared wholesale at the start of the next pass; single
// collections are never invalidated on their own.
type Cache struct {
	collections []*Collection
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{}
}

// Register adds c to the cache and increments its reference count.
func (k *Cache) Register(c *Collection) {
	c.refs++
	k.collections = append(k.collections, c)
}

// Len returns the number of registered collections.
func (k *Cache) Len() int {
	return len(k.collections)
}

// Clear drops every registration. Collections whose count reaches zero and
// that nobody retained are freed. It returns the number freed.
func (k *Cache) Clear() int {
	freed := 0
	for _, c := range k.collections {
		if c.refs > 0 {
			c.refs--
		}
		if c.refs == 0 && c.held == 0 && !c.freed {
			c.free()
			freed++
		}
	}
	k.collections = nil
	return freed
}
