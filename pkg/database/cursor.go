package database

// Cursor implements LoadNext and PushBack for iterators. The owner supplies
// an advance function that moves its view to the next element and reports
// whether one exists; the cursor keeps the single pending push-back slot.
//
// A pushed back element is re-delivered without calling advance, so the
// owner's view still describes it. Once a child iterator has been derived
// from the current element (MarkDerived), PushBack refuses.
type Cursor struct {
	advance func() bool

	valid   bool
	pending bool
	derived bool
	done    bool
}

func NewCursor(advance func() bool) *Cursor {
	return &Cursor{advance: advance}
}

func (c *Cursor) LoadNext() bool {
	if c.pending {
		c.pending = false
		c.valid = true
		return true
	}
	c.valid = false
	if c.done {
		return false
	}
	if !c.advance() {
		c.done = true
		return false
	}
	c.valid = true
	c.derived = false
	return true
}

func (c *Cursor) PushBack() bool {
	if !c.valid || c.pending || c.derived {
		return false
	}
	c.pending = true
	c.valid = false
	return true
}

// MarkDerived records that an iterator was derived from the current element.
func (c *Cursor) MarkDerived() { c.derived = true }

// Valid reports whether a current element is available.
func (c *Cursor) Valid() bool { return c.valid }

// MustBeValid panics when there is no current element.
func (c *Cursor) MustBeValid() {
	if !c.valid {
		badAccess("iterator has no current element")
	}
}
