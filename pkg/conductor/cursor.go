package conductor

// cursor holds the conversation continuation point. It is owned
// exclusively by the Conductor's own goroutine — spec.md §5 rules out
// cross-task mutation, so no lock guards it.
type cursor struct {
	interactionID string
	set           bool
}

func (c *cursor) Get() (string, bool) { return c.interactionID, c.set }

func (c *cursor) Commit(interactionID string) {
	c.interactionID = interactionID
	c.set = true
}

func (c *cursor) Clear() {
	c.interactionID = ""
	c.set = false
}
