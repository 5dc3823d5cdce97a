package domain

// ChangeEntry identifies one searchable record touched by a transaction.
// Fields holds the indexed field values frozen at capture time; it is nil
// for deletions.
type ChangeEntry struct {
	Collection string
	ID         int64
	Fields     map[string]string
}

// ChangeSet is the snapshot of searchable records created, updated, and
// deleted within a single transaction. It is captured immediately before
// the transaction commits and consumed once immediately after; it never
// outlives that commit cycle.
type ChangeSet struct {
	Created []ChangeEntry
	Updated []ChangeEntry
	Deleted []ChangeEntry
}

// Empty reports whether the set holds no entries.
func (c *ChangeSet) Empty() bool {
	return c == nil || len(c.Created)+len(c.Updated)+len(c.Deleted) == 0
}
