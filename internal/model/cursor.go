package model

// CursorID is the store id of the index stage cursor.
const CursorID = "index"

// Cursor is the position of the last event applied to the entity store.
type Cursor struct {
	BlockNumber uint64 `json:"block_number"`
	LogIndex    uint64 `json:"log_index"`
}

// Covers reports whether the event at (block, logIndex) was already applied.
func (c Cursor) Covers(block, logIndex uint64) bool {
	if block != c.BlockNumber {
		return block < c.BlockNumber
	}
	return logIndex <= c.LogIndex
}
