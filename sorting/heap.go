package sorting

import (
	etl "github.com/go-sif/etl"
)

// heapItem is the current Row of one bucket cursor within a merge chunk
type heapItem struct {
	row      etl.Row
	position int // index of the source bucket within the chunk
}

// rowHeap is a min-heap of bucket heads. Rows which compare equal are
// ordered by the position of their bucket, so that merging stays stable.
type rowHeap struct {
	items []heapItem
	keys  etl.SortKeySet
}

func (h *rowHeap) Len() int { return len(h.items) }

func (h *rowHeap) Less(i, j int) bool {
	if c := h.keys.Compare(h.items[i].row, h.items[j].row); c != 0 {
		return c < 0
	}
	return h.items[i].position < h.items[j].position
}

func (h *rowHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *rowHeap) Push(x interface{}) {
	h.items = append(h.items, x.(heapItem))
}

func (h *rowHeap) Pop() interface{} {
	old := h.items
	n := len(old)
	item := old[n-1]
	old[n-1] = heapItem{}
	h.items = old[:n-1]
	return item
}
