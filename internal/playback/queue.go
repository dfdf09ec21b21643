package playback

import "slices"

// Queue is the list being played through and the offset of the current entry.
type Queue struct {
	URIs   []string
	Offset int
}

// NewQueue builds a queue positioned at offset, clamped into range.
func NewQueue(uris []string, offset int) Queue {
	q := Queue{URIs: slices.Clone(uris)}
	q.Offset = max(0, min(offset, len(q.URIs)-1))
	return q
}

// Next returns the following offset when the queue has room to move forward.
func (q Queue) Next() (int, bool) {
	if len(q.URIs) > 1 && q.Offset < len(q.URIs)-1 {
		return q.Offset + 1, true
	}
	return 0, false
}

// Prev returns the preceding offset when the queue has room to move back.
func (q Queue) Prev() (int, bool) {
	if len(q.URIs) > 1 && q.Offset > 0 {
		return q.Offset - 1, true
	}
	return 0, false
}

// Sync moves the offset to uri when the device reports a track from the queue.
func (q *Queue) Sync(uri string) {
	if i := slices.Index(q.URIs, uri); i >= 0 {
		q.Offset = i
	}
}

// Current returns the URI at the offset.
func (q Queue) Current() string {
	if q.Offset < 0 || q.Offset >= len(q.URIs) {
		return ""
	}
	return q.URIs[q.Offset]
}

func (q Queue) clone() Queue {
	return Queue{URIs: slices.Clone(q.URIs), Offset: q.Offset}
}
