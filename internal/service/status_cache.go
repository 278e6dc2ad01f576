package service

import (
	"container/list"
	"sync"

	"github.com/JohanDevl/Exams-Viewer/internal/metrics"
)

// StatusCacheSize bounds the number of cached question statuses.
const StatusCacheSize = 200

// StatusKey identifies one question of one exam.
type StatusKey struct {
	ExamCode       string
	QuestionNumber int
}

// StatusCache holds computed question statuses. When full, the oldest
// entry is evicted first.
type StatusCache struct {
	mu      sync.Mutex
	limit   int
	order   *list.List
	entries map[StatusKey]*list.Element
}

type cacheEntry struct {
	key    StatusKey
	status QuestionStatus
}

func NewStatusCache(limit int) *StatusCache {
	if limit <= 0 {
		limit = StatusCacheSize
	}
	return &StatusCache{
		limit:   limit,
		order:   list.New(),
		entries: make(map[StatusKey]*list.Element),
	}
}

func (c *StatusCache) Get(key StatusKey) (QuestionStatus, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		metrics.StatusCacheLookups.WithLabelValues("miss").Inc()
		return QuestionStatus{}, false
	}
	metrics.StatusCacheLookups.WithLabelValues("hit").Inc()
	return el.Value.(*cacheEntry).status, true
}

func (c *StatusCache) Put(key StatusKey, status QuestionStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value.(*cacheEntry).status = status
		return
	}
	if c.order.Len() >= c.limit {
		oldest := c.order.Front()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
	c.entries[key] = c.order.PushBack(&cacheEntry{key: key, status: status})
}

// Invalidate drops the status of one question.
func (c *StatusCache) Invalidate(key StatusKey) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.order.Remove(el)
		delete(c.entries, key)
	}
}

// InvalidateExam drops every status of an exam.
func (c *StatusCache) InvalidateExam(examCode string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, el := range c.entries {
		if key.ExamCode == examCode {
			c.order.Remove(el)
			delete(c.entries, key)
		}
	}
}

func (c *StatusCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order.Init()
	clear(c.entries)
}

func (c *StatusCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
