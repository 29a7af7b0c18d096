package state

import "sync"

// Drafts holds unsent comment text per topic.
type Drafts struct {
	mu      sync.Mutex
	byTopic map[string]string
}

// NewDrafts creates an empty draft buffer.
func NewDrafts() *Drafts {
	return &Drafts{byTopic: make(map[string]string)}
}

// Get returns the draft for topicID.
func (d *Drafts) Get(topicID string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.byTopic[topicID]
}

// Set replaces the draft for topicID.
func (d *Drafts) Set(topicID, content string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if content == "" {
		delete(d.byTopic, topicID)
		return
	}
	d.byTopic[topicID] = content
}

// Clear drops the draft for topicID.
func (d *Drafts) Clear(topicID string) {
	d.Set(topicID, "")
}
