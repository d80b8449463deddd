package facilitator

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mosaicdao/go-mosaic/core"
)

const defaultMonitoredMessages = 256

// Monitor is a bounded in-memory view of recently facilitated messages and
// a running tally per status. It is a diagnostic surface, not a source of
// truth: on-chain status always wins.
type Monitor struct {
	statuses map[common.Hash]core.MessageStatus
	order    []common.Hash
	limit    int
	tally    map[core.MessageStatus]uint64
	lock     sync.RWMutex
}

func NewMonitor() *Monitor {
	return &Monitor{
		statuses: make(map[common.Hash]core.MessageStatus),
		limit:    defaultMonitoredMessages,
		tally:    make(map[core.MessageStatus]uint64),
	}
}

// Track records the latest observed status of a message, evicting the oldest
// entry once the limit is reached.
func (m *Monitor) Track(messageHash common.Hash, status core.MessageStatus) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if _, known := m.statuses[messageHash]; !known {
		m.order = append(m.order, messageHash)
		for len(m.order) > m.limit {
			delete(m.statuses, m.order[0])
			m.order = m.order[1:]
		}
	}
	m.statuses[messageHash] = status
	m.tally[status]++
}

// Status returns the last tracked status of a message.
func (m *Monitor) Status(messageHash common.Hash) (core.MessageStatus, bool) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	status, ok := m.statuses[messageHash]
	return status, ok
}

// Tally returns a copy of the per-status transition counts.
func (m *Monitor) Tally() map[core.MessageStatus]uint64 {
	m.lock.RLock()
	defer m.lock.RUnlock()
	out := make(map[core.MessageStatus]uint64, len(m.tally))
	for status, count := range m.tally {
		out[status] = count
	}
	return out
}

// Len reports how many messages are currently tracked.
func (m *Monitor) Len() int {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return len(m.statuses)
}
