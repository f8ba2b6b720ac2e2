package stream

import "sync"

// connTable enforces the per-IP and service-wide concurrent stream caps.
type connTable struct {
	mu    sync.Mutex
	perIP map[string]int
	total int

	limitPerIP int
	limitTotal int
}

func newConnTable(limitPerIP, limitTotal int) *connTable {
	return &connTable{
		perIP:      make(map[string]int),
		limitPerIP: limitPerIP,
		limitTotal: limitTotal,
	}
}

// add registers a connection for ip; false when either cap is reached.
func (t *connTable) add(ip string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.total >= t.limitTotal || t.perIP[ip] >= t.limitPerIP {
		return false
	}
	t.perIP[ip]++
	t.total++
	return true
}

func (t *connTable) remove(ip string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.total--
	if t.perIP[ip] <= 1 {
		delete(t.perIP, ip)
		return
	}
	t.perIP[ip]--
}

// active reports the open connections for ip.
func (t *connTable) active(ip string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.perIP[ip]
}
