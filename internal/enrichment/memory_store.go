package enrichment

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory implementation of Store for demo mode and tests.
type MemoryStore struct {
	mu           sync.RWMutex
	transactions map[string]*Transaction
	users        map[string]*UserProfile
	ipIntel      map[string]*IPIntel
	kyc          map[string][]*KYCStatus
	disputes     map[string]*DisputeSummary
	chargebacks  map[string]*Chargeback
}

// NewMemoryStore creates a new in-memory enrichment store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		transactions: make(map[string]*Transaction),
		users:        make(map[string]*UserProfile),
		ipIntel:      make(map[string]*IPIntel),
		kyc:          make(map[string][]*KYCStatus),
		disputes:     make(map[string]*DisputeSummary),
		chargebacks:  make(map[string]*Chargeback),
	}
}

// Compile-time interface check
var _ Store = (*MemoryStore)(nil)

func (m *MemoryStore) GetTransaction(ctx context.Context, transID string) (*Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.transactions[transID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *MemoryStore) GetUser(ctx context.Context, userID string) (*UserProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryStore) GetUserHistory(ctx context.Context, userID string) (*UserHistory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := time.Now()
	hist := &UserHistory{UserID: userID}
	for _, t := range m.transactions {
		if t.UserID != userID {
			continue
		}
		if now.Sub(t.Timestamp) <= time.Hour {
			hist.Velocity.TxnCount1h++
		}
		if now.Sub(t.Timestamp) <= 24*time.Hour {
			hist.Velocity.TxnCount24h++
		}
		hist.LastTransactions = append(hist.LastTransactions, *t)
	}

	// Most recent first, capped at 20 like the relational query.
	sort.Slice(hist.LastTransactions, func(i, j int) bool {
		return hist.LastTransactions[i].Timestamp.After(hist.LastTransactions[j].Timestamp)
	})
	if len(hist.LastTransactions) > 20 {
		hist.LastTransactions = hist.LastTransactions[:20]
	}
	return hist, nil
}

func (m *MemoryStore) GetIPIntel(ctx context.Context, ip string) (*IPIntel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i, ok := m.ipIntel[ip]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *i
	return &cp, nil
}

func (m *MemoryStore) GetLatestKYC(ctx context.Context, userID string) (*KYCStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := m.kyc[userID]
	if len(events) == 0 {
		return nil, ErrNotFound
	}
	latest := events[0]
	for _, e := range events[1:] {
		if e.EventTime.After(latest.EventTime) {
			latest = e
		}
	}
	cp := *latest
	return &cp, nil
}

func (m *MemoryStore) GetDisputes(ctx context.Context, userID string) (*DisputeSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.disputes[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *MemoryStore) TransactionVolume(ctx context.Context, since time.Time) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var total float64
	for _, t := range m.transactions {
		if !t.Timestamp.Before(since) {
			total += t.Amount
		}
	}
	return total, nil
}

func (m *MemoryStore) ChargebackTotal(ctx context.Context) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var total float64
	for _, c := range m.chargebacks {
		if c.ChargebackDate != nil {
			total += c.Amount
		}
	}
	return total, nil
}

func (m *MemoryStore) PutTransaction(ctx context.Context, t *Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *t
	if cp.Timestamp.IsZero() {
		cp.Timestamp = time.Now()
	}
	m.transactions[cp.TransID] = &cp
	return nil
}

func (m *MemoryStore) PutUser(ctx context.Context, u *UserProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *u
	m.users[cp.UserID] = &cp
	return nil
}

func (m *MemoryStore) PutIPIntel(ctx context.Context, i *IPIntel) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *i
	m.ipIntel[cp.IPAddress] = &cp
	return nil
}

func (m *MemoryStore) PutKYC(ctx context.Context, k *KYCStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *k
	if cp.EventTime.IsZero() {
		cp.EventTime = time.Now()
	}
	m.kyc[cp.UserID] = append(m.kyc[cp.UserID], &cp)
	return nil
}

func (m *MemoryStore) PutDisputes(ctx context.Context, d *DisputeSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *d
	m.disputes[cp.UserID] = &cp
	return nil
}

func (m *MemoryStore) PutChargeback(ctx context.Context, c *Chargeback) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *c
	m.chargebacks[cp.TransID] = &cp
	return nil
}
