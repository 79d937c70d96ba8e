package storage

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepository keeps accounts and the journal in process memory.
type MemoryRepository struct {
	mu         sync.RWMutex
	accounts   map[string]*AccountModel
	operations []*OperationModel
	byID       map[string]*OperationModel

	accountRepo   *memoryAccountRepository
	operationRepo *memoryOperationRepository
}

func NewMemoryRepository() *MemoryRepository {
	r := &MemoryRepository{
		accounts: make(map[string]*AccountModel),
		byID:     make(map[string]*OperationModel),
	}
	r.accountRepo = &memoryAccountRepository{r}
	r.operationRepo = &memoryOperationRepository{r}
	return r
}

func (r *MemoryRepository) Accounts() AccountRepository {
	return r.accountRepo
}

func (r *MemoryRepository) Operations() OperationRepository {
	return r.operationRepo
}

func (r *MemoryRepository) Close() error {
	return nil
}

func (r *MemoryRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}

type memoryAccountRepository struct {
	r *MemoryRepository
}

func (m *memoryAccountRepository) Save(ctx context.Context, account *AccountModel) error {
	return m.SaveBatch(ctx, []*AccountModel{account})
}

func (m *memoryAccountRepository) SaveBatch(_ context.Context, accounts []*AccountModel) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	for _, account := range accounts {
		cp := *account
		cp.Data = append([]byte(nil), account.Data...)
		if prev, ok := m.r.accounts[account.Pubkey]; ok {
			cp.CreatedAt = prev.CreatedAt
		}
		m.r.accounts[account.Pubkey] = &cp
	}
	return nil
}

func (m *memoryAccountRepository) FindByPubkey(_ context.Context, pubkey string) (*AccountModel, error) {
	m.r.mu.RLock()
	defer m.r.mu.RUnlock()
	account, ok := m.r.accounts[pubkey]
	if !ok {
		return nil, nil
	}
	cp := *account
	return &cp, nil
}

func (m *memoryAccountRepository) FindByOwner(_ context.Context, owner string, limit int, offset int) ([]*AccountModel, error) {
	m.r.mu.RLock()
	defer m.r.mu.RUnlock()
	var matched []*AccountModel
	for _, account := range m.r.accounts {
		if account.Owner == owner {
			cp := *account
			matched = append(matched, &cp)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Pubkey < matched[j].Pubkey })
	return page(matched, limit, offset), nil
}

func (m *memoryAccountRepository) FindAll(_ context.Context) ([]*AccountModel, error) {
	m.r.mu.RLock()
	defer m.r.mu.RUnlock()
	all := make([]*AccountModel, 0, len(m.r.accounts))
	for _, account := range m.r.accounts {
		cp := *account
		all = append(all, &cp)
	}
	return all, nil
}

func (m *memoryAccountRepository) Delete(_ context.Context, pubkey string) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	delete(m.r.accounts, pubkey)
	return nil
}

type memoryOperationRepository struct {
	r *MemoryRepository
}

func (m *memoryOperationRepository) Save(_ context.Context, op *OperationModel) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	cp := *op
	m.r.operations = append(m.r.operations, &cp)
	m.r.byID[op.ID] = &cp
	return nil
}

func (m *memoryOperationRepository) FindByID(_ context.Context, id string) (*OperationModel, error) {
	m.r.mu.RLock()
	defer m.r.mu.RUnlock()
	op, ok := m.r.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *op
	return &cp, nil
}

func (m *memoryOperationRepository) FindByPool(_ context.Context, pool string, limit int, offset int) ([]*OperationModel, error) {
	m.r.mu.RLock()
	defer m.r.mu.RUnlock()
	var matched []*OperationModel
	for i := len(m.r.operations) - 1; i >= 0; i-- {
		if op := m.r.operations[i]; op.Pool == pool {
			cp := *op
			matched = append(matched, &cp)
		}
	}
	return page(matched, limit, offset), nil
}

func (m *memoryOperationRepository) FindRecent(_ context.Context, limit int) ([]*OperationModel, error) {
	m.r.mu.RLock()
	defer m.r.mu.RUnlock()
	recent := make([]*OperationModel, 0, len(m.r.operations))
	for i := len(m.r.operations) - 1; i >= 0; i-- {
		cp := *m.r.operations[i]
		recent = append(recent, &cp)
	}
	return page(recent, limit, 0), nil
}

// page applies limit and offset; a non-positive limit returns everything after offset.
func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
