package position

import "sync"

// Book 维护活跃持仓集合（symbol 唯一键）。
// 写入只来自生命周期管理器；读锁用于状态接口并发读取。
type Book struct {
	mu       sync.RWMutex
	bySymbol map[string]*Position
}

func NewBook() *Book {
	return &Book{bySymbol: make(map[string]*Position)}
}

func (b *Book) Get(symbol string) (*Position, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.bySymbol[symbol]
	return p, ok
}

func (b *Book) Has(symbol string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.bySymbol[symbol]
	return ok
}

// Put 放入持仓。同 symbol 已存在时返回 false（一仓一标的约束）。
func (b *Book) Put(p *Position) bool {
	if p == nil || p.Symbol == "" {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.bySymbol[p.Symbol]; exists {
		return false
	}
	b.bySymbol[p.Symbol] = p
	return true
}

func (b *Book) Remove(symbol string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.bySymbol, symbol)
}

func (b *Book) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.bySymbol)
}

// List 返回当前持仓的浅拷贝切片（遍历用，元素指针仍指向原聚合）。
func (b *Book) List() []*Position {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*Position, 0, len(b.bySymbol))
	for _, p := range b.bySymbol {
		out = append(out, p)
	}
	return out
}
