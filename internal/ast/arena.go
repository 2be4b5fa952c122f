package ast

// ============================================================================
// Arena 节点分配器
// ============================================================================
//
// Arena 负责分配并登记一次解析产生的全部节点：
// - 每个节点得到一个递增的 NodeID，可以用 Node(id) 取回
// - 高频节点（Name、Constant、BinOp 等）从按类型分块的 slab 中分配，
//   减少小对象分配次数；slab 是普通的 Go 切片，对 GC 透明
// - 解析结果被丢弃时整个 Arena 一起释放
//
// 解析器的 IfStack/TryStack 只保存 NodeID，需要修改链上的节点时通过
// If(id)/Try(id) 取回，这样“节点已挂到父节点又仍在被修改”的窗口只存在于
// 解析器持有补丁点的期间。
//
// ============================================================================

// 每个 slab 块的元素数量
const slabSize = 64

// slab 按类型分块分配
type slab[T any] struct {
	buf []T
}

func (s *slab[T]) alloc() *T {
	if len(s.buf) == cap(s.buf) {
		s.buf = make([]T, 0, slabSize)
	}
	var zero T
	s.buf = append(s.buf, zero)
	return &s.buf[len(s.buf)-1]
}

// Arena 节点分配器，不可并发使用
type Arena struct {
	nodes []Node

	names     slab[Name]
	constants slab[Constant]
	binops    slab[BinOp]
	calls     slab[Call]
	attrs     slab[Attribute]
	exprStmts slab[ExprStmt]
	assigns   slab[Assign]

	stats ArenaStats
}

// ArenaStats 分配统计
type ArenaStats struct {
	Mods    int // mod 节点数
	Stmts   int // 语句节点数
	Exprs   int // 表达式节点数
	Support int // 辅助记录数（arg/alias/excepthandler/keyword）
}

// Total 节点总数
func (s ArenaStats) Total() int {
	return s.Mods + s.Stmts + s.Exprs + s.Support
}

// NewArena 创建一个新的 Arena
func NewArena() *Arena {
	return &Arena{nodes: make([]Node, 0, 256)}
}

// register 为节点分配编号并登记
func (a *Arena) register(n interface {
	Node
	init(NodeID, Position)
}, pos Position) {
	n.init(NodeID(len(a.nodes)), pos)
	a.nodes = append(a.nodes, n)

	switch n.(type) {
	case Mod:
		a.stats.Mods++
	case Stmt:
		a.stats.Stmts++
	case Expr:
		a.stats.Exprs++
	default:
		a.stats.Support++
	}
}

// Node 按编号取回节点，编号无效时返回 nil
func (a *Arena) Node(id NodeID) Node {
	if id < 0 || int(id) >= len(a.nodes) {
		return nil
	}
	return a.nodes[id]
}

// If 取回编号对应的 If 节点，类型不符时返回 nil
func (a *Arena) If(id NodeID) *If {
	n, _ := a.Node(id).(*If)
	return n
}

// Try 取回编号对应的 Try 节点，类型不符时返回 nil
func (a *Arena) Try(id NodeID) *Try {
	n, _ := a.Node(id).(*Try)
	return n
}

// Len 已分配节点数
func (a *Arena) Len() int {
	return len(a.nodes)
}

// Stats 获取分配统计
func (a *Arena) Stats() ArenaStats {
	return a.stats
}

// Reset 丢弃所有节点，之后分配的编号从 0 开始
func (a *Arena) Reset() {
	for i := range a.nodes {
		a.nodes[i] = nil
	}
	a.nodes = a.nodes[:0]
	a.names = slab[Name]{}
	a.constants = slab[Constant]{}
	a.binops = slab[BinOp]{}
	a.calls = slab[Call]{}
	a.attrs = slab[Attribute]{}
	a.exprStmts = slab[ExprStmt]{}
	a.assigns = slab[Assign]{}
	a.stats = ArenaStats{}
}
