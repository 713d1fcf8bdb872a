package session

import (
	"strings"
	"sync"
)

// Cache 会话级响应缓存（单用户模式优化）。
// 只缓存只读命令的输出；任何配置类命令执行前都会触发整个会话的
// 失效（配置变更的副作用难以枚举，按会话粗粒度失效）。
// 条目没有独立过期时间，随会话销毁一起丢弃。
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*CommandResult
}

// NewCache 创建空缓存
func NewCache() *Cache {
	return &Cache{entries: make(map[string]*CommandResult)}
}

// normalizeCommand 规整命令文本作为缓存键（压缩空白）
func normalizeCommand(cmd string) string {
	return strings.Join(strings.Fields(cmd), " ")
}

// Get 查询缓存，返回结果副本
func (c *Cache) Get(cmd string) (*CommandResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.entries[normalizeCommand(cmd)]
	if !ok {
		return nil, false
	}
	cp := *r
	return &cp, true
}

// Put 写入缓存。失败结果不缓存。
func (c *Cache) Put(cmd string, result *CommandResult) {
	if result == nil || result.Failed {
		return
	}
	cp := *result
	c.mu.Lock()
	c.entries[normalizeCommand(cmd)] = &cp
	c.mu.Unlock()
}

// Invalidate 清空整个会话的缓存
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.entries = make(map[string]*CommandResult)
	c.mu.Unlock()
}

// Len 当前条目数
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
