package connection

import (
	"fmt"
	"sync"
	"time"

	"github.com/charlesren/ylog"
)

// DriverPool 通用驱动池（泛型实现），按 key 懒加载复用
type DriverPool[T any] struct {
	pool   map[string]T
	create func(key string) (T, error)
	mu     sync.Mutex
}

func NewDriverPool[T any](createFn func(key string) (T, error)) *DriverPool[T] {
	return &DriverPool[T]{
		pool:   make(map[string]T),
		create: createFn,
	}
}

func (p *DriverPool[T]) Get(key string) (T, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if conn, ok := p.pool[key]; ok {
		return conn, nil
	}
	conn, err := p.create(key)
	if err != nil {
		return conn, err
	}
	p.pool[key] = conn
	return conn, nil
}

func (p *DriverPool[T]) Remove(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.pool, key)
}

// ConnectionPool 协议驱动连接池。多个独立设备的驱动可完全并行，
// 池只负责按 (protocol, host) 复用驱动实例。
type ConnectionPool struct {
	config      ConnectionConfig
	factories   map[Protocol]ProtocolFactory
	active      map[Protocol]ProtocolDriver
	idleTimeout time.Duration
	lastUsed    map[Protocol]time.Time
	mu          sync.Mutex
}

// NewConnectionPool 创建连接池，注册缺省工厂
func NewConnectionPool(config ConnectionConfig) *ConnectionPool {
	return &ConnectionPool{
		config: config.withDefaults(),
		factories: map[Protocol]ProtocolFactory{
			ProtocolSSH:     &SSHFactory{},
			ProtocolScrapli: &ScrapliFactory{},
		},
		active:      make(map[Protocol]ProtocolDriver),
		lastUsed:    make(map[Protocol]time.Time),
		idleTimeout: 5 * time.Minute,
	}
}

// RegisterFactory 注册自定义工厂
func (p *ConnectionPool) RegisterFactory(protocol Protocol, factory ProtocolFactory) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.factories[protocol] = factory
}

// Get 获取指定协议的驱动（懒加载，空闲超时重建）
func (p *ConnectionPool) Get(protocol Protocol) (ProtocolDriver, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	factory, ok := p.factories[protocol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProtocol, protocol)
	}

	if driver, ok := p.active[protocol]; ok {
		if time.Since(p.lastUsed[protocol]) < p.idleTimeout {
			p.lastUsed[protocol] = time.Now()
			return driver, nil
		}
		// 空闲过久，重建连接
		ylog.Debugf("pool", "idle driver rebuilt: protocol=%s, host=%s", protocol, p.config.Host)
		_ = driver.Close()
		delete(p.active, protocol)
	}

	driver, err := factory.Create(p.config)
	if err != nil {
		return nil, err
	}
	p.active[protocol] = driver
	p.lastUsed[protocol] = time.Now()
	return driver, nil
}

// Release 归还并关闭驱动
func (p *ConnectionPool) Release(driver ProtocolDriver) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for proto, d := range p.active {
		if d == driver {
			delete(p.active, proto)
			delete(p.lastUsed, proto)
			break
		}
	}
	return driver.Close()
}

// Close 关闭池内全部驱动
func (p *ConnectionPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var lastErr error
	for proto, d := range p.active {
		if err := d.Close(); err != nil {
			ylog.Warnf("pool", "close driver failed: protocol=%s, err=%v", proto, err)
			lastErr = err
		}
		delete(p.active, proto)
	}
	return lastErr
}
