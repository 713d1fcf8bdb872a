package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/charlesren/ylog"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Device 设备连接信息
type Device struct {
	Name           string
	Host           string
	Port           int
	Username       string
	Password       string
	EnablePassword string
	Platform       string // 平台类型：alcatel_aos 等
	Protocol       string // ssh/scrapli
}

// SessionOptions 会话层可调参数
type SessionOptions struct {
	Timeout              time.Duration
	UseSessions          bool     // 配置事务（commit/rollback）
	ConfigCommands       []string // 配置类命令清单，用于缓存失效判定
	CacheEnabled         bool
	DisablePagingCommand string
}

// Manager 配置管理器。加载设备清单与会话参数，
// 监听配置文件变更并通知订阅者。
type Manager struct {
	v           *viper.Viper
	devices     map[string]Device
	session     SessionOptions
	version     int64           // 配置版本号
	subscribers []chan struct{} // 配置变更订阅者
	mu          sync.Mutex      // 保护并发访问
}

// NewManager 创建配置管理器并完成首次加载
func NewManager(path string) (*Manager, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.SetDefault("session.timeout", "30s")
	v.SetDefault("session.use_sessions", true)
	v.SetDefault("session.config_commands", false)
	v.SetDefault("session.cache_enabled", true)
	v.SetDefault("session.disable_paging_command", "no more")
	v.SetDefault("log.level", 2)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	m := &Manager{
		v:           v,
		devices:     make(map[string]Device),
		subscribers: make([]chan struct{}, 0),
	}
	if err := m.reload(); err != nil {
		return nil, err
	}
	return m, nil
}

// Watch 开始监听配置文件变更
func (m *Manager) Watch() {
	m.v.OnConfigChange(func(e fsnotify.Event) {
		if err := m.reload(); err != nil {
			ylog.Errorf("config", "reload failed: %v", err)
			return
		}
		ylog.Infof("config", "reloaded after change: %s", e.Name)
	})
	m.v.WatchConfig()
}

// Subscribe 订阅配置变更事件
func (m *Manager) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers = append(m.subscribers, ch)
	return ch
}

// Devices 返回设备清单快照
func (m *Manager) Devices() map[string]Device {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]Device, len(m.devices))
	for k, v := range m.devices {
		out[k] = v
	}
	return out
}

// Device 按名查找设备
func (m *Manager) Device(name string) (Device, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.devices[name]
	return d, ok
}

// Session 返回会话参数
func (m *Manager) Session() SessionOptions {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// LogLevel 日志级别
func (m *Manager) LogLevel() int {
	return m.v.GetInt("log.level")
}

// Version 当前配置版本号
func (m *Manager) Version() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.version
}

// reload 重新解析配置并通知变更
func (m *Manager) reload() error {
	newDevices, err := m.parseDevices()
	if err != nil {
		return err
	}
	newSession := SessionOptions{
		Timeout:              m.v.GetDuration("session.timeout"),
		UseSessions:          m.v.GetBool("session.use_sessions"),
		ConfigCommands:       m.v.GetStringSlice("session.config_commands"),
		CacheEnabled:         m.v.GetBool("session.cache_enabled"),
		DisablePagingCommand: m.v.GetString("session.disable_paging_command"),
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !devicesChanged(m.devices, newDevices) && !sessionChanged(m.session, newSession) && m.version > 0 {
		return nil // 无变更
	}
	m.devices = newDevices
	m.session = newSession
	m.version++
	m.notifySubscribers()
	return nil
}

// parseDevices 解析设备清单
func (m *Manager) parseDevices() (map[string]Device, error) {
	var raw []Device
	if err := m.v.UnmarshalKey("devices", &raw); err != nil {
		return nil, fmt.Errorf("parse devices: %w", err)
	}
	devices := make(map[string]Device, len(raw))
	for _, d := range raw {
		if d.Name == "" || d.Host == "" {
			return nil, fmt.Errorf("device entry missing name or host: %+v", d)
		}
		if d.Port == 0 {
			d.Port = 22
		}
		if d.Platform == "" {
			d.Platform = "alcatel_aos"
		}
		if d.Protocol == "" {
			d.Protocol = "ssh"
		}
		devices[d.Name] = d
	}
	return devices, nil
}

// sessionChanged 检查会话参数是否变更
func sessionChanged(old, new SessionOptions) bool {
	if old.Timeout != new.Timeout ||
		old.UseSessions != new.UseSessions ||
		old.CacheEnabled != new.CacheEnabled ||
		old.DisablePagingCommand != new.DisablePagingCommand {
		return true
	}
	if len(old.ConfigCommands) != len(new.ConfigCommands) {
		return true
	}
	for i := range old.ConfigCommands {
		if old.ConfigCommands[i] != new.ConfigCommands[i] {
			return true
		}
	}
	return false
}

// devicesChanged 检查设备清单是否变更
func devicesChanged(old, new map[string]Device) bool {
	if len(old) != len(new) {
		return true
	}
	for name, d := range new {
		if prev, ok := old[name]; !ok || prev != d {
			return true
		}
	}
	return false
}

// notifySubscribers 通知所有订阅者
func (m *Manager) notifySubscribers() {
	for _, sub := range m.subscribers {
		select {
		case sub <- struct{}{}:
		default: // 避免阻塞
		}
	}
}
