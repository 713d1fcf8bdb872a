package connection

import "time"

// ConnectionConfig 设备连接参数
type ConnectionConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Platform Platform
	Timeout  time.Duration

	// EnablePassword 进入特权模式的口令，空则复用登录口令
	EnablePassword string
	// UseSessions 配置事务开关，对应 aos_use_sessions
	UseSessions bool
	// ConfigCommands 配置类命令清单，用于缓存失效判定
	ConfigCommands []string
	// DisablePaging 覆盖分页关闭命令
	DisablePaging string

	Metadata map[string]interface{}
}

// withDefaults 填充缺省值
func (c ConnectionConfig) withDefaults() ConnectionConfig {
	if c.Port == 0 {
		c.Port = 22
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.Platform == "" {
		c.Platform = PlatformAOS
	}
	return c
}
