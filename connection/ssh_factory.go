package connection

import (
	"context"
	"fmt"

	"github.com/Mathias-gt/ale.aos/prompt"
	"github.com/Mathias-gt/ale.aos/session"
)

// SSHFactory 创建原生驱动：SSH 传输 + 会话核心
type SSHFactory struct {
	// Rules 进程级只读提示符规则表，nil 时使用缺省 AOS 规则
	Rules *prompt.RuleSet
}

func (f *SSHFactory) Create(config ConnectionConfig) (ProtocolDriver, error) {
	config = config.withDefaults()

	trans, err := DialSSH(config)
	if err != nil {
		return nil, fmt.Errorf("ssh transport failed: %w", err)
	}

	sess := session.New(trans, f.Rules, session.Options{
		Timeout:              config.Timeout,
		UseSessions:          config.UseSessions,
		ConfigCommands:       config.ConfigCommands,
		CacheEnabled:         true,
		Authenticated:        true, // SSH 握手成功即已登录
		EnablePassword:       enablePassword(config),
		DisablePagingCommand: config.DisablePaging,
	})
	return NewNativeDriver(sess), nil
}

func (f *SSHFactory) HealthCheck(driver ProtocolDriver) bool {
	d, ok := driver.(*NativeDriver)
	if !ok {
		return false
	}
	_, err := d.Execute(context.Background(), &ProtocolRequest{
		CommandType: CommandTypeCommands,
		Payload:     []string{"show system"},
	})
	return err == nil
}

// enablePassword 未显式给出 enable 口令时复用登录口令
func enablePassword(config ConnectionConfig) string {
	if config.EnablePassword != "" {
		return config.EnablePassword
	}
	return config.Password
}
