package connection

import "time"

// ProtocolCapability 协议能力描述
type ProtocolCapability struct {
	Protocol        Protocol
	PlatformSupport []Platform
	CommandTypes    []CommandTypeSupport

	// 配置能力
	ConfigModes []ConfigModeCapability

	// 性能参数
	MaxConcurrent int
	Timeout       time.Duration

	// 高级功能
	SupportsConfigSessions bool // 是否支持配置事务（commit/rollback）
	SupportsPagingControl  bool // 是否支持会话级关闭分页
}

type CommandTypeSupport struct {
	Type        CommandType
	Description string
	Example     string
}

// ConfigModeCapability 配置模式进入/退出描述
type ConfigModeCapability struct {
	Mode              string
	EnterCommands     []string
	ExitCommands      []string
	ValidationPattern string // 检测是否成功进入的正则表达式
}

var (
	// NativeCapability 原生驱动（自带提示符状态机）能力
	NativeCapability = ProtocolCapability{
		Protocol:        ProtocolSSH,
		PlatformSupport: []Platform{PlatformAOS},
		CommandTypes: []CommandTypeSupport{
			{
				Type:        CommandTypeCommands,
				Description: "Serialized command execution with prompt tracking",
				Example:     "show configuration snapshot",
			},
			{
				Type:        CommandTypeConfig,
				Description: "Config batch with optional commit/rollback wrapping",
				Example:     "vlan 10 enable",
			},
		},
		ConfigModes: []ConfigModeCapability{
			{
				Mode:              "config",
				EnterCommands:     []string{"configure terminal"},
				ExitCommands:      []string{"exit"},
				ValidationPattern: `\(config[^)]*\)\s?#\s?$`,
			},
		},
		MaxConcurrent:          1, // 单会话内命令严格串行
		Timeout:                30 * time.Second,
		SupportsConfigSessions: true,
		SupportsPagingControl:  true,
	}

	// ScrapliCapability scrapli 后端能力（通道处理交给 scrapligo）
	ScrapliCapability = ProtocolCapability{
		Protocol:        ProtocolScrapli,
		PlatformSupport: []Platform{PlatformAOS},
		CommandTypes: []CommandTypeSupport{
			{
				Type:        CommandTypeCommands,
				Description: "Batch command execution",
				Example:     "show system",
			},
			{
				Type:        CommandTypeConfig,
				Description: "Config batch via scrapli config mode",
				Example:     "vlan 10 enable",
			},
		},
		MaxConcurrent: 5,
		Timeout:       30 * time.Second,
	}
)
