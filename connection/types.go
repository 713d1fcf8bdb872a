package connection

type (
	Platform    string
	Protocol    string
	CommandType string
)

const (
	// PlatformAOS Alcatel-Lucent Enterprise AOS。scrapli 侧可以用
	// 自定义 platform YAML 的路径覆盖
	PlatformAOS Platform = "alcatel_aos"

	ProtocolSSH     Protocol = "ssh"
	ProtocolScrapli Protocol = "scrapli"

	// CommandTypeCommands 普通命令批，payload 为 []string
	CommandTypeCommands CommandType = "commands"
	// CommandTypeConfig 配置命令批，payload 为 []string
	CommandTypeConfig CommandType = "config"
)
