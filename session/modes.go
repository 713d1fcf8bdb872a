package session

import "github.com/Mathias-gt/ale.aos/prompt"

// Mode 会话当前的 CLI 模式
type Mode int

const (
	// ModeUnauthenticated 未认证：传输层尚未完成登录
	ModeUnauthenticated Mode = iota
	// ModeOperational 操作模式：只读命令可用
	ModeOperational
	// ModePrivileged 特权模式：已执行 enable
	ModePrivileged
	// ModeConfig 配置模式：已进入 configure terminal
	ModeConfig
)

// String 返回模式的字符串表示
func (m Mode) String() string {
	switch m {
	case ModeUnauthenticated:
		return "Unauthenticated"
	case ModeOperational:
		return "Operational"
	case ModePrivileged:
		return "Privileged"
	case ModeConfig:
		return "Config"
	default:
		return "Unknown"
	}
}

// CanTransition 检查是否允许从当前模式直接转换到目标模式。
// 模式只能沿梯级逐级上升（Operational→Privileged→Config），
// 下行只定义 Config→Privileged；认证由传输层外部完成。
func CanTransition(current, target Mode) bool {
	switch current {
	case ModeUnauthenticated:
		return target == ModeOperational
	case ModeOperational:
		return target == ModePrivileged
	case ModePrivileged:
		return target == ModeConfig
	case ModeConfig:
		return target == ModePrivileged
	default:
		return false
	}
}

// IsOperationalState 判断模式下是否可以执行只读命令
func IsOperationalState(m Mode) bool {
	return m == ModeOperational || m == ModePrivileged || m == ModeConfig
}

// modeForKind 由观测到的终止提示符推断模式。
// 模式转换只能来自实际观测，绝不假定转换成功。
func modeForKind(k prompt.Kind) (Mode, bool) {
	switch k {
	case prompt.KindOperational:
		return ModeOperational, true
	case prompt.KindPrivileged:
		return ModePrivileged, true
	case prompt.KindConfig:
		return ModeConfig, true
	default:
		return ModeUnauthenticated, false
	}
}
