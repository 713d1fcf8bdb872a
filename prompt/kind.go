package prompt

// Kind 提示符分类
type Kind int

const (
	// KindNone 未匹配到任何提示符
	KindNone Kind = iota
	// KindOperational 普通操作模式提示符（如 "switch> " 或 "-> "）
	KindOperational
	// KindPrivileged 特权模式提示符（如 "switch# "）
	KindPrivileged
	// KindConfig 配置模式提示符（如 "switch(config)# "）
	KindConfig
	// KindPaging 分页提示符，表示后面还有输出
	KindPaging
	// KindConfirm 确认/口令提示符，需要应答后继续
	KindConfirm
	// KindErrorBanner 设备错误横幅
	KindErrorBanner
)

// String 返回分类的字符串表示
func (k Kind) String() string {
	switch k {
	case KindOperational:
		return "Operational"
	case KindPrivileged:
		return "Privileged"
	case KindConfig:
		return "Config"
	case KindPaging:
		return "Paging"
	case KindConfirm:
		return "Confirm"
	case KindErrorBanner:
		return "ErrorBanner"
	default:
		return "None"
	}
}

// Terminal 判断该分类是否为终止提示符（命令交换到此结束）
func (k Kind) Terminal() bool {
	return k == KindOperational || k == KindPrivileged || k == KindConfig
}
