package cliconf

// DeviceOperations 设备操作能力表。AOS 不支持 on-box diff/replace，
// 配置事务由会话核心提供。
func DeviceOperations() map[string]bool {
	return map[string]bool{
		"supports_diff_replace":        false,
		"supports_commit":              false,
		"supports_rollback":            false,
		"supports_defaults":            false,
		"supports_onbox_diff":          false,
		"supports_commit_comment":      false,
		"supports_multiline_delimiter": false,
		"supports_diff_match":          false,
		"supports_diff_ignore_lines":   false,
		"supports_generate_diff":       false,
		"supports_replace":             false,
	}
}

// OptionValues 各选项的合法取值
func OptionValues() map[string][]string {
	return map[string][]string{
		"format":       {"text", "json"},
		"diff_match":   {"line", "strict", "exact", "none"},
		"diff_replace": {"line", "block", "config"},
		"output":       {"text", "json"},
	}
}
