package prompt

import (
	"fmt"
	"regexp"
)

// defaultLookback 尾部扫描窗口。设备输出可能很大（如整份配置快照），
// 每个分片到达时只对缓冲区尾部做匹配，避免重复全量扫描。
const defaultLookback = 256

// Rule 单条提示符规则：模式 + 分类。
// 规则按优先级排列，先匹配者胜出，因此分页/确认类规则必须排在
// 通用的操作/特权/配置提示符规则之前。
type Rule struct {
	Kind    Kind
	Pattern *regexp.Regexp
}

// Match 一次成功匹配的结果。Start/End 为缓冲区内的绝对偏移，
// Start 指向提示符文本起点，调用方据此从输出中剥离提示符。
type Match struct {
	Kind  Kind
	Start int
	End   int
}

// RuleSet 进程级只读规则表。初始化后不再修改，可被多个 Session
// 以只读引用共享，无需加锁。
type RuleSet struct {
	rules    []Rule
	errRules []Rule
	lookback int
}

// Option RuleSet 配置函数
type Option func(*RuleSet)

// WithLookback 覆盖尾部扫描窗口大小
func WithLookback(n int) Option {
	return func(s *RuleSet) {
		if n > 0 {
			s.lookback = n
		}
	}
}

// NewRuleSet 构建规则表，规则顺序即优先级
func NewRuleSet(rules []Rule, opts ...Option) (*RuleSet, error) {
	if len(rules) == 0 {
		return nil, fmt.Errorf("prompt: rule set cannot be empty")
	}
	s := &RuleSet{
		rules:    make([]Rule, 0, len(rules)),
		lookback: defaultLookback,
	}
	for i, r := range rules {
		if r.Pattern == nil {
			return nil, fmt.Errorf("prompt: rule %d has nil pattern", i)
		}
		if r.Kind == KindNone {
			return nil, fmt.Errorf("prompt: rule %d has no kind", i)
		}
		s.rules = append(s.rules, r)
		if r.Kind == KindErrorBanner {
			s.errRules = append(s.errRules, r)
		}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Match 对缓冲区尾部窗口按优先级逐条测试规则。命中要求匹配终止于
// 缓冲区末尾（设备正停在该提示符上等待输入）。返回的偏移为绝对值。
func (s *RuleSet) Match(buf []byte) (Match, bool) {
	base := 0
	window := buf
	if len(buf) > s.lookback {
		base = len(buf) - s.lookback
		window = buf[base:]
	}
	for _, r := range s.rules {
		loc := r.Pattern.FindIndex(window)
		if loc == nil {
			continue
		}
		if loc[1] != len(window) {
			// 提示符必须落在缓冲区末尾，中间出现的相似文本不算
			continue
		}
		return Match{Kind: r.Kind, Start: base + loc[0], End: base + loc[1]}, true
	}
	return Match{}, false
}

// ScanError 全量扫描错误横幅。错误检测优先于模式推断：即使后续
// 跟着合法的终止提示符，调用方也要据此给结果打上失败标记。
func (s *RuleSet) ScanError(buf []byte) bool {
	for _, r := range s.errRules {
		if r.Pattern.Match(buf) {
			return true
		}
	}
	return false
}

// DefaultRules AOS 缺省规则表。顺序即优先级：
// 分页、确认、错误横幅在前，三种 CLI 提示符在后（配置先于特权先于操作，
// 因为它们的尾部子串存在包含关系）。
func DefaultRules() []Rule {
	return []Rule{
		{Kind: KindPaging, Pattern: regexp.MustCompile(`(?i)(-+\s?more\s?-+|more\? ?\[[^\]]*\]?)\s*$`)},
		{Kind: KindConfirm, Pattern: regexp.MustCompile(`(?i)([\w\s/-]*\(y/n\)[?\s]*|\[y\|n\][\s?]*|password[\s\w]*:\s?)$`)},
		{Kind: KindErrorBanner, Pattern: regexp.MustCompile(`(?m)^(ERROR: .+|% ?(?:Invalid|Error|Incomplete|Ambiguous|Authorization failed)[^\r\n]*)$`)},
		{Kind: KindConfig, Pattern: regexp.MustCompile(`[\w.@/:-]*\((config|vlan|if|aaa)[^)]*\)\s?[#>]\s?$`)},
		{Kind: KindPrivileged, Pattern: regexp.MustCompile(`[\w.@/:-]+#\s?$`)},
		{Kind: KindOperational, Pattern: regexp.MustCompile(`([\w.@/:-]+>|->)\s?$`)},
	}
}

// DefaultRuleSet 使用缺省规则构建规则表
func DefaultRuleSet() *RuleSet {
	s, err := NewRuleSet(DefaultRules())
	if err != nil {
		panic(err)
	}
	return s
}
