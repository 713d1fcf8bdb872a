package session

import (
	"io"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/charlesren/ylog"
	"github.com/google/uuid"

	"github.com/Mathias-gt/ale.aos/prompt"
)

// Transport 外部传输接口。核心不管理 socket 与认证握手，
// 只消费传输层暴露的双向字节流。Read 阻塞直到有数据或流关闭（io.EOF）。
type Transport interface {
	Write(p []byte) (int, error)
	Read(p []byte) (int, error)
	Close() error
}

// Options 会话构造参数。字段为零值时使用缺省。
type Options struct {
	// Timeout 单条命令缺省超时
	Timeout time.Duration
	// UseSessions 是否启用配置事务（commit/rollback）包装，对应 aos_use_sessions
	UseSessions bool
	// ConfigCommands 调用方提供的配置类命令清单，用于缓存失效判定
	ConfigCommands []string
	// CacheEnabled 是否启用响应缓存（单用户模式）
	CacheEnabled bool

	// Authenticated 传输层是否已完成登录（SSH 场景为 true）
	Authenticated bool

	// 设备命令集，均可按平台覆盖
	DisablePagingCommand string // 缺省 "no more"
	EnableCommand        string // 缺省 "enable"
	EnablePassword       string
	ConfigEnterCommand   string // 缺省 "configure terminal"
	ConfigExitCommand    string // 缺省 "exit"
	CommitCommand        string // 缺省 "commit"
	RollbackCommand      string // 缺省 "rollback"
	PagingContinue       string // 分页续页按键，缺省空格
}

func (o *Options) applyDefaults() {
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.DisablePagingCommand == "" {
		o.DisablePagingCommand = "no more"
	}
	if o.EnableCommand == "" {
		o.EnableCommand = "enable"
	}
	if o.ConfigEnterCommand == "" {
		o.ConfigEnterCommand = "configure terminal"
	}
	if o.ConfigExitCommand == "" {
		o.ConfigExitCommand = "exit"
	}
	if o.CommitCommand == "" {
		o.CommitCommand = "commit"
	}
	if o.RollbackCommand == "" {
		o.RollbackCommand = "rollback"
	}
	if o.PagingContinue == "" {
		o.PagingContinue = " "
	}
}

// Category 命令类别，决定模式门控与缓存策略
type Category int

const (
	// CategoryAuto 未声明，按配置命令清单与当前模式自动判定
	CategoryAuto Category = iota
	// CategoryShow 只读命令，可缓存
	CategoryShow
	// CategoryPrivileged 需要特权模式的命令
	CategoryPrivileged
	// CategoryConfig 配置类命令，触发缓存失效
	CategoryConfig
)

// CommandRequest 单条命令请求。发出后即视为不可变。
type CommandRequest struct {
	Command  string
	Category Category

	// Prompts/Answers 请求级提示符覆盖：匹配到 Prompts[i] 时发送 Answers[i]。
	// CheckAll 要求所有提示符各应答一次且按序消费。
	Prompts  []*regexp.Regexp
	Answers  []string
	CheckAll bool

	// NoNewline 发送命令时不追加换行
	NoNewline bool
	// SendOnly 只发送不等待回应
	SendOnly bool
	// Timeout 覆盖会话缺省超时
	Timeout time.Duration
}

// CommandResult 单条命令结果。每个请求恰好产生一个结果，返回后不再修改。
type CommandResult struct {
	Command    string
	Output     string
	Prompt     string
	PromptKind prompt.Kind
	// Failed 设备报告了错误横幅。是否致命由调用方决定，
	// 部分命令的"失败"只是信息性的。
	Failed  bool
	Elapsed time.Duration
}

// Session 一条到设备的有状态 CLI 连接。
// 同一 Session 的命令严格串行（底层流没有多路复用），
// 由唯一的调用方上下文独占；多个 Session 之间完全并行，
// 仅共享进程级只读的提示符规则表。
type Session struct {
	id    string
	trans Transport
	rules *prompt.RuleSet
	opts  Options

	mu             sync.Mutex
	mode           Mode
	modeUnresolved bool
	pagingDisabled bool
	configSession  string
	cache          *Cache
	lastActivity   time.Time
	closed         bool

	chunks  chan []byte
	readErr chan error
	done    chan struct{}
}

// New 创建会话并启动读取协程。传输层关闭后会话随之失效。
func New(t Transport, rules *prompt.RuleSet, opts Options) *Session {
	opts.applyDefaults()
	if rules == nil {
		rules = prompt.DefaultRuleSet()
	}
	s := &Session{
		id:      uuid.New().String(),
		trans:   t,
		rules:   rules,
		opts:    opts,
		cache:   NewCache(),
		chunks:  make(chan []byte, 64),
		readErr: make(chan error, 1),
		done:    make(chan struct{}),
	}
	if opts.Authenticated {
		s.mode = ModeOperational
	}
	go s.readLoop()
	ylog.Debugf("session", "session created: id=%s, mode=%s", s.id, s.mode)
	return s
}

// readLoop 唯一的读取协程，把传输层分片推入通道。
// 这是执行器之外唯一接触 Transport.Read 的地方。
func (s *Session) readLoop() {
	buf := make([]byte, 4096)
	for {
		n, err := s.trans.Read(buf)
		if n > 0 {
			b := make([]byte, n)
			copy(b, buf[:n])
			// 通道满且无命令在执行时不能死等，关闭会话要能回收本协程
			select {
			case s.chunks <- b:
			case <-s.done:
				return
			}
		}
		if err != nil {
			if err != io.EOF {
				ylog.Warnf("session", "transport read failed: id=%s, err=%v", s.id, err)
			}
			s.readErr <- err
			close(s.chunks)
			return
		}
	}
}

// ID 会话标识
func (s *Session) ID() string { return s.id }

// Mode 当前模式
func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// LastActivity 最近一次命令完成时间
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// MarkAuthenticated 传输层确认登录完成后调用，翻转模式标志。
// 这是 Unauthenticated → Operational 的唯一入口。
func (s *Session) MarkAuthenticated() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode == ModeUnauthenticated {
		s.mode = ModeOperational
	}
}

// Cache 会话响应缓存
func (s *Session) Cache() *Cache { return s.cache }

// Close 关闭会话与底层传输，丢弃缓存
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	if s.mode == ModeConfig {
		// 拆除时尽力退出配置模式
		_, _ = s.trans.Write([]byte(s.opts.ConfigExitCommand + "\n"))
	}
	s.cache.Invalidate()
	s.mu.Unlock()
	ylog.Debugf("session", "session closed: id=%s", s.id)
	return s.trans.Close()
}

// classify 判定命令类别。显式类别优先；否则命中配置命令清单的
// 视为配置类，其余按只读处理。
func (s *Session) classify(req *CommandRequest) Category {
	if req.Category != CategoryAuto {
		return req.Category
	}
	if s.isConfigCommand(req.Command) {
		return CategoryConfig
	}
	return CategoryShow
}

// isConfigCommand 命令是否在调用方提供的配置命令清单内（前缀匹配）
func (s *Session) isConfigCommand(cmd string) bool {
	c := normalizeCommand(cmd)
	for _, cc := range s.opts.ConfigCommands {
		n := normalizeCommand(cc)
		if n == "" {
			continue
		}
		if c == n || strings.HasPrefix(c, n+" ") {
			return true
		}
	}
	return false
}
