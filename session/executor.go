package session

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/charlesren/ylog"

	"github.com/Mathias-gt/ale.aos/prompt"
)

// passwordPromptRe enable 口令提示
var passwordPromptRe = regexp.MustCompile(`(?i)password[\s\w]*:\s?$`)

// Execute 对会话执行一条命令，恰好返回一个结果或失败。
// 前置条件：会话模式必须与命令类别兼容，不兼容时先自动补发
// 最小的模式转换命令序列。同一会话内命令严格串行。
func (s *Session) Execute(ctx context.Context, req *CommandRequest) (*CommandResult, error) {
	if req == nil || (strings.TrimSpace(req.Command) == "" && !req.SendOnly) {
		return nil, NewSessionError(ErrCodeInvalidRequest, "command is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.execute(ctx, req)
}

// ExecuteBatch 串行执行一组命令。任一请求硬性失败即停止，
// 返回已完成的结果与失败原因。
func (s *Session) ExecuteBatch(ctx context.Context, reqs []*CommandRequest) ([]*CommandResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	results := make([]*CommandResult, 0, len(reqs))
	for _, req := range reqs {
		res, err := s.execute(ctx, req)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// execute 核心入口，调用方必须持有 s.mu
func (s *Session) execute(ctx context.Context, req *CommandRequest) (*CommandResult, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	if s.mode == ModeUnauthenticated {
		return nil, ErrNotAuthenticated
	}
	if s.modeUnresolved {
		if err := s.resolveMode(ctx); err != nil {
			return nil, err
		}
	}

	cat := s.classify(req)
	if cat == CategoryConfig {
		// 配置类命令执行前整体失效缓存
		s.cache.Invalidate()
	} else if cat == CategoryShow && s.opts.CacheEnabled && s.mode != ModeConfig {
		if res, ok := s.cache.Get(req.Command); ok {
			ylog.Debugf("session", "cache hit: id=%s, cmd=%q", s.id, req.Command)
			return res, nil
		}
	}

	target, err := s.requiredMode(cat)
	if err != nil {
		return nil, err
	}
	if err := s.ensureMode(ctx, target); err != nil {
		return nil, err
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = s.opts.Timeout
	}
	res, err := s.run(ctx, req, timeout)
	if err != nil {
		return nil, err
	}
	s.applyResult(res)
	if cat == CategoryShow && s.opts.CacheEnabled && !res.Failed && s.mode != ModeConfig {
		s.cache.Put(req.Command, res)
	}
	s.lastActivity = time.Now()
	return res, nil
}

// requiredMode 由命令类别推导目标模式
func (s *Session) requiredMode(cat Category) (Mode, error) {
	switch cat {
	case CategoryConfig:
		return ModeConfig, nil
	case CategoryPrivileged:
		return ModePrivileged, nil
	default:
		if s.mode == ModeConfig {
			// 配置模式下请求非配置命令，先退回特权模式
			return ModePrivileged, nil
		}
		if !IsOperationalState(s.mode) {
			return s.mode, ErrNotAuthenticated
		}
		return s.mode, nil
	}
}

// ensureMode 逐级补发模式转换命令。转换的成败只看观测到的
// 提示符，失败时模式停留在最后一次确认成功的状态。
func (s *Session) ensureMode(ctx context.Context, target Mode) error {
	for s.mode != target {
		hop, err := s.transitionRequest(target)
		if err != nil {
			return err
		}
		before := s.mode
		res, runErr := s.run(ctx, hop, s.opts.Timeout)
		if runErr != nil {
			return NewSessionErrorWithCause(ErrCodeModeTransitionFailed,
				fmt.Sprintf("mode transition %s -> %s failed", before, target), runErr)
		}
		if res.Failed {
			return NewSessionError(ErrCodeModeTransitionFailed,
				fmt.Sprintf("device rejected transition command %q", hop.Command))
		}
		s.applyResult(res)
		if s.mode == before {
			return NewSessionError(ErrCodeModeTransitionFailed,
				fmt.Sprintf("no mode change observed after %q (still %s)", hop.Command, s.mode))
		}
		ylog.Debugf("session", "mode transition: id=%s, %s -> %s", s.id, before, s.mode)
	}
	return nil
}

// transitionRequest 计算当前模式向目标模式的下一跳命令
func (s *Session) transitionRequest(target Mode) (*CommandRequest, error) {
	switch {
	case s.mode == ModeOperational && target >= ModePrivileged:
		req := &CommandRequest{Command: s.opts.EnableCommand}
		if s.opts.EnablePassword != "" {
			req.Prompts = []*regexp.Regexp{passwordPromptRe}
			req.Answers = []string{s.opts.EnablePassword}
		}
		return req, nil
	case s.mode == ModePrivileged && target == ModeConfig:
		return &CommandRequest{Command: s.opts.ConfigEnterCommand}, nil
	case s.mode == ModeConfig && target <= ModePrivileged:
		return &CommandRequest{Command: s.opts.ConfigExitCommand}, nil
	default:
		return nil, NewSessionError(ErrCodeModeTransitionFailed,
			fmt.Sprintf("no transition path from %s to %s", s.mode, target))
	}
}

// resolveMode 取消后的模式重探：发一个空回车，读取提示符恢复模式
func (s *Session) resolveMode(ctx context.Context) error {
	res, err := s.run(ctx, &CommandRequest{Command: ""}, s.opts.Timeout)
	if err != nil {
		return err
	}
	m, ok := modeForKind(res.PromptKind)
	if !ok {
		return NewSessionError(ErrCodeModeTransitionFailed,
			fmt.Sprintf("unable to resolve session mode from prompt %q", res.Prompt))
	}
	s.mode = m
	s.modeUnresolved = false
	ylog.Debugf("session", "mode resolved: id=%s, mode=%s", s.id, m)
	return nil
}

// applyResult 按观测到的终止提示符更新模式。
// 失败结果绝不携带模式转换。
func (s *Session) applyResult(res *CommandResult) {
	if res.Failed {
		return
	}
	if m, ok := modeForKind(res.PromptKind); ok {
		s.mode = m
	}
}

// run 发送命令并累积输出直到终止提示符。调用方持有 s.mu。
// 读取循环是唯一的挂起点：阻塞到有输出、超时或取消。
func (s *Session) run(ctx context.Context, req *CommandRequest, timeout time.Duration) (*CommandResult, error) {
	start := time.Now()
	s.drain()

	payload := req.Command
	if !req.NoNewline {
		payload += "\n"
	}
	if _, err := s.trans.Write([]byte(payload)); err != nil {
		return nil, NewSessionErrorWithCause(ErrCodeTransportClosed, "transport write failed", err)
	}
	if req.SendOnly {
		return &CommandResult{Command: req.Command, Elapsed: time.Since(start)}, nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var buf bytes.Buffer
	failed := false
	answered := make([]bool, len(req.Prompts))
	nextAnswer := 0

	for {
		select {
		case <-ctx.Done():
			// 取消后模式无法判定，下一次执行前重探
			s.modeUnresolved = true
			return nil, NewSessionErrorWithCause(ErrCodeCancelled, "command cancelled", ctx.Err()).
				WithPartial(buf.String())

		case <-timer.C:
			// 超时附带已捕获的部分输出，模式保持调用前状态
			return nil, NewSessionError(ErrCodeTimeout,
				fmt.Sprintf("no terminal prompt within %s for %q", timeout, req.Command)).
				WithPartial(buf.String())

		case b, ok := <-s.chunks:
			if !ok {
				return nil, NewSessionError(ErrCodeTransportClosed,
					"transport closed while awaiting prompt").WithPartial(buf.String())
			}
			buf.Write(b)
			if !failed && s.rules.ScanError(buf.Bytes()) {
				failed = true
			}

			// 请求级提示符覆盖优先于规则表
			if idx, loc := matchRequestPrompt(req, buf.Bytes(), answered, nextAnswer); idx >= 0 {
				buf.Truncate(loc)
				answer := answerFor(req, idx)
				if _, err := s.trans.Write([]byte(answer + "\n")); err != nil {
					return nil, NewSessionErrorWithCause(ErrCodeTransportClosed, "transport write failed", err)
				}
				answered[idx] = true
				nextAnswer++
				continue
			}

			m, hit := s.rules.Match(buf.Bytes())
			if !hit {
				continue
			}
			switch m.Kind {
			case prompt.KindPaging:
				// 分页提示表示还有后续输出：剥离提示文本，发续页键
				buf.Truncate(m.Start)
				if _, err := s.trans.Write([]byte(s.opts.PagingContinue)); err != nil {
					return nil, NewSessionErrorWithCause(ErrCodeTransportClosed, "transport write failed", err)
				}
				continue
			case prompt.KindErrorBanner:
				// 横幅停在末尾，继续等真正的终止提示符
				failed = true
				continue
			default:
				// 终止提示符结束本次交换；无人应答的确认提示也按终止处理，
				// 由调用方根据结果决定如何补发应答
				if !m.Kind.Terminal() && m.Kind != prompt.KindConfirm {
					continue
				}
				res := &CommandResult{
					Command:    req.Command,
					Output:     stripEcho(buf.Bytes()[:m.Start], req.Command),
					Prompt:     string(buf.Bytes()[m.Start:]),
					PromptKind: m.Kind,
					Failed:     failed,
					Elapsed:    time.Since(start),
				}
				return res, nil
			}
		}
	}
}

// drain 丢弃上一次交换遗留的分片（非阻塞）
func (s *Session) drain() {
	for {
		select {
		case _, ok := <-s.chunks:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

// matchRequestPrompt 测试请求级提示符。CheckAll 时按序消费，
// 否则任一未应答的提示符命中即可。命中要求落在缓冲区末尾。
func matchRequestPrompt(req *CommandRequest, buf []byte, answered []bool, next int) (int, int) {
	for i, p := range req.Prompts {
		if p == nil {
			continue
		}
		if req.CheckAll {
			if i != next {
				continue
			}
		} else if answered[i] {
			continue
		}
		loc := p.FindIndex(buf)
		if loc != nil && loc[1] == len(buf) {
			return i, loc[0]
		}
	}
	return -1, 0
}

// answerFor 取提示符对应的应答（应答少于提示符时复用最后一个）
func answerFor(req *CommandRequest, idx int) string {
	if len(req.Answers) == 0 {
		return ""
	}
	if idx >= len(req.Answers) {
		return req.Answers[len(req.Answers)-1]
	}
	return req.Answers[idx]
}

// stripEcho 去掉回显的命令行，其余内容（含换行结构）逐字节保留，
// 配置文本必须能往返比对。
func stripEcho(buf []byte, cmd string) string {
	if len(buf) == 0 {
		return ""
	}
	i := bytes.IndexByte(buf, '\n')
	if i < 0 {
		if strings.TrimSpace(string(buf)) == strings.TrimSpace(cmd) {
			return ""
		}
		return string(buf)
	}
	first := strings.TrimRight(string(buf[:i]), "\r")
	if strings.TrimSpace(first) == strings.TrimSpace(cmd) && strings.TrimSpace(cmd) != "" {
		return string(buf[i+1:])
	}
	return string(buf)
}
