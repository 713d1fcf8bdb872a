package session

import (
	"context"
	"fmt"
	"time"

	"github.com/charlesren/ylog"
)

// sessionName 生成配置事务名，时间戳保证同一设备上不同批次不重名
func sessionName() string {
	return fmt.Sprintf("ansible_%d", time.Now().UnixNano()/1e7)
}

// EnsurePagingDisabled 关闭设备分页。幂等：本会话已关闭过则直接返回，
// 不再向设备发送任何内容。应在第一条用户命令之前调用。
func (s *Session) EnsurePagingDisabled(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.pagingDisabled {
		return nil
	}
	if s.mode == ModeUnauthenticated {
		return ErrNotAuthenticated
	}
	res, err := s.run(ctx, &CommandRequest{Command: s.opts.DisablePagingCommand}, s.opts.Timeout)
	if err != nil {
		return err
	}
	if res.Failed {
		return NewSessionError(ErrCodeCommandFailed,
			fmt.Sprintf("disable paging command %q rejected by device", s.opts.DisablePagingCommand))
	}
	s.applyResult(res)
	s.pagingDisabled = true
	ylog.Debugf("session", "paging disabled: id=%s", s.id)
	return nil
}

// PagingDisabled 本会话是否已关闭分页
func (s *Session) PagingDisabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pagingDisabled
}

// ConfigSession 当前打开的配置事务名，空串表示没有
func (s *Session) ConfigSession() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.configSession
}

// RunConfigBatch 执行一批配置命令。启用配置事务（UseSessions）时整批
// 以 begin/commit 包装，任一命令失败自动回滚；未启用时逐条直接下发，
// 失败结果原样返回由调用方定夺。执行前整体失效响应缓存。
func (s *Session) RunConfigBatch(ctx context.Context, commands []string) ([]*CommandResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	s.cache.Invalidate()
	if err := s.ensureMode(ctx, ModeConfig); err != nil {
		return nil, err
	}
	if s.opts.UseSessions && s.configSession == "" {
		s.configSession = sessionName()
		ylog.Debugf("session", "config session opened: id=%s, name=%s", s.id, s.configSession)
	}

	results := make([]*CommandResult, 0, len(commands))
	for _, cmd := range commands {
		res, err := s.run(ctx, &CommandRequest{Command: cmd}, s.opts.Timeout)
		if err != nil {
			if s.opts.UseSessions {
				s.rollbackLocked(ctx)
			}
			return results, err
		}
		s.applyResult(res)
		results = append(results, res)
		if res.Failed && s.opts.UseSessions {
			s.rollbackLocked(ctx)
			return results, NewSessionError(ErrCodeCommandFailed,
				fmt.Sprintf("config command %q failed, batch rolled back", cmd))
		}
	}

	if s.opts.UseSessions {
		if err := s.commitLocked(ctx); err != nil {
			return results, err
		}
	}
	return results, nil
}

// Commit 提交当前配置事务
func (s *Session) Commit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	return s.commitLocked(ctx)
}

// Rollback 丢弃当前配置事务
func (s *Session) Rollback(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	return s.rollbackLocked(ctx)
}

func (s *Session) commitLocked(ctx context.Context) error {
	res, err := s.run(ctx, &CommandRequest{Command: s.opts.CommitCommand}, s.opts.Timeout)
	if err != nil {
		return err
	}
	if res.Failed {
		return NewSessionError(ErrCodeCommandFailed, "commit rejected by device")
	}
	s.applyResult(res)
	name := s.configSession
	s.configSession = ""
	ylog.Debugf("session", "config session committed: id=%s, name=%s", s.id, name)
	return nil
}

// rollbackLocked 尽力回滚，设备侧失败只记录日志
func (s *Session) rollbackLocked(ctx context.Context) error {
	name := s.configSession
	s.configSession = ""
	res, err := s.run(ctx, &CommandRequest{Command: s.opts.RollbackCommand}, s.opts.Timeout)
	if err != nil {
		ylog.Warnf("session", "rollback failed: id=%s, name=%s, err=%v", s.id, name, err)
		return err
	}
	s.applyResult(res)
	if res.Failed {
		ylog.Warnf("session", "rollback rejected by device: id=%s, name=%s", s.id, name)
		return NewSessionError(ErrCodeCommandFailed, "rollback rejected by device")
	}
	ylog.Debugf("session", "config session rolled back: id=%s, name=%s", s.id, name)
	return nil
}
