package connection

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/charlesren/ylog"

	"github.com/Mathias-gt/ale.aos/session"
)

// NativeDriver 基于会话核心（提示符状态机 + 命令执行器）的驱动。
// 通道处理完全由本仓库实现，scrapli 后端是它的替代实现。
type NativeDriver struct {
	mu   sync.Mutex
	sess *session.Session
}

// NewNativeDriver 包装一个已建立的会话
func NewNativeDriver(sess *session.Session) *NativeDriver {
	return &NativeDriver{sess: sess}
}

// Session 暴露底层会话（cliconf 层使用）
func (d *NativeDriver) Session() *session.Session {
	return d.sess
}

func (d *NativeDriver) ProtocolType() Protocol {
	return ProtocolSSH
}

func (d *NativeDriver) GetCapability() ProtocolCapability {
	return NativeCapability
}

// Execute 执行一批命令。首个用户命令之前先关闭分页（幂等）。
func (d *NativeDriver) Execute(ctx context.Context, req *ProtocolRequest) (*ProtocolResponse, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if req == nil {
		return nil, fmt.Errorf("request cannot be nil")
	}
	cmds, ok := req.Payload.([]string)
	if !ok {
		return nil, fmt.Errorf("invalid payload type %T, want []string", req.Payload)
	}

	if err := d.sess.EnsurePagingDisabled(ctx); err != nil {
		return nil, err
	}

	switch req.CommandType {
	case CommandTypeCommands:
		reqs := make([]*session.CommandRequest, 0, len(cmds))
		for _, c := range cmds {
			reqs = append(reqs, &session.CommandRequest{Command: c})
		}
		results, err := d.sess.ExecuteBatch(ctx, reqs)
		if err != nil {
			return nil, err
		}
		return buildResponse(results), nil

	case CommandTypeConfig:
		results, err := d.sess.RunConfigBatch(ctx, cmds)
		if err != nil {
			return nil, err
		}
		return buildResponse(results), nil

	default:
		ylog.Errorf("native", "unsupported command type: %s", req.CommandType)
		return nil, ErrUnsupportedCommandType
	}
}

func (d *NativeDriver) Close() error {
	return d.sess.Close()
}

// buildResponse 拼接结果文本并保留结构化结果
func buildResponse(results []*session.CommandResult) *ProtocolResponse {
	var raw strings.Builder
	success := true
	for i, r := range results {
		raw.WriteString(r.Output)
		if i < len(results)-1 {
			raw.WriteString("\n")
		}
		if r.Failed {
			success = false
		}
	}
	return &ProtocolResponse{
		Success:    success,
		RawData:    []byte(raw.String()),
		Structured: results,
	}
}
