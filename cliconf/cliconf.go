package cliconf

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/charlesren/ylog"

	"github.com/Mathias-gt/ale.aos/session"
)

// Runner 会话核心暴露给模块层的窄接口，*session.Session 满足
type Runner interface {
	Execute(ctx context.Context, req *session.CommandRequest) (*session.CommandResult, error)
	RunConfigBatch(ctx context.Context, commands []string) ([]*session.CommandResult, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	EnsurePagingDisabled(ctx context.Context) error
}

// configSourceCommands get_config 的取数命令表
var configSourceCommands = map[string]string{
	"running": "show configuration snapshot",
	"startup": "cat working/vcsetup.cfg",
}

// Cliconf AOS 模块层：把"取配置/下配置/跑命令"翻译成设备命令，
// 经会话核心执行。薄胶水层，幂等性与提示符处理都在核心里。
type Cliconf struct {
	runner     Runner
	deviceInfo map[string]string
}

// New 创建模块层实例
func New(runner Runner) *Cliconf {
	return &Cliconf{runner: runner}
}

// GetConfig 获取设备配置。source 取 running/startup，flags 追加到命令尾。
func (c *Cliconf) GetConfig(ctx context.Context, source, format string, flags []string) (string, error) {
	if format == "" {
		format = "text"
	}
	validFormat := false
	for _, v := range OptionValues()["format"] {
		if v == format {
			validFormat = true
			break
		}
	}
	if !validFormat {
		return "", fmt.Errorf("'format' value %s is invalid. Valid values are %s",
			format, strings.Join(OptionValues()["format"], ","))
	}

	base, ok := configSourceCommands[source]
	if !ok {
		return "", fmt.Errorf("fetching configuration from %s is not supported", source)
	}
	if err := c.runner.EnsurePagingDisabled(ctx); err != nil {
		return "", err
	}

	cmd := base
	if format != "text" {
		cmd = fmt.Sprintf("%s | %s", cmd, format)
	}
	if len(flags) > 0 {
		cmd = fmt.Sprintf("%s %s", cmd, strings.Join(flags, " "))
	}

	res, err := c.runner.Execute(ctx, &session.CommandRequest{Command: strings.TrimSpace(cmd)})
	if err != nil {
		return "", err
	}
	if res.Failed {
		return "", fmt.Errorf("device rejected %q: %s", cmd, strings.TrimSpace(res.Output))
	}
	return res.Output, nil
}

// RunCommands 执行命令批。checkRC 为假时单条失败不中断，
// 失败信息作为该条输出返回（有些命令的"失败"只是信息性的）。
func (c *Cliconf) RunCommands(ctx context.Context, commands []Command, checkRC bool) ([]string, error) {
	if err := c.runner.EnsurePagingDisabled(ctx); err != nil {
		return nil, err
	}
	responses := make([]string, 0, len(commands))
	for _, cmd := range commands {
		out := cmd.Output
		if out == "" {
			out = "text"
		}
		rewritten, err := commandWithOutput(cmd.Command, out, cmd.Version)
		if err != nil {
			return responses, err
		}
		cmd.Command = rewritten

		req, err := cmd.toRequest()
		if err != nil {
			return responses, err
		}
		res, execErr := c.runner.Execute(ctx, req)
		if execErr != nil {
			if checkRC {
				return responses, execErr
			}
			serr := session.GetSessionError(execErr)
			if serr != nil {
				responses = append(responses, serr.Partial)
				continue
			}
			responses = append(responses, execErr.Error())
			continue
		}
		if res.Failed && checkRC {
			return responses, fmt.Errorf("command %q failed: %s", cmd.Command, strings.TrimSpace(res.Output))
		}
		out = strings.TrimSpace(res.Output)
		// 请求了 json 输出的命令，回应必须是合法 JSON
		if hasJSONSuffix(cmd.Command) && !res.Failed {
			if !json.Valid([]byte(out)) {
				return responses, fmt.Errorf("command %q returned invalid json: %.80s", cmd.Command, out)
			}
		}
		responses = append(responses, out)
	}
	return responses, nil
}

// EditResult edit_config 的请求/响应对
type EditResult struct {
	Requests  []string
	Responses []string
}

// EditConfig 下发配置行。经会话核心的配置批执行：
// 启用配置事务时任一失败自动回滚。
func (c *Cliconf) EditConfig(ctx context.Context, candidate []string) (*EditResult, error) {
	lines := make([]string, 0, len(candidate))
	for _, l := range candidate {
		if strings.TrimSpace(l) == "" {
			continue
		}
		lines = append(lines, l)
	}
	if len(lines) == 0 {
		return &EditResult{}, nil
	}

	results, err := c.runner.RunConfigBatch(ctx, lines)
	resp := &EditResult{}
	for _, r := range results {
		resp.Requests = append(resp.Requests, r.Command)
		resp.Responses = append(resp.Responses, strings.TrimSpace(r.Output))
	}
	if err != nil {
		return resp, err
	}
	return resp, nil
}

// Commit 提交配置事务
func (c *Cliconf) Commit(ctx context.Context) error {
	return c.runner.Commit(ctx)
}

// Discard 丢弃配置事务
func (c *Cliconf) Discard(ctx context.Context) error {
	return c.runner.Rollback(ctx)
}

var (
	microcodeVersionRe = regexp.MustCompile(`\b\d+\.\d+\.\d+\.\w+\b`)
	microcodePathRe    = regexp.MustCompile(`(/[\w/]+)`)
	microcodeImageRe   = regexp.MustCompile(`\b(\w+\.\w+)\b`)
	systemModelRe      = regexp.MustCompile(`Description:\s+.*?(\bOS[\w-]+)\b`)
	systemHostnameRe   = regexp.MustCompile(`Name:\s+(\S+),?`)
)

// GetDeviceInfo 采集设备元信息（network_os 系列字段），结果缓存
func (c *Cliconf) GetDeviceInfo(ctx context.Context) (map[string]string, error) {
	if c.deviceInfo != nil {
		return c.deviceInfo, nil
	}
	if err := c.runner.EnsurePagingDisabled(ctx); err != nil {
		return nil, err
	}
	info := map[string]string{"network_os": "aos"}

	res, err := c.runner.Execute(ctx, &session.CommandRequest{Command: "show microcode"})
	if err != nil {
		return nil, err
	}
	data := strings.TrimSpace(res.Output)
	if m := microcodeVersionRe.FindString(data); m != "" {
		info["network_os_version"] = m
	}
	path := ""
	if m := microcodePathRe.FindStringSubmatch(data); m != nil {
		path = m[1]
	}
	if m := microcodeImageRe.FindStringSubmatch(data); m != nil && path != "" {
		info["network_os_image"] = fmt.Sprintf("%s/%s", path, m[1])
	}

	res, err = c.runner.Execute(ctx, &session.CommandRequest{Command: "show system"})
	if err != nil {
		return nil, err
	}
	data = strings.TrimSpace(res.Output)
	if m := systemModelRe.FindStringSubmatch(data); m != nil {
		info["network_os_model"] = m[1]
	}
	if m := systemHostnameRe.FindStringSubmatch(data); m != nil {
		info["network_os_hostname"] = strings.TrimRight(m[1], ",")
	}

	c.deviceInfo = info
	ylog.Debugf("cliconf", "device info collected: %v", info)
	return info, nil
}

// Capabilities 能力汇总的 JSON 表示
func (c *Cliconf) Capabilities() (string, error) {
	caps := map[string]interface{}{
		"network_api":       "cliconf",
		"device_operations": DeviceOperations(),
	}
	for k, v := range OptionValues() {
		caps[k] = v
	}
	b, err := json.Marshal(caps)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
