package connection

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charlesren/ylog"
	"github.com/scrapli/scrapligo/driver/network"
	"github.com/scrapli/scrapligo/driver/options"
	"github.com/scrapli/scrapligo/platform"
	"github.com/scrapli/scrapligo/response"
)

// ScrapliDriver scrapli 后端：提示符/分页处理交给 scrapligo 的通道，
// 作为原生驱动的替代实现。platform 可以是内置名称或自定义 YAML 路径。
type ScrapliDriver struct {
	host     string
	username string
	password string
	platform string
	timeout  time.Duration

	mu     sync.Mutex
	driver *network.Driver
}

func (d *ScrapliDriver) ProtocolType() Protocol {
	return ProtocolScrapli
}

func (d *ScrapliDriver) GetCapability() ProtocolCapability {
	return ScrapliCapability
}

// Connect 使用platform方式建立连接
func (d *ScrapliDriver) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connectLocked()
}

func (d *ScrapliDriver) connectLocked() error {
	if d.driver != nil {
		return nil
	}
	ylog.Debugf("scrapli", "connecting: platform=%s, host=%s", d.platform, d.host)
	p, err := platform.NewPlatform(
		d.platform,
		d.host,
		options.WithAuthNoStrictKey(),
		options.WithAuthUsername(d.username),
		options.WithAuthPassword(d.password),
		options.WithTimeoutOps(d.timeout),
	)
	if err != nil {
		return fmt.Errorf("create platform failed: %w", err)
	}
	driver, err := p.GetNetworkDriver()
	if err != nil {
		return fmt.Errorf("get network driver failed: %w", err)
	}
	if err := driver.Open(); err != nil {
		return fmt.Errorf("open connection failed: %w", err)
	}
	d.driver = driver
	return nil
}

// Execute 执行命令批。用 goroutine 包装 scrapli 调用以便超时/取消中断。
func (d *ScrapliDriver) Execute(ctx context.Context, req *ProtocolRequest) (*ProtocolResponse, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if req == nil {
		return nil, fmt.Errorf("request cannot be nil")
	}
	if err := d.connectLocked(); err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cmds, ok := req.Payload.([]string)
	if !ok {
		return nil, fmt.Errorf("invalid payload type %T, want []string", req.Payload)
	}

	type outcome struct {
		resp *response.MultiResponse
		err  error
	}
	resultChan := make(chan outcome, 1)

	switch req.CommandType {
	case CommandTypeCommands:
		ylog.Debugf("scrapli", "executing %d commands with timeout control", len(cmds))
		go func() {
			resp, err := d.driver.SendCommands(cmds)
			resultChan <- outcome{resp, err}
		}()
	case CommandTypeConfig:
		ylog.Debugf("scrapli", "executing %d config lines with timeout control", len(cmds))
		go func() {
			resp, err := d.driver.SendConfigs(cmds)
			resultChan <- outcome{resp, err}
		}()
	default:
		return nil, ErrUnsupportedCommandType
	}

	select {
	case <-ctx.Done():
		ylog.Warnf("scrapli", "execution timed out or cancelled: %v", ctx.Err())
		return nil, ctx.Err()
	case result := <-resultChan:
		if result.err != nil {
			ylog.Errorf("scrapli", "execution failed: %v", result.err)
			return nil, result.err
		}
		var rawData strings.Builder
		for i, r := range result.resp.Responses {
			rawData.WriteString(r.Result)
			if i < len(result.resp.Responses)-1 {
				rawData.WriteString("\n")
			}
		}
		ylog.Debugf("scrapli", "execution successful, %d responses received", len(result.resp.Responses))
		return &ProtocolResponse{
			Success:    true,
			RawData:    []byte(rawData.String()),
			Structured: result.resp,
		}, nil
	}
}

// GetPrompt 获取设备提示符
func (d *ScrapliDriver) GetPrompt() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.connectLocked(); err != nil {
		return "", err
	}
	return d.driver.GetPrompt()
}

// Close 关闭连接
func (d *ScrapliDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.driver == nil {
		return nil
	}
	err := d.driver.Close()
	d.driver = nil
	return err
}
