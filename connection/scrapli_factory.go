package connection

import (
	"fmt"

	"github.com/charlesren/ylog"
)

// ScrapliFactory 创建 scrapli 后端驱动
type ScrapliFactory struct{}

func (f *ScrapliFactory) Create(config ConnectionConfig) (ProtocolDriver, error) {
	config = config.withDefaults()
	if config.Host == "" {
		return nil, fmt.Errorf("host cannot be empty")
	}
	ylog.Debugf("scrapli", "creating driver: host=%s, platform=%s", config.Host, config.Platform)
	return &ScrapliDriver{
		host:     config.Host,
		username: config.Username,
		password: config.Password,
		platform: string(config.Platform),
		timeout:  config.Timeout,
	}, nil
}

func (f *ScrapliFactory) HealthCheck(driver ProtocolDriver) bool {
	d, ok := driver.(*ScrapliDriver)
	if !ok {
		return false
	}
	_, err := d.GetPrompt()
	return err == nil
}
