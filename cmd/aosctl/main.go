package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charlesren/ylog"

	"github.com/Mathias-gt/ale.aos/cliconf"
	"github.com/Mathias-gt/ale.aos/connection"
	"github.com/Mathias-gt/ale.aos/internal/config"
)

var (
	ConfPath    string
	DeviceName  string
	Mode        string
	Commands    string
	CommandFile string
)

func init() {
	confPath := flag.String("c", "../conf/aosctl.yml", "ConfigPath")
	device := flag.String("d", "", "device name from config")
	mode := flag.String("m", "show", "mode: show|config|facts|get-config")
	commands := flag.String("e", "", "commands, semicolon separated")
	commandFile := flag.String("f", "", "file with one command per line (overrides -e)")
	flag.Parse()
	ConfPath = *confPath
	DeviceName = *device
	Mode = *mode
	Commands = *commands
	CommandFile = *commandFile
}

func initLog(logLevel int) {
	logPath := "../logs/aosctl.log"
	logger := ylog.NewYLog(
		ylog.WithLogFile(logPath),
		ylog.WithMaxAge(3),
		ylog.WithMaxSize(100),
		ylog.WithMaxBackups(3),
		ylog.WithLevel(logLevel),
	)
	ylog.InitLogger(logger)
}

func main() {
	cfg, err := config.NewManager(ConfPath)
	if err != nil {
		fmt.Printf("####LOAD_CONFIG_ERROR: %v\n", err)
		os.Exit(-1)
	}
	initLog(cfg.LogLevel())
	cfg.Watch()

	ylog.Infof("Main", "aosctl starting, config: %s", ConfPath)

	dev, ok := cfg.Device(DeviceName)
	if !ok {
		fmt.Printf("device %q not found in config\n", DeviceName)
		os.Exit(-1)
	}
	sess := cfg.Session()

	connCfg := connection.ConnectionConfig{
		Host:           dev.Host,
		Port:           dev.Port,
		Username:       dev.Username,
		Password:       dev.Password,
		EnablePassword: dev.EnablePassword,
		Platform:       connection.Platform(dev.Platform),
		Timeout:        sess.Timeout,
		UseSessions:    sess.UseSessions,
		ConfigCommands: sess.ConfigCommands,
		DisablePaging:  sess.DisablePagingCommand,
	}

	pool := connection.NewConnectionPool(connCfg)
	defer pool.Close()

	driver, err := pool.Get(connection.Protocol(dev.Protocol))
	if err != nil {
		ylog.Errorf("Main", "connect %s failed: %v", dev.Host, err)
		os.Exit(-1)
	}
	defer pool.Release(driver)
	ylog.Infof("Main", "connected to %s (%s)", dev.Host, dev.Protocol)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		ylog.Infof("Main", "termination signal received, cancelling")
		cancel()
	}()

	if err := runMode(ctx, driver, Mode, Commands); err != nil {
		ylog.Errorf("Main", "%s failed: %v", Mode, err)
		os.Exit(1)
	}
}

func runMode(ctx context.Context, driver connection.ProtocolDriver, mode, commands string) error {
	switch mode {
	case "show":
		cmds, err := loadCommands(commands)
		if err != nil {
			return err
		}
		resp, err := driver.Execute(ctx, &connection.ProtocolRequest{
			CommandType: connection.CommandTypeCommands,
			Payload:     cmds,
		})
		if err != nil {
			return err
		}
		fmt.Println(string(resp.RawData))
		return nil
	case "config":
		cmds, err := loadCommands(commands)
		if err != nil {
			return err
		}
		resp, err := driver.Execute(ctx, &connection.ProtocolRequest{
			CommandType: connection.CommandTypeConfig,
			Payload:     cmds,
		})
		if err != nil {
			return err
		}
		fmt.Println(string(resp.RawData))
		return nil
	case "facts":
		cc, err := cliconfFor(driver)
		if err != nil {
			return err
		}
		info, err := cc.GetDeviceInfo(ctx)
		if err != nil {
			return err
		}
		for k, v := range info {
			fmt.Printf("%s: %s\n", k, v)
		}
		return nil
	case "get-config":
		cc, err := cliconfFor(driver)
		if err != nil {
			return err
		}
		out, err := cc.GetConfig(ctx, "running", "text", nil)
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
}

// cliconfFor 模块层只挂在原生驱动上，scrapli 驱动走自己的平台定义
func cliconfFor(driver connection.ProtocolDriver) (*cliconf.Cliconf, error) {
	nd, ok := driver.(*connection.NativeDriver)
	if !ok {
		return nil, fmt.Errorf("mode requires the native ssh driver")
	}
	return cliconf.New(nd.Session()), nil
}

// loadCommands 优先从 -f 文件读取（一行一条），否则用 -e 的分号列表
func loadCommands(commands string) ([]string, error) {
	if CommandFile != "" {
		data, err := os.ReadFile(CommandFile)
		if err != nil {
			return nil, fmt.Errorf("read command file: %w", err)
		}
		var cmds []string
		for _, line := range strings.Split(string(data), "\n") {
			if t := strings.TrimSpace(line); t != "" && !strings.HasPrefix(t, "!") {
				cmds = append(cmds, t)
			}
		}
		if len(cmds) == 0 {
			return nil, fmt.Errorf("command file %s is empty", CommandFile)
		}
		return cmds, nil
	}
	cmds := splitCommands(commands)
	if len(cmds) == 0 {
		return nil, fmt.Errorf("no commands given (-e or -f)")
	}
	return cmds, nil
}

func splitCommands(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
