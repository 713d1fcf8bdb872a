package cliconf

import (
	"fmt"
	"regexp"

	"github.com/Mathias-gt/ale.aos/session"
)

// Command 一条待执行命令及其执行选项，对应模块层下发的命令表项
type Command struct {
	Command  string
	Output   string // text/json
	Version  string // latest/1
	Prompts  []string
	Answers  []string
	Newline  bool
	SendOnly bool
	CheckAll bool
}

// NewCommand 带缺省选项的命令
func NewCommand(cmd string) Command {
	return Command{
		Command: cmd,
		Output:  "text",
		Version: "latest",
		Newline: true,
	}
}

// toRequest 转换为会话层请求
func (c Command) toRequest() (*session.CommandRequest, error) {
	req := &session.CommandRequest{
		Command:   c.Command,
		Answers:   c.Answers,
		CheckAll:  c.CheckAll,
		NoNewline: !c.Newline,
		SendOnly:  c.SendOnly,
	}
	for _, p := range c.Prompts {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid prompt pattern %q: %w", p, err)
		}
		req.Prompts = append(req.Prompts, re)
	}
	return req, nil
}

// commandWithOutput 按 output/version 改写命令（"| json" 后缀等）
func commandWithOutput(command, output, version string) (string, error) {
	valid := OptionValues()["output"]
	ok := false
	for _, v := range valid {
		if v == output {
			ok = true
			break
		}
	}
	if !ok {
		return "", fmt.Errorf("'output' value %s is invalid. Valid values are %v", output, valid)
	}

	cmd := command
	if output == "json" && !hasJSONSuffix(cmd) {
		cmd = fmt.Sprintf("%s | json", cmd)
	}
	if version != "" && version != "latest" && hasJSONSuffix(cmd) {
		cmd = fmt.Sprintf("%s version %s", cmd, version)
	}
	return cmd, nil
}

func hasJSONSuffix(cmd string) bool {
	return len(cmd) >= 6 && cmd[len(cmd)-6:] == "| json"
}
