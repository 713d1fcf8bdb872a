package connection

import (
	"fmt"
	"io"

	"golang.org/x/crypto/ssh"
)

// SSHTransport 把一条 SSH PTY shell 暴露为会话核心消费的字节流。
// 核心不关心 socket 与握手，只读写这条流。
type SSHTransport struct {
	client *ssh.Client
	sess   *ssh.Session
	stdin  io.WriteCloser
	stdout io.Reader
}

// DialSSH 建立 SSH 连接并打开交互式 shell
func DialSSH(config ConnectionConfig) (*SSHTransport, error) {
	config = config.withDefaults()

	sshConfig := &ssh.ClientConfig{
		User:            config.Username,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         config.Timeout,
		Auth: []ssh.AuthMethod{
			ssh.Password(config.Password),
			// 同时尝试 keyboard-interactive，提升与网络设备的兼容性
			ssh.KeyboardInteractive(func(user, instruction string, questions []string, echos []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range questions {
					answers[i] = config.Password
				}
				return answers, nil
			}),
		},
	}

	client, err := ssh.Dial("tcp", fmt.Sprintf("%s:%d", config.Host, config.Port), sshConfig)
	if err != nil {
		return nil, fmt.Errorf("ssh dial failed: %w", err)
	}

	sess, err := client.NewSession()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("create ssh session failed: %w", err)
	}

	// 启用回显，兼容网络设备 CLI
	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := sess.RequestPty("vt100", 24, 80, modes); err != nil {
		sess.Close()
		client.Close()
		return nil, fmt.Errorf("request pty failed: %w", err)
	}

	stdin, err := sess.StdinPipe()
	if err != nil {
		sess.Close()
		client.Close()
		return nil, fmt.Errorf("get stdin failed: %w", err)
	}
	stdout, err := sess.StdoutPipe()
	if err != nil {
		sess.Close()
		client.Close()
		return nil, fmt.Errorf("get stdout failed: %w", err)
	}

	if err := sess.Shell(); err != nil {
		sess.Close()
		client.Close()
		return nil, fmt.Errorf("start shell failed: %w", err)
	}

	return &SSHTransport{client: client, sess: sess, stdin: stdin, stdout: stdout}, nil
}

// Write 写入设备输入流
func (t *SSHTransport) Write(p []byte) (int, error) {
	return t.stdin.Write(p)
}

// Read 阻塞读取设备输出，流关闭时返回 io.EOF
func (t *SSHTransport) Read(p []byte) (int, error) {
	return t.stdout.Read(p)
}

// Close 关闭 shell 与底层连接
func (t *SSHTransport) Close() error {
	_ = t.stdin.Close()
	_ = t.sess.Close()
	return t.client.Close()
}
