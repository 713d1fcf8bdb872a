package session

import (
	"context"
	"io"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mathias-gt/ale.aos/prompt"
)

func newTestSession(t *testing.T, opts Options) (*Session, *scriptedTransport) {
	t.Helper()
	trans := newScriptedTransport()
	opts.Authenticated = true
	s := New(trans, nil, opts)
	t.Cleanup(func() { _ = s.Close() })
	return s, trans
}

func TestExecute_OutputRoundTrip(t *testing.T) {
	s, trans := newTestSession(t, Options{})
	trans.on("show running-config\n",
		"show running-config\r\nvlan 10 enable\r\nvlan 20 enable\r\n", "switch> ")

	res, err := s.Execute(context.Background(), &CommandRequest{Command: "show running-config"})
	require.NoError(t, err)

	// 回显与终止提示符被剥离，中间内容逐字节保留
	assert.Equal(t, "vlan 10 enable\r\nvlan 20 enable\r\n", res.Output)
	assert.Equal(t, "switch> ", res.Prompt)
	assert.Equal(t, prompt.KindOperational, res.PromptKind)
	assert.False(t, res.Failed)
	assert.Equal(t, ModeOperational, s.Mode())
}

func TestExecute_ChunkedResponse(t *testing.T) {
	s, trans := newTestSession(t, Options{})
	trans.on("show system\n",
		"show system\r\nUp Ti", "me: 5 days\r\n", "switch> ")

	res, err := s.Execute(context.Background(), &CommandRequest{Command: "show system"})
	require.NoError(t, err)
	assert.Equal(t, "Up Time: 5 days\r\n", res.Output)
}

func TestExecute_Timeout(t *testing.T) {
	s, trans := newTestSession(t, Options{})
	trans.on("show slow\n", "show slow\r\npartial output so far\r\n")

	before := s.Mode()
	_, err := s.Execute(context.Background(), &CommandRequest{
		Command: "show slow",
		Timeout: 50 * time.Millisecond,
	})
	require.Error(t, err)

	serr := GetSessionError(err)
	require.NotNil(t, serr)
	assert.Equal(t, ErrCodeTimeout, serr.Code)
	assert.Contains(t, serr.Partial, "partial output so far")
	// 超时不改变模式
	assert.Equal(t, before, s.Mode())
}

func TestExecute_ErrorBannerBeforePrompt(t *testing.T) {
	s, trans := newTestSession(t, Options{})
	trans.on("show bogus\n",
		"show bogus\r\nERROR: Invalid entry: \"bogus\"\r\nswitch# ")

	res, err := s.Execute(context.Background(), &CommandRequest{Command: "show bogus"})
	require.NoError(t, err)

	// 错误检测优先于模式推断：结果失败，即使后面跟着特权提示符
	assert.True(t, res.Failed)
	assert.Equal(t, prompt.KindPrivileged, res.PromptKind)
	// 失败结果不携带模式转换
	assert.Equal(t, ModeOperational, s.Mode())
}

func TestExecute_AutoModeTransitionToConfig(t *testing.T) {
	s, trans := newTestSession(t, Options{
		EnablePassword: "secret",
		ConfigCommands: []string{"vlan"},
	})
	trans.on("enable\n", "enable\r\nPassword: ")
	trans.on("secret\n", "\r\nswitch# ")
	trans.on("configure terminal\n", "configure terminal\r\nswitch(config)# ")
	trans.on("vlan 10\n", "vlan 10\r\nswitch(config)# ")

	res, err := s.Execute(context.Background(), &CommandRequest{Command: "vlan 10"})
	require.NoError(t, err)
	assert.False(t, res.Failed)
	assert.Equal(t, ModeConfig, s.Mode())

	// 补发的转换序列严格按梯级：enable → 口令 → configure terminal → 用户命令
	assert.Equal(t, []string{"enable\n", "secret\n", "configure terminal\n", "vlan 10\n"},
		trans.written())
}

func TestExecute_ModeTransitionRejected(t *testing.T) {
	s, trans := newTestSession(t, Options{})
	trans.on("enable\n", "enable\r\nERROR: Authorization failed\r\nswitch> ")

	_, err := s.Execute(context.Background(), &CommandRequest{
		Command:  "write memory",
		Category: CategoryPrivileged,
	})
	require.Error(t, err)
	assert.True(t, IsErrorCode(err, ErrCodeModeTransitionFailed))
	// 模式停留在最后一次确认成功的状态
	assert.Equal(t, ModeOperational, s.Mode())
}

func TestExecute_CancelThenReprobe(t *testing.T) {
	s, trans := newTestSession(t, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Execute(ctx, &CommandRequest{Command: "show slow"})
	require.Error(t, err)
	assert.True(t, IsErrorCode(err, ErrCodeCancelled))

	// 取消后的下一条命令先用空回车重探模式
	trans.on("\n", "\r\nswitch# ")
	trans.on("show system\n", "show system\r\nUp Time: 5 days\r\nswitch# ")

	res, err := s.Execute(context.Background(), &CommandRequest{Command: "show system"})
	require.NoError(t, err)
	assert.Equal(t, "Up Time: 5 days\r\n", res.Output)
	assert.Equal(t, ModePrivileged, s.Mode())
}

func TestExecute_PagingContinuation(t *testing.T) {
	s, trans := newTestSession(t, Options{})
	trans.on("show big\n", "show big\r\npage one\r\n--More--")
	trans.on(" ", "page two\r\nswitch> ")

	res, err := s.Execute(context.Background(), &CommandRequest{Command: "show big"})
	require.NoError(t, err)

	// 分页提示文本被剥离，续页由空格（不带换行）触发
	assert.Equal(t, "page one\r\npage two\r\n", res.Output)
	assert.Equal(t, 1, trans.writeCount(" "))
}

func TestExecute_RequestPromptAnswers(t *testing.T) {
	s, trans := newTestSession(t, Options{})
	trans.on("copy running-config working\n",
		"copy running-config working\r\nConfirm (Y/N) ")
	trans.on("Y\n", "done\r\nswitch> ")

	res, err := s.Execute(context.Background(), &CommandRequest{
		Command: "copy running-config working",
		Prompts: []*regexp.Regexp{regexp.MustCompile(`(?i)\(y/n\)\s?$`)},
		Answers: []string{"Y"},
	})
	require.NoError(t, err)
	assert.False(t, res.Failed)
	assert.Equal(t, 1, trans.writeCount("Y\n"))
}

func TestExecute_UnansweredConfirmPromptEndsExchange(t *testing.T) {
	s, trans := newTestSession(t, Options{})
	trans.on("reload\n", "reload\r\nConfirm reload (Y/N) ")

	// 请求未提供应答时，确认提示按终止处理，交给调用方定夺
	res, err := s.Execute(context.Background(), &CommandRequest{Command: "reload"})
	require.NoError(t, err)
	assert.Equal(t, prompt.KindConfirm, res.PromptKind)
	// 确认提示不携带模式信息，模式保持不变
	assert.Equal(t, ModeOperational, s.Mode())
}

func TestExecute_SendOnly(t *testing.T) {
	s, trans := newTestSession(t, Options{})

	res, err := s.Execute(context.Background(), &CommandRequest{
		Command:  "logout",
		SendOnly: true,
	})
	require.NoError(t, err)
	assert.Empty(t, res.Output)
	assert.Equal(t, 1, trans.writeCount("logout\n"))
}

func TestExecute_CacheHitAndConfigInvalidation(t *testing.T) {
	s, trans := newTestSession(t, Options{
		CacheEnabled:   true,
		ConfigCommands: []string{"vlan"},
	})
	trans.on("show system\n", "show system\r\nUp Time: 5 days\r\nswitch> ")

	res1, err := s.Execute(context.Background(), &CommandRequest{Command: "show system"})
	require.NoError(t, err)

	// 第二次命中缓存，设备不再收到命令
	res2, err := s.Execute(context.Background(), &CommandRequest{Command: "show system"})
	require.NoError(t, err)
	assert.Equal(t, res1.Output, res2.Output)
	assert.Equal(t, 1, trans.writeCount("show system\n"))

	// 配置命令执行前整体失效缓存
	trans.on("enable\n", "enable\r\nswitch# ")
	trans.on("configure terminal\n", "configure terminal\r\nswitch(config)# ")
	trans.on("vlan 5\n", "vlan 5\r\nswitch(config)# ")
	_, err = s.Execute(context.Background(), &CommandRequest{Command: "vlan 5"})
	require.NoError(t, err)
	assert.Equal(t, 0, s.Cache().Len())

	// 再次请求只读命令：先退出配置模式，然后重新询问设备
	trans.on("exit\n", "exit\r\nswitch# ")
	trans.on("show system\n", "show system\r\nUp Time: 6 days\r\nswitch# ")
	res3, err := s.Execute(context.Background(), &CommandRequest{Command: "show system"})
	require.NoError(t, err)
	assert.Equal(t, "Up Time: 6 days\r\n", res3.Output)
	assert.Equal(t, 2, trans.writeCount("show system\n"))
}

func TestExecute_NotAuthenticated(t *testing.T) {
	trans := newScriptedTransport()
	s := New(trans, nil, Options{})
	defer s.Close()

	_, err := s.Execute(context.Background(), &CommandRequest{Command: "show system"})
	assert.True(t, IsErrorCode(err, ErrCodeNotAuthenticated))

	s.MarkAuthenticated()
	assert.Equal(t, ModeOperational, s.Mode())
}

func TestExecute_SessionClosed(t *testing.T) {
	s, _ := newTestSession(t, Options{})
	require.NoError(t, s.Close())

	_, err := s.Execute(context.Background(), &CommandRequest{Command: "show system"})
	assert.True(t, IsErrorCode(err, ErrCodeSessionClosed))
}

func TestExecute_InvalidRequest(t *testing.T) {
	s, _ := newTestSession(t, Options{})

	_, err := s.Execute(context.Background(), nil)
	assert.True(t, IsErrorCode(err, ErrCodeInvalidRequest))

	_, err = s.Execute(context.Background(), &CommandRequest{Command: "   "})
	assert.True(t, IsErrorCode(err, ErrCodeInvalidRequest))
}

func TestExecuteBatch_StopsOnError(t *testing.T) {
	s, trans := newTestSession(t, Options{})
	trans.on("show a\n", "show a\r\nout a\r\nswitch> ")
	// "show b" 没有脚本响应，会超时

	results, err := s.ExecuteBatch(context.Background(), []*CommandRequest{
		{Command: "show a"},
		{Command: "show b", Timeout: 50 * time.Millisecond},
		{Command: "show c"},
	})
	require.Error(t, err)
	assert.True(t, IsErrorCode(err, ErrCodeTimeout))
	require.Len(t, results, 1)
	assert.Equal(t, "out a\r\n", results[0].Output)
	assert.Equal(t, 0, trans.writeCount("show c\n"))
}

// floodTransport 持续产出字节，模拟空闲时滔滔不绝的设备输出
type floodTransport struct {
	mu     sync.Mutex
	reads  int
	closed bool
}

func (t *floodTransport) Read(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, io.EOF
	}
	t.reads++
	p[0] = 'x'
	return 1, nil
}

func (t *floodTransport) Write(p []byte) (int, error) { return len(p), nil }

func (t *floodTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

func (t *floodTransport) readCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reads
}

func TestClose_ReclaimsReaderWhileIdle(t *testing.T) {
	trans := &floodTransport{}
	s := New(trans, nil, Options{Authenticated: true})

	// 无命令在执行，读取协程最终填满通道并停在发送上
	require.Eventually(t, func() bool {
		return trans.readCount() > 64
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Close())

	// 关闭后读取协程退出，不再触碰传输层
	time.Sleep(20 * time.Millisecond)
	snapshot := trans.readCount()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, snapshot, trans.readCount())
}

func TestExecute_TransportClosedMidCommand(t *testing.T) {
	s, trans := newTestSession(t, Options{})
	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = trans.Close()
	}()

	_, err := s.Execute(context.Background(), &CommandRequest{Command: "show system"})
	require.Error(t, err)
	assert.True(t, IsErrorCode(err, ErrCodeTransportClosed))
}
