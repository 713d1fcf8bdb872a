package connection

import (
	"context"
	"errors"
)

var ErrUnsupportedCommandType = errors.New("unsupported command type")
var ErrUnsupportedProtocol = errors.New("unsupported protocol")

// Protocol driver interfaces and types
type ProtocolDriver interface {
	ProtocolType() Protocol
	Close() error
	Execute(ctx context.Context, req *ProtocolRequest) (*ProtocolResponse, error)
	GetCapability() ProtocolCapability
}

type ProtocolRequest struct {
	CommandType CommandType // commands/config
	Payload     interface{} // []string
}

type ProtocolResponse struct {
	Success    bool
	RawData    []byte
	Structured interface{} // []*session.CommandResult 或 *response.MultiResponse
}

// ProtocolFactory 协议驱动工厂
type ProtocolFactory interface {
	Create(config ConnectionConfig) (ProtocolDriver, error)
	HealthCheck(driver ProtocolDriver) bool
}
