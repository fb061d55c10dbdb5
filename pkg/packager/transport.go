package packager

import (
	"context"
)

// Transport parameter keys. A transport binding is configured as a flat
// map of these keys; each driver reads the ones it understands.
const (
	ParamProtocol          = "protocol"
	ParamServerFQDN        = "server-fqdn"
	ParamServerPort        = "server-port"
	ParamUsername          = "username"
	ParamPassword          = "password"
	ParamAuthMode          = "auth-mode"
	ParamDefaultDirectory  = "default-directory"
	ParamTransferMode      = "transfer-mode"
	ParamUsePasv           = "use-pasv"
	ParamDataType          = "data-type"
	ParamServiceDoc        = "service-doc"
	ParamDefaultCollection = "default-collection"
	ParamOnBehalfOf        = "on-behalf-of"
	ParamUserAgent         = "user-agent"
)

// Protocol values recognized by the registry when binding transports
const (
	ProtocolFilesystem = "filesystem"
	ProtocolFTP        = "ftp"
	ProtocolSwordV2    = "SWORDv2"
)

// Receipt points at target-side resources produced by a successful
// transfer. StatusRef, when present, is the URL of an asynchronous
// status document; ItemURL is the deposited item itself.
type Receipt struct {
	StatusRef string
	ItemURL   string
}

// Response is the outcome of one send over a transport session
type Response struct {
	Success bool
	Cause   error
	Receipt *Receipt
}

// Session is one open connection to a target. Sessions are per-task
// and must not be shared; callers must Close on all exit paths.
type Session interface {
	Send(ctx context.Context, stream PackageStream, params map[string]string) (Response, error)
	Close() error
}

// Transport opens sessions to a target over one wire protocol
type Transport interface {
	Open(ctx context.Context, params map[string]string) (Session, error)
}
