package audit

import (
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/smithy-go"
	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"
)

// Err contains information about an API call error.
type Err struct {
	Service   string // Service ID
	Operation string // API name
	Status    int    // HTTP status code
	Code      string // AWS error code
	Message   string // Error message
	RequestID string // AWS request ID

	err error // Original error
}

// DecodeErr converts a non-nil err into a new Err instance.
func DecodeErr(err error) *Err {
	if err == nil {
		return nil
	}
	e := &Err{Message: err.Error(), err: err}
	var op *smithy.OperationError
	if errors.As(err, &op) {
		e.Service = op.Service()
		e.Operation = op.Operation()
	}
	var api smithy.APIError
	if errors.As(err, &api) {
		e.Code = api.ErrorCode()
		e.Message = api.ErrorMessage()
	}
	var rsp *awshttp.ResponseError
	if errors.As(err, &rsp) {
		e.Status = rsp.HTTPStatusCode()
		e.RequestID = rsp.ServiceRequestID()
	}
	return e
}

// Error implements the error interface.
func (e *Err) Error() string {
	return e.err.Error()
}

// Unwrap returns the original error.
func (e *Err) Unwrap() error {
	return e.err
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (e *Err) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	if e.Service != "" {
		enc.AddString("service", e.Service)
		enc.AddString("operation", e.Operation)
	}
	if e.Status != 0 {
		enc.AddInt("status", e.Status)
	}
	if e.Code != "" {
		enc.AddString("code", e.Code)
	}
	enc.AddString("message", e.Message)
	if e.RequestID != "" {
		enc.AddString("request_id", e.RequestID)
	}
	return nil
}
