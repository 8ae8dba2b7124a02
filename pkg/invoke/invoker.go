package invoke

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"github.com/coopernurse/esscale/pkg/scaler"
	log "github.com/mgutz/logxi/v1"
	"sync"
)

type Applier interface {
	ApplyScale(ctx context.Context, scaleType scaler.ScaleType) (scaler.Outcome, error)
}

// ScaleRequest is the payload accepted by every trigger. A nil ScaleType
// means scale_up.
type ScaleRequest struct {
	ScaleType *string `json:"scale_type,omitempty"`
}

func NewScaleRequest(scaleType string) ScaleRequest {
	return ScaleRequest{ScaleType: &scaleType}
}

// ParseScaleRequest decodes a JSON request body. An empty body is a request
// with no scale type. scaleType is accepted as an alias of scale_type. A
// present scale type that is not a JSON string (null, numbers, arrays) is kept
// as its raw JSON text so it is reported as an invalid scale type.
func ParseScaleRequest(data []byte) (ScaleRequest, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return ScaleRequest{}, nil
	}
	var fields map[string]json.RawMessage
	err := json.Unmarshal(data, &fields)
	if err != nil {
		return ScaleRequest{}, fmt.Errorf("invoke: invalid scale request: %v", err)
	}
	raw, ok := fields["scale_type"]
	if !ok {
		raw, ok = fields["scaleType"]
	}
	if !ok {
		return ScaleRequest{}, nil
	}

	var scaleType string
	if json.Unmarshal(raw, &scaleType) != nil {
		scaleType = string(bytes.TrimSpace(raw))
	}
	return NewScaleRequest(scaleType), nil
}

func (r ScaleRequest) scaleType() scaler.ScaleType {
	if r.ScaleType == nil {
		return scaler.ScaleTypeUp
	}
	return scaler.ScaleType(*r.ScaleType)
}

func NewInvoker(applier Applier) *Invoker {
	return &Invoker{applier: applier}
}

// Invoker is the entry point shared by the HTTP, SQS, cron and CLI triggers.
// Invocations are serialized.
type Invoker struct {
	applier Applier
	lock    sync.Mutex
}

// Invoke validates the request and runs one scaling operation. An unknown
// scale type is reported in the returned message, not as an error.
func (i *Invoker) Invoke(ctx context.Context, req ScaleRequest) (string, error) {
	scaleType := req.scaleType()
	if !scaleType.Valid() {
		msg := fmt.Sprintf(`Invalid scale_type: %s. Valid values are "scale_up" or "scale_down".`, scaleType)
		log.Warn("invoke: " + msg)
		return msg, nil
	}

	i.lock.Lock()
	defer i.lock.Unlock()

	out, err := i.applier.ApplyScale(ctx, scaleType)
	if err != nil {
		log.Error("invoke: scale failed", "scaleType", scaleType, "err", err)
		return "", err
	}
	return out.Message, nil
}

func (i *Invoker) InvokeJSON(ctx context.Context, data []byte) (string, error) {
	req, err := ParseScaleRequest(data)
	if err != nil {
		return "", err
	}
	return i.Invoke(ctx, req)
}
