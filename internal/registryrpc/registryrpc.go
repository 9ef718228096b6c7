// Package registryrpc exposes a registryservice.Registry over the same
// hand-rolled grpc.ServiceDesc plumbing daemonrpc uses (spec.md §4.7,
// component H): Register and Request as RPCs so a client process never
// needs direct access to the Registry's in-memory map.
package registryrpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/gekkofs/gekkofs-go/internal/registryservice"
	"github.com/gekkofs/gekkofs-go/internal/transport"
)

// ServiceName is the registry RPC service's grpc.ServiceDesc name.
const ServiceName = "gekkofs.registry.Registry"

type RegisterRequest struct {
	WorkflowName   string `json:"workflow_name"`
	HostConfigFile string `json:"host_config_file"`
	HostFile       string `json:"host_file"`
}
type RegisterReply struct {
	Err string `json:"err,omitempty"`
}

type RequestRequest struct {
	FlowList             string `json:"flow_list"`
	OutputHostConfigFile string `json:"output_host_config_file"`
	OutputHostFile       string `json:"output_host_file"`
	ManifestFile         string `json:"manifest_file,omitempty"`
}
type RequestReply struct {
	Err string `json:"err,omitempty"`
}

// Handlers adapts a *registryservice.Registry to the RPC surface.
type Handlers struct {
	registry *registryservice.Registry
}

func New(registry *registryservice.Registry) *Handlers {
	return &Handlers{registry: registry}
}

func (h *Handlers) Register(_ context.Context, req *RegisterRequest) (*RegisterReply, error) {
	if err := h.registry.Register(req.WorkflowName, req.HostConfigFile, req.HostFile); err != nil {
		return &RegisterReply{Err: err.Error()}, nil
	}
	return &RegisterReply{}, nil
}

func (h *Handlers) Request(_ context.Context, req *RequestRequest) (*RequestReply, error) {
	var err error
	if req.ManifestFile != "" {
		err = h.registry.RequestWithManifest(req.FlowList, req.OutputHostConfigFile, req.OutputHostFile, req.ManifestFile)
	} else {
		err = h.registry.Request(req.FlowList, req.OutputHostConfigFile, req.OutputHostFile)
	}
	if err != nil {
		return &RequestReply{Err: err.Error()}, nil
	}
	return &RequestReply{}, nil
}

// ServiceDesc builds the grpc.ServiceDesc exposing Register/Request.
func ServiceDesc(h *Handlers) grpc.ServiceDesc {
	return transport.NewServiceDesc(ServiceName, []transport.Method{
		{Name: "Register", NewArg: func() any { return new(RegisterRequest) }, Handler: wrap(h.Register)},
		{Name: "Request", NewArg: func() any { return new(RequestRequest) }, Handler: wrap(h.Request)},
	})
}

func wrap[Req, Rep any](fn func(context.Context, *Req) (*Rep, error)) func(context.Context, any) (any, error) {
	return func(ctx context.Context, arg any) (any, error) {
		return fn(ctx, arg.(*Req))
	}
}
