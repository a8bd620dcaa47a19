package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// DashboardServiceName is the fully qualified gRPC service name.
const DashboardServiceName = "rwe.km.v1.Dashboard"

const (
	methodGetView = "/rwe.km.v1.Dashboard/GetView"
	methodLoad    = "/rwe.km.v1.Dashboard/Load"
	methodSelect  = "/rwe.km.v1.Dashboard/Select"
	methodReset   = "/rwe.km.v1.Dashboard/Reset"
	methodHitTest = "/rwe.km.v1.Dashboard/HitTest"
)

// DashboardServer is the server API for the Dashboard service. Requests and views are
// carried as google.protobuf.Struct documents mirroring the HTTP JSON bodies.
type DashboardServer interface {
	GetView(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Load(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Select(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Reset(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	HitTest(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterDashboardServer attaches srv to s.
func RegisterDashboardServer(s grpc.ServiceRegistrar, srv DashboardServer) {
	s.RegisterService(&DashboardServiceDesc, srv)
}

// DashboardServiceDesc describes the Dashboard service for grpc.Server.
var DashboardServiceDesc = grpc.ServiceDesc{
	ServiceName: DashboardServiceName,
	HandlerType: (*DashboardServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetView", Handler: dashboardGetViewHandler},
		{MethodName: "Load", Handler: dashboardLoadHandler},
		{MethodName: "Select", Handler: dashboardSelectHandler},
		{MethodName: "Reset", Handler: dashboardResetHandler},
		{MethodName: "HitTest", Handler: dashboardHitTestHandler},
	},
	Streams: []grpc.StreamDesc{},
}

func dashboardGetViewHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DashboardServer).GetView(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetView}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DashboardServer).GetView(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func dashboardLoadHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DashboardServer).Load(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodLoad}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DashboardServer).Load(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func dashboardSelectHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DashboardServer).Select(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodSelect}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DashboardServer).Select(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func dashboardResetHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DashboardServer).Reset(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodReset}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DashboardServer).Reset(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func dashboardHitTestHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DashboardServer).HitTest(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodHitTest}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DashboardServer).HitTest(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// DashboardClient is the client API for the Dashboard service.
type DashboardClient struct {
	cc grpc.ClientConnInterface
}

// NewDashboardClient wraps a client connection.
func NewDashboardClient(cc grpc.ClientConnInterface) *DashboardClient {
	return &DashboardClient{cc: cc}
}

func (c *DashboardClient) GetView(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodGetView, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *DashboardClient) Load(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodLoad, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *DashboardClient) Select(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodSelect, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *DashboardClient) Reset(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodReset, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *DashboardClient) HitTest(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodHitTest, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
