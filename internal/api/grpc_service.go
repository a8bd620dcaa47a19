package api

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/nexcar/rwe-km/internal/engine"
	"github.com/nexcar/rwe-km/internal/models"
	"github.com/nexcar/rwe-km/internal/persona"
	"github.com/nexcar/rwe-km/internal/render"
	"github.com/nexcar/rwe-km/internal/services"
	"github.com/nexcar/rwe-km/internal/utils"
)

// HitTestRequest is the body of a hit-test call.
type HitTestRequest struct {
	X float64 `json:"x"`
}

// HitTestResponse reports the point under the pointer, if any.
type HitTestResponse struct {
	Hit   bool        `json:"hit"`
	Point *render.Hit `json:"point,omitempty"`
}

// DashboardGRPC implements DashboardServer on top of the dashboard service.
type DashboardGRPC struct {
	logger    *slog.Logger
	dashboard *services.DashboardService
}

// NewDashboardGRPC constructs the gRPC facade.
func NewDashboardGRPC(logger *slog.Logger, dashboard *services.DashboardService) *DashboardGRPC {
	if logger == nil {
		logger = slog.Default()
	}
	return &DashboardGRPC{logger: logger, dashboard: dashboard}
}

// GetView returns the current view.
func (g *DashboardGRPC) GetView(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return g.encode(g.dashboard.View())
}

// Load fetches a dataset for the requested query.
func (g *DashboardGRPC) Load(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var q models.Query
	if err := FromStruct(req, &q); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	view, err := g.dashboard.Load(ctx, q)
	if err != nil {
		return nil, grpcError(err)
	}
	return g.encode(view)
}

// Select opens the persona view for a subgroup.
func (g *DashboardGRPC) Select(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var sub persona.Subgroup
	if err := FromStruct(req, &sub); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	g.logger.Debug("Select called", slog.String("subgroup", persona.CanonicalKey(sub)), slog.Int("n", sub.PatientCount))
	view, err := g.dashboard.Select(sub)
	if err != nil {
		return nil, grpcError(err)
	}
	return g.encode(view)
}

// Reset returns to the overall view.
func (g *DashboardGRPC) Reset(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return g.encode(g.dashboard.Reset())
}

// HitTest resolves a pointer position against the displayed curve.
func (g *DashboardGRPC) HitTest(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in HitTestRequest
	if err := FromStruct(req, &in); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	hit, ok := g.dashboard.HitTest(in.X)
	resp := HitTestResponse{Hit: ok}
	if ok {
		resp.Point = &hit
	}
	return g.encode(resp)
}

func (g *DashboardGRPC) encode(v any) (*structpb.Struct, error) {
	out, err := ToStruct(v)
	if err != nil {
		g.logger.Error("encode response failed", slog.Any("error", err))
		return nil, status.Error(codes.Internal, "encode response")
	}
	return out, nil
}

func grpcError(err error) error {
	switch {
	case errors.Is(err, engine.ErrNoDataset):
		return status.Error(codes.FailedPrecondition, err.Error())
	case utils.IsKind(err, utils.KindInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
