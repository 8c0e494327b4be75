package escrow

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "escrow.v1.EscrowService"

// Service is the handler surface registered with gRPC.
type Service interface {
	CreateCampaign(context.Context, *CreateCampaignRequest) (*CreateCampaignResponse, error)
	Deposit(context.Context, *DepositRequest) (*DepositResponse, error)
	RefundInvestment(context.Context, *RefundInvestmentRequest) (*RefundInvestmentResponse, error)
	SubmitMilestone(context.Context, *MilestoneRequest) (*MilestoneResponse, error)
	ApproveMilestone(context.Context, *MilestoneRequest) (*ReleaseResponse, error)
	RejectMilestone(context.Context, *RejectMilestoneRequest) (*MilestoneResponse, error)
	RecordVerdict(context.Context, *RecordVerdictRequest) (*RecordVerdictResponse, error)
	CloseCampaign(context.Context, *CloseCampaignRequest) (*CloseCampaignResponse, error)
	GetSnapshot(context.Context, *GetSnapshotRequest) (*GetSnapshotResponse, error)
	ListCampaigns(context.Context, *ListCampaignsRequest) (*ListCampaignsResponse, error)
	SetScore(context.Context, *SetScoreRequest) (*SetScoreResponse, error)
	GetPortfolio(context.Context, *GetPortfolioRequest) (*GetPortfolioResponse, error)
	ListActivity(context.Context, *ListActivityRequest) (*ListActivityResponse, error)
	ListEvents(context.Context, *ListEventsRequest) (*ListEventsResponse, error)
}

var _ Service = (*Server)(nil)

// FullMethod returns the full RPC path of method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// Register adds the escrow service to server.
func Register(server grpc.ServiceRegistrar, svc Service) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*Service)(nil),
		Methods: []grpc.MethodDesc{
			unary("CreateCampaign", svc.CreateCampaign),
			unary("Deposit", svc.Deposit),
			unary("RefundInvestment", svc.RefundInvestment),
			unary("SubmitMilestone", svc.SubmitMilestone),
			unary("ApproveMilestone", svc.ApproveMilestone),
			unary("RejectMilestone", svc.RejectMilestone),
			unary("RecordVerdict", svc.RecordVerdict),
			unary("CloseCampaign", svc.CloseCampaign),
			unary("GetSnapshot", svc.GetSnapshot),
			unary("ListCampaigns", svc.ListCampaigns),
			unary("SetScore", svc.SetScore),
			unary("GetPortfolio", svc.GetPortfolio),
			unary("ListActivity", svc.ListActivity),
			unary("ListEvents", svc.ListEvents),
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "escrow/v1/escrow.proto",
	}, svc)
}

func unary[Req, Resp any](method string, call func(context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := FullMethod(method)
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			req := new(Req)
			if err := dec(req); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(ctx, req)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				typed, ok := req.(*Req)
				if !ok {
					return nil, status.Errorf(codes.InvalidArgument, "invalid request type %T", req)
				}
				return call(ctx, typed)
			}
			return interceptor(ctx, req, info, handler)
		},
	}
}
