package escrow

import (
	"context"

	"google.golang.org/grpc"

	"github.com/taliva/escrow/internal/platform/grpc/jsoncodec"
)

// Client calls EscrowService over a JSON-codec connection.
type Client struct {
	conn grpc.ClientConnInterface
}

// NewClient wraps conn.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

func invoke[Resp any](ctx context.Context, c *Client, method string, req any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(jsoncodec.Name)}, opts...)
	if err := c.conn.Invoke(ctx, FullMethod(method), req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateCampaign(ctx context.Context, in *CreateCampaignRequest, opts ...grpc.CallOption) (*CreateCampaignResponse, error) {
	return invoke[CreateCampaignResponse](ctx, c, "CreateCampaign", in, opts)
}

func (c *Client) Deposit(ctx context.Context, in *DepositRequest, opts ...grpc.CallOption) (*DepositResponse, error) {
	return invoke[DepositResponse](ctx, c, "Deposit", in, opts)
}

func (c *Client) RefundInvestment(ctx context.Context, in *RefundInvestmentRequest, opts ...grpc.CallOption) (*RefundInvestmentResponse, error) {
	return invoke[RefundInvestmentResponse](ctx, c, "RefundInvestment", in, opts)
}

func (c *Client) SubmitMilestone(ctx context.Context, in *MilestoneRequest, opts ...grpc.CallOption) (*MilestoneResponse, error) {
	return invoke[MilestoneResponse](ctx, c, "SubmitMilestone", in, opts)
}

func (c *Client) ApproveMilestone(ctx context.Context, in *MilestoneRequest, opts ...grpc.CallOption) (*ReleaseResponse, error) {
	return invoke[ReleaseResponse](ctx, c, "ApproveMilestone", in, opts)
}

func (c *Client) RejectMilestone(ctx context.Context, in *RejectMilestoneRequest, opts ...grpc.CallOption) (*MilestoneResponse, error) {
	return invoke[MilestoneResponse](ctx, c, "RejectMilestone", in, opts)
}

func (c *Client) RecordVerdict(ctx context.Context, in *RecordVerdictRequest, opts ...grpc.CallOption) (*RecordVerdictResponse, error) {
	return invoke[RecordVerdictResponse](ctx, c, "RecordVerdict", in, opts)
}

func (c *Client) CloseCampaign(ctx context.Context, in *CloseCampaignRequest, opts ...grpc.CallOption) (*CloseCampaignResponse, error) {
	return invoke[CloseCampaignResponse](ctx, c, "CloseCampaign", in, opts)
}

func (c *Client) GetSnapshot(ctx context.Context, in *GetSnapshotRequest, opts ...grpc.CallOption) (*GetSnapshotResponse, error) {
	return invoke[GetSnapshotResponse](ctx, c, "GetSnapshot", in, opts)
}

func (c *Client) ListCampaigns(ctx context.Context, in *ListCampaignsRequest, opts ...grpc.CallOption) (*ListCampaignsResponse, error) {
	return invoke[ListCampaignsResponse](ctx, c, "ListCampaigns", in, opts)
}

func (c *Client) SetScore(ctx context.Context, in *SetScoreRequest, opts ...grpc.CallOption) (*SetScoreResponse, error) {
	return invoke[SetScoreResponse](ctx, c, "SetScore", in, opts)
}

func (c *Client) GetPortfolio(ctx context.Context, in *GetPortfolioRequest, opts ...grpc.CallOption) (*GetPortfolioResponse, error) {
	return invoke[GetPortfolioResponse](ctx, c, "GetPortfolio", in, opts)
}

func (c *Client) ListActivity(ctx context.Context, in *ListActivityRequest, opts ...grpc.CallOption) (*ListActivityResponse, error) {
	return invoke[ListActivityResponse](ctx, c, "ListActivity", in, opts)
}

func (c *Client) ListEvents(ctx context.Context, in *ListEventsRequest, opts ...grpc.CallOption) (*ListEventsResponse, error) {
	return invoke[ListEventsResponse](ctx, c, "ListEvents", in, opts)
}
