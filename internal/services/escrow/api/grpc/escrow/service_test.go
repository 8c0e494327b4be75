package escrow

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/taliva/escrow/internal/services/escrow/api/grpc/interceptors"
	grpcmeta "github.com/taliva/escrow/internal/services/escrow/api/grpc/metadata"
	"github.com/taliva/escrow/internal/services/escrow/domain/campaign/campaigntest"
	"github.com/taliva/escrow/internal/services/escrow/engine"
	"github.com/taliva/escrow/internal/services/escrow/ledger"
	"github.com/taliva/escrow/internal/services/escrow/query"
	"github.com/taliva/escrow/internal/services/escrow/registry"
	"github.com/taliva/escrow/internal/services/escrow/storage/memory"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	l := ledger.New(memory.NewEventStore(nil), nil)
	reg := registry.New(l, memory.NewCheckpoints(), zerolog.Nop())
	eng, err := engine.New(l, reg, engine.Options{
		Logger: zerolog.Nop(),
		Now:    func() time.Time { return campaigntest.Epoch },
	})
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	q, err := query.New(reg, l, memory.NewScores(), zerolog.Nop())
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	srv, err := NewServer(eng, q, l)
	if err != nil {
		t.Fatalf("server: %v", err)
	}

	listener := bufconn.Listen(1 << 20)
	server := grpc.NewServer(grpc.ChainUnaryInterceptor(
		grpcmeta.UnaryServerInterceptor(nil),
		interceptors.Errors(),
		interceptors.Validation(nil),
	))
	Register(server, srv)
	go func() { _ = server.Serve(listener) }()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return NewClient(conn)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func grades() []MilestoneSpec {
	return []MilestoneSpec{
		{Tier: "D", Percentage: dec("10")},
		{Tier: "C", Percentage: dec("15")},
		{Tier: "B", Percentage: dec("25")},
		{Tier: "A", Percentage: dec("50")},
	}
}

func reason(t *testing.T, err error) (codes.Code, string) {
	t.Helper()
	st, ok := status.FromError(err)
	if !ok {
		t.Fatalf("expected grpc status, got %v", err)
	}
	for _, detail := range st.Details() {
		if info, ok := detail.(*errdetails.ErrorInfo); ok {
			return st.Code(), info.Reason
		}
	}
	return st.Code(), ""
}

func TestCampaignLifecycleOverGRPC(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	created, err := client.CreateCampaign(ctx, &CreateCampaignRequest{
		CampaignID:  "camp-1",
		AthleteName: "Ana Souza",
		City:        "Recife",
		Category:    "Swimming",
		Goal:        dec("5000"),
		Milestones:  grades(),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Receipt.Seq != 1 || created.Receipt.Status != "open" || len(created.Milestones) != 4 {
		t.Fatalf("unexpected create response %+v", created)
	}
	if !created.Milestones[0].PlannedAmount.Equal(dec("500")) {
		t.Fatalf("expected D to plan 500, got %s", created.Milestones[0].PlannedAmount)
	}

	var header metadata.MD
	dep, err := client.Deposit(ctx, &DepositRequest{CampaignID: "camp-1", InvestorID: "alice", Amount: dec("3000")}, grpc.Header(&header))
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if !dep.RaisedTotal.Equal(dec("3000")) || dep.InvestmentID == "" {
		t.Fatalf("unexpected deposit response %+v", dep)
	}
	if len(header.Get(grpcmeta.RequestIDHeader)) != 1 {
		t.Fatalf("expected request id header, got %v", header)
	}
	if _, err := client.Deposit(ctx, &DepositRequest{CampaignID: "camp-1", InvestorID: "bob", Amount: dec("2000")}); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	if _, err := client.SubmitMilestone(ctx, &MilestoneRequest{CampaignID: "camp-1", Tier: "D"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	verdict, err := client.RecordVerdict(ctx, &RecordVerdictRequest{CampaignID: "camp-1", Tier: "D", Approved: true, ReviewerID: "r-1"})
	if err != nil {
		t.Fatalf("verdict: %v", err)
	}
	if verdict.Release == nil || !verdict.Release.Amount.Equal(dec("500")) {
		t.Fatalf("unexpected verdict response %+v", verdict)
	}

	snap, err := client.GetSnapshot(ctx, &GetSnapshotRequest{CampaignID: "camp-1"})
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.Campaign.Status != "fully_funded" || !snap.Campaign.Escrow.Equal(dec("4500")) || snap.Campaign.Category != "swimming" {
		t.Fatalf("unexpected snapshot %+v", snap.Campaign)
	}

	portfolio, err := client.GetPortfolio(ctx, &GetPortfolioRequest{InvestorID: "alice"})
	if err != nil {
		t.Fatalf("portfolio: %v", err)
	}
	if len(portfolio.Positions) != 1 || !portfolio.Positions[0].Released.Equal(dec("300")) {
		t.Fatalf("unexpected portfolio %+v", portfolio)
	}

	activityCtx := metadata.AppendToOutgoingContext(ctx, grpcmeta.LocaleHeader, "pt-BR")
	activity, err := client.ListActivity(activityCtx, &ListActivityRequest{CampaignID: "camp-1", PageSize: 1})
	if err != nil {
		t.Fatalf("activity: %v", err)
	}
	if len(activity.Entries) != 1 || activity.Entries[0].Message != "Nível D aprovado, 10% liberado" || activity.NextPageToken == "" {
		t.Fatalf("unexpected activity %+v", activity)
	}
}

func TestDomainErrorsOverGRPC(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	_, err := client.CreateCampaign(ctx, &CreateCampaignRequest{
		CampaignID:  "camp-1",
		AthleteName: "Ana",
		Category:    "swimming",
		Goal:        dec("5000"),
		Milestones: []MilestoneSpec{
			{Tier: "D", Percentage: dec("10")},
			{Tier: "C", Percentage: dec("15")},
			{Tier: "B", Percentage: dec("25")},
			{Tier: "A", Percentage: dec("40")},
		},
	})
	if code, r := reason(t, err); code != codes.InvalidArgument || r != "INVALID_SCHEDULE" {
		t.Fatalf("expected INVALID_SCHEDULE, got %s %s", code, r)
	}

	if _, err := client.CreateCampaign(ctx, &CreateCampaignRequest{CampaignID: "camp-1", AthleteName: "Ana", Category: "swimming", Goal: dec("5000"), Milestones: grades()}); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err = client.SubmitMilestone(ctx, &MilestoneRequest{CampaignID: "camp-1", Tier: "C"})
	if code, r := reason(t, err); code != codes.FailedPrecondition || r != "MILESTONE_OUT_OF_ORDER" {
		t.Fatalf("expected MILESTONE_OUT_OF_ORDER, got %s %s", code, r)
	}
	_, err = client.GetSnapshot(ctx, &GetSnapshotRequest{CampaignID: "ghost"})
	if code, r := reason(t, err); code != codes.NotFound || r != "NOT_FOUND" {
		t.Fatalf("expected NOT_FOUND, got %s %s", code, r)
	}
	_, err = client.Deposit(ctx, &DepositRequest{CampaignID: "camp-1", Amount: dec("10")})
	if code, _ := reason(t, err); code != codes.InvalidArgument {
		t.Fatalf("expected missing investor to be invalid, got %s", code)
	}
	_, err = client.RecordVerdict(ctx, &RecordVerdictRequest{CampaignID: "camp-1", Tier: "D"})
	if code, _ := reason(t, err); code != codes.InvalidArgument {
		t.Fatalf("expected rejection without reason to be invalid, got %s", code)
	}
}

func TestConcurrentDepositsOverGRPC(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	if _, err := client.CreateCampaign(ctx, &CreateCampaignRequest{CampaignID: "camp-1", AthleteName: "Ana", Category: "swimming", Goal: dec("5000"), Milestones: grades()}); err != nil {
		t.Fatalf("create: %v", err)
	}

	var (
		wg   sync.WaitGroup
		errs = make([]error, 2)
	)
	for i := range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = client.Deposit(ctx, &DepositRequest{CampaignID: "camp-1", InvestorID: "investor", Amount: dec("3000")})
		}()
	}
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err == nil {
			continue
		}
		failed++
		if _, r := reason(t, err); r != "GOAL_EXCEEDED" {
			t.Fatalf("expected GOAL_EXCEEDED, got %v", err)
		}
	}
	if failed != 1 {
		t.Fatalf("expected exactly one rejected deposit, got %d", failed)
	}
}

func TestListEventsPagingAndFilter(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	if _, err := client.CreateCampaign(ctx, &CreateCampaignRequest{CampaignID: "camp-1", AthleteName: "Ana", Category: "swimming", Goal: dec("5000"), Milestones: grades()}); err != nil {
		t.Fatalf("create: %v", err)
	}
	for range 5 {
		if _, err := client.Deposit(ctx, &DepositRequest{CampaignID: "camp-1", InvestorID: "alice", Amount: dec("10")}); err != nil {
			t.Fatalf("deposit: %v", err)
		}
	}

	filter := `type = "investment.deposited"`
	first, err := client.ListEvents(ctx, &ListEventsRequest{CampaignID: "camp-1", Filter: filter, PageSize: 3, OrderBy: "seq desc"})
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(first.Events) != 3 || first.Events[0].Seq != 6 || first.TotalSize != 5 || first.NextPageToken == "" {
		t.Fatalf("unexpected first page %+v", first)
	}
	second, err := client.ListEvents(ctx, &ListEventsRequest{CampaignID: "camp-1", Filter: filter, PageSize: 3, OrderBy: "seq desc", PageToken: first.NextPageToken})
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(second.Events) != 2 || second.Events[1].Seq != 2 || second.NextPageToken != "" {
		t.Fatalf("unexpected second page %+v", second)
	}

	_, err = client.ListEvents(ctx, &ListEventsRequest{CampaignID: "camp-1", PageToken: first.NextPageToken})
	if _, r := reason(t, err); r != "INVALID_PAGE_TOKEN" {
		t.Fatalf("expected INVALID_PAGE_TOKEN, got %v", err)
	}
	_, err = client.ListEvents(ctx, &ListEventsRequest{CampaignID: "camp-1", Filter: "type = "})
	if _, r := reason(t, err); r != "INVALID_FILTER" {
		t.Fatalf("expected INVALID_FILTER, got %v", err)
	}
}
