// Package mcp exposes the auction derivations as MCP tools so a language
// model can summarize them. Outputs are the same structured records the
// HTTP API returns.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/okian/bazaar/internal/domain/auction"
	"github.com/okian/bazaar/internal/domain/compete"
	"github.com/okian/bazaar/internal/domain/model"
	"github.com/okian/bazaar/internal/domain/projection"
	"github.com/okian/bazaar/internal/domain/recommend"
)

// Engine is the read side of the auction service.
type Engine interface {
	Snapshot() auction.Snapshot
	BidTable(ctx context.Context, team model.TeamID) (recommend.Table, error)
	Predict(ctx context.Context, player model.PlayerID, team model.TeamID, ownBid model.Money) (compete.Prediction, error)
	Project(ctx context.Context, team model.TeamID, topN int) (projection.Projection, error)
}

// BidArgs is the input schema for bid_recommendations.
type BidArgs struct {
	Team  string `json:"team" jsonschema:"Team id (required)"`
	Limit int    `json:"limit,omitempty" jsonschema:"Return only the first N records (0 = all)"`
}

// PredictionArgs is the input schema for price_prediction.
type PredictionArgs struct {
	Player int    `json:"player" jsonschema:"Player id (required)"`
	Team   string `json:"team" jsonschema:"Team asking for the prediction (required)"`
	Bid    int    `json:"bid,omitempty" jsonschema:"Own planned bid (0 = recommended max bid)"`
}

// BestTeamArgs is the input schema for best_team.
type BestTeamArgs struct {
	Team string `json:"team" jsonschema:"Team id (required)"`
	Top  int    `json:"top,omitempty" jsonschema:"Length of the priority list (0 = default)"`
}

// SummaryArgs is the input schema for auction_summary (no parameters).
type SummaryArgs struct{}

// TeamSummary is one team line of auction_summary.
type TeamSummary struct {
	ID        model.TeamID `json:"id"`
	Name      string       `json:"name"`
	Spent     model.Money  `json:"spent"`
	Remaining model.Money  `json:"remaining"`
	SlotsLeft int          `json:"slots_left"`
	HardCap   model.Money  `json:"hard_cap"`
	Squad     []string     `json:"squad"`
}

// Summary is the output of auction_summary.
type Summary struct {
	Sold     int           `json:"sold"`
	Total    int           `json:"total"`
	Teams    []TeamSummary `json:"teams"`
	LastSale *model.Sale   `json:"last_sale,omitempty"`
}

// ToolInfo names a registered tool.
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Tools implements the tool handlers.
type Tools struct {
	engine Engine
}

// NewTools creates the tool set.
func NewTools(engine Engine) *Tools {
	return &Tools{engine: engine}
}

// BidRecommendations handles bid_recommendations.
func (t *Tools) BidRecommendations(ctx context.Context, _ *sdk.CallToolRequest, args BidArgs) (*sdk.CallToolResult, any, error) {
	if args.Team == "" {
		return toolError(ErrMissingTeam), nil, nil
	}
	tbl, err := t.engine.BidTable(ctx, model.TeamID(args.Team))
	if err != nil {
		return toolError(err), nil, nil
	}
	if args.Limit > 0 && len(tbl.Records) > args.Limit {
		tbl.Records = tbl.Records[:args.Limit]
	}
	return toolJSON(tbl)
}

// PricePrediction handles price_prediction.
func (t *Tools) PricePrediction(ctx context.Context, _ *sdk.CallToolRequest, args PredictionArgs) (*sdk.CallToolResult, any, error) {
	switch {
	case args.Player <= 0:
		return toolError(ErrMissingPlayer), nil, nil
	case args.Team == "":
		return toolError(ErrMissingTeam), nil, nil
	}
	pred, err := t.engine.Predict(ctx, model.PlayerID(args.Player), model.TeamID(args.Team), model.Money(max(args.Bid, 0)))
	if err != nil {
		return toolError(err), nil, nil
	}
	return toolJSON(pred)
}

// BestTeam handles best_team.
func (t *Tools) BestTeam(ctx context.Context, _ *sdk.CallToolRequest, args BestTeamArgs) (*sdk.CallToolResult, any, error) {
	if args.Team == "" {
		return toolError(ErrMissingTeam), nil, nil
	}
	proj, err := t.engine.Project(ctx, model.TeamID(args.Team), max(args.Top, 0))
	if err != nil {
		return toolError(err), nil, nil
	}
	return toolJSON(proj)
}

// AuctionSummary handles auction_summary.
func (t *Tools) AuctionSummary(_ context.Context, _ *sdk.CallToolRequest, _ SummaryArgs) (*sdk.CallToolResult, any, error) {
	return toolJSON(Summarize(t.engine.Snapshot()))
}

// Summarize condenses a snapshot into per-team progress.
func Summarize(snap auction.Snapshot) Summary {
	s := Summary{Sold: snap.Sold(), Teams: make([]TeamSummary, 0, len(snap.Teams))}
	for _, p := range snap.Players {
		if p.Category == model.CategoryAuction {
			s.Total++
		}
	}
	for _, tm := range snap.Teams {
		ts := TeamSummary{
			ID:        tm.ID,
			Name:      tm.Name,
			Spent:     tm.Spent,
			Remaining: tm.Remaining(),
			SlotsLeft: tm.SlotsLeft(),
			HardCap:   snap.HardCap(tm),
			Squad:     []string{},
		}
		for _, p := range snap.Squad(tm.ID) {
			ts.Squad = append(ts.Squad, p.Name)
		}
		s.Teams = append(s.Teams, ts)
	}
	if n := len(snap.History); n > 0 {
		last := snap.History[n-1]
		s.LastSale = &last
	}
	return s
}

// NewServer registers every tool on a fresh MCP server.
func NewServer(t *Tools, version string) (*sdk.Server, []ToolInfo) {
	server := sdk.NewServer(&sdk.Implementation{Name: "bazaar", Version: version}, nil)
	registry := make([]ToolInfo, 0, 4)

	addTool(server, &registry, &sdk.Tool{
		Name:        "bid_recommendations",
		Description: "Ranked recommended maximum bids for every unsold player, for one team",
	}, t.BidRecommendations)
	addTool(server, &registry, &sdk.Tool{
		Name:        "price_prediction",
		Description: "Rival desire, contenders and predicted price range for one player",
	}, t.PricePrediction)
	addTool(server, &registry, &sdk.Tool{
		Name:        "best_team",
		Description: "Dream and realistic final rosters, priority targets and budget split for one team",
	}, t.BestTeam)
	addTool(server, &registry, &sdk.Tool{
		Name:        "auction_summary",
		Description: "Players sold and each team's spend, budget, open slots and squad",
	}, t.AuctionSummary)

	return server, registry
}

// Handler serves server over streamable HTTP with JSON responses.
func Handler(server *sdk.Server) http.Handler {
	return sdk.NewStreamableHTTPHandler(func(*http.Request) *sdk.Server {
		return server
	}, &sdk.StreamableHTTPOptions{JSONResponse: true})
}

func addTool[T any](server *sdk.Server, registry *[]ToolInfo, tool *sdk.Tool, handler func(context.Context, *sdk.CallToolRequest, T) (*sdk.CallToolResult, any, error)) {
	*registry = append(*registry, ToolInfo{Name: tool.Name, Description: tool.Description})
	sdk.AddTool(server, tool, handler)
}

func toolJSON(v any) (*sdk.CallToolResult, any, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return toolError(err), nil, nil
	}
	return &sdk.CallToolResult{
		Content: []sdk.Content{&sdk.TextContent{Text: string(b)}},
	}, nil, nil
}

func toolError(err error) *sdk.CallToolResult {
	return &sdk.CallToolResult{
		IsError: true,
		Content: []sdk.Content{&sdk.TextContent{Text: fmt.Sprintf("error: %v", err)}},
	}
}
