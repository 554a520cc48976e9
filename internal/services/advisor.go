package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/GregMSThompson/utilization-pilot/internal/dto"
	"github.com/GregMSThompson/utilization-pilot/internal/errs"
	"github.com/GregMSThompson/utilization-pilot/internal/models"
	"github.com/GregMSThompson/utilization-pilot/internal/utilization"
	"github.com/GregMSThompson/utilization-pilot/pkg/logger"
)

const (
	maxAdvisorMessageLen = 2000
	advisorHistoryLimit  = 8

	toolGetPortfolio    = "get_portfolio"
	toolGetCard         = "get_card"
	toolSimulatePayment = "simulate_payment"
)

type vertexClient interface {
	GenerateContent(ctx context.Context, req dto.VertexGenerateRequest) (dto.VertexGenerateResponse, error)
}

type portfolioEvaluator interface {
	Evaluate(ctx context.Context, uid string) (utilization.Result, error)
}

type aiStore interface {
	SaveMessage(ctx context.Context, uid, sessionID string, msg models.AIMessage) error
	ListMessages(ctx context.Context, uid, sessionID string, limit int) ([]models.AIMessage, error)
}

type advisorService struct {
	vertex    vertexClient
	portfolio portfolioEvaluator
	store     aiStore
	ttl       time.Duration
	clockNow  func() time.Time
	newID     func() string
}

func NewAdvisorService(vertex vertexClient, portfolio portfolioEvaluator, store aiStore, ttl time.Duration) *advisorService {
	return &advisorService{
		vertex:    vertex,
		portfolio: portfolio,
		store:     store,
		ttl:       ttl,
		clockNow:  time.Now,
		newID:     uuid.NewString,
	}
}

// Query answers a question about the user's cards with at most one tool call.
func (s *advisorService) Query(ctx context.Context, uid, sessionID, message string) (dto.AIQueryResponse, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return dto.AIQueryResponse{}, errs.NewValidationError("message is required")
	}
	if utf8.RuneCountInString(message) > maxAdvisorMessageLen {
		return dto.AIQueryResponse{}, errs.NewValidationError(fmt.Sprintf("message must be at most %d characters", maxAdvisorMessageLen))
	}
	if sessionID == "" {
		sessionID = s.newID()
	}

	log := logger.FromContext(ctx).With("session_id", sessionID)

	history, err := s.store.ListMessages(ctx, uid, sessionID, advisorHistoryLimit)
	if err != nil {
		return dto.AIQueryResponse{}, err
	}

	contents := convertMessagesToContents(history, message)
	req := dto.VertexGenerateRequest{
		System:   systemPrompt(s.clockNow()),
		Contents: contents,
		Tools:    toolSchemas(),
		ToolConfig: &dto.VertexToolConfig{
			Mode: dto.FunctionCallingModeAuto,
		},
	}

	resp, err := s.vertex.GenerateContent(ctx, req)
	if err != nil {
		var malformed *errs.MalformedFunctionCallError
		if errors.As(err, &malformed) {
			strictReq := req
			strictReq.System = strictSystemPrompt(s.clockNow())
			resp, err = s.vertex.GenerateContent(ctx, strictReq)
		}
	}
	if err != nil {
		return dto.AIQueryResponse{}, err
	}

	if len(resp.ToolCalls) == 0 {
		if err := s.saveMessage(ctx, uid, sessionID, models.AIMessage{Role: "user", Content: message}); err != nil {
			return dto.AIQueryResponse{}, err
		}
		// Only save non-empty assistant responses
		if resp.Text != "" {
			if err := s.saveMessage(ctx, uid, sessionID, models.AIMessage{Role: "assistant", Content: resp.Text}); err != nil {
				return dto.AIQueryResponse{}, err
			}
		}
		log.Info("advisor query completed")
		return dto.AIQueryResponse{SessionID: sessionID, Answer: resp.Text}, nil
	}

	if len(resp.ToolCalls) > 1 {
		log.Warn("received multiple tool calls, only processing the first", "count", len(resp.ToolCalls))
	}
	toolCall := resp.ToolCalls[0]

	if !isValidToolName(toolCall.Name) {
		return dto.AIQueryResponse{}, errs.NewValidationError(fmt.Sprintf("model requested unknown tool: %s", toolCall.Name))
	}

	log.Info("executing tool", "tool", toolCall.Name)

	toolResult, err := s.executeTool(ctx, uid, toolCall)
	if err != nil {
		return dto.AIQueryResponse{}, fmt.Errorf("failed to execute tool %s: %w", toolCall.Name, err)
	}

	if err := s.saveMessage(ctx, uid, sessionID, models.AIMessage{Role: "user", Content: message}); err != nil {
		return dto.AIQueryResponse{}, err
	}
	if err := s.saveMessage(ctx, uid, sessionID, models.AIMessage{
		Role:       "tool",
		ToolName:   toolCall.Name,
		ToolArgs:   toolCall.Args,
		ToolResult: toolResult.Response,
	}); err != nil {
		return dto.AIQueryResponse{}, err
	}

	contentsWithToolResult := append(contents,
		dto.VertexContent{Role: "model", Parts: []dto.VertexPart{{FunctionCall: &toolCall}}},
		dto.VertexContent{Role: "user", Parts: []dto.VertexPart{{FunctionResponse: &toolResult}}},
	)

	finalResp, err := s.vertex.GenerateContent(ctx, dto.VertexGenerateRequest{
		System:   systemPrompt(s.clockNow()),
		Contents: contentsWithToolResult,
		Tools:    toolSchemas(),
		ToolConfig: &dto.VertexToolConfig{
			Mode: dto.FunctionCallingModeNone,
		},
	})
	if err != nil {
		return dto.AIQueryResponse{}, err
	}

	if err := s.saveMessage(ctx, uid, sessionID, models.AIMessage{Role: "assistant", Content: finalResp.Text}); err != nil {
		return dto.AIQueryResponse{}, err
	}

	log.Info("advisor query completed", "tool", toolCall.Name)
	return dto.AIQueryResponse{
		SessionID: sessionID,
		Answer:    finalResp.Text,
		Debug: &dto.AIDebugInfo{
			Tool: toolCall.Name,
			Args: toolCall.Args,
		},
	}, nil
}

func convertMessagesToContents(history []models.AIMessage, currentMessage string) []dto.VertexContent {
	contents := make([]dto.VertexContent, 0, len(history)+1)

	for _, msg := range history {
		switch msg.Role {
		case "user":
			contents = append(contents, dto.VertexContent{
				Role:  "user",
				Parts: []dto.VertexPart{{Text: &msg.Content}},
			})
		case "assistant":
			if msg.Content != "" {
				contents = append(contents, dto.VertexContent{
					Role:  "model",
					Parts: []dto.VertexPart{{Text: &msg.Content}},
				})
			}
		case "tool":
			// Tool calls and results need explicit function call/response parts.
			if msg.ToolName != "" && msg.ToolArgs != nil {
				contents = append(contents, dto.VertexContent{
					Role: "model",
					Parts: []dto.VertexPart{{FunctionCall: &dto.VertexToolCall{
						Name: msg.ToolName,
						Args: msg.ToolArgs,
					}}},
				})
			}
			if msg.ToolName != "" && msg.ToolResult != nil {
				contents = append(contents, dto.VertexContent{
					Role: "user",
					Parts: []dto.VertexPart{{FunctionResponse: &dto.VertexToolResult{
						Name:     msg.ToolName,
						Response: msg.ToolResult,
					}}},
				})
			}
		}
	}

	contents = append(contents, dto.VertexContent{
		Role:  "user",
		Parts: []dto.VertexPart{{Text: &currentMessage}},
	})
	return contents
}

func (s *advisorService) saveMessage(ctx context.Context, uid, sessionID string, msg models.AIMessage) error {
	now := s.clockNow()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = now
	}
	if s.ttl > 0 {
		msg.ExpiresAt = now.Add(s.ttl)
	}
	return s.store.SaveMessage(ctx, uid, sessionID, msg)
}

type cardArgs struct {
	AccountID string `json:"accountId"`
}

type simulateArgs struct {
	AccountID string  `json:"accountId"`
	Amount    float64 `json:"amount"`
}

// SimulationResult is the effect of paying amount toward one card before it closes.
type SimulationResult struct {
	AccountID                string  `json:"accountId"`
	Amount                   float64 `json:"amount"`
	BalanceBefore            float64 `json:"balanceBefore"`
	BalanceAfter             float64 `json:"balanceAfter"`
	UtilizationBefore        int     `json:"utilizationBefore"`
	UtilizationAfter         int     `json:"utilizationAfter"`
	BandBefore               string  `json:"bandBefore"`
	BandAfter                string  `json:"bandAfter"`
	RemainingPaydown         float64 `json:"remainingPaydown"`
	OverallUtilizationBefore int     `json:"overallUtilizationBefore"`
	OverallUtilizationAfter  int     `json:"overallUtilizationAfter"`
}

func (s *advisorService) executeTool(ctx context.Context, uid string, call dto.VertexToolCall) (dto.VertexToolResult, error) {
	res, err := s.portfolio.Evaluate(ctx, uid)
	if err != nil {
		return dto.VertexToolResult{}, err
	}

	var payload any
	switch call.Name {
	case toolGetPortfolio:
		payload = dto.NewDashboardResponse(res)
	case toolGetCard:
		args, err := decodeArgs[cardArgs](call.Args)
		if err != nil {
			logger.FromContext(ctx).Warn("tool arguments rejected", "tool", call.Name, "error", err)
			return toolError(call.Name, "invalid arguments"), nil
		}
		card, ok := findCard(res, args.AccountID)
		if !ok {
			return toolError(call.Name, "no credit card with accountId "+args.AccountID), nil
		}
		payload = dto.NewCreditCardView(card)
	case toolSimulatePayment:
		args, err := decodeArgs[simulateArgs](call.Args)
		if err != nil {
			logger.FromContext(ctx).Warn("tool arguments rejected", "tool", call.Name, "error", err)
			return toolError(call.Name, "invalid arguments"), nil
		}
		if args.Amount <= 0 {
			return toolError(call.Name, "amount must be greater than zero"), nil
		}
		card, ok := findCard(res, args.AccountID)
		if !ok {
			return toolError(call.Name, "no credit card with accountId "+args.AccountID), nil
		}
		payload = SimulatePayment(res.Portfolio, card, args.Amount)
	default:
		return dto.VertexToolResult{}, errs.NewValidationError(fmt.Sprintf("unsupported tool: %s", call.Name))
	}

	m, err := toMap(payload)
	if err != nil {
		return dto.VertexToolResult{}, err
	}
	return dto.VertexToolResult{Name: call.Name, Response: m}, nil
}

// SimulatePayment applies amount to card and recomputes its and the portfolio's utilization.
func SimulatePayment(p utilization.Portfolio, card utilization.CardView, amount float64) SimulationResult {
	after := card.Balance - amount
	if after < 0 {
		after = 0
	}
	paid := card.Balance - after
	utilAfter := utilization.CalculateUtilization(after, card.Limit)

	return SimulationResult{
		AccountID:                card.ID,
		Amount:                   amount,
		BalanceBefore:            card.Balance,
		BalanceAfter:             after,
		UtilizationBefore:        card.Utilization,
		UtilizationAfter:         utilAfter,
		BandBefore:               string(card.Band),
		BandAfter:                string(utilization.ClassifyBand(utilAfter)),
		RemainingPaydown:         utilization.PaydownAmount(after, card.Limit, card.TargetRatio),
		OverallUtilizationBefore: p.OverallUtilization,
		OverallUtilizationAfter:  utilization.CalculateUtilization(p.TotalBalance-paid, p.TotalLimit),
	}
}

func findCard(res utilization.Result, accountID string) (utilization.CardView, bool) {
	for _, c := range res.Cards {
		if c.ID == accountID {
			return c, true
		}
	}
	return utilization.CardView{}, false
}

func toolError(name, msg string) dto.VertexToolResult {
	return dto.VertexToolResult{Name: name, Response: map[string]any{"error": msg}}
}

func toolSchemas() []dto.VertexTool {
	return []dto.VertexTool{
		{
			Name: toolGetPortfolio,
			Description: "Return every credit card with balance, limit, utilization percent, band, estimated statement close date, " +
				"days until close, and recommended paydown, plus overall utilization and prioritized recommendations.",
			Parameters: &dto.VertexSchema{Type: "object", Properties: map[string]*dto.VertexSchema{}},
		},
		{
			Name:        toolGetCard,
			Description: "Return the utilization details of one credit card.",
			Parameters: &dto.VertexSchema{
				Type: "object",
				Properties: map[string]*dto.VertexSchema{
					"accountId": {Type: "string", Description: "Card account id from get_portfolio. Required."},
				},
				Required: []string{"accountId"},
			},
		},
		{
			Name: toolSimulatePayment,
			Description: "Simulate paying an amount toward one card before its statement closes. " +
				"Returns utilization and band before and after, the remaining paydown to reach target, and overall utilization after.",
			Parameters: &dto.VertexSchema{
				Type: "object",
				Properties: map[string]*dto.VertexSchema{
					"accountId": {Type: "string", Description: "Card account id from get_portfolio. Required."},
					"amount":    {Type: "number", Description: "Payment amount in dollars. Required, greater than zero."},
				},
				Required: []string{"accountId", "amount"},
			},
		},
	}
}

func systemPrompt(now time.Time) string {
	today := now.Format("2006-01-02")
	return "You are a credit utilization advisor. Utilization is balance divided by limit, reported when the statement closes. " +
		"Bands: excellent 0-9%, good 10-29%, warning 30-49%, bad 50-74%, severe 75% and above. " +
		"Use tools for every number you state; never fabricate balances, limits, dates, or amounts. " +
		"Make only one tool call per request. If the user does not name a card, use get_portfolio. " +
		"Recommend paying before the statement close date, highest utilization first. " +
		"Close dates are estimates. Today is " + today + "."
}

func strictSystemPrompt(now time.Time) string {
	return systemPrompt(now) + " You must respond with a valid tool call that matches the schema. " +
		"If required information is missing, ask a clarification question instead of calling a tool."
}

func decodeArgs[T any](args map[string]any) (T, error) {
	var out T
	if len(args) == 0 {
		return out, nil
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, errs.NewValidationError("invalid tool arguments")
	}
	return out, nil
}

func toMap(value any) (map[string]any, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func isValidToolName(name string) bool {
	switch name {
	case toolGetPortfolio, toolGetCard, toolSimulatePayment:
		return true
	}
	return false
}
