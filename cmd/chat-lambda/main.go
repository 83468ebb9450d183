package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/wolfman30/appointment-agent/cmd/mainconfig"
	appconfig "github.com/wolfman30/appointment-agent/internal/config"
	"github.com/wolfman30/appointment-agent/internal/conversation"
	"github.com/wolfman30/appointment-agent/pkg/logging"
)

const maxBodyBytes = 64 << 10

func main() {
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	scheduler, err := mainconfig.BuildScheduler(context.Background(), cfg, nil, logger)
	if err != nil {
		logger.Error("failed to wire scheduler", "error", err)
		panic(err)
	}

	lambda.Start(func(ctx context.Context, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		return handle(ctx, scheduler.Agent, logger, evt)
	})
}

func handle(ctx context.Context, agent conversation.TurnRunner, logger *logging.Logger, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	method := strings.ToUpper(strings.TrimSpace(evt.RequestContext.HTTP.Method))
	path := strings.TrimSpace(evt.RawPath)
	if path == "" {
		path = strings.TrimSpace(evt.RequestContext.HTTP.Path)
	}

	if path == "/health" || path == "/_health" {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusOK, Body: "ok"}, nil
	}
	if path != "/api/chat" {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusNotFound}, nil
	}
	if method != http.MethodPost {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusMethodNotAllowed}, nil
	}

	body, err := decodeBody(evt)
	if err != nil || len(body) > maxBodyBytes {
		return textResponse(http.StatusBadRequest, "Invalid request body"), nil
	}
	var req conversation.TurnRequest
	if err := json.Unmarshal(body, &req); err != nil {
		logger.Warn("failed to decode chat request", "error", err)
		return textResponse(http.StatusBadRequest, "Invalid request body"), nil
	}
	if strings.TrimSpace(req.Message) == "" {
		return textResponse(http.StatusBadRequest, "message is required"), nil
	}

	resp := agent.HandleTurn(ctx, req)
	out, err := json.Marshal(resp)
	if err != nil {
		logger.Error("failed to encode chat response", "error", err)
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusInternalServerError}, nil
	}
	return events.APIGatewayV2HTTPResponse{
		StatusCode: http.StatusOK,
		Body:       string(out),
		Headers:    map[string]string{"content-type": "application/json"},
	}, nil
}

func textResponse(status int, msg string) events.APIGatewayV2HTTPResponse {
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Body:       msg,
		Headers:    map[string]string{"content-type": "text/plain; charset=utf-8"},
	}
}

func decodeBody(evt events.APIGatewayV2HTTPRequest) ([]byte, error) {
	if !evt.IsBase64Encoded {
		return []byte(evt.Body), nil
	}
	return base64.StdEncoding.DecodeString(evt.Body)
}
