package transport

import (
	"context"
	"encoding/base64"
	"net/http"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// LambdaHandler adapta eventos HTTP API (payload v2) do API Gateway para o Handler.
type LambdaHandler struct {
	handler *Handler
}

func NewLambdaHandler(h *Handler) *LambdaHandler {
	return &LambdaHandler{handler: h}
}

// Handle processa a requisição Lambda. Erros viram status HTTP; o retorno
// de erro fica reservado para falhas do próprio runtime.
func (l *LambdaHandler) Handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	body := []byte(req.Body)
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			return respond(http.StatusBadRequest, []byte(strconv.Quote(MsgUnhandledRequest)), ""), nil
		}
		body = decoded
	}

	query := req.QueryStringParameters
	if query == nil {
		query = map[string]string{}
	}

	resp := l.handler.Serve(ctx, Request{
		Method:  strings.ToUpper(req.RequestContext.HTTP.Method),
		Entity:  entityName(req),
		Query:   query,
		Headers: req.Headers,
		Body:    body,
	})
	return respond(resp.StatusCode, resp.Body, resp.CorrelationID), nil
}

// entityName usa o parâmetro de rota {entity} e, sem ele, o último segmento do path.
func entityName(req events.APIGatewayV2HTTPRequest) string {
	if name := req.PathParameters["entity"]; name != "" {
		return name
	}
	path := strings.TrimRight(req.RawPath, "/")
	return path[strings.LastIndex(path, "/")+1:]
}

func respond(status int, body []byte, corrID string) events.APIGatewayV2HTTPResponse {
	headers := map[string]string{"Content-Type": "application/json"}
	if corrID != "" {
		headers[HeaderCorrelationID] = corrID
	}
	return events.APIGatewayV2HTTPResponse{
		StatusCode:      status,
		Headers:         headers,
		Body:            string(body),
		IsBase64Encoded: false,
	}
}
