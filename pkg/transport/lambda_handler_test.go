package transport

import (
	"context"
	"encoding/base64"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lambdaRequest(method, path string, query map[string]string, body string) events.APIGatewayV2HTTPRequest {
	req := events.APIGatewayV2HTTPRequest{
		RawPath:               path,
		QueryStringParameters: query,
		Headers:               map[string]string{"content-type": "application/json"},
		Body:                  body,
	}
	req.RequestContext.HTTP.Method = method
	return req
}

func TestLambdaHandler_Base64Body(t *testing.T) {
	h := newHarness(t)
	handler := NewLambdaHandler(h.handler)

	req := lambdaRequest(http.MethodPost, "/STARK_User_Roles", nil, base64.StdEncoding.EncodeToString([]byte(roleBody("Admin", "Full access"))))
	req.IsBase64Encoded = true

	resp, err := handler.Handle(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode, resp.Body)
	assert.Equal(t, "application/json", resp.Headers["Content-Type"])
	assert.NotEmpty(t, resp.Headers[HeaderCorrelationID])
	assert.False(t, resp.IsBase64Encoded)

	req = lambdaRequest(http.MethodGet, "/prod/STARK_User_Roles/", map[string]string{"rt": "detail", "Role_Name": "Admin"}, "")
	resp, err = handler.Handle(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Body, "Full access")
}

func TestLambdaHandler_PathParameterAndCorrelation(t *testing.T) {
	h := newHarness(t)
	handler := NewLambdaHandler(h.handler)

	req := lambdaRequest("get", "/ignored", map[string]string{"rt": "all"}, "")
	req.PathParameters = map[string]string{"entity": "STARK_User_Roles"}
	req.Headers["x-correlation-id"] = "corr-42"

	resp, err := handler.Handle(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "corr-42", resp.Headers[HeaderCorrelationID])
	assert.JSONEq(t, `{"Next_Token": "", "Items": []}`, resp.Body)
}

func TestLambdaHandler_Errors(t *testing.T) {
	h := newHarness(t)
	handler := NewLambdaHandler(h.handler)

	req := lambdaRequest(http.MethodPost, "/STARK_User_Roles", nil, "not base64!")
	req.IsBase64Encoded = true
	resp, err := handler.Handle(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = handler.Handle(context.Background(), lambdaRequest(http.MethodPost, "/STARK_User_Roles", nil, ""))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, `"Client payload missing"`, resp.Body)

	resp, err = handler.Handle(context.Background(), lambdaRequest(http.MethodGet, "/STARK_Module", map[string]string{"rt": "all"}, ""))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
