package messages

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	jsonutil "github.com/hilthontt/teamrelay/internal/infrastructure/json"
	"github.com/hilthontt/teamrelay/internal/relay"
	"github.com/stretchr/testify/assert"
)

type fakeSender struct {
	got    relay.SendMessageRequest
	result relay.Result
}

func (f *fakeSender) SendMessage(_ context.Context, req relay.SendMessageRequest) relay.Result {
	f.got = req
	return f.result
}

func TestCreateMessageHandler(t *testing.T) {
	sender := &fakeSender{result: relay.Result{Status: http.StatusOK, Body: jsonutil.MessageBody{Message: "ok"}}}
	h := NewHandler(sender)

	req := httptest.NewRequest(http.MethodPost, "/api/messages",
		strings.NewReader(`{"team_code":"T1","user_id":"U1","content":"hi","content_type":"text"}`))
	req.Header.Set(ConnectionHeader, "c1")
	rec := httptest.NewRecorder()

	h.CreateMessageHandler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"ok"}`, rec.Body.String())
	assert.Equal(t, relay.SendMessageRequest{
		ConnectionID: "c1",
		TeamCode:     "T1",
		UserID:       "U1",
		Content:      "hi",
		ContentType:  "text",
	}, sender.got)
}

func TestCreateMessageHandlerMalformedBody(t *testing.T) {
	sender := &fakeSender{}
	h := NewHandler(sender)

	rec := httptest.NewRecorder()
	h.CreateMessageHandler(rec, httptest.NewRequest(http.MethodPost, "/api/messages", strings.NewReader(`{`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"malformed request body"}`, rec.Body.String())
	assert.Equal(t, relay.SendMessageRequest{}, sender.got)
}

func TestCreateMessageHandlerPassesStatusThrough(t *testing.T) {
	sender := &fakeSender{result: relay.Result{Status: http.StatusInternalServerError, Body: jsonutil.ErrorBody{Error: "Internal Server Error"}}}

	rec := httptest.NewRecorder()
	NewHandler(sender).CreateMessageHandler(rec, httptest.NewRequest(http.MethodPost, "/api/messages", strings.NewReader(`{"team_code":"T1"}`)))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal Server Error"}`, rec.Body.String())
}
