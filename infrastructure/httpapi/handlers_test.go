package httpapi_test

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"teamchat/auth"
	"teamchat/domain"
	apperrors "teamchat/errors"
	"teamchat/infrastructure/httpapi"
	"teamchat/mocks"
	"teamchat/observability"
	"teamchat/services"
)

func authedRequest(method, target string, body string) *http.Request {
	request := httptest.NewRequest(method, target, strings.NewReader(body))
	ctx := auth.WithIdentity(request.Context(), auth.Identity{UserID: "alice", Name: "Alice"})
	return request.WithContext(ctx)
}

func Test_GetMessages_Requires_TeamID(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	handler := httpapi.NewMessageHandler(slog.Default(), mocks.NewMockIChatService(ctrl), observability.NewMonitor())

	recorder := httptest.NewRecorder()
	handler.GetMessages(recorder, authedRequest(http.MethodGet, "/message/get-messages", ""))

	req.Equal(http.StatusBadRequest, recorder.Code)
	var response httpapi.Response
	req.NoError(json.Unmarshal(recorder.Body.Bytes(), &response))
	req.False(response.Success)
	req.Equal("VALIDATION_ERROR", response.Error.Code)
}

func Test_GetMessages_Passes_Cursor_And_Limit(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	service := mocks.NewMockIChatService(ctrl)
	service.EXPECT().
		History(gomock.Any(), domain.HistoryQuery{
			TeamID: "team-1",
			Cursor: strPtr("abc"),
			Limit:  10,
		}).
		Return(nil, nil, false, nil)

	handler := httpapi.NewMessageHandler(slog.Default(), service, observability.NewMonitor())
	recorder := httptest.NewRecorder()
	handler.GetMessages(recorder, authedRequest(http.MethodGet,
		"/message/get-messages?teamId=team-1&cursor=abc&limit=10", ""))

	req.Equal(http.StatusOK, recorder.Code)
	var response httpapi.Response
	req.NoError(json.Unmarshal(recorder.Body.Bytes(), &response))
	req.True(response.Success)
}

func Test_Send_Maps_Service_Errors(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	service := mocks.NewMockIChatService(ctrl)
	service.EXPECT().
		Send(gomock.Any(), gomock.Any(), services.SendRequest{TeamID: "team-1", Content: "hi"}).
		Return(domain.Message{}, apperrors.ErrNotTeamMember)

	handler := httpapi.NewMessageHandler(slog.Default(), service, observability.NewMonitor())
	recorder := httptest.NewRecorder()
	handler.Send(recorder, authedRequest(http.MethodPost,
		"/message/send?teamId=team-1", `{"content":"hi"}`))

	req.Equal(http.StatusForbidden, recorder.Code)
	var response httpapi.Response
	req.NoError(json.Unmarshal(recorder.Body.Bytes(), &response))
	req.Equal("NOT_MEMBER", response.Error.Code)
}

func Test_Send_Rejects_Malformed_Body(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	handler := httpapi.NewMessageHandler(slog.Default(), mocks.NewMockIChatService(ctrl), observability.NewMonitor())

	recorder := httptest.NewRecorder()
	handler.Send(recorder, authedRequest(http.MethodPost, "/message/send?teamId=team-1", "{not json"))
	req.Equal(http.StatusBadRequest, recorder.Code)
}

func strPtr(s string) *string { return &s }
