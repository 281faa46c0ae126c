package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/roomhost/internal/model"
	"github.com/mcoot/roomhost/internal/services/auth"
	"github.com/mcoot/roomhost/internal/services/room"
)

func writeAndDecode(t *testing.T, err error) (int, ErrorResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	WriteError(rec, err)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	return rec.Code, body
}

func TestDomainErrorsMapToStatusAndCode(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{model.ErrRoomFull, http.StatusConflict, CodeRoomFull},
		{model.ErrAlreadyParticipant, http.StatusConflict, CodeAlreadyParticipant},
		{model.ErrNotParticipant, http.StatusConflict, CodeNotParticipant},
		{model.ErrHostCannotLeave, http.StatusForbidden, CodeHostCannotLeave},
		{model.ErrNotHost, http.StatusForbidden, CodeNotHost},
		{model.ErrRoomNotFound, http.StatusNotFound, CodeRoomNotFound},
		{model.ErrUserNotFound, http.StatusNotFound, CodeUserNotFound},
		{model.ErrUsernameTaken, http.StatusConflict, CodeUsernameTaken},
		{model.ErrUserHostsRooms, http.StatusConflict, CodeUserHostsRooms},
		{room.ErrAlreadyHost, http.StatusBadRequest, CodeInvalidRequest},
		{room.ErrNewHostNotFound, http.StatusBadRequest, CodeInvalidRequest},
		{auth.ErrInvalidCredentials, http.StatusUnauthorized, CodeInvalidCredentials},
		{auth.ErrMissingCredentials, http.StatusBadRequest, CodeInvalidRequest},
	}

	for _, tc := range cases {
		t.Run(tc.code+"/"+tc.err.Error(), func(t *testing.T) {
			status, body := writeAndDecode(t, fmt.Errorf("wrapped: %w", tc.err))
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.code, body.Error.Code)
			assert.NotEmpty(t, body.Error.Message)
		})
	}
}

func TestRoomFullUsesOriginalWording(t *testing.T) {
	_, body := writeAndDecode(t, model.ErrRoomFull)
	assert.Equal(t, "Cannot join, room is already full. Please check with the host.", body.Error.Message)
}

func TestValidationErrorCarriesFields(t *testing.T) {
	err := model.Validate(model.ValidateUsername("abc"), model.ValidateCapacity(0))

	status, body := writeAndDecode(t, err)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, CodeValidationError, body.Error.Code)
	require.Len(t, body.Error.Fields, 2)
	assert.Equal(t, "username", body.Error.Fields[0].Field)
	assert.Equal(t, "capacity", body.Error.Fields[1].Field)
}

func TestUnknownErrorsDoNotLeak(t *testing.T) {
	status, body := writeAndDecode(t, errors.New("pq: connection refused at 10.0.0.3"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, CodeInternalError, body.Error.Code)
	assert.Equal(t, "Internal server error", body.Error.Message)
	assert.Equal(t, http.StatusInternalServerError, Status(errors.New("x")))
}

func TestConstructedErrorsPassThrough(t *testing.T) {
	status, body := writeAndDecode(t, NewRateLimitedError())
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, CodeRateLimited, body.Error.Code)
}
