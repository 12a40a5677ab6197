package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"constitution-gpt/internal/app"
	"constitution-gpt/internal/filestore"
	"constitution-gpt/internal/transport/http/middleware"
	"constitution-gpt/internal/transport/http/response"
)

// writeError maps service errors onto the response envelope. Anything
// unknown becomes a 500 carrying fallback as message.
func writeError(c *gin.Context, err error, fallback string) {
	var verr *app.ValidationError
	switch {
	case errors.As(err, &verr):
		response.Error(c, http.StatusBadRequest, response.CodeValidation, verr.Error())
	case errors.Is(err, app.ErrInvalidInput), errors.Is(err, app.ErrMessageEmpty):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrUsernameExists):
		response.Error(c, http.StatusBadRequest, response.CodeUsernameExists, err.Error())
	case errors.Is(err, app.ErrEmailExists):
		response.Error(c, http.StatusBadRequest, response.CodeEmailExists, err.Error())
	case errors.Is(err, app.ErrInvalidCredential):
		response.Error(c, http.StatusUnauthorized, response.CodeInvalidCredentials, "invalid credentials")
	case app.IsAuthError(err):
		response.Error(c, http.StatusUnauthorized, response.CodeInvalidToken, "invalid or expired token")
	case errors.Is(err, app.ErrSessionLost):
		response.Error(c, http.StatusUnauthorized, response.CodeSessionLost, "session lost, please log in again")
	case errors.Is(err, app.ErrForbidden):
		response.Error(c, http.StatusForbidden, response.CodeForbidden, "forbidden")
	case errors.Is(err, app.ErrNotFound), errors.Is(err, filestore.ErrNotFound):
		response.Error(c, http.StatusNotFound, response.CodeNotFound, "not found")
	case errors.Is(err, app.ErrConflict):
		response.Error(c, http.StatusConflict, response.CodeConflict, "conflict")
	case errors.Is(err, app.ErrCompletionFailed):
		response.Error(c, http.StatusBadGateway, response.CodeUpstream, "assistant is unavailable, please retry")
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}

func badPayload(c *gin.Context) {
	response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
}

func currentUserID(c *gin.Context) (uint, bool) {
	id, ok := middleware.UserIDFrom(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
	}
	return id, ok
}

func currentActor(c *gin.Context) (app.Actor, bool) {
	id, ok := currentUserID(c)
	if !ok {
		return app.Actor{}, false
	}
	role, _ := middleware.RoleFrom(c)
	return app.Actor{UserID: id, Role: role}, true
}

func uintParam(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid "+name)
		return 0, false
	}
	return uint(v), true
}
