package authhandler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/zanzhit/snapshot_recorder/internal/domain/errs"
	"github.com/zanzhit/snapshot_recorder/internal/domain/models"
	"github.com/zanzhit/snapshot_recorder/internal/http-server/handlers"
	"github.com/zanzhit/snapshot_recorder/internal/lib/api/response"
	"github.com/zanzhit/snapshot_recorder/internal/lib/sl"
)

const maxBodyBytes = 4 << 10

const tokenType = "Bearer"

type Request struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=72"`
}

type Response struct {
	models.AuthToken
	TokenType string `json:"token_type"`
}

type AuthHandler struct {
	log      *slog.Logger
	user     User
	validate *validator.Validate
}

type User interface {
	Login(username, password string) (models.AuthToken, error)
}

func New(log *slog.Logger, user User) *AuthHandler {
	return &AuthHandler{
		log:      log,
		user:     user,
		validate: validator.New(),
	}
}

// Login exchanges the operator credentials for a bearer token used by the
// camera and job endpoints and by live viewers (as ?token=).
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.Login"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("remote_addr", r.RemoteAddr),
	)

	req, errResp := h.decode(w, r)
	if errResp != nil {
		log.Warn("rejected login request", slog.String("reason", errResp.Error))

		handlers.Error(w, r, http.StatusBadRequest, *errResp)

		return
	}

	token, err := h.user.Login(req.Username, req.Password)
	switch {
	case errors.Is(err, errs.ErrInvalidCredentials):
		log.Warn("failed login attempt", slog.String("username", req.Username))

		handlers.Error(w, r, http.StatusUnauthorized, response.Error("invalid credentials", ""))
	case err != nil:
		log.Error("failed to login", sl.Err(err))

		handlers.Error(w, r, http.StatusInternalServerError, response.Error("failed to login", middleware.GetReqID(r.Context())))
	default:
		render.JSON(w, r, Response{AuthToken: token, TokenType: tokenType})
	}
}

func (h *AuthHandler) decode(w http.ResponseWriter, r *http.Request) (Request, *response.Response) {
	var req Request

	err := render.DecodeJSON(http.MaxBytesReader(w, r.Body, maxBodyBytes), &req)
	if errors.Is(err, io.EOF) {
		resp := response.Error("empty request", "")

		return req, &resp
	}
	if err != nil {
		resp := response.Error("failed to decode request", middleware.GetReqID(r.Context()))

		return req, &resp
	}

	var validateErr validator.ValidationErrors
	if err := h.validate.Struct(req); errors.As(err, &validateErr) {
		resp := response.ValidationError(validateErr)

		return req, &resp
	}

	return req, nil
}
