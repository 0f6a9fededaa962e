package idp

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/panyam/authsession"
)

// Server exposes a Provider over HTTP:
//
//	POST /signup    SignUpBody   -> authsession.SignUpResult
//	POST /confirm   ConfirmBody  -> authsession.ConfirmResult
//	POST /token     TokenRequest -> TokenResponse
//	POST /signout   Bearer token -> 204
//	GET  /userinfo  Bearer token -> user attributes
type Server struct {
	provider *Provider
	router   *mux.Router
	logger   *slog.Logger
}

// NewServer creates the HTTP handler for p
func NewServer(p *Provider) *Server {
	s := &Server{
		provider: p,
		router:   mux.NewRouter(),
		logger:   p.cfg.Logger,
	}
	s.router.HandleFunc("/signup", s.handleSignUp).Methods(http.MethodPost)
	s.router.HandleFunc("/confirm", s.handleConfirm).Methods(http.MethodPost)
	s.router.HandleFunc("/token", s.handleToken).Methods(http.MethodPost)
	s.router.HandleFunc("/signout", s.handleSignOut).Methods(http.MethodPost)
	s.router.HandleFunc("/userinfo", s.handleUserInfo).Methods(http.MethodGet)
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.errorResponse(w, "invalid_request", "Method not allowed", http.StatusMethodNotAllowed)
	})
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var body SignUpBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.errorResponse(w, ReasonInvalidParameter, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := s.provider.SignUp(r.Context(), authsession.SignUpRequest{
		Username:       body.Username,
		Password:       body.Password,
		Attributes:     body.Attributes,
		ValidationData: body.ValidationData,
	})
	if err != nil {
		s.providerError(w, err)
		return
	}
	s.jsonResponse(w, result)
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	var body ConfirmBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.errorResponse(w, ReasonInvalidParameter, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := s.provider.ConfirmSignUp(r.Context(), authsession.ConfirmRequest{
		Username:           body.Username,
		Code:               body.Code,
		ForceAliasCreation: body.ForceAliasCreation,
	})
	if err != nil {
		s.providerError(w, err)
		return
	}
	s.jsonResponse(w, result)
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, ReasonInvalidParameter, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.GrantType != "" && req.GrantType != "password" {
		s.errorResponse(w, "unsupported_grant_type", "Grant type not supported", http.StatusBadRequest)
		return
	}

	result, err := s.provider.Authenticate(r.Context(), authsession.AuthRequest{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		s.providerError(w, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	s.jsonResponse(w, TokenResponse{
		AccessToken:  result.AccessToken,
		IDToken:      result.IDToken,
		RefreshToken: result.RefreshToken,
		TokenType:    result.TokenType,
		ExpiresIn:    tokenLifetime(result.ExpiresIn),
	})
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		s.errorResponse(w, ReasonNotAuthorized, "Missing Access Token", http.StatusUnauthorized)
		return
	}
	if err := s.provider.SignOut(r.Context(), token); err != nil {
		s.providerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUserInfo(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		s.errorResponse(w, ReasonNotAuthorized, "Missing Access Token", http.StatusUnauthorized)
		return
	}
	info, err := s.provider.UserInfo(token)
	if err != nil {
		s.providerError(w, err)
		return
	}
	s.jsonResponse(w, info)
}

func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(auth, "Bearer ")
	if !found || token == "" {
		return "", false
	}
	return token, true
}

// statusFor maps a provider reason to an HTTP status
func statusFor(reason string) int {
	switch reason {
	case ReasonNotAuthorized:
		return http.StatusUnauthorized
	case ReasonUserNotConfirmed:
		return http.StatusForbidden
	case ReasonUserNotFound:
		return http.StatusNotFound
	case ReasonUsernameExists:
		return http.StatusConflict
	case ReasonInternalError, ReasonCodeDeliveryError:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

func (s *Server) providerError(w http.ResponseWriter, err error) {
	var perr *authsession.ProviderError
	if !errors.As(err, &perr) {
		s.logger.Error("unexpected provider error", "err", err)
		s.errorResponse(w, ReasonInternalError, "Internal error", http.StatusInternalServerError)
		return
	}
	s.errorResponse(w, perr.Reason, perr.Message, statusFor(perr.Reason))
}

func (s *Server) jsonResponse(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to write response", "err", err)
	}
}

// errorResponse sends an OAuth 2.0 style error body
func (s *Server) errorResponse(w http.ResponseWriter, errorCode, description string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:            errorCode,
		ErrorDescription: description,
	})
}
