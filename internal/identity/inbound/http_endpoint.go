package inbound

import (
	"github.com/shandysiswandi/authgate/internal/identity/usecase"
	"github.com/shandysiswandi/authgate/internal/pkg/router"
)

// HTTPEndpoint exposes the identity flows over HTTP.
type HTTPEndpoint struct {
	uc uc
}

// Login exchanges username and password for the provider's token set.
func (h *HTTPEndpoint) Login(r *router.Request) (any, error) {
	var req LoginRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.Login(r.Context(), usecase.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		return nil, err
	}

	return LoginResponse{
		AccessToken:      resp.AccessToken,
		TokenType:        resp.TokenType,
		ExpiresIn:        resp.ExpiresIn,
		RefreshToken:     resp.RefreshToken,
		RefreshExpiresIn: resp.RefreshExpiresIn,
		Scope:            resp.Scope,
		SessionState:     resp.SessionState,
	}, nil
}

func (h *HTTPEndpoint) Register(r *router.Request) (any, error) {
	var req RegisterRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	if err := h.uc.Register(r.Context(), usecase.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	}); err != nil {
		return nil, err
	}

	return RegisterResponse{}, nil
}

// UserList lists provider accounts. The route is POST without a body; paging
// comes from the search, first and max query parameters.
func (h *HTTPEndpoint) UserList(r *router.Request) (any, error) {
	first, err := r.GetQueryInt("first")
	if err != nil {
		return nil, err
	}

	maxResults, err := r.GetQueryInt("max")
	if err != nil {
		return nil, err
	}

	resp, err := h.uc.UserList(r.Context(), usecase.UserListInput{
		Search: r.GetQuery("search"),
		First:  first,
		Max:    maxResults,
	})
	if err != nil {
		return nil, err
	}

	users := make([]UserResponse, 0, len(resp.Users))
	for _, item := range resp.Users {
		u := UserResponse{
			ID:            item.ID,
			Username:      item.Username,
			Email:         item.Email,
			FirstName:     item.FirstName,
			LastName:      item.LastName,
			Enabled:       item.Enabled,
			EmailVerified: item.EmailVerified,
		}
		if !item.CreatedAt.IsZero() {
			createdAt := item.CreatedAt
			u.CreatedAt = &createdAt
		}
		users = append(users, u)
	}

	return UsersResponse{Users: users, first: resp.First, max: resp.Max}, nil
}

func (h *HTTPEndpoint) SendOTP(r *router.Request) (any, error) {
	var req SendOTPRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	if err := h.uc.SendOTP(r.Context(), usecase.SendOTPInput{Email: req.Email}); err != nil {
		return nil, err
	}

	return SendOTPResponse{}, nil
}

func (h *HTTPEndpoint) VerifyOTP(r *router.Request) (any, error) {
	var req VerifyOTPRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	if err := h.uc.VerifyOTP(r.Context(), usecase.VerifyOTPInput{Email: req.Email, OTP: req.OTP}); err != nil {
		return nil, err
	}

	return VerifyOTPResponse{}, nil
}
