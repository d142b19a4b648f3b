package idp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shandysiswandi/authgate/internal/identity/entity"
	"github.com/shandysiswandi/authgate/internal/pkg/goerror"
	"github.com/shandysiswandi/authgate/internal/pkg/instrument"
	"github.com/shandysiswandi/authgate/internal/pkg/jwt"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"
)

const defaultTimeout = 10 * time.Second

var ErrBaseURLRequired = errors.New("idp: base url and realm are required")

// Config describes a Keycloak-compatible identity provider.
type Config struct {
	BaseURL      string
	Realm        string
	ClientID     string
	ClientSecret string
	// AdminUsername and AdminPassword obtain the token used for user management.
	AdminUsername string
	AdminPassword string
	// ForwardCallerToken uses the caller's bearer for user management instead
	// of the admin account when one is attached to the context.
	ForwardCallerToken bool
	Timeout            time.Duration
}

// Keycloak talks to the token endpoint through x/oauth2 and to the admin REST
// API with the resulting bearer.
type Keycloak struct {
	oauth    *oauth2.Config
	usersURL string
	client   *http.Client
	cfg      Config
	ins      instrument.Instrumentation
}

func New(cfg Config, ins instrument.Instrumentation) (*Keycloak, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" || cfg.Realm == "" {
		return nil, ErrBaseURLRequired
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	realm := url.PathEscape(cfg.Realm)

	return &Keycloak{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  base + "/realms/" + realm + "/protocol/openid-connect/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		usersURL: base + "/admin/realms/" + realm + "/users",
		client:   &http.Client{Timeout: cfg.Timeout},
		cfg:      cfg,
		ins:      ins,
	}, nil
}

// PasswordGrant exchanges user credentials for a token set. Credentials
// rejected by the provider are reported as goerror.ErrUnauthenticated.
func (k *Keycloak) PasswordGrant(ctx context.Context, username, password string) (_ *entity.TokenSet, err error) {
	ctx, span := k.startSpan(ctx, "PasswordGrant")
	defer func() { endSpan(span, err) }()

	tok, err := k.passwordGrant(ctx, username, password)
	if err != nil {
		return nil, err
	}

	expiresIn := tok.ExpiresIn
	if expiresIn == 0 {
		expiresIn = extraInt(tok, "expires_in")
	}

	return &entity.TokenSet{
		AccessToken:      tok.AccessToken,
		TokenType:        tok.TokenType,
		ExpiresIn:        expiresIn,
		RefreshToken:     tok.RefreshToken,
		RefreshExpiresIn: extraInt(tok, "refresh_expires_in"),
		Scope:            extraString(tok, "scope"),
		SessionState:     extraString(tok, "session_state"),
	}, nil
}

func (k *Keycloak) passwordGrant(ctx context.Context, username, password string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, k.client)

	tok, err := k.oauth.PasswordCredentialsToken(ctx, username, password)
	if err == nil {
		return tok, nil
	}

	var rErr *oauth2.RetrieveError
	if errors.As(err, &rErr) && rErr.Response != nil {
		switch rErr.Response.StatusCode {
		case http.StatusBadRequest, http.StatusUnauthorized:
			return nil, fmt.Errorf("%w: %s", goerror.ErrUnauthenticated, rErr.ErrorCode)
		}
	}

	return nil, fmt.Errorf("idp: token request: %w", err)
}

type credentialRepresentation struct {
	Type      string `json:"type"`
	Value     string `json:"value"`
	Temporary bool   `json:"temporary"`
}

type userRepresentation struct {
	ID               string                     `json:"id,omitempty"`
	Username         string                     `json:"username"`
	Email            string                     `json:"email"`
	FirstName        string                     `json:"firstName,omitempty"`
	LastName         string                     `json:"lastName,omitempty"`
	Enabled          bool                       `json:"enabled"`
	EmailVerified    bool                       `json:"emailVerified"`
	CreatedTimestamp int64                      `json:"createdTimestamp,omitempty"`
	Credentials      []credentialRepresentation `json:"credentials,omitempty"`
}

// CreateUser creates an enabled account with a permanent password. An
// existing username or email is reported as goerror.ErrConflict.
func (k *Keycloak) CreateUser(ctx context.Context, in entity.NewProviderUser) (err error) {
	ctx, span := k.startSpan(ctx, "CreateUser")
	defer func() { endSpan(span, err) }()

	body, err := json.Marshal(userRepresentation{
		Username: in.Username,
		Email:    in.Email,
		Enabled:  true,
		Credentials: []credentialRepresentation{
			{Type: "password", Value: in.Password, Temporary: false},
		},
	})
	if err != nil {
		return err
	}

	resp, err := k.adminDo(ctx, http.MethodPost, k.usersURL, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated, http.StatusNoContent:
		return nil
	case http.StatusConflict:
		return goerror.ErrConflict
	default:
		return unexpectedStatus(resp)
	}
}

func (k *Keycloak) ListUsers(ctx context.Context, filter entity.ProviderUserFilter) (_ []entity.ProviderUser, err error) {
	ctx, span := k.startSpan(ctx, "ListUsers")
	defer func() { endSpan(span, err) }()

	q := url.Values{}
	if filter.Search != "" {
		q.Set("search", filter.Search)
	}
	q.Set("first", strconv.Itoa(filter.First))
	q.Set("max", strconv.Itoa(filter.Max))

	resp, err := k.adminDo(ctx, http.MethodGet, k.usersURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, unexpectedStatus(resp)
	}

	var reps []userRepresentation
	if err := json.NewDecoder(resp.Body).Decode(&reps); err != nil {
		return nil, fmt.Errorf("idp: decode users: %w", err)
	}

	users := make([]entity.ProviderUser, 0, len(reps))
	for _, r := range reps {
		u := entity.ProviderUser{
			ID:            r.ID,
			Username:      r.Username,
			Email:         r.Email,
			FirstName:     r.FirstName,
			LastName:      r.LastName,
			Enabled:       r.Enabled,
			EmailVerified: r.EmailVerified,
		}
		if r.CreatedTimestamp > 0 {
			u.CreatedAt = time.UnixMilli(r.CreatedTimestamp).UTC()
		}
		users = append(users, u)
	}

	return users, nil
}

func (k *Keycloak) adminDo(ctx context.Context, method, target string, body []byte) (*http.Response, error) {
	source, err := k.adminTokenSource(ctx)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, k.client), source)
	client.Timeout = k.cfg.Timeout

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("idp: %s %s: %w", method, k.usersURL, err)
	}

	return resp, nil
}

func (k *Keycloak) adminTokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	if k.cfg.ForwardCallerToken {
		if raw := jwt.GetToken(ctx); raw != "" {
			return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: raw, TokenType: "Bearer"}), nil
		}
	}

	tok, err := k.passwordGrant(ctx, k.cfg.AdminUsername, k.cfg.AdminPassword)
	if err != nil {
		return nil, fmt.Errorf("idp: admin token: %w", err)
	}

	return oauth2.StaticTokenSource(tok), nil
}

func (k *Keycloak) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return k.ins.Tracer("identity.outbound.idp").Start(ctx, name)
}

func endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, goerror.ErrConflict) && !errors.Is(err, goerror.ErrUnauthenticated) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func unexpectedStatus(resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("idp: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
}

func extraString(tok *oauth2.Token, key string) string {
	v, _ := tok.Extra(key).(string)
	return v
}

func extraInt(tok *oauth2.Token, key string) int64 {
	switch v := tok.Extra(key).(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case json.Number:
		n, _ := v.Int64()
		return n
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	default:
		return 0
	}
}
