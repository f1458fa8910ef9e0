package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"authflow/internal/config"
	"authflow/internal/domain"
	"authflow/internal/repository"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
)

type OAuthUserInfo struct {
	ProviderUserID string
	Email          string
	Name           string
	Picture        string
}

type OAuthProvider interface {
	Name() string
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	FetchUserInfo(ctx context.Context, token *oauth2.Token) (*OAuthUserInfo, error)
}

type GoogleOAuthProvider struct {
	cfg *oauth2.Config
}

func NewGoogleOAuthProvider(cfg *config.Config) *GoogleOAuthProvider {
	return &GoogleOAuthProvider{cfg: &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint:     google.Endpoint,
	}}
}

func (p *GoogleOAuthProvider) Name() string { return "google" }

func (p *GoogleOAuthProvider) AuthCodeURL(state string) string {
	return p.cfg.AuthCodeURL(state)
}

func (p *GoogleOAuthProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return p.cfg.Exchange(ctx, code)
}

func (p *GoogleOAuthProvider) FetchUserInfo(ctx context.Context, token *oauth2.Token) (*OAuthUserInfo, error) {
	var body struct {
		Sub     string `json:"sub"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := fetchJSON(ctx, p.cfg.Client(ctx, token), "https://openidconnect.googleapis.com/v1/userinfo", &body); err != nil {
		return nil, err
	}
	if body.Sub == "" || body.Email == "" {
		return nil, fmt.Errorf("missing required userinfo fields")
	}
	return &OAuthUserInfo{
		ProviderUserID: body.Sub,
		Email:          strings.ToLower(body.Email),
		Name:           body.Name,
		Picture:        body.Picture,
	}, nil
}

type GithubOAuthProvider struct {
	cfg *oauth2.Config
}

func NewGithubOAuthProvider(cfg *config.Config) *GithubOAuthProvider {
	return &GithubOAuthProvider{cfg: &oauth2.Config{
		ClientID:     cfg.GithubClientID,
		ClientSecret: cfg.GithubClientSecret,
		RedirectURL:  cfg.GithubRedirectURL,
		Scopes:       []string{"read:user", "user:email"},
		Endpoint:     github.Endpoint,
	}}
}

func (p *GithubOAuthProvider) Name() string { return "github" }

func (p *GithubOAuthProvider) AuthCodeURL(state string) string {
	return p.cfg.AuthCodeURL(state)
}

func (p *GithubOAuthProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return p.cfg.Exchange(ctx, code)
}

func (p *GithubOAuthProvider) FetchUserInfo(ctx context.Context, token *oauth2.Token) (*OAuthUserInfo, error) {
	client := p.cfg.Client(ctx, token)
	var body struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Name      string `json:"name"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := fetchJSON(ctx, client, "https://api.github.com/user", &body); err != nil {
		return nil, err
	}
	if body.ID == 0 {
		return nil, fmt.Errorf("missing required userinfo fields")
	}
	email := body.Email
	if email == "" {
		// GitHub hides the address on private-email profiles; the verified
		// primary has to come from the emails endpoint.
		var emails []struct {
			Email    string `json:"email"`
			Primary  bool   `json:"primary"`
			Verified bool   `json:"verified"`
		}
		if err := fetchJSON(ctx, client, "https://api.github.com/user/emails", &emails); err != nil {
			return nil, err
		}
		for _, e := range emails {
			if e.Primary && e.Verified {
				email = e.Email
				break
			}
		}
	}
	if email == "" {
		return nil, fmt.Errorf("no verified email on github account")
	}
	name := body.Name
	if name == "" {
		name = body.Login
	}
	return &OAuthUserInfo{
		ProviderUserID: strconv.FormatInt(body.ID, 10),
		Email:          strings.ToLower(email),
		Name:           name,
		Picture:        body.AvatarURL,
	}, nil
}

func fetchJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("userinfo status: %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// OAuthService completes a provider callback: it resolves or creates the
// user, links the provider account, and marks the email verified on first
// link (an OAuth identity arrives with a provider-verified address).
type OAuthService struct {
	providers map[string]OAuthProvider
	userRepo  repository.UserRepository
	oauthRepo repository.OAuthRepository
}

func NewOAuthService(userRepo repository.UserRepository, oauthRepo repository.OAuthRepository, providers ...OAuthProvider) *OAuthService {
	m := make(map[string]OAuthProvider, len(providers))
	for _, p := range providers {
		m[p.Name()] = p
	}
	return &OAuthService{providers: m, userRepo: userRepo, oauthRepo: oauthRepo}
}

var ErrUnknownOAuthProvider = errors.New("unknown oauth provider")

func (s *OAuthService) Provider(name string) (OAuthProvider, error) {
	p, ok := s.providers[name]
	if !ok {
		return nil, ErrUnknownOAuthProvider
	}
	return p, nil
}

// HandleCallback exchanges the code and returns the signed-in user plus the
// linked account for claims enrichment.
func (s *OAuthService) HandleCallback(ctx context.Context, providerName, code string) (*domain.User, *domain.OAuthAccount, error) {
	provider, err := s.Provider(providerName)
	if err != nil {
		return nil, nil, err
	}
	token, err := provider.Exchange(ctx, code)
	if err != nil {
		return nil, nil, err
	}
	info, err := provider.FetchUserInfo(ctx, token)
	if err != nil {
		return nil, nil, err
	}

	account, err := s.oauthRepo.FindByProvider(providerName, info.ProviderUserID)
	switch {
	case err == nil:
		user, err := s.userRepo.FindByID(account.UserID)
		if err != nil {
			return nil, nil, err
		}
		return user, account, nil
	case errors.Is(err, repository.ErrOAuthAccountNotFound):
		user, err := s.linkOrCreate(info)
		if err != nil {
			return nil, nil, err
		}
		account = &domain.OAuthAccount{
			UserID:         user.ID,
			Provider:       providerName,
			ProviderUserID: info.ProviderUserID,
		}
		if err := s.oauthRepo.Create(account); err != nil {
			return nil, nil, err
		}
		// Linking counts as address verification for this user.
		if user.Email != nil && !user.EmailVerified() {
			if err := s.userRepo.MarkEmailVerified(*user.Email); err != nil {
				return nil, nil, err
			}
			verified := time.Now().UTC()
			user.EmailVerifiedAt = &verified
		}
		return user, account, nil
	default:
		return nil, nil, err
	}
}

func (s *OAuthService) linkOrCreate(info *OAuthUserInfo) (*domain.User, error) {
	user, err := s.userRepo.FindByEmail(info.Email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}
	user = &domain.User{
		Name:     &info.Name,
		Email:    &info.Email,
		ImageURL: info.Picture,
		Role:     domain.RoleUser,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}
	return user, nil
}
