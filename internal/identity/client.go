package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// Profile is the subset of the provider's user object the directory needs.
type Profile struct {
	ID        string
	FirstName string
	LastName  string
	Username  string
	// Email is the primary address, or the first one listed when the
	// provider does not flag a primary.
	Email    string
	ImageURL string
}

// Subscription is one billing subscription as reported by the provider.
type Subscription struct {
	Status   string
	PlanName string
	PlanSlug string
}

// Metadata is the operator-editable public metadata on the user object.
// Plan is empty when nothing was assigned.
type Metadata struct {
	Plan string
}

// Client talks to the provider's backend API with the instance secret key.
//
// The secret travels as a static OAuth2 bearer token, so every request made
// through c.http carries "Authorization: Bearer <secret>".
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient returns a Client for the API rooted at apiURL
// (e.g. "https://api.provider.example/v1").
func NewClient(apiURL, secretKey string, timeout time.Duration, log *slog.Logger) *Client {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: secretKey, TokenType: "Bearer"})
	hc := oauth2.NewClient(context.Background(), src)
	hc.Timeout = timeout

	return &Client{
		baseURL: strings.TrimRight(apiURL, "/"),
		http:    hc,
		logger:  log,
	}
}

// wire shapes of the provider API

type apiEmail struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
}

type apiUser struct {
	ID                    string         `json:"id"`
	FirstName             *string        `json:"first_name"`
	LastName              *string        `json:"last_name"`
	Username              *string        `json:"username"`
	ImageURL              string         `json:"image_url"`
	PrimaryEmailAddressID string         `json:"primary_email_address_id"`
	EmailAddresses        []apiEmail     `json:"email_addresses"`
	PublicMetadata        map[string]any `json:"public_metadata"`
}

type apiSubscriptionList struct {
	Data []struct {
		Status string `json:"status"`
		Plan   struct {
			Name string `json:"name"`
			Slug string `json:"slug"`
		} `json:"plan"`
	} `json:"data"`
}

// GetProfile fetches the user object and flattens it into a Profile.
func (c *Client) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	u, err := c.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	p := &Profile{
		ID:        u.ID,
		FirstName: deref(u.FirstName),
		LastName:  deref(u.LastName),
		Username:  deref(u.Username),
		ImageURL:  u.ImageURL,
	}
	for _, e := range u.EmailAddresses {
		if e.ID == u.PrimaryEmailAddressID {
			p.Email = e.EmailAddress
			break
		}
	}
	if p.Email == "" && len(u.EmailAddresses) > 0 {
		p.Email = u.EmailAddresses[0].EmailAddress
	}
	return p, nil
}

// ListSubscriptions returns every subscription on record for the user,
// whatever its status.
func (c *Client) ListSubscriptions(ctx context.Context, userID string) ([]Subscription, error) {
	var body apiSubscriptionList
	if err := c.get(ctx, "/users/"+url.PathEscape(userID)+"/subscriptions", &body); err != nil {
		return nil, err
	}

	subs := make([]Subscription, 0, len(body.Data))
	for _, d := range body.Data {
		subs = append(subs, Subscription{Status: d.Status, PlanName: d.Plan.Name, PlanSlug: d.Plan.Slug})
	}
	return subs, nil
}

// GetPublicMetadata reads public_metadata.plan from the user object. A
// missing or non-string value yields an empty Plan.
func (c *Client) GetPublicMetadata(ctx context.Context, userID string) (Metadata, error) {
	u, err := c.getUser(ctx, userID)
	if err != nil {
		return Metadata{}, err
	}
	plan, _ := u.PublicMetadata["plan"].(string)
	return Metadata{Plan: plan}, nil
}

func (c *Client) getUser(ctx context.Context, userID string) (*apiUser, error) {
	var u apiUser
	if err := c.get(ctx, "/users/"+url.PathEscape(userID), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("identity: building request %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("identity: calling %s: %w", path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("identity provider call",
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("identity: %s returned status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("identity: decoding %s: %w", path, err)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
