// Command devtoken prints a signed session token for local development.
//
//	go run ./cmd/devtoken -plan "Pro Plan"
//	curl -H "Authorization: Bearer $(go run ./cmd/devtoken -sub user_dev)" localhost:8080/api/user/usage
//
// The token is signed with auth.session_secret from the same configuration
// sources the server reads.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/stepwise/internal/config"
	"github.com/sakif/stepwise/internal/identity"
)

// planFlags collects repeated -plan values.
type planFlags []string

func (p *planFlags) String() string { return strings.Join(*p, ",") }

func (p *planFlags) Set(v string) error {
	*p = append(*p, v)
	return nil
}

func main() {
	var plans planFlags
	sub := flag.String("sub", "", "external user id (default: a fresh user_<xid>)")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	configFile := flag.String("config", "", "path to a YAML config file")
	flag.Var(&plans, "plan", "plan tag the session is entitled to (repeatable)")
	flag.Parse()

	cfg, err := config.Load(config.Options{File: *configFile, DotEnv: ".env"})
	if err != nil {
		fail(err)
	}
	if err := cfg.Auth.Validate(); err != nil {
		fail(err)
	}

	verifier, err := identity.NewTokenVerifier(cfg.Auth.SessionSecret, cfg.Auth.Issuer)
	if err != nil {
		fail(err)
	}

	id := identity.Identity{
		ID:        *sub,
		Plans:     plans,
		SessionID: "sess_" + xid.New().String(),
	}
	if id.ID == "" {
		id.ID = "user_" + xid.New().String()
	}

	token, err := verifier.Issue(id, *ttl)
	if err != nil {
		fail(err)
	}

	fmt.Fprintf(os.Stderr, "sub=%s plans=%v expires=%s\n", id.ID, []string(plans), time.Now().Add(*ttl).Format(time.RFC3339))
	fmt.Println(token)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "devtoken:", err)
	os.Exit(1)
}
