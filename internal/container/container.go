package container

import (
	"fmt"
	"strings"
	"time"
)

// Options configures the server. Every field is also a flag and a
// SERVICE_ environment variable.
type Options struct {
	Port      int    `default:"8888"             help:"Port to listen on"                                      short:"p"`
	PublicURL string `default:""                 help:"Public base URL of short links; defaults to localhost"`
	AppName   string `default:"ledger-shortener" help:"App-Name tag scoping ledger records"`
	LogFormat string `default:"console"          help:"Log format: console or json"`

	IndexURL  string `default:""              help:"Ledger GraphQL gateway; empty runs on an in-memory ledger" short:"i"`
	MUURL     string `default:""              help:"Message unit URL of the compute network"`
	CUURL     string `default:""              help:"Compute unit URL of the compute network"`
	ProcessID string `default:"local-process" help:"Compute process that owns the short links"`

	WalletAgentURL        string `default:"http://localhost:4100" help:"Local wallet agent URL for extension signing"`
	CustodialURL          string `default:""                      help:"Custodial wallet service URL; empty disables it"`
	CustodialTokenURL     string `default:""                      help:"OAuth2 token URL of the custodial service"`
	CustodialClientID     string `default:""                      help:"OAuth2 client id of the custodial service"`
	CustodialClientSecret string `default:""                      help:"OAuth2 client secret of the custodial service"`

	SessionSecret     string `default:""      help:"HMAC secret for session cookies; random when empty"`
	SessionTTLMinutes int    `default:"30"    help:"Idle minutes before a session is discarded"`
	SecureCookies     bool   `default:"false" help:"Mark session cookies Secure"`

	RedisAddr          string `default:"localhost:6379" help:"Redis address; empty keeps limits and events in memory" short:"r"`
	MaxAttempts        int    `default:"32"             help:"Short code candidates checked before giving up"`
	LedgerLagMS        int    `default:"0"              help:"Visibility lag of the in-memory ledger in milliseconds"`
	HTTPTimeoutSeconds int    `default:"15"             help:"Timeout of outbound ledger and wallet calls"`
}

// BaseURL is the prefix of every short URL.
func (o *Options) BaseURL() string {
	if o.PublicURL != "" {
		return strings.TrimSuffix(o.PublicURL, "/")
	}

	return fmt.Sprintf("http://localhost:%d", o.Port)
}

// Offline reports whether the in-memory ledger replaces the real network.
func (o *Options) Offline() bool {
	return o.IndexURL == ""
}

func (o *Options) validate() error {
	if !o.Offline() && (o.MUURL == "" || o.CUURL == "") {
		return fmt.Errorf("%w: index URL requires both message and compute unit URLs", errInvalidOptions)
	}

	if o.CustodialURL != "" && o.CustodialTokenURL == "" {
		return fmt.Errorf("%w: custodial URL requires a token URL", errInvalidOptions)
	}

	return nil
}

func (o *Options) sessionTTL() time.Duration {
	return time.Duration(o.SessionTTLMinutes) * time.Minute
}

func (o *Options) httpTimeout() time.Duration {
	return time.Duration(o.HTTPTimeoutSeconds) * time.Second
}
