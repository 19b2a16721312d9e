// Package verify runs post-sync checks proving that synced credentials
// actually work: opening a database with a synced DSN, or hitting an HTTP
// endpoint with a synced token.
package verify

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	// Database drivers for sql checks.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	"github.com/Activ8-AI/maosec/internal/config"
	"github.com/Activ8-AI/maosec/internal/loader"
	"github.com/Activ8-AI/maosec/internal/logging"
)

// Result is the outcome of one check.
type Result struct {
	Name   string
	OK     bool
	Detail string
	Err    error
}

// Verifier executes configured checks against loaded secrets.
type Verifier struct {
	logger     *logging.Logger
	loader     *loader.Loader
	openDB     func(driver, dsn string) (*sql.DB, error)
	httpClient *http.Client
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithDBOpener replaces the database opener (for testing).
func WithDBOpener(open func(driver, dsn string) (*sql.DB, error)) Option {
	return func(v *Verifier) {
		v.openDB = open
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(v *Verifier) {
		v.httpClient = client
	}
}

// New creates a Verifier.
func New(logger *logging.Logger, l *loader.Loader, opts ...Option) *Verifier {
	v := &Verifier{
		logger:     logger,
		loader:     l,
		openDB:     sql.Open,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Run executes every check for the given environment. A failing check does
// not stop the rest.
func (v *Verifier) Run(ctx context.Context, checks []config.CheckConfig, env string) []Result {
	results := make([]Result, 0, len(checks))
	for _, check := range checks {
		checkEnv := env
		if check.Env != "" {
			checkEnv = check.Env
		}

		var result Result
		switch check.Type {
		case "sql":
			result = v.runSQL(ctx, check, checkEnv)
		case "http":
			result = v.runHTTP(ctx, check, checkEnv)
		default:
			result = Result{
				Name: check.Name,
				Err:  fmt.Errorf("unknown check type %q", check.Type),
			}
		}

		if result.OK {
			v.logger.Info("check %s passed: %s", result.Name, result.Detail)
		} else {
			v.logger.Error("check %s failed: %v", result.Name, result.Err)
		}
		results = append(results, result)
	}
	return results
}

func (v *Verifier) vars(ctx context.Context, check config.CheckConfig, env string) (map[string]string, error) {
	if check.Host == "" {
		return nil, fmt.Errorf("check %s has no host to resolve secrets for", check.Name)
	}
	return v.loader.ForHost(ctx, check.Host, env)
}

func (v *Verifier) runSQL(ctx context.Context, check config.CheckConfig, env string) Result {
	result := Result{Name: check.Name}

	vars, err := v.vars(ctx, check, env)
	if err != nil {
		result.Err = err
		return result
	}
	dsn, ok := vars[check.DSNVar]
	if !ok {
		result.Err = fmt.Errorf("variable %s not present in loaded secrets", check.DSNVar)
		return result
	}

	driver := check.Driver
	if driver == "" {
		driver = "postgres"
	}

	db, err := v.openDB(driver, dsn)
	if err != nil {
		result.Err = fmt.Errorf("open %s connection: %w", driver, err)
		return result
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		result.Err = fmt.Errorf("ping failed: %w", err)
		return result
	}

	result.OK = true
	result.Detail = fmt.Sprintf("%s connection established", driver)
	return result
}

func (v *Verifier) runHTTP(ctx context.Context, check config.CheckConfig, env string) Result {
	result := Result{Name: check.Name}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, check.Endpoint, nil)
	if err != nil {
		result.Err = fmt.Errorf("build request: %w", err)
		return result
	}

	if check.TokenVar != "" {
		vars, err := v.vars(ctx, check, env)
		if err != nil {
			result.Err = err
			return result
		}
		token, ok := vars[check.TokenVar]
		if !ok {
			result.Err = fmt.Errorf("variable %s not present in loaded secrets", check.TokenVar)
			return result
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		result.Err = fmt.Errorf("request failed: %w", err)
		return result
	}
	defer resp.Body.Close()

	// The client follows redirects, so anything outside 2xx here means the
	// credential did not produce a successful response.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		result.Err = fmt.Errorf("endpoint returned %s", resp.Status)
		return result
	}

	result.OK = true
	result.Detail = fmt.Sprintf("endpoint returned %s", resp.Status)
	return result
}
