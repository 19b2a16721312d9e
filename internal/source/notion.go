package source

import (
	"context"
	"strings"
	"time"

	maoserrors "github.com/Activ8-AI/maosec/internal/errors"
	"github.com/Activ8-AI/maosec/internal/secure"
)

// Property column names expected in the credential database. The schema is
// deliberately explicit: one column per hierarchy coordinate.
const (
	notionColName   = "Name"
	notionColSecret = "Secret"
	notionColTenant = "Tenant"
	notionColSystem = "System"
	notionColEnv    = "Env"
)

// NotionSource reads credential rows from a Notion database where each row
// has Name, Secret, Tenant, System, and Env columns.
type NotionSource struct {
	client     *notionClient
	databaseID string
}

// NotionOptions configures a NotionSource.
type NotionOptions struct {
	DatabaseID string
	Token      *secure.Buffer
	BaseURL    string // overridden in tests
	Timeout    time.Duration
}

// NewNotionSource creates a Notion-backed source.
func NewNotionSource(opts NotionOptions) (*NotionSource, error) {
	if opts.DatabaseID == "" {
		return nil, maoserrors.ConfigError{
			Field:      "source.database_id",
			Message:    "database_id is required for the notion source",
			Suggestion: "Set source.database_id to the credential database's ID",
		}
	}
	if opts.Token == nil {
		return nil, maoserrors.ConfigError{
			Field:      "source",
			Message:    "no Notion token available",
			Suggestion: "Set the token env var or run 'maosec login notion'",
		}
	}
	return &NotionSource{
		client:     newNotionClient(opts.BaseURL, opts.Token, opts.Timeout),
		databaseID: opts.DatabaseID,
	}, nil
}

// Name returns "notion".
func (s *NotionSource) Name() string {
	return "notion"
}

// List queries the database and maps rows to records. Rows are returned as-is
// including incomplete ones; the caller decides how to report skips.
func (s *NotionSource) List(ctx context.Context) ([]Record, error) {
	pages, err := s.client.queryDatabase(ctx, s.databaseID)
	if err != nil {
		return nil, maoserrors.SourceError("notion", "list", err)
	}

	records := make([]Record, 0, len(pages))
	for _, page := range pages {
		get := func(column string) string {
			return strings.TrimSpace(extractText(page.Properties[column]))
		}
		records = append(records, Record{
			RowID:  page.ID,
			Name:   get(notionColName),
			Value:  get(notionColSecret),
			Tenant: get(notionColTenant),
			System: get(notionColSystem),
			Env:    get(notionColEnv),
		})
	}
	return records, nil
}

// Validate retrieves the database metadata to confirm the token works and
// the integration is shared with the database.
func (s *NotionSource) Validate(ctx context.Context) error {
	if err := s.client.retrieveDatabase(ctx, s.databaseID); err != nil {
		return maoserrors.SourceError("notion", "validate", err)
	}
	return nil
}
