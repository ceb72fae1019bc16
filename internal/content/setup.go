package content

import (
	"context"
	"fmt"
	"log/slog"

	"folio/internal/logging"
	"folio/internal/notion"
	"folio/internal/portfolio"
)

// Admin is the CMS surface needed to provision databases.
type Admin interface {
	ListChildDatabases(ctx context.Context, pageID string) ([]notion.Database, error)
	CreateDatabase(ctx context.Context, parentPageID, title string, properties map[string]any) (*notion.Database, error)
	UpdateDatabase(ctx context.Context, databaseID string, properties map[string]any) (*notion.Database, error)
	QueryDatabase(ctx context.Context, databaseID string, q notion.Query) ([]notion.Page, error)
	UpdatePage(ctx context.Context, pageID string, properties map[string]any) error
}

// Setup actions.
const (
	SetupCreated    = "created"
	SetupOrderAdded = "order-added"
	SetupUnchanged  = "unchanged"
	SetupFailed     = "failed"
)

// SetupStep records what Setup did to one database.
type SetupStep struct {
	Database string
	Action   string
	Numbered int
	Err      error
}

func prop(kind string) map[string]any {
	return map[string]any{kind: map[string]any{}}
}

func selectProp(options ...string) map[string]any {
	opts := make([]map[string]any, 0, len(options))
	for _, name := range options {
		opts = append(opts, map[string]any{"name": name})
	}
	return map[string]any{"select": map[string]any{"options": opts}}
}

// Schema is the property layout of one CMS database.
type Schema struct {
	Name       string
	Properties map[string]any
}

// Schemas returns the property schema of every database the site reads, General first.
func Schemas() []Schema {
	return []Schema{
		{portfolio.NameGeneral, map[string]any{
			"DisplayName":  prop("title"),
			"Byline":       prop("rich_text"),
			"Website":      prop("url"),
			"About":        prop("rich_text"),
			"ProfilePhoto": prop("files"),
		}},
		{portfolio.NameWorkExperience, map[string]any{
			"Title":       prop("title"),
			"Company":     prop("rich_text"),
			"Year":        prop("rich_text"),
			"Location":    prop("rich_text"),
			"Description": prop("rich_text"),
			orderProperty: prop("number"),
		}},
		{portfolio.NameProjects, map[string]any{
			"Title":             prop("title"),
			"Year":              prop("number"),
			"Company":           prop("rich_text"),
			"Description":       prop("rich_text"),
			"URL":               prop("url"),
			attachmentsProperty: prop("files"),
			"Status":            selectProp("Published", "Draft", "Archived"),
			orderProperty:       prop("number"),
		}},
		{portfolio.NameWriting, map[string]any{
			"Title":             prop("title"),
			"Year":              prop("number"),
			"Description":       prop("rich_text"),
			"URL":               prop("url"),
			"Platform":          selectProp("Medium", "Blog", "Publication"),
			attachmentsProperty: prop("files"),
			orderProperty:       prop("number"),
		}},
		{portfolio.NameSpeaking, map[string]any{
			"Title":             prop("title"),
			"Year":              prop("number"),
			"Description":       prop("rich_text"),
			"Location":          prop("rich_text"),
			"URL":               prop("url"),
			"Event":             prop("rich_text"),
			attachmentsProperty: prop("files"),
			orderProperty:       prop("number"),
		}},
		{portfolio.NameEducation, map[string]any{
			"Title":       prop("title"),
			"Year":        prop("number"),
			"Institution": prop("rich_text"),
			"Description": prop("rich_text"),
			"Location":    prop("rich_text"),
			"URL":         prop("url"),
			orderProperty: prop("number"),
		}},
		{portfolio.NameContact, map[string]any{
			"Platform":    prop("title"),
			"Handle":      prop("rich_text"),
			"URL":         prop("url"),
			orderProperty: prop("number"),
		}},
	}
}

// Setup creates every missing database under pageID and adds the Order
// property to existing collections that lack it, numbering their rows in
// their current order. A failing database does not stop the others.
func Setup(ctx context.Context, admin Admin, pageID string, logger *slog.Logger) ([]SetupStep, error) {
	logger = logging.NewComponentLogger(logger, "setup")
	existing, err := admin.ListChildDatabases(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("list databases: %w", err)
	}

	steps := make([]SetupStep, 0, len(Schemas()))
	for _, schema := range Schemas() {
		if err := ctx.Err(); err != nil {
			return steps, err
		}
		step := SetupStep{Database: schema.Name, Action: SetupUnchanged}
		db := findByTitle(existing, schema.Name)
		switch {
		case db == nil:
			if _, err := admin.CreateDatabase(ctx, pageID, schema.Name, schema.Properties); err != nil {
				step.Action, step.Err = SetupFailed, err
				break
			}
			step.Action = SetupCreated
		case schema.Name != portfolio.NameGeneral && !db.HasProperty(orderProperty):
			numbered, err := addOrder(ctx, admin, db.ID)
			step.Numbered = numbered
			if err != nil {
				step.Action, step.Err = SetupFailed, err
				break
			}
			step.Action = SetupOrderAdded
		}

		if step.Err != nil {
			logging.WarnWithContext(logger, "database setup failed", "setup_failed",
				logging.String(logging.FieldCollection, schema.Name),
				logging.Error(step.Err),
				logging.String(logging.FieldErrorHint, "check that the integration can edit the root page"),
				logging.String(logging.FieldImpact, "collection stays empty until the database exists"),
			)
		} else {
			logger.Info("database setup",
				logging.String(logging.FieldCollection, schema.Name),
				logging.String("action", step.Action),
				logging.Int("numbered", step.Numbered),
			)
		}
		steps = append(steps, step)
	}
	return steps, nil
}

func findByTitle(databases []notion.Database, name string) *notion.Database {
	for i := range databases {
		if databases[i].TitleMatches(name) {
			return &databases[i]
		}
	}
	return nil
}

func addOrder(ctx context.Context, admin Admin, databaseID string) (int, error) {
	if _, err := admin.UpdateDatabase(ctx, databaseID, map[string]any{orderProperty: prop("number")}); err != nil {
		return 0, err
	}
	pages, err := admin.QueryDatabase(ctx, databaseID, notion.Query{})
	if err != nil {
		return 0, err
	}
	for i, page := range pages {
		value := map[string]any{orderProperty: map[string]any{"number": i + 1}}
		if err := admin.UpdatePage(ctx, page.ID, value); err != nil {
			return i, err
		}
	}
	return len(pages), nil
}
