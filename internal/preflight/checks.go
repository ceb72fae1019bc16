package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"folio/internal/content"
	"folio/internal/notion"
)

const notionCheckTimeout = 15 * time.Second

// DatabaseLister lists the databases under the portfolio root page.
type DatabaseLister interface {
	ListChildDatabases(ctx context.Context, pageID string) ([]notion.Database, error)
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckReadableFile verifies that a regular file exists and can be read.
func CheckReadableFile(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (readable)", path)}
}

// CheckNotion verifies that the integration can list the root page and
// reports collections that have no database yet.
func CheckNotion(ctx context.Context, lister DatabaseLister, pageID string) Result {
	const name = "Notion"

	if strings.TrimSpace(pageID) == "" {
		return Result{Name: name, Detail: "missing page id"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, notionCheckTimeout)
	defer cancel()

	databases, err := lister.ListChildDatabases(checkCtx, pageID)
	if err != nil {
		return Result{Name: name, Detail: summarizeNotionError(err)}
	}

	var missing []string
	for _, schema := range content.Schemas() {
		found := false
		for _, db := range databases {
			if db.TitleMatches(schema.Name) {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, schema.Name)
		}
	}
	if len(missing) > 0 {
		return Result{
			Name:   name,
			Passed: true,
			Detail: fmt.Sprintf("reachable, missing %s (run 'folio setup')", strings.Join(missing, ", ")),
		}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("reachable (%d databases)", len(databases))}
}

func summarizeNotionError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "request timed out (Notion API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "request timed out (Notion API unreachable)"
	}
	if errors.Is(err, notion.ErrNotFound) {
		return "page not found (is it shared with the integration?)"
	}
	var apiErr *notion.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusUnauthorized:
			return "integration secret rejected"
		case http.StatusForbidden:
			return "integration lacks access to the page"
		}
	}
	return err.Error()
}
