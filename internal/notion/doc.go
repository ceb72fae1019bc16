// Package notion is a small REST client for the parts of the Notion API folio
// uses: listing the child databases of the root page, querying database rows,
// and creating or extending database schemas during setup.
//
// Only the JSON fields folio reads are modelled. Every call takes a context and
// returns wrapped errors; a 404 from the API matches ErrNotFound.
package notion
