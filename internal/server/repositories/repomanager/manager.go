package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/gophsync/internal/dbx"
	"github.com/dmitrijs2005/gophsync/internal/server/repositories/groups"
	"github.com/dmitrijs2005/gophsync/internal/server/repositories/groupusers"
	"github.com/dmitrijs2005/gophsync/internal/server/repositories/items"
)

// RepositoryManager vends repositories bound to a DBTX, so the same code
// runs against the pool or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Items(db dbx.DBTX) items.Repository
	Groups(db dbx.DBTX) groups.Repository
	GroupUsers(db dbx.DBTX) groupusers.Repository
}
