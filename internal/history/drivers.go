package history

import (
	// database/sql drivers selectable through HISTORY_DB_DRIVER.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)
