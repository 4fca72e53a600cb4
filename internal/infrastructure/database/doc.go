// Package database provides the SQLite connection used by the topology journal.
//
// This package manages:
//   - Opening the database with WAL mode and a busy timeout
//   - Applying schema migrations from an fs.FS (normally the embedded
//     migrations package)
//   - Health checks for the status API
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Migrations are additive-only: new columns must be nullable or carry a
// default, and each .up.sql should ship with a .down.sql.
package database
