package db

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Dialect names reported by the gorm dialectors in use.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// likeEscape is the escape character used in generated LIKE clauses.
const likeEscape = `\`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// DialectName returns the active database dialect name.
func DialectName(conn *gorm.DB) string {
	if conn == nil || conn.Dialector == nil {
		return ""
	}
	return conn.Dialector.Name()
}

// IsSQLite reports whether the connection uses SQLite.
func IsSQLite(conn *gorm.DB) bool {
	return DialectName(conn) == DialectSQLite
}

// CaseInsensitiveLikeExpr returns a case-insensitive LIKE condition on column with one placeholder.
// Pair it with ContainsPattern so wildcards in the term match literally.
func CaseInsensitiveLikeExpr(conn *gorm.DB, column string) string {
	if IsSQLite(conn) {
		return fmt.Sprintf("LOWER(%s) LIKE ? ESCAPE '%s'", column, likeEscape)
	}
	return fmt.Sprintf("%s ILIKE ? ESCAPE '%s'", column, likeEscape)
}

// ContainsPattern turns a search term into a LIKE "contains" pattern.
func ContainsPattern(conn *gorm.DB, term string) string {
	pattern := "%" + likeEscaper.Replace(strings.TrimSpace(term)) + "%"
	if IsSQLite(conn) {
		return strings.ToLower(pattern)
	}
	return pattern
}
