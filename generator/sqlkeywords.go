// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: MIT

package generator

import (
	"sort"
	"strings"

	"github.com/aws-observability/aws-application-signals-go/common"
)

// Only this much of a db.statement is inspected; the verb is always at the
// front and statements can be arbitrarily large.
const maxKeywordScanLength = 80

// sqlKeywords are the dialect verbs recognized at the start of a statement.
// Multi-word forms must be listed so they win over their one-word prefixes.
var sqlKeywords = []string{
	"ALTER DATABASE", "ALTER INDEX", "ALTER PROCEDURE", "ALTER TABLE", "ALTER VIEW",
	"CREATE DATABASE", "CREATE INDEX", "CREATE PROCEDURE", "CREATE TABLE", "CREATE VIEW",
	"DROP DATABASE", "DROP INDEX", "DROP PROCEDURE", "DROP TABLE", "DROP VIEW",
	"BACKUP DATABASE", "TRUNCATE TABLE",
	"SELECT", "INSERT", "UPDATE", "DELETE", "MERGE", "REPLACE",
	"CREATE", "ALTER", "DROP", "TRUNCATE", "RENAME",
	"GRANT", "REVOKE", "DENY",
	"BEGIN", "COMMIT", "ROLLBACK", "SAVEPOINT", "START",
	"CALL", "EXEC", "EXECUTE", "PREPARE", "DEALLOCATE",
	"DESCRIBE", "EXPLAIN", "SHOW", "USE", "SET",
	"ANALYZE", "VACUUM", "LOCK", "UNLOCK", "FETCH", "COPY",
	"WITH", "VALUES",
}

// longest match first, so "DROP VIEW" beats "DROP"
var sortedSQLKeywords = func() []string {
	keywords := make([]string, len(sqlKeywords))
	copy(keywords, sqlKeywords)
	sort.SliceStable(keywords, func(i, j int) bool {
		return len(keywords[i]) > len(keywords[j])
	})
	return keywords
}()

// extractDBStatementKeyword derives the remote operation from the leading
// verb of a SQL statement.
func extractDBStatementKeyword(statement string) string {
	statement = strings.TrimSpace(statement)
	if len(statement) > maxKeywordScanLength {
		statement = statement[:maxKeywordScanLength]
	}
	statement = strings.ToUpper(statement)
	for _, keyword := range sortedSQLKeywords {
		if statement == keyword || strings.HasPrefix(statement, keyword+" ") {
			return keyword
		}
	}
	return common.UnknownRemoteOperation
}
