package repository

import "github.com/Masterminds/squirrel"

// builder returns a statement builder using Postgres placeholders.
func builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}
