package database

import "strings"

// In expands to "(?, ?, ...)" with one placeholder per value, plus the
// matching argument list.
func In[T any](values []T) (string, []interface{}) {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return "(" + strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ") + ")", args
}

// Bool converts a flag for a column that is BOOLEAN on postgres and INTEGER
// on sqlite.
func Bool(driver string, v bool) interface{} {
	if driver == DriverPostgres {
		return v
	}
	if v {
		return 1
	}
	return 0
}
