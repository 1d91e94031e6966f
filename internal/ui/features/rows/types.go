// Package rows provides the row browser pages and their datastar handlers.
package rows

// WhereSignals are the datastar signals of the where-clause form.
type WhereSignals struct {
	Column   string `json:"column"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
}

// sessionName is the cookie session holding the browser's session id.
const sessionName = "rowbrowse"

// sessionIDKey is the session value holding the id.
const sessionIDKey = "id"
