package domain

import "strings"

// Stored field names of a credential record.
const (
	FieldIdentifier  = "identifier"
	FieldSecret      = "secret"
	FieldDisplayName = "displayName"
)

// CredentialHeader is the column order of a new credentials collection.
var CredentialHeader = []string{FieldIdentifier, FieldSecret, FieldDisplayName, FieldEnrollmentRef}

// CredentialRequiredColumns must exist for a credentials collection to be usable.
var CredentialRequiredColumns = []string{FieldIdentifier, FieldSecret}

// CredentialFieldAliases maps legacy column titles to field names.
var CredentialFieldAliases = map[string]string{
	"cedula":    FieldIdentifier,
	"clave":     FieldSecret,
	"nombre":    FieldDisplayName,
	"matricula": FieldEnrollmentRef,
}

// CredentialRecord is a registered representative.
type CredentialRecord struct {
	Identifier    string `json:"identifier"`
	Secret        string `json:"-"`
	DisplayName   string `json:"display_name"`
	EnrollmentRef string `json:"enrollment_ref"`
}

// Fields renders the record as stored cell values keyed by field name.
func (c *CredentialRecord) Fields() map[string]string {
	return map[string]string{
		FieldIdentifier:    c.Identifier,
		FieldSecret:        c.Secret,
		FieldDisplayName:   c.DisplayName,
		FieldEnrollmentRef: c.EnrollmentRef,
	}
}

// DecodeCredentialRecord builds a record from stored cell values. Values are
// trimmed; the identifier keeps its stored case.
func DecodeCredentialRecord(fields map[string]string) CredentialRecord {
	return CredentialRecord{
		Identifier:    strings.TrimSpace(fields[FieldIdentifier]),
		Secret:        strings.TrimSpace(fields[FieldSecret]),
		DisplayName:   strings.TrimSpace(fields[FieldDisplayName]),
		EnrollmentRef: strings.TrimSpace(fields[FieldEnrollmentRef]),
	}
}
