package dataservice

import (
	"bytes"
	"encoding/json"
)

// ID is a record identifier generated by the data service. JSON servers hand
// out either numbers or strings; both decode here and encode as a string.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Account is a `usuarios` record as submitted on registration.
type Account struct {
	Nome     string `json:"nome"`
	Login    string `json:"login"`
	Senha    string `json:"senha"`
	Email    string `json:"email"`
	Celular  string `json:"celular,omitempty"`
	Role     string `json:"role"`
	DriverID ID     `json:"driverId,omitempty"`
}

const DriverStatusActive = "Ativo"

type DriverProfile struct {
	ID           ID     `json:"id,omitempty"`
	Name         string `json:"name"`
	ContactEmail string `json:"contactEmail"`
	Phone        string `json:"phone"`
	Status       string `json:"status"`
	PhotoURL     string `json:"photoUrl"`
}

type Vehicle struct {
	ID             ID     `json:"id,omitempty"`
	DriverID       ID     `json:"driverId"`
	Model          string `json:"model"`
	Plate          string `json:"plate"`
	Capacity       int    `json:"capacity"`
	AvailableSpots int    `json:"availableSpots"`
}

type Link struct {
	Href string `json:"href"`
	Text string `json:"text"`
}

// Navigation maps a role name to its ordered menu links.
type Navigation map[string][]Link

// Record is an account record as returned by the lookup, kept raw so fields
// this package does not know about survive into the session.
type Record map[string]json.RawMessage

// String returns the field as a string, converting JSON numbers.
func (r Record) String(key string) string {
	raw, ok := r[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}
