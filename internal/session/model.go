package session

import (
	"encoding/json"

	"github.com/hnrobert/vanconnect/internal/dataservice"
	"github.com/hnrobert/vanconnect/internal/header"
)

type Role string

const (
	RoleGuest  Role = header.GuestRole
	RoleParent Role = "parent"
	RoleDriver Role = "driver"
	RoleAdmin  Role = "admin"
)

// Tab storage keys.
const (
	KeyCurrentUser = "usuarioCorrente"
	KeyRedirectURL = "redirectURL"
)

// User is the Session Record: the logged-in account without its password.
type User struct {
	ID       dataservice.ID `json:"id,omitempty"`
	Nome     string         `json:"nome"`
	Login    string         `json:"login"`
	Email    string         `json:"email,omitempty"`
	Celular  string         `json:"celular,omitempty"`
	Phone    string         `json:"phone,omitempty"`
	Role     Role           `json:"role"`
	DriverID dataservice.ID `json:"driverId,omitempty"`
}

// UnmarshalJSON reads the stored record field by field so that a data
// service sending numbers for text fields (a phone as 31999990000) does not
// make a valid session unreadable. Anything but a JSON object is an error.
func (u *User) UnmarshalJSON(b []byte) error {
	var rec dataservice.Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return err
	}
	*u = User{
		ID:       dataservice.ID(rec.String("id")),
		Nome:     rec.String("nome"),
		Login:    rec.String("login"),
		Email:    rec.String("email"),
		Celular:  rec.String("celular"),
		Phone:    rec.String("phone"),
		Role:     Role(rec.String("role")),
		DriverID: dataservice.ID(rec.String("driverId")),
	}
	return nil
}

// DriverSignup is the driver onboarding form.
type DriverSignup struct {
	Nome            string
	Email           string
	Phone           string
	Login           string
	Senha           string
	VehicleModel    string
	VehiclePlate    string
	VehicleCapacity string
}

// DriverResult is the outcome of RegisterDriver. OK covers the driver
// profile and the account; the vehicle step never fails the registration and
// is reported through VehicleErr instead.
type DriverResult struct {
	OK         bool
	DriverID   dataservice.ID
	VehicleErr error
}

// Warning reports a registration that succeeded without its vehicle.
func (r DriverResult) Warning() bool { return r.OK && r.VehicleErr != nil }
