// Package mockapi is a development implementation of the VanConnect data
// service. It keeps every collection in a single JSON db file.
package mockapi

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/hnrobert/vanconnect/internal/dataservice"
	"github.com/hnrobert/vanconnect/internal/jsonfile"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrUnknownCollection = errors.New("unknown collection")
)

const (
	Usuarios = "usuarios"
	Drivers  = "drivers"
	Vehicles = "vehicles"
)

type state struct {
	Usuarios   []dataservice.Record   `json:"usuarios"`
	Drivers    []dataservice.Record   `json:"drivers"`
	Vehicles   []dataservice.Record   `json:"vehicles"`
	Navigation dataservice.Navigation `json:"navigation"`
}

func (st *state) collection(name string) (*[]dataservice.Record, error) {
	switch name {
	case Usuarios:
		return &st.Usuarios, nil
	case Drivers:
		return &st.Drivers, nil
	case Vehicles:
		return &st.Vehicles, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, name)
}

// DefaultNavigation is written into a new db.
func DefaultNavigation() dataservice.Navigation {
	return dataservice.Navigation{
		"guest": {
			{Href: "/", Text: "Início"},
			{Href: "/register", Text: "Cadastro de pais"},
			{Href: "/register/driver", Text: "Seja motorista"},
		},
		"parent": {
			{Href: "/", Text: "Início"},
			{Href: "/conta", Text: "Minha conta"},
		},
		"driver": {
			{Href: "/", Text: "Início"},
			{Href: "/motorista", Text: "Painel do motorista"},
		},
		"admin": {
			{Href: "/", Text: "Início"},
			{Href: "/admin", Text: "Administração"},
		},
	}
}

type DB struct {
	path string
}

func NewDB(path string) *DB {
	return &DB{path: path}
}

// Ensure creates the db file with empty collections and the default
// navigation when it does not exist yet.
func (d *DB) Ensure() error {
	mu := jsonfile.Lock(d.path)
	mu.Lock()
	defer mu.Unlock()

	var st state
	found, err := jsonfile.Load(d.path, &st)
	if err != nil || found {
		return err
	}
	return jsonfile.Save(d.path, state{
		Usuarios:   []dataservice.Record{},
		Drivers:    []dataservice.Record{},
		Vehicles:   []dataservice.Record{},
		Navigation: DefaultNavigation(),
	})
}

func (d *DB) load() (state, error) {
	var st state
	if _, err := jsonfile.Load(d.path, &st); err != nil {
		return state{}, fmt.Errorf("load %s: %w", d.path, err)
	}
	return st, nil
}

// List returns the records of collection whose fields equal every filter
// value. Numbers compare by their decimal text.
func (d *DB) List(collection string, filter map[string]string) ([]dataservice.Record, error) {
	mu := jsonfile.Lock(d.path)
	mu.Lock()
	defer mu.Unlock()

	st, err := d.load()
	if err != nil {
		return nil, err
	}
	recs, err := st.collection(collection)
	if err != nil {
		return nil, err
	}
	out := []dataservice.Record{}
	for _, rec := range *recs {
		if matches(rec, filter) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (d *DB) Get(collection, id string) (dataservice.Record, error) {
	recs, err := d.List(collection, map[string]string{"id": id})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, ErrNotFound
	}
	return recs[0], nil
}

// Insert stores rec in collection, assigning a new id unless rec carries one.
func (d *DB) Insert(collection string, rec dataservice.Record) (dataservice.Record, error) {
	mu := jsonfile.Lock(d.path)
	mu.Lock()
	defer mu.Unlock()

	st, err := d.load()
	if err != nil {
		return nil, err
	}
	recs, err := st.collection(collection)
	if err != nil {
		return nil, err
	}

	if rec.String("id") == "" {
		id, _ := json.Marshal(uuid.NewString())
		rec["id"] = id
	}
	*recs = append(*recs, rec)
	if err := jsonfile.Save(d.path, st); err != nil {
		return nil, err
	}
	return rec, nil
}

func (d *DB) Navigation() (dataservice.Navigation, error) {
	mu := jsonfile.Lock(d.path)
	mu.Lock()
	defer mu.Unlock()

	st, err := d.load()
	if err != nil {
		return nil, err
	}
	if st.Navigation == nil {
		return dataservice.Navigation{}, nil
	}
	return st.Navigation, nil
}

func (d *DB) SetNavigation(nav dataservice.Navigation) error {
	mu := jsonfile.Lock(d.path)
	mu.Lock()
	defer mu.Unlock()

	st, err := d.load()
	if err != nil {
		return err
	}
	st.Navigation = nav
	return jsonfile.Save(d.path, st)
}

func matches(rec dataservice.Record, filter map[string]string) bool {
	for k, want := range filter {
		if _, ok := rec[k]; !ok || rec.String(k) != want {
			return false
		}
	}
	return true
}
