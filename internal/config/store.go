package config

import (
	"time"

	"github.com/hnrobert/vanconnect/internal/jsonfile"
)

// Settings are site options editable from the admin dashboard.
type Settings struct {
	UpdatedAt time.Time `json:"updated_at"`
	UpdatedBy string    `json:"updated_by,omitempty"`
	// HomeNotice is markdown shown on the landing page.
	HomeNotice string `json:"home_notice,omitempty"`
	// DriverSignupClosed hides the driver registration form.
	DriverSignupClosed bool `json:"driver_signup_closed"`
}

type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Ensure writes an empty settings file when none exists.
func (s *Store) Ensure() error {
	mu := jsonfile.Lock(s.path)
	mu.Lock()
	defer mu.Unlock()

	var st Settings
	found, err := jsonfile.Load(s.path, &st)
	if err != nil || found {
		return err
	}
	return jsonfile.Save(s.path, Settings{UpdatedAt: time.Now().UTC()})
}

func (s *Store) Get() (Settings, error) {
	mu := jsonfile.Lock(s.path)
	mu.Lock()
	defer mu.Unlock()

	var st Settings
	if _, err := jsonfile.Load(s.path, &st); err != nil {
		return Settings{}, err
	}
	return st, nil
}

// SetHomeNotice stores the landing page markdown.
func (s *Store) SetHomeNotice(md, by string) error {
	return s.update(by, func(st *Settings) { st.HomeNotice = md })
}

func (s *Store) SetDriverSignupClosed(closed bool, by string) error {
	return s.update(by, func(st *Settings) { st.DriverSignupClosed = closed })
}

func (s *Store) update(by string, fn func(*Settings)) error {
	mu := jsonfile.Lock(s.path)
	mu.Lock()
	defer mu.Unlock()

	var st Settings
	if _, err := jsonfile.Load(s.path, &st); err != nil {
		return err
	}
	fn(&st)
	st.UpdatedAt = time.Now().UTC()
	st.UpdatedBy = by
	return jsonfile.Save(s.path, st)
}
