package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"transitmon/internal/departure"
	"transitmon/internal/provider"
)

const (
	DefaultDepartures   = 10
	DefaultScanInterval = 60 // seconds
)

// Station is one monitored stop: the provider, how to address the stop,
// and polling options. It is the unit stored in the entries table.
type Station struct {
	Provider        string   `yaml:"provider" json:"provider" validate:"required,provider"`
	StationID       string   `yaml:"station_id" json:"station_id,omitempty" validate:"required_without_all=Place Name"`
	Place           string   `yaml:"place" json:"place,omitempty" validate:"required_without=StationID"`
	Name            string   `yaml:"name" json:"name,omitempty" validate:"required_without=StationID"`
	Departures      int      `yaml:"departures" json:"departures" validate:"min=1,max=20"`
	ScanInterval    int      `yaml:"scan_interval" json:"scan_interval" validate:"min=10,max=3600"`
	TransportTypes  []string `yaml:"transportation_types" json:"transportation_types,omitempty" validate:"dive,transport"`
	APIKey          string   `yaml:"api_key" json:"api_key,omitempty"`
	APIKeySecondary string   `yaml:"api_key_secondary" json:"api_key_secondary,omitempty"`
}

// ErrAPIKeyRequired is returned by Validate for providers that need a key.
var ErrAPIKeyRequired = errors.New("provider requires an api key")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterValidation("provider", func(fl validator.FieldLevel) bool {
		return provider.New(fl.Field().String(), provider.Config{}) != nil
	})
	v.RegisterValidation("transport", func(fl validator.FieldLevel) bool {
		return string(departure.ParseTransportType(fl.Field().String())) == fl.Field().String()
	})
	return v
}

// ApplyDefaults fills in zero-valued polling options.
func (s *Station) ApplyDefaults() {
	if s.Departures == 0 {
		s.Departures = DefaultDepartures
	}
	if s.ScanInterval == 0 {
		s.ScanInterval = DefaultScanInterval
	}
	if len(s.TransportTypes) == 0 {
		s.TransportTypes = make([]string, 0, len(departure.TransportTypes))
		for _, t := range departure.TransportTypes {
			s.TransportTypes = append(s.TransportTypes, string(t))
		}
	}
}

// Validate checks field ranges, the station address and provider
// credentials.
func (s *Station) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid station: %w", err)
	}
	p := provider.New(s.Provider, provider.Config{})
	if p.RequiresAPIKey() && s.APIKey == "" {
		return fmt.Errorf("%s: %w", s.Provider, ErrAPIKeyRequired)
	}
	return nil
}

// Types returns the transport type filter.
func (s *Station) Types() []departure.TransportType {
	out := make([]departure.TransportType, 0, len(s.TransportTypes))
	for _, t := range s.TransportTypes {
		out = append(out, departure.ParseTransportType(t))
	}
	return out
}

// Query returns the provider query addressing the station.
func (s *Station) Query() provider.Query {
	return provider.Query{StationID: s.StationID, Place: s.Place, Name: s.Name, Limit: s.Departures}
}

// UniqueID identifies the station across restarts: the provider and
// station id, or the provider and a slug of place and name.
func (s *Station) UniqueID() string {
	key := s.StationID
	if key == "" {
		key = strings.ReplaceAll(strings.ToLower(s.Place+"_"+s.Name), " ", "_")
	}
	return s.Provider + "_" + key
}

// Title is the display name, e.g. "VRR Düsseldorf - Hauptbahnhof".
func (s *Station) Title() string {
	return strings.TrimSpace(fmt.Sprintf("%s %s - %s", strings.ToUpper(s.Provider), s.Place, s.Name))
}

type stationsFile struct {
	Stations []Station `yaml:"stations"`
}

// LoadStations reads and validates a YAML station file. Defaults are
// applied before validation.
func LoadStations(path string) ([]Station, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stations file: %w", err)
	}

	var f stationsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse stations file: %w", err)
	}

	for i := range f.Stations {
		f.Stations[i].ApplyDefaults()
		if err := f.Stations[i].Validate(); err != nil {
			return nil, fmt.Errorf("station %d: %w", i+1, err)
		}
	}
	return f.Stations, nil
}
