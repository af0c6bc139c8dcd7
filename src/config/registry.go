package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// BackupSuffix marks the series reported by a station's backup sensor.
const BackupSuffix = "_b"

var (
	ErrStationNotFound = errors.New("station not found")
	ErrInvalidFamily   = errors.New("invalid parameter family")
)

// Family is one of the two disjoint measurement families.
type Family string

const (
	Meteo Family = "meteo"
	Cont  Family = "cont"
)

// ParseFamily accepts the "meteo" and "cont" tags only.
func ParseFamily(s string) (Family, error) {
	switch Family(s) {
	case Meteo, Cont:
		return Family(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidFamily, s)
}

// Station pairs a display name with its network code.
type Station struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

// BackupCode returns the code of the station's backup series.
func (s Station) BackupCode() string { return s.Code + BackupSuffix }

// Parameter is a measured variable and its display unit.
type Parameter struct {
	Name string `json:"name"`
	Unit string `json:"unit"`
}

// DataConfig is the schema registry as read from dataconfig.json.
type DataConfig struct {
	Stations    []Station   `json:"stations"`
	MeteoParams []Parameter `json:"meteo_params"`
	ContParams  []Parameter `json:"cont_params"`
}

// ParseDataConfig decodes dataconfig.json content.
func ParseDataConfig(data []byte) (*DataConfig, error) {
	var dcfg DataConfig
	if err := json.Unmarshal(data, &dcfg); err != nil {
		return nil, fmt.Errorf("parse data config: %w", err)
	}
	return &dcfg, nil
}

// DefaultDataConfig returns the Monterrey metropolitan network.
func DefaultDataConfig() *DataConfig {
	return &DataConfig{
		Stations: []Station{
			{Name: "Guadalupe, La Pastora", Code: "SE"},
			{Name: "San Nicolás de los Garzas, San Nicolás", Code: "NE"},
			{Name: "Monterrey, Obispado", Code: "CE"},
			{Name: "Monterrey, San Bernabé", Code: "NO"},
			{Name: "Santa Catarina, Santa Catarina", Code: "SO"},
			{Name: "García, García", Code: "NO2"},
			{Name: "Escobedo, Escobedo", Code: "Norte"},
			{Name: "Apodaca, Apodaca", Code: "NE2"},
			{Name: "Juárez, Juárez", Code: "SE2"},
			{Name: "San Pedro Garza García, San Pedro", Code: "SO2"},
		},
		MeteoParams: []Parameter{
			{Name: "TOUT", Unit: "°C"},
			{Name: "RH", Unit: "%"},
			{Name: "SR", Unit: "kW/m2"},
			{Name: "RAINF", Unit: "mm/Hr"},
			{Name: "PRS", Unit: "mm Hg"},
			{Name: "WSR", Unit: "km/hr"},
			{Name: "WDR", Unit: "°"},
		},
		ContParams: []Parameter{
			{Name: "PM10", Unit: "µg/m3"},
			{Name: "PM2.5", Unit: "µg/m3"},
			{Name: "O3", Unit: "ppb"},
			{Name: "NO2", Unit: "ppb"},
			{Name: "SO2", Unit: "ppb"},
			{Name: "CO", Unit: "ppm"},
		},
	}
}

// Registry is the immutable station and parameter lookup built once at
// startup. It is safe for concurrent use.
type Registry struct {
	stations []Station
	byName   map[string]Station
	byCode   map[string]Station
	params   map[Family][]string
	units    map[string]string
	families map[string]Family
}

// NewRegistry validates dcfg and builds the registry from it.
func NewRegistry(dcfg *DataConfig) (*Registry, error) {
	if dcfg == nil {
		return nil, errors.New("nil data config")
	}
	r := &Registry{
		byName:   make(map[string]Station, len(dcfg.Stations)),
		byCode:   make(map[string]Station, len(dcfg.Stations)),
		params:   make(map[Family][]string, 2),
		units:    make(map[string]string),
		families: make(map[string]Family),
	}

	for _, s := range dcfg.Stations {
		if s.Name == "" || s.Code == "" {
			return nil, fmt.Errorf("station %+v: name and code are required", s)
		}
		if strings.HasSuffix(s.Code, BackupSuffix) {
			return nil, fmt.Errorf("station %q: code %q uses the backup suffix", s.Name, s.Code)
		}
		if _, ok := r.byName[s.Name]; ok {
			return nil, fmt.Errorf("duplicate station name %q", s.Name)
		}
		if _, ok := r.byCode[s.Code]; ok {
			return nil, fmt.Errorf("duplicate station code %q", s.Code)
		}
		r.byName[s.Name] = s
		r.byCode[s.Code] = s
		r.stations = append(r.stations, s)
	}

	add := func(family Family, params []Parameter) error {
		for _, p := range params {
			if p.Name == "" {
				return fmt.Errorf("%s: empty parameter name", family)
			}
			if other, ok := r.families[p.Name]; ok {
				return fmt.Errorf("parameter %q listed in both %s and %s", p.Name, other, family)
			}
			r.families[p.Name] = family
			r.units[p.Name] = p.Unit
			r.params[family] = append(r.params[family], p.Name)
		}
		return nil
	}
	if err := add(Meteo, dcfg.MeteoParams); err != nil {
		return nil, err
	}
	if err := add(Cont, dcfg.ContParams); err != nil {
		return nil, err
	}
	return r, nil
}

// MustRegistry is NewRegistry for the built-in defaults.
func MustRegistry() *Registry {
	r, err := NewRegistry(DefaultDataConfig())
	if err != nil {
		panic(err)
	}
	return r
}

// Stations returns the stations in registry order.
func (r *Registry) Stations() []Station {
	out := make([]Station, len(r.stations))
	copy(out, r.stations)
	return out
}

// Code resolves a display name to its station code. Names are matched
// exactly.
func (r *Registry) Code(name string) (string, error) {
	s, ok := r.byName[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrStationNotFound, name)
	}
	return s.Code, nil
}

// StationByCode resolves a station or backup code.
func (r *Registry) StationByCode(code string) (Station, bool) {
	s, ok := r.byCode[strings.TrimSuffix(code, BackupSuffix)]
	return s, ok
}

// Params returns the parameter names of a family in registry order.
func (r *Registry) Params(family Family) ([]string, error) {
	if _, err := ParseFamily(string(family)); err != nil {
		return nil, err
	}
	ps := r.params[family]
	out := make([]string, len(ps))
	copy(out, ps)
	return out, nil
}

// AllParams returns meteorological then contaminant parameters.
func (r *Registry) AllParams() []string {
	out := make([]string, 0, len(r.params[Meteo])+len(r.params[Cont]))
	out = append(out, r.params[Meteo]...)
	return append(out, r.params[Cont]...)
}

// Unit returns the display unit of param, or "" when unknown.
func (r *Registry) Unit(param string) string { return r.units[param] }

// FamilyOf reports the family param belongs to.
func (r *Registry) FamilyOf(param string) (Family, bool) {
	f, ok := r.families[param]
	return f, ok
}
