// data.go
package processor

import (
	"fmt"
	"sync"
	"time"

	"AirQuality/src/config"
	"AirQuality/src/datasource/file"

	"github.com/go-gota/gota/dataframe"
)

// Warner receives non-fatal data warnings such as failed numeric coercion.
// *storage.Logger satisfies it.
type Warner interface {
	Warning(msg string)
}

// DataProcessor runs the station-level operations against the registry.
type DataProcessor struct {
	reg *config.Registry
	log Warner
}

// NewDataProcessor binds the registry; log may be nil.
func NewDataProcessor(reg *config.Registry, log Warner) *DataProcessor {
	return &DataProcessor{reg: reg, log: log}
}

// Registry returns the registry the processor resolves stations with.
func (p *DataProcessor) Registry() *config.Registry { return p.reg }

func (p *DataProcessor) warn(format string, args ...interface{}) {
	if p.log != nil {
		p.log.Warning(fmt.Sprintf(format, args...))
	}
}

// Snapshot is an immutable pair of melted tables. Frames inside a snapshot
// are never modified; every transform builds a new frame.
type Snapshot struct {
	Meteo    dataframe.DataFrame
	Cont     dataframe.DataFrame
	LoadedAt time.Time
}

// Frame returns the melted table of a family.
func (s Snapshot) Frame(family config.Family) (dataframe.DataFrame, error) {
	switch family {
	case config.Meteo:
		return s.Meteo, nil
	case config.Cont:
		return s.Cont, nil
	}
	return dataframe.DataFrame{}, fmt.Errorf("%w: %q", ErrInvalidFamily, family)
}

// Dataset holds the current snapshot and swaps it on reload.
type Dataset struct {
	snap Snapshot
	mu   sync.RWMutex
}

// Snapshot returns the current snapshot (safe for concurrent use).
func (d *Dataset) Snapshot() Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.snap
}

// Swap replaces the current snapshot with two freshly melted tables.
func (d *Dataset) Swap(meteo, cont dataframe.DataFrame) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.snap = Snapshot{Meteo: meteo, Cont: cont, LoadedAt: time.Now()}
}

// Loaded reports whether a snapshot has been installed.
func (d *Dataset) Loaded() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return !d.snap.LoadedAt.IsZero()
}

// Reload reads both raw datasets, melts them and installs the result. On
// error the previous snapshot stays in place.
func (d *Dataset) Reload(meteoPath, contPath, encoding string) error {
	meteo, err := LoadMelted(meteoPath, encoding)
	if err != nil {
		return err
	}
	cont, err := LoadMelted(contPath, encoding)
	if err != nil {
		return err
	}
	d.Swap(meteo, cont)
	return nil
}

// LoadMelted reads one raw dataset (CSV or XLSX) and melts it.
func LoadMelted(path, encoding string) (dataframe.DataFrame, error) {
	wide, err := file.ReadTable(path, encoding)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("load %s: %w", path, err)
	}
	long, err := Melt(wide)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("load %s: %w", path, err)
	}
	return long, nil
}
