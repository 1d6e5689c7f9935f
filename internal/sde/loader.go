package sde

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"eve-intel/internal/graph"
	"eve-intel/internal/logger"
)

// shipCategoryID is the SDE category holding every ship group.
const shipCategoryID = 6

// stopWordsFile is read from the dump directory, one word per line.
const stopWordsFile = "stop_words.txt"

// Load reads the universe snapshot at path. A directory is treated as an
// extracted JSONL SDE dump, anything else as a SQLite snapshot.
func Load(path string) (*graph.Universe, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("universe snapshot: %w", err)
	}
	var u *graph.Universe
	if info.IsDir() {
		u, err = LoadJSONL(path)
	} else {
		u, err = LoadSQLite(path)
	}
	if err != nil {
		return nil, err
	}
	if len(u.Systems) == 0 {
		return nil, fmt.Errorf("universe snapshot %s: no systems", path)
	}

	logger.Section("Universe")
	logger.Stats("Systems", len(u.Systems))
	logger.Stats("Aliases", len(u.Aliases))
	logger.Stats("Ships", len(u.Ships))
	logger.Stats("Stop words", len(u.StopWords))
	return u, nil
}

// LoadJSONL parses an extracted SDE dump directory.
func LoadJSONL(dir string) (*graph.Universe, error) {
	l := &jsonlLoader{
		dir:            dir,
		universe:       graph.NewUniverse(),
		regions:        make(map[int32]string),
		constellations: make(map[int32]string),
	}

	logger.Info("SDE", "Loading regions...")
	if err := l.loadRegions(); err != nil {
		return nil, fmt.Errorf("load regions: %w", err)
	}
	logger.Info("SDE", "Loading constellations...")
	if err := l.loadConstellations(); err != nil {
		return nil, fmt.Errorf("load constellations: %w", err)
	}
	logger.Info("SDE", "Loading solar systems...")
	if err := l.loadSystems(); err != nil {
		return nil, fmt.Errorf("load systems: %w", err)
	}
	logger.Info("SDE", "Loading stargates...")
	if err := l.loadStargates(); err != nil {
		return nil, fmt.Errorf("load stargates: %w", err)
	}
	logger.Info("SDE", "Loading ship types...")
	if err := l.loadShips(); err != nil {
		return nil, fmt.Errorf("load ships: %w", err)
	}
	if err := l.loadStopWords(); err != nil {
		return nil, fmt.Errorf("load stop words: %w", err)
	}
	return l.universe, nil
}

type jsonlLoader struct {
	dir            string
	universe       *graph.Universe
	regions        map[int32]string // regionID -> name
	constellations map[int32]string // constellationID -> name
}

func (l *jsonlLoader) loadRegions() error {
	return readJSONL(l.dir, "mapRegions", func(raw json.RawMessage) error {
		var r struct {
			Key  int32             `json:"_key"`
			Name map[string]string `json:"name"`
		}
		if err := json.Unmarshal(raw, &r); err != nil {
			return err
		}
		if name := r.Name["en"]; name != "" {
			l.regions[r.Key] = name
		}
		return nil
	})
}

func (l *jsonlLoader) loadConstellations() error {
	return readJSONL(l.dir, "mapConstellations", func(raw json.RawMessage) error {
		var c struct {
			Key  int32             `json:"_key"`
			Name map[string]string `json:"name"`
		}
		if err := json.Unmarshal(raw, &c); err != nil {
			return err
		}
		if name := c.Name["en"]; name != "" {
			l.constellations[c.Key] = name
		}
		return nil
	})
}

func (l *jsonlLoader) loadSystems() error {
	return readJSONL(l.dir, "mapSolarSystems", func(raw json.RawMessage) error {
		var s struct {
			Key             int32             `json:"_key"`
			Name            map[string]string `json:"name"`
			RegionID        int32             `json:"regionID"`
			ConstellationID int32             `json:"constellationID"`
		}
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		name := s.Name["en"]
		if name == "" {
			return nil
		}
		l.universe.AddSystem(&graph.System{
			ID:            s.Key,
			Name:          name,
			Constellation: l.constellations[s.ConstellationID],
			Region:        l.regions[s.RegionID],
		})
		if short, ok := shortAlias(name); ok {
			l.universe.AddAlias(short, s.Key)
		}
		return nil
	})
}

func (l *jsonlLoader) loadStargates() error {
	return readJSONL(l.dir, "mapStargates", func(raw json.RawMessage) error {
		var g struct {
			SolarSystemID int32 `json:"solarSystemID"`
			Destination   struct {
				SolarSystemID int32 `json:"solarSystemID"`
			} `json:"destination"`
		}
		if err := json.Unmarshal(raw, &g); err != nil {
			return err
		}
		if g.SolarSystemID != 0 && g.Destination.SolarSystemID != 0 {
			l.universe.AddGate(g.SolarSystemID, g.Destination.SolarSystemID)
		}
		return nil
	})
}

func (l *jsonlLoader) loadShips() error {
	shipGroups := make(map[int32]bool)
	err := readJSONL(l.dir, "groups", func(raw json.RawMessage) error {
		var g struct {
			Key        int32 `json:"_key"`
			CategoryID int32 `json:"categoryID"`
		}
		if err := json.Unmarshal(raw, &g); err != nil {
			return err
		}
		if g.CategoryID == shipCategoryID {
			shipGroups[g.Key] = true
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("load groups: %w", err)
	}

	return readJSONL(l.dir, "types", func(raw json.RawMessage) error {
		var t struct {
			Name      map[string]string `json:"name"`
			Published bool              `json:"published"`
			GroupID   int32             `json:"groupID"`
		}
		if err := json.Unmarshal(raw, &t); err != nil {
			return err
		}
		if !t.Published || !shipGroups[t.GroupID] {
			return nil
		}
		l.universe.AddShip(t.Name["en"])
		return nil
	})
}

func (l *jsonlLoader) loadStopWords() error {
	f, err := os.Open(filepath.Join(l.dir, stopWordsFile))
	if os.IsNotExist(err) {
		logger.Warn("SDE", fmt.Sprintf("%s not found, no stop words", stopWordsFile))
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		l.universe.AddStopWord(scanner.Text())
	}
	return scanner.Err()
}

// shortAlias returns the part of a nullsec-style name before the dash,
// the form pilots usually type ("8S28" for "8S28-3").
func shortAlias(name string) (string, bool) {
	i := strings.Index(name, "-")
	if i < 3 {
		return "", false
	}
	return name[:i], true
}

// readJSONL finds and reads a .jsonl file by base name from the extracted SDE directory.
func readJSONL(dir, baseName string, fn func(json.RawMessage) error) error {
	// Search for the file recursively
	var filePath string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		name := strings.TrimSuffix(info.Name(), ".jsonl")
		if !info.IsDir() && strings.EqualFold(name, baseName) {
			filePath = path
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil && err != filepath.SkipAll {
		return err
	}
	if filePath == "" {
		logger.Warn("SDE", fmt.Sprintf("File %s.jsonl not found, skipping", baseName))
		return nil
	}

	f, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := fn(json.RawMessage(line)); err != nil {
			continue // skip malformed lines
		}
	}
	return scanner.Err()
}
