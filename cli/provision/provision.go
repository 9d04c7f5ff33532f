package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/roataway/briya/cli/bridge/identity"
)

// NewExternalID returns a random UUID without dashes, the form the collector expects.
func NewExternalID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// LoadFleet returns the tracker ids listed in the first column of the fleet file.
// The header row and vehicles without a tracker are skipped.
func LoadFleet(path string) (map[string]struct{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	trackers := make(map[string]struct{})
	header := true
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if header {
			header = false
			continue
		}
		if len(row) > 0 && row[0] != "" {
			trackers[row[0]] = struct{}{}
		}
	}
	log.Infof("Loaded %d trackers from %s", len(trackers), path)
	return trackers, nil
}

// Extend adds an id from newID for every tracker missing in ids and returns how
// many were added.
func Extend(trackers map[string]struct{}, ids map[string]string, newID func() string) int {
	added := 0
	for tracker := range trackers {
		if _, ok := ids[tracker]; !ok {
			ids[tracker] = newID()
			added++
		}
	}
	return added
}

// Provision updates identityPath with ids for the trackers of fleetPath. The file
// is only written when at least one tracker was added.
func Provision(fleetPath, identityPath string, newID func() string) (int, error) {
	trackers, err := LoadFleet(fleetPath)
	if err != nil {
		return 0, err
	}

	ids, err := identity.ReadCSV(identityPath)
	if errors.Is(err, fs.ErrNotExist) {
		ids, err = map[string]string{}, nil
	}
	if err != nil {
		return 0, err
	}
	log.Infof("Loaded %d identities from %s", len(ids), identityPath)

	added := Extend(trackers, ids, newID)
	log.Infof("New identities: %d", added)
	if added == 0 {
		return 0, nil
	}

	if err = identity.WriteCSV(identityPath, ids); err != nil {
		return 0, err
	}
	log.Infof("Wrote %d entries to %s", len(ids), identityPath)
	return added, nil
}
