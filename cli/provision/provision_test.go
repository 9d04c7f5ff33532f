package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequence() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id%02d", n)
	}
}

func write(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestNewExternalID(t *testing.T) {
	id := NewExternalID()
	assert.Len(t, id, 32)
	assert.NotContains(t, id, "-")
	assert.NotEqual(t, id, NewExternalID())
}

func TestLoadFleet(t *testing.T) {
	log.SetOutput(io.Discard)
	dir := t.TempDir()
	path := write(t, dir, "vehicles.csv", "tracker_id,board,model\n2,3913,ETB\n,1301,ETB\n7,1302,ETB\n")

	trackers, err := LoadFleet(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"2": {}, "7": {}}, trackers)
}

func TestProvision(t *testing.T) {
	log.SetOutput(io.Discard)
	dir := t.TempDir()
	fleet := write(t, dir, "vehicles.csv", "tracker_id,board\n7,1302\n2,3913\n10,1400\n")
	ids := write(t, dir, "ids.csv", "tracker_id,yandex_tracker_id\n2,existing\n")

	added, err := Provision(fleet, ids, sequence())
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	content, err := os.ReadFile(ids)
	require.NoError(t, err)
	lines := string(content)
	assert.Contains(t, lines, "2,existing\n")
	assert.Regexp(t, `^tracker_id,yandex_tracker_id\n10,id0[12]\n2,existing\n7,id0[12]\n$`, lines)
}

func TestProvisionCreatesMissingFile(t *testing.T) {
	log.SetOutput(io.Discard)
	dir := t.TempDir()
	fleet := write(t, dir, "vehicles.csv", "tracker_id\n2\n")
	ids := filepath.Join(dir, "ids.csv")

	added, err := Provision(fleet, ids, sequence())
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	content, err := os.ReadFile(ids)
	require.NoError(t, err)
	assert.Equal(t, "tracker_id,yandex_tracker_id\n2,id01\n", string(content))
}

func TestProvisionLeavesUnchangedFileAlone(t *testing.T) {
	log.SetOutput(io.Discard)
	dir := t.TempDir()
	fleet := write(t, dir, "vehicles.csv", "tracker_id\n2\n")
	original := "tracker_id,yandex_tracker_id\n9,zzz\n2,aaa\n"
	ids := write(t, dir, "ids.csv", original)

	added, err := Provision(fleet, ids, sequence())
	require.NoError(t, err)
	assert.Equal(t, 0, added)

	content, err := os.ReadFile(ids)
	require.NoError(t, err)
	assert.Equal(t, original, string(content))
}

func TestProvisionMissingFleet(t *testing.T) {
	log.SetOutput(io.Discard)
	_, err := Provision(filepath.Join(t.TempDir(), "none.csv"), "ids.csv", sequence())
	assert.Error(t, err)
}
