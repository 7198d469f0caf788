package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/mortality.report/internal/db"
)

const testCountiesCSV = `FIPS,Latitude,Longitude,Hover
1001,32.5349,-86.6428,"Autauga County, Alabama<br>01001"
06037,34.3209,-118.2248,"Los Angeles County, California<br>06037"
`

const testFactsCSV = `Unnamed: 0,County,County Code,Year,Deaths,Population,Age Adjusted Rate
Alabama,Autauga County,1001,2010,5,54571,12.3
Alabama,Autauga County,1001,2011,Suppressed,54571,Suppressed
California,Los Angeles County,6037,2010,1204,9818605,9.1
`

func testOptions(t *testing.T) options {
	t.Helper()
	dir := t.TempDir()
	opts := options{
		DBPath:   filepath.Join(dir, "mortality.db"),
		Counties: filepath.Join(dir, "points.csv"),
		Facts:    filepath.Join(dir, "mortality.csv"),
		Limit:    10,
	}
	require.NoError(t, os.WriteFile(opts.Counties, []byte(testCountiesCSV), 0o644))
	require.NoError(t, os.WriteFile(opts.Facts, []byte(testFactsCSV), 0o644))
	return opts
}

func TestRun_Import(t *testing.T) {
	ctx := context.Background()
	opts := testOptions(t)

	var out bytes.Buffer
	require.NoError(t, run(ctx, &out, opts, nil))

	var imported db.ImportRun
	require.NoError(t, json.Unmarshal(out.Bytes(), &imported))
	assert.NotEmpty(t, imported.ID)
	assert.Equal(t, 2, imported.CountyRows)
	assert.Equal(t, 3, imported.RecordRows)
	assert.Equal(t, opts.Facts, imported.FactsSource)

	// A second import replaces rather than appends.
	out.Reset()
	require.NoError(t, run(ctx, &out, opts, nil))

	store, err := db.Open(opts.DBPath)
	require.NoError(t, err)
	defer store.Close()
	facts, err := store.LoadRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, facts.Len())

	out.Reset()
	require.NoError(t, run(ctx, &out, opts, []string{"runs"}))
	var runs []db.ImportRun
	require.NoError(t, json.Unmarshal(out.Bytes(), &runs))
	assert.Len(t, runs, 2)
}

func TestRun_ImportMissingCSV(t *testing.T) {
	opts := testOptions(t)
	opts.Facts = filepath.Join(t.TempDir(), "missing.csv")
	err := run(context.Background(), &bytes.Buffer{}, opts, nil)
	assert.Error(t, err)
}

func TestRun_UnknownCommand(t *testing.T) {
	opts := testOptions(t)
	err := run(context.Background(), &bytes.Buffer{}, opts, []string{"frobnicate"})
	assert.ErrorContains(t, err, "unknown command")
}

func TestRun_Migrate(t *testing.T) {
	ctx := context.Background()
	opts := testOptions(t)

	tests := []struct {
		args []string
		want string
	}{
		{[]string{"migrate", "version"}, "Current version: 0 (dirty: false)\n"},
		{[]string{"migrate", "up"}, "Current version: 2 (dirty: false)\n"},
		{[]string{"migrate", "down"}, "Current version: 1 (dirty: false)\n"},
		{[]string{"migrate", "version"}, "Current version: 1 (dirty: false)\n"},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		require.NoError(t, run(ctx, &out, opts, tt.args), tt.args)
		assert.Equal(t, tt.want, out.String(), tt.args)
	}

	assert.Error(t, run(ctx, &bytes.Buffer{}, opts, []string{"migrate"}))
	assert.Error(t, run(ctx, &bytes.Buffer{}, opts, []string{"migrate", "sideways"}))
}
