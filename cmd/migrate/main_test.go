package main

import (
	"database/sql"
	"fmt"
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lesson-scheduler-api/migrations"
)

func TestMigrateDispatch(t *testing.T) {
	var (
		gotCommand string
		gotDir     string
		gotArgs    []string
	)
	gooseRunFunc = func(command string, db *sql.DB, dir string, args ...string) error {
		gotCommand, gotDir, gotArgs = command, dir, args
		if command == "up-to" && len(args) == 0 {
			return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
		}
		return nil
	}

	tests := []struct {
		name       string
		args       []string
		wantErr    error
		wantErrStr string
		wantCmd    string
		wantArgs   []string
	}{
		{name: "no command", args: nil, wantErr: errUsage},
		{name: "up", args: []string{"up"}, wantCmd: "up", wantArgs: []string{}},
		{name: "up-to", args: []string{"up-to", "1"}, wantCmd: "up-to", wantArgs: []string{"1"}},
		{name: "up-to without version", args: []string{"up-to"}, wantErrStr: "up-to must be of form"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotCommand, gotDir, gotArgs = "", "", nil
			err := migrate(nil, tt.args)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantErrStr != "":
				assert.ErrorContains(t, err, tt.wantErrStr)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.wantCmd, gotCommand)
				assert.Equal(t, ".", gotDir)
				assert.Equal(t, tt.wantArgs, gotArgs)
			}
		})
	}
}

func TestMigrationsAreEmbedded(t *testing.T) {
	files, err := fs.Glob(migrations.FS, "*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	raw, err := fs.ReadFile(migrations.FS, files[0])
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(raw), "-- +goose Up"))
	assert.True(t, strings.Contains(string(raw), "student_lesson_schedules"))
}
