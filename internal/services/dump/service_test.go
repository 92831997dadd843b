package dump

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mock implementations.
type mockContainerService struct {
	execToWriterFunc func(ctx context.Context, name string, env []string, w io.Writer, command string, args ...string) error
	execCalls        int
}

func (m *mockContainerService) Running(ctx context.Context, name string) (bool, error) {
	return true, nil
}

func (m *mockContainerService) ReadFile(ctx context.Context, name, path string) ([]byte, error) {
	return []byte{}, nil
}

func (m *mockContainerService) ExecToWriter(ctx context.Context, name string, env []string, w io.Writer, command string, args ...string) error {
	m.execCalls++
	if m.execToWriterFunc != nil {
		return m.execToWriterFunc(ctx, name, env, w, command, args...)
	}
	_, err := w.Write([]byte("-- PostgreSQL database dump\n"))
	return err
}

type mockConfigService struct {
	values map[string]string
}

func (m *mockConfigService) Lookup(ctx context.Context, key string) string {
	return m.values[key]
}

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func testValues() map[string]string {
	return map[string]string{
		"database.user":     "app",
		"database.password": "s3cret",
		"database.name":     "appdb",
		"database.host":     "127.0.0.1",
		"database.port":     "5433",
		"database.ssl":      "0",
	}
}

func TestDump_Success(t *testing.T) {
	tmpDir := t.TempDir()

	var capturedEnv []string
	var capturedCommand string

	containerSvc := &mockContainerService{
		execToWriterFunc: func(ctx context.Context, name string, env []string, w io.Writer, command string, args ...string) error {
			capturedEnv = env
			capturedCommand = command
			_, err := w.Write([]byte("-- PostgreSQL database dump\nCREATE TABLE t ();\n"))
			return err
		},
	}
	configSvc := &mockConfigService{values: testValues()}

	svc := New(testLogger(), containerSvc, configSvc, "appserver", tmpDir)
	result, err := svc.Dump(context.Background(), "database", "20260824-030000")

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Nil(t, result.Error)
	assert.False(t, result.Skipped)
	assert.Equal(t, "appdb", result.Database)
	assert.Equal(t, filepath.Join(tmpDir, "appdb_20260824-030000.sql.gz"), result.OutputPath)
	assert.Greater(t, result.SizeBytes, int64(0))

	// Verify command and connection env
	assert.Equal(t, "pg_dump", capturedCommand)
	assert.Contains(t, capturedEnv, "PGUSER=app")
	assert.Contains(t, capturedEnv, "PGPASSWORD=s3cret")
	assert.Contains(t, capturedEnv, "PGDATABASE=appdb")
	assert.Contains(t, capturedEnv, "PGHOST=127.0.0.1")
	assert.Contains(t, capturedEnv, "PGPORT=5433")

	// Verify the output is valid gzip holding the dump text
	f, err := os.Open(result.OutputPath)
	require.NoError(t, err)
	defer f.Close()

	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	content, err := io.ReadAll(gz)
	require.NoError(t, err)
	assert.Contains(t, string(content), "CREATE TABLE t ()")
}

func TestDump_MissingRequiredValues(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name   string
		remove string
	}{
		{"missing user", "database.user"},
		{"missing password", "database.password"},
		{"missing name", "database.name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := testValues()
			delete(values, tt.remove)

			containerSvc := &mockContainerService{}
			configSvc := &mockConfigService{values: values}

			svc := New(testLogger(), containerSvc, configSvc, "appserver", tmpDir)
			result, err := svc.Dump(context.Background(), "database", "20260824-030000")

			require.NoError(t, err)
			assert.True(t, result.Skipped)
			assert.NotNil(t, result.Error)
			// pg_dump was never invoked
			assert.Equal(t, 0, containerSvc.execCalls)
		})
	}
}

func TestDump_SSLWithRootCert(t *testing.T) {
	tmpDir := t.TempDir()

	var capturedEnv []string

	containerSvc := &mockContainerService{
		execToWriterFunc: func(ctx context.Context, name string, env []string, w io.Writer, command string, args ...string) error {
			capturedEnv = env
			_, err := w.Write([]byte("dump"))
			return err
		},
	}

	values := testValues()
	values["database.ssl"] = "1"
	values["database.ssl-root-cert"] = "/etc/ssl/certs/root.crt"
	configSvc := &mockConfigService{values: values}

	svc := New(testLogger(), containerSvc, configSvc, "appserver", tmpDir)
	result, err := svc.Dump(context.Background(), "database", "20260824-030000")

	require.NoError(t, err)
	assert.Nil(t, result.Error)
	assert.Contains(t, capturedEnv, "PGSSLMODE=verify-ca")
	assert.Contains(t, capturedEnv, "PGSSLROOTCERT=/etc/ssl/certs/root.crt")
}

func TestDump_SSLWithoutRootCert(t *testing.T) {
	tmpDir := t.TempDir()

	var capturedEnv []string

	containerSvc := &mockContainerService{
		execToWriterFunc: func(ctx context.Context, name string, env []string, w io.Writer, command string, args ...string) error {
			capturedEnv = env
			_, err := w.Write([]byte("dump"))
			return err
		},
	}

	values := testValues()
	values["database.ssl"] = "1"
	configSvc := &mockConfigService{values: values}

	svc := New(testLogger(), containerSvc, configSvc, "appserver", tmpDir)
	result, err := svc.Dump(context.Background(), "database", "20260824-030000")

	require.NoError(t, err)
	assert.Nil(t, result.Error)
	assert.Contains(t, capturedEnv, "PGSSLMODE=require")
	for _, e := range capturedEnv {
		assert.NotContains(t, e, "PGSSLROOTCERT")
	}
}

func TestDump_SSLDisabled(t *testing.T) {
	tmpDir := t.TempDir()

	var capturedEnv []string

	containerSvc := &mockContainerService{
		execToWriterFunc: func(ctx context.Context, name string, env []string, w io.Writer, command string, args ...string) error {
			capturedEnv = env
			_, err := w.Write([]byte("dump"))
			return err
		},
	}

	configSvc := &mockConfigService{values: testValues()}

	svc := New(testLogger(), containerSvc, configSvc, "appserver", tmpDir)
	result, err := svc.Dump(context.Background(), "database", "20260824-030000")

	require.NoError(t, err)
	assert.Nil(t, result.Error)
	for _, e := range capturedEnv {
		assert.NotContains(t, e, "PGSSLMODE")
	}
}

func TestDump_HostPortDefaults(t *testing.T) {
	tmpDir := t.TempDir()

	var capturedEnv []string

	containerSvc := &mockContainerService{
		execToWriterFunc: func(ctx context.Context, name string, env []string, w io.Writer, command string, args ...string) error {
			capturedEnv = env
			_, err := w.Write([]byte("dump"))
			return err
		},
	}

	values := testValues()
	delete(values, "database.host")
	delete(values, "database.port")
	configSvc := &mockConfigService{values: values}

	svc := New(testLogger(), containerSvc, configSvc, "appserver", tmpDir)
	result, err := svc.Dump(context.Background(), "database", "20260824-030000")

	require.NoError(t, err)
	assert.Nil(t, result.Error)
	assert.Contains(t, capturedEnv, "PGHOST=localhost")
	assert.Contains(t, capturedEnv, "PGPORT=5432")
}

func TestDump_ExecFailureRemovesPartialFile(t *testing.T) {
	tmpDir := t.TempDir()

	containerSvc := &mockContainerService{
		execToWriterFunc: func(ctx context.Context, name string, env []string, w io.Writer, command string, args ...string) error {
			// Simulate pg_dump writing some output before failing
			_, _ = w.Write([]byte("partial dump data"))
			return errors.New("exit status 1, stderr: connection refused")
		},
	}
	configSvc := &mockConfigService{values: testValues()}

	svc := New(testLogger(), containerSvc, configSvc, "appserver", tmpDir)
	result, err := svc.Dump(context.Background(), "database", "20260824-030000")

	require.NoError(t, err)
	require.NotNil(t, result.Error)
	assert.Contains(t, result.Error.Error(), "pg_dump failed")
	assert.False(t, result.Skipped)

	// Verify partial file was cleaned up
	_, statErr := os.Stat(result.OutputPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestDump_DistinctTimestampsDistinctFiles(t *testing.T) {
	tmpDir := t.TempDir()

	containerSvc := &mockContainerService{}
	configSvc := &mockConfigService{values: testValues()}

	svc := New(testLogger(), containerSvc, configSvc, "appserver", tmpDir)

	first, err := svc.Dump(context.Background(), "database", "20260824-030000")
	require.NoError(t, err)
	require.Nil(t, first.Error)

	second, err := svc.Dump(context.Background(), "database", "20260824-040000")
	require.NoError(t, err)
	require.Nil(t, second.Error)

	assert.NotEqual(t, first.OutputPath, second.OutputPath)

	for _, path := range []string{first.OutputPath, second.OutputPath} {
		info, statErr := os.Stat(path)
		require.NoError(t, statErr)
		assert.Greater(t, info.Size(), int64(0))
	}
}

func TestDump_SecondPrefix(t *testing.T) {
	tmpDir := t.TempDir()

	containerSvc := &mockContainerService{}
	configSvc := &mockConfigService{values: map[string]string{
		"report-database.user":     "reporter",
		"report-database.password": "rep0rt",
		"report-database.name":     "reports",
	}}

	svc := New(testLogger(), containerSvc, configSvc, "appserver", tmpDir)
	result, err := svc.Dump(context.Background(), "report-database", "20260824-030000")

	require.NoError(t, err)
	assert.Nil(t, result.Error)
	assert.Equal(t, "reports", result.Database)
	assert.Equal(t, fmt.Sprintf("%s/reports_20260824-030000.sql.gz", tmpDir), result.OutputPath)
}
