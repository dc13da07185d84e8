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
)

const validCatalog = `
version: "1"
entities:
  - name: STARK_User_Roles
    pk_field: Role_Name
    partition: "STARK|role"
    fields:
      - name: Role_Name
        required: true
      - name: Level
        type: N
        rule: "value >= 0"
`

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRunValidate_HappyPath(t *testing.T) {
	t.Setenv("OUTPUT_FORMAT", "")
	var out bytes.Buffer
	require.NoError(t, runValidate(context.Background(), writeCatalog(t, validCatalog), &out))
	assert.Contains(t, out.String(), "Catálogo válido: 1 entidades")
}

func TestRunValidate_JSONOutput(t *testing.T) {
	t.Setenv("OUTPUT_FORMAT", "json")
	var out bytes.Buffer
	require.NoError(t, runValidate(context.Background(), writeCatalog(t, validCatalog), &out))

	lines := bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n"))
	var report map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &report))
	assert.Equal(t, true, report["valid"])
	assert.Equal(t, float64(1), report["entities"])
}

func TestRunValidate_Errors(t *testing.T) {
	t.Setenv("OUTPUT_FORMAT", "")

	badRule := writeCatalog(t, `
version: "1"
entities:
  - name: STARK_User_Roles
    pk_field: Role_Name
    partition: "STARK|role"
    fields:
      - name: Role_Name
        rule: "value >= "
`)
	err := runValidate(context.Background(), badRule, &bytes.Buffer{})
	assert.ErrorContains(t, err, "STARK_User_Roles.Role_Name")

	err = runValidate(context.Background(), writeCatalog(t, "version: \"1\"\n"), &bytes.Buffer{})
	assert.ErrorContains(t, err, "estrutura")
}

func TestRunDescribe(t *testing.T) {
	path := writeCatalog(t, validCatalog)

	var out bytes.Buffer
	require.NoError(t, runDescribe(context.Background(), path, "STARK_User_Roles", &out))
	assert.Contains(t, out.String(), `"pk_field": "Role_Name"`)
	assert.Contains(t, out.String(), `"rule": "value >= 0"`)

	assert.Error(t, runDescribe(context.Background(), path, "STARK_Module", &bytes.Buffer{}))
}
