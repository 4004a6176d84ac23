package loader

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadCSV(t *testing.T) {
	path := writeFile(t, t.TempDir(), "input.csv",
		"Registration,Mileage,DateFirstRegistered\nAB12CDE,24650,15/03/2019\nCD34EFG,9200,01/07/2021\n")

	table, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Registration", "Mileage", "DateFirstRegistered"}, table.Header)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, []string{"AB12CDE", "24650", "15/03/2019"}, table.Rows[0])
}

func TestLoadCSV_StripsBOM(t *testing.T) {
	path := writeFile(t, t.TempDir(), "input.csv",
		"\ufeffVRM,Mileage\nAB12CDE,24650\n")

	table, err := LoadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, "VRM", table.Header[0])
}

func TestLoadCSV_RaggedRows(t *testing.T) {
	path := writeFile(t, t.TempDir(), "input.csv",
		"Registration,Mileage,CapID\nAB12CDE,24650\nCD34EFG,9200,44123,extra\n")

	table, err := LoadCSV(path)
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)
	assert.Len(t, table.Rows[0], 2)
	assert.Len(t, table.Rows[1], 4)
}

func TestLoadCSV_Empty(t *testing.T) {
	path := writeFile(t, t.TempDir(), "input.csv", "")
	_, err := LoadCSV(path)
	assert.Error(t, err)
}

func TestLoadExcel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.xlsx")

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Registration", "Mileage", "DateFirstRegistered"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"AB12CDE", 24650, "15/03/2019"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	table, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Registration", "Mileage", "DateFirstRegistered"}, table.Header)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "AB12CDE", table.Rows[0][0])
	assert.Equal(t, "24650", table.Rows[0][1])
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	path := writeFile(t, t.TempDir(), "input.txt", "data")
	_, err := Load(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported input file type")
}

func TestFindMatching(t *testing.T) {
	dir := t.TempDir()
	old := writeFile(t, dir, "vehicles-autoedit-2024-04-01.xlsx", "a")
	newer := writeFile(t, dir, "vehicles-autoedit-2024-05-01.xlsx", "b")
	writeFile(t, dir, "unrelated.csv", "c")

	older := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(old, older, older))

	files, err := FindMatching(dir, "vehicles-autoedit*.xlsx")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, newer, files[0].Path)
	assert.Equal(t, old, files[1].Path)
}

func TestFindNewest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "VRM_Input.csv", "VRM,Mileage\n")

	file, err := FindNewest(dir, "VRM_Input.csv")
	require.NoError(t, err)
	assert.Equal(t, "VRM_Input.csv", file.Name)

	_, err = FindNewest(dir, "missing*.csv")
	assert.Error(t, err)
}
