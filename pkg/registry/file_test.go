package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-sqladvisor/pkg/analyzer"
)

func TestSaveLoadFormats(t *testing.T) {
	dir := t.TempDir()
	cards := Demo()

	for _, name := range []string{"tables.ini", "tables.yaml", "tables.yml", "tables.json", "tables.json.zst", "tables.ini.zst"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, SaveFile(path, cards))

			loaded, err := LoadFile(path)
			require.NoError(t, err)
			assert.Equal(t, cards, loaded)
		})
	}
}

func TestSaveCompressed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tables.yaml.zst")
	require.NoError(t, SaveFile(path, Demo()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, IsZstd(raw))
}

func TestDecodeHandWrittenINI(t *testing.T) {
	data := []byte(`
; exported by hand
[Customers]
indexes = """CREATE INDEX IX_Email ON Customers(Email);
CREATE INDEX IX_Name ON Customers(LastName);"""

[dbo.Orders]
indexes = ` + "`PRIMARY KEY (OrderID);`" + `
`)

	entries, err := Decode("ini", data)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Customers", entries[0].Table)
	assert.Equal(t, "CREATE INDEX IX_Email ON Customers(Email);\nCREATE INDEX IX_Name ON Customers(LastName);", entries[0].Definition)
	assert.Equal(t, "dbo.Orders", entries[1].Table)
	assert.Equal(t, "PRIMARY KEY (OrderID);", entries[1].Definition)
}

func TestDecodeRejectsMissingTable(t *testing.T) {
	_, err := Decode("json", []byte(`[{"table": "", "indexes": "x"}]`))
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = Decode("toml", nil)
	assert.Error(t, err)
}

func TestEncodeINIMergesDuplicates(t *testing.T) {
	data, err := Encode("ini", []analyzer.IndexEntry{{Table: "t", Definition: "a"}, {Table: "t", Definition: "b"}})
	require.NoError(t, err)

	entries, err := Decode("ini", data)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a\nb", entries[0].Definition)
}

func TestDecompressPassthrough(t *testing.T) {
	plain := []byte("SELECT 1;")
	out, err := Decompress(plain)
	require.NoError(t, err)
	assert.Equal(t, plain, out)

	packed, err := Compress(plain, 3)
	require.NoError(t, err)
	out, err = Decompress(packed)
	require.NoError(t, err)
	assert.Equal(t, plain, out)
}
